package services

import (
	"math/big"
	"time"

	"github.com/cyphera/permissions-api/internal/types/business"
)

// AccrualService computes how much value a granted permission currently
// authorizes to move. It is pure: no I/O, no state, integer and rational
// arithmetic only. Which part of a periodic window has already been consumed
// is tracked by the on-chain delegation manager, not here; for periodic
// kinds this engine answers "what is the per-period ceiling".
type AccrualService struct{}

// NewAccrualService creates a new accrual service
func NewAccrualService() *AccrualService {
	return &AccrualService{}
}

// ValidateConfig checks a permission config's invariants. Configs are
// validated once at construction and treated as immutable afterwards.
func (s *AccrualService) ValidateConfig(config business.PermissionConfig) error {
	return config.Validate()
}

// AuthorizedAmount returns the amount the permission authorizes at asOf, in
// the asset's smallest unit. Outside the [startTime, expiry) window the
// answer is zero, not an error: an expired or not-yet-started permission
// simply authorizes nothing.
func (s *AccrualService) AuthorizedAmount(config business.PermissionConfig, asOf time.Time) *big.Int {
	now := asOf.Unix()

	if config.Expiry > 0 && now >= config.Expiry {
		return big.NewInt(0)
	}
	if now < config.StartTime {
		return big.NewInt(0)
	}

	switch {
	case config.Kind.IsPeriodic():
		return new(big.Int).Set(config.Periodic.PeriodAmount)

	case config.Kind.IsStream():
		accrued := streamAccrued(config.Stream, now-config.StartTime)
		if accrued.Cmp(config.Stream.MaxAmount) > 0 {
			return new(big.Int).Set(config.Stream.MaxAmount)
		}
		return accrued
	}

	return big.NewInt(0)
}

// streamAccrued computes initialAmount + elapsed * ratePerSecond, floored to
// the smallest unit. Partially accrued units are not yet redeemable.
func streamAccrued(terms *business.StreamTerms, elapsedSeconds int64) *big.Int {
	streamed := new(big.Rat).Mul(terms.RatePerSecond, new(big.Rat).SetInt64(elapsedSeconds))
	floor := new(big.Int).Quo(streamed.Num(), streamed.Denom())
	return floor.Add(floor, terms.InitialAmount)
}
