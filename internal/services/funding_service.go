package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cyphera/permissions-api/internal/client/rpc"
	"github.com/cyphera/permissions-api/internal/constants"
	"github.com/cyphera/permissions-api/internal/helpers"
	"github.com/cyphera/permissions-api/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// FundingConfig tunes the funding-sufficiency check.
type FundingConfig struct {
	// AttemptTimeout bounds each endpoint attempt independently.
	AttemptTimeout time.Duration
	// GasUnits is the gas estimate for one delegation redemption.
	GasUnits uint64
	// MarginPercent is the safety margin applied on top of the estimated cost.
	MarginPercent int64
	// FallbackFeePerGas is used when an endpoint serves the balance but fee
	// estimation fails. Conservative by default.
	FallbackFeePerGas *big.Int
}

// DefaultFundingConfig returns the tuning the service ships with.
func DefaultFundingConfig() FundingConfig {
	return FundingConfig{
		AttemptTimeout:    constants.EndpointAttemptTimeout,
		GasUnits:          constants.RedemptionGasUnits,
		MarginPercent:     constants.FundingMarginPercent,
		FallbackFeePerGas: big.NewInt(constants.FallbackFeePerGasWei),
	}
}

// FundingResult is the outcome of one funding check. Recomputed on every
// call and never cached: balances and fees move block to block.
type FundingResult struct {
	Address            common.Address
	Balance            *big.Int
	FeeRatePerGas      *big.Int
	EstimatedGasUnits  uint64
	EstimatedCost      *big.Int
	RequiredWithMargin *big.Int
	IsLowBalance       bool

	// Unknown is set when every endpoint failed. Callers must treat this as
	// "proceed with a warning", never as a hard block: network flakiness
	// must not lock a user out of their own action.
	Unknown   bool
	LastError error
	Warning   string
	CheckedAt time.Time
}

// FundingService estimates whether an operating account can pay the
// transaction fee for a redemption, querying a ranked endpoint list with
// per-endpoint timeout and sequential failover.
type FundingService struct {
	endpoints []rpc.Endpoint
	config    FundingConfig
	logger    *zap.Logger
}

// NewFundingService creates a new funding service over the given ranked
// endpoint list.
func NewFundingService(endpoints []rpc.Endpoint, config FundingConfig) *FundingService {
	return &FundingService{
		endpoints: endpoints,
		config:    config,
		logger:    logger.Log,
	}
}

// CheckFunding queries the endpoints in priority order and returns the first
// successful balance/fee read, evaluated against the margin. Endpoint
// iteration is sequential to keep ordering deterministic. When every
// endpoint fails the result is a soft unknown, not an error.
func (s *FundingService) CheckFunding(ctx context.Context, address common.Address) *FundingResult {
	var lastErr error

	for _, endpoint := range s.endpoints {
		attemptCtx, cancel := context.WithTimeout(ctx, s.config.AttemptTimeout)

		balance, err := endpoint.GetBalance(attemptCtx, address)
		if err != nil {
			cancel()
			lastErr = err
			s.logger.Warn("RPC endpoint failed, trying next",
				zap.String("endpoint", endpoint.Name()),
				zap.Error(err))
			continue
		}

		feeRate := s.feeRateOrFallback(attemptCtx, endpoint)
		cancel()

		return s.evaluate(address, balance, feeRate)
	}

	s.logger.Error("All RPC endpoints failed for funding check",
		zap.String("address", address.Hex()),
		zap.Error(lastErr))

	return &FundingResult{
		Address:           address,
		EstimatedGasUnits: s.config.GasUnits,
		IsLowBalance:      true,
		Unknown:           true,
		LastError:         lastErr,
		Warning:           "Unable to fetch balance from any RPC endpoint. Please check the account manually on an explorer.",
		CheckedAt:         time.Now(),
	}
}

// feeRateOrFallback asks the endpoint for a fee estimate, falling back to
// the configured constant when estimation fails. A missing fee estimate is
// not a reason to fail a check that already has the balance.
func (s *FundingService) feeRateOrFallback(ctx context.Context, endpoint rpc.Endpoint) *big.Int {
	feeRate, err := endpoint.EstimateFeeRate(ctx)
	if err != nil {
		s.logger.Warn("Fee estimation failed, using fallback fee rate",
			zap.String("endpoint", endpoint.Name()),
			zap.String("fallback_wei_per_gas", s.config.FallbackFeePerGas.String()),
			zap.Error(err))
		return new(big.Int).Set(s.config.FallbackFeePerGas)
	}
	return feeRate.PerGas()
}

// evaluate computes the required-funds threshold in integer arithmetic:
// estimatedCost = gasUnits * feeRate; required = cost * (100+margin) / 100.
func (s *FundingService) evaluate(address common.Address, balance, feeRatePerGas *big.Int) *FundingResult {
	estimatedCost := new(big.Int).Mul(new(big.Int).SetUint64(s.config.GasUnits), feeRatePerGas)

	required := new(big.Int).Mul(estimatedCost, big.NewInt(100+s.config.MarginPercent))
	required.Div(required, big.NewInt(100))

	result := &FundingResult{
		Address:            address,
		Balance:            balance,
		FeeRatePerGas:      feeRatePerGas,
		EstimatedGasUnits:  s.config.GasUnits,
		EstimatedCost:      estimatedCost,
		RequiredWithMargin: required,
		IsLowBalance:       balance.Cmp(required) < 0,
		CheckedAt:          time.Now(),
	}

	if result.IsLowBalance {
		shortfall := new(big.Int).Sub(required, balance)
		result.Warning = fmt.Sprintf(
			"Low balance: need at least %s ETH for gas fees, have %s ETH (short %s ETH)",
			helpers.FormatWeiToEth(required),
			helpers.FormatWeiToEth(balance),
			helpers.FormatWeiToEth(shortfall))
	}

	return result
}
