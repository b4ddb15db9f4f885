package business

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PermissionKind identifies one of the four supported spending permission
// variants. The string values match the wire format used by the wallet
// authorizer.
type PermissionKind string

const (
	NativeTokenPeriodic PermissionKind = "native-token-periodic"
	ERC20TokenPeriodic  PermissionKind = "erc20-token-periodic"
	NativeTokenStream   PermissionKind = "native-token-stream"
	ERC20TokenStream    PermissionKind = "erc20-token-stream"
)

// IsPeriodic reports whether the kind accrues by fixed-window reset.
func (k PermissionKind) IsPeriodic() bool {
	return k == NativeTokenPeriodic || k == ERC20TokenPeriodic
}

// IsStream reports whether the kind accrues continuously up to a cap.
func (k PermissionKind) IsStream() bool {
	return k == NativeTokenStream || k == ERC20TokenStream
}

// IsNative reports whether the kind moves the chain's native currency.
func (k PermissionKind) IsNative() bool {
	return k == NativeTokenPeriodic || k == NativeTokenStream
}

// IsValid reports whether the kind is one of the four supported variants.
func (k PermissionKind) IsValid() bool {
	return k.IsPeriodic() || k.IsStream()
}

// Asset identifies what a permission spends: the native currency or an
// ERC-20 token contract.
type Asset struct {
	TokenAddress common.Address
	Decimals     uint8
	Native       bool
}

// NativeAsset returns the native currency asset (18 decimals).
func NativeAsset() Asset {
	return Asset{Decimals: 18, Native: true}
}

// TokenAsset returns an ERC-20 asset with the given contract address and
// decimals.
func TokenAsset(address common.Address, decimals uint8) Asset {
	return Asset{TokenAddress: address, Decimals: decimals}
}

// PeriodicTerms are the accrual parameters of a periodic permission: the
// authorization resets to PeriodAmount every PeriodDuration seconds.
type PeriodicTerms struct {
	PeriodAmount   *big.Int // smallest unit, positive
	PeriodDuration int64    // seconds, positive
}

// StreamTerms are the accrual parameters of a stream permission: the
// authorization grows from InitialAmount at RatePerSecond up to MaxAmount.
// The rate is a rational so sub-unit-per-second streams lose no precision.
type StreamTerms struct {
	RatePerSecond *big.Rat // smallest unit per second, non-negative
	InitialAmount *big.Int // smallest unit, non-negative
	MaxAmount     *big.Int // smallest unit, positive
}

// PermissionConfig describes a requested or granted spending permission.
// It is a tagged union: exactly the terms struct matching Kind is set.
// Immutable once granted; treat values as read-only.
type PermissionConfig struct {
	Kind     PermissionKind
	Asset    Asset
	Periodic *PeriodicTerms // set iff Kind.IsPeriodic()
	Stream   *StreamTerms   // set iff Kind.IsStream()

	// StartTime is unix seconds; zero means "at issuance" and is filled in
	// by the permission service before the request leaves this process.
	StartTime int64
	Expiry    int64 // unix seconds, required, must be after StartTime

	// Adjustable records whether the authorizer may alter amounts at grant
	// time. Audit only; redemption logic never reads it.
	Adjustable    bool
	ChainID       uint64
	Justification string
}

// ConfigErrorCode classifies permission config validation failures.
type ConfigErrorCode string

const (
	ConfigInvalidKind  ConfigErrorCode = "invalid_kind"
	ConfigInvalidAsset ConfigErrorCode = "invalid_asset"
	ConfigInvalidRange ConfigErrorCode = "invalid_range"
	ConfigInvalidCap   ConfigErrorCode = "invalid_cap"
	ConfigInvalidRate  ConfigErrorCode = "invalid_rate"
)

// ConfigError is a local, pre-flight validation failure. It is fatal to the
// specific request and never retried.
type ConfigError struct {
	Code   ConfigErrorCode
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid permission config (%s): %s", e.Code, e.Reason)
}

// Validate checks the config invariants. It is called once when a config is
// constructed; a config that passed validation never changes afterwards.
func (c PermissionConfig) Validate() error {
	if !c.Kind.IsValid() {
		return &ConfigError{Code: ConfigInvalidKind, Reason: fmt.Sprintf("unknown permission kind %q", c.Kind)}
	}

	if c.Kind.IsNative() {
		if !c.Asset.Native {
			return &ConfigError{Code: ConfigInvalidAsset, Reason: "native permission kinds require the native asset"}
		}
	} else {
		if c.Asset.Native {
			return &ConfigError{Code: ConfigInvalidAsset, Reason: "token permission kinds require a token asset"}
		}
		if c.Asset.TokenAddress == (common.Address{}) {
			return &ConfigError{Code: ConfigInvalidAsset, Reason: "token asset requires a token contract address"}
		}
		if c.Asset.Decimals == 0 {
			return &ConfigError{Code: ConfigInvalidAsset, Reason: "token asset requires the token's decimals"}
		}
	}

	switch {
	case c.Kind.IsPeriodic():
		if c.Stream != nil {
			return &ConfigError{Code: ConfigInvalidKind, Reason: "periodic permission carries stream terms"}
		}
		if c.Periodic == nil {
			return &ConfigError{Code: ConfigInvalidKind, Reason: "periodic permission is missing its terms"}
		}
		if c.Periodic.PeriodAmount == nil || c.Periodic.PeriodAmount.Sign() <= 0 {
			return &ConfigError{Code: ConfigInvalidRate, Reason: "period amount must be positive"}
		}
		if c.Periodic.PeriodDuration <= 0 {
			return &ConfigError{Code: ConfigInvalidRate, Reason: "period duration must be positive"}
		}

	case c.Kind.IsStream():
		if c.Periodic != nil {
			return &ConfigError{Code: ConfigInvalidKind, Reason: "stream permission carries periodic terms"}
		}
		if c.Stream == nil {
			return &ConfigError{Code: ConfigInvalidKind, Reason: "stream permission is missing its terms"}
		}
		if c.Stream.RatePerSecond == nil || c.Stream.RatePerSecond.Sign() < 0 {
			return &ConfigError{Code: ConfigInvalidRate, Reason: "rate per second must be non-negative"}
		}
		if c.Stream.InitialAmount == nil || c.Stream.InitialAmount.Sign() < 0 {
			return &ConfigError{Code: ConfigInvalidRate, Reason: "initial amount must be non-negative"}
		}
		if c.Stream.MaxAmount == nil || c.Stream.MaxAmount.Sign() <= 0 {
			return &ConfigError{Code: ConfigInvalidRate, Reason: "max amount must be positive"}
		}
		if c.Stream.InitialAmount.Cmp(c.Stream.MaxAmount) > 0 {
			return &ConfigError{Code: ConfigInvalidCap, Reason: fmt.Sprintf(
				"initial amount %s exceeds max amount %s",
				c.Stream.InitialAmount.String(), c.Stream.MaxAmount.String())}
		}
	}

	if c.Expiry <= 0 {
		return &ConfigError{Code: ConfigInvalidRange, Reason: "expiry is required"}
	}
	if c.StartTime > 0 && c.Expiry <= c.StartTime {
		return &ConfigError{Code: ConfigInvalidRange, Reason: fmt.Sprintf(
			"expiry %d is not after start time %d", c.Expiry, c.StartTime)}
	}

	return nil
}
