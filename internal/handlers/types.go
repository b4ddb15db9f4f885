package handlers

import (
	"fmt"

	"github.com/cyphera/permissions-api/internal/constants"
	"github.com/cyphera/permissions-api/internal/helpers"
	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/common"
)

// PermissionConfigBody is the request shape shared by permission grant and
// redemption calls. Human-readable decimal amounts are converted to the
// token's smallest unit at the boundary; everything past this point is
// integer/rational arithmetic.
type PermissionConfigBody struct {
	PermissionType string `json:"permissionType" binding:"required"`
	TokenAddress   string `json:"tokenAddress"`
	TokenDecimals  *uint8 `json:"tokenDecimals"`

	// Periodic fields
	Amount         string `json:"amount"`
	PeriodDuration int64  `json:"periodDuration"`

	// Stream fields
	AmountPerSecond string `json:"amountPerSecond"`
	InitialAmount   string `json:"initialAmount"`
	MaxAmount       string `json:"maxAmount"`

	// Common fields
	StartTime           int64  `json:"startTime"`
	Expiry              int64  `json:"expiry" binding:"required"`
	ChainID             uint64 `json:"chainId"`
	Justification       string `json:"justification"`
	IsAdjustmentAllowed bool   `json:"isAdjustmentAllowed"`
}

// ToPermissionConfig converts the request body into a validated-shape
// domain config. Validation proper happens in the services; this only
// parses and assembles.
func (b PermissionConfigBody) ToPermissionConfig() (business.PermissionConfig, error) {
	kind := business.PermissionKind(b.PermissionType)
	if !kind.IsValid() {
		return business.PermissionConfig{}, fmt.Errorf("unknown permission type: %s", b.PermissionType)
	}

	asset, err := b.toAsset(kind)
	if err != nil {
		return business.PermissionConfig{}, err
	}

	config := business.PermissionConfig{
		Kind:          kind,
		Asset:         asset,
		StartTime:     b.StartTime,
		Expiry:        b.Expiry,
		Adjustable:    b.IsAdjustmentAllowed,
		ChainID:       b.ChainID,
		Justification: b.Justification,
	}
	if config.ChainID == 0 {
		config.ChainID = constants.SepoliaChainID
	}

	switch {
	case kind.IsPeriodic():
		periodAmount, err := helpers.ParseUnits(b.Amount, asset.Decimals)
		if err != nil {
			return business.PermissionConfig{}, fmt.Errorf("invalid period amount: %w", err)
		}
		config.Periodic = &business.PeriodicTerms{
			PeriodAmount:   periodAmount,
			PeriodDuration: b.PeriodDuration,
		}

	case kind.IsStream():
		rate, err := helpers.ParseUnitsRat(b.AmountPerSecond, asset.Decimals)
		if err != nil {
			return business.PermissionConfig{}, fmt.Errorf("invalid amount per second: %w", err)
		}
		initial, err := helpers.ParseUnits(orZero(b.InitialAmount), asset.Decimals)
		if err != nil {
			return business.PermissionConfig{}, fmt.Errorf("invalid initial amount: %w", err)
		}
		max, err := helpers.ParseUnits(b.MaxAmount, asset.Decimals)
		if err != nil {
			return business.PermissionConfig{}, fmt.Errorf("invalid max amount: %w", err)
		}
		config.Stream = &business.StreamTerms{
			RatePerSecond: rate,
			InitialAmount: initial,
			MaxAmount:     max,
		}
	}

	return config, nil
}

func (b PermissionConfigBody) toAsset(kind business.PermissionKind) (business.Asset, error) {
	if kind.IsNative() {
		return business.NativeAsset(), nil
	}

	if !helpers.IsAddressValid(b.TokenAddress) {
		return business.Asset{}, fmt.Errorf("token permission requires a valid token address")
	}

	address := common.HexToAddress(b.TokenAddress)
	if b.TokenDecimals != nil {
		return business.TokenAsset(address, *b.TokenDecimals), nil
	}
	if decimals, ok := knownTokenDecimals(address); ok {
		return business.TokenAsset(address, decimals), nil
	}
	return business.Asset{}, fmt.Errorf("token permission requires the token's decimals")
}

// knownTokenDecimals resolves the decimals of catalog tokens so callers may
// omit them for well-known assets.
func knownTokenDecimals(address common.Address) (uint8, bool) {
	if address == common.HexToAddress(constants.USDCSepoliaAddress) {
		return constants.USDCSepoliaDecimals, true
	}
	return 0, false
}

func orZero(amount string) string {
	if amount == "" {
		return "0"
	}
	return amount
}
