package handlers

import (
	"testing"

	"github.com/cyphera/permissions-api/internal/logger"
	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

func uint8Ptr(v uint8) *uint8 { return &v }

func TestPermissionConfigBody_ToPermissionConfig(t *testing.T) {
	usdc := "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"

	tests := []struct {
		name    string
		body    PermissionConfigBody
		check   func(t *testing.T, config business.PermissionConfig)
		wantErr string
	}{
		{
			name: "native periodic",
			body: PermissionConfigBody{
				PermissionType: "native-token-periodic",
				Amount:         "0.1",
				PeriodDuration: 86400,
				Expiry:         1_800_000_000,
			},
			check: func(t *testing.T, config business.PermissionConfig) {
				assert.Equal(t, business.NativeTokenPeriodic, config.Kind)
				assert.True(t, config.Asset.Native)
				assert.Equal(t, uint8(18), config.Asset.Decimals)
				require.NotNil(t, config.Periodic)
				assert.Equal(t, "100000000000000000", config.Periodic.PeriodAmount.String())
				assert.Equal(t, int64(86400), config.Periodic.PeriodDuration)
				assert.Nil(t, config.Stream)
			},
		},
		{
			name: "erc20 stream",
			body: PermissionConfigBody{
				PermissionType:  "erc20-token-stream",
				TokenAddress:    usdc,
				TokenDecimals:   uint8Ptr(6),
				AmountPerSecond: "0.000001",
				InitialAmount:   "1",
				MaxAmount:       "100",
				Expiry:          1_800_000_000,
			},
			check: func(t *testing.T, config business.PermissionConfig) {
				assert.Equal(t, business.ERC20TokenStream, config.Kind)
				assert.Equal(t, common.HexToAddress(usdc), config.Asset.TokenAddress)
				require.NotNil(t, config.Stream)
				assert.Equal(t, "1", config.Stream.RatePerSecond.RatString())
				assert.Equal(t, "1000000", config.Stream.InitialAmount.String())
				assert.Equal(t, "100000000", config.Stream.MaxAmount.String())
			},
		},
		{
			name: "stream initial amount defaults to zero",
			body: PermissionConfigBody{
				PermissionType:  "native-token-stream",
				AmountPerSecond: "0.5",
				MaxAmount:       "1",
				Expiry:          1_800_000_000,
			},
			check: func(t *testing.T, config business.PermissionConfig) {
				require.NotNil(t, config.Stream)
				assert.Equal(t, "0", config.Stream.InitialAmount.String())
			},
		},
		{
			name: "chain id defaults to sepolia",
			body: PermissionConfigBody{
				PermissionType: "native-token-periodic",
				Amount:         "1",
				PeriodDuration: 3600,
				Expiry:         1_800_000_000,
			},
			check: func(t *testing.T, config business.PermissionConfig) {
				assert.Equal(t, uint64(11155111), config.ChainID)
			},
		},
		{
			name: "unknown permission type",
			body: PermissionConfigBody{
				PermissionType: "native-token-linear",
				Expiry:         1_800_000_000,
			},
			wantErr: "unknown permission type",
		},
		{
			name: "token kind without token address",
			body: PermissionConfigBody{
				PermissionType: "erc20-token-periodic",
				TokenDecimals:  uint8Ptr(6),
				Amount:         "1",
				PeriodDuration: 3600,
				Expiry:         1_800_000_000,
			},
			wantErr: "valid token address",
		},
		{
			name: "catalog token resolves decimals",
			body: PermissionConfigBody{
				PermissionType: "erc20-token-periodic",
				TokenAddress:   usdc,
				Amount:         "1",
				PeriodDuration: 3600,
				Expiry:         1_800_000_000,
			},
			check: func(t *testing.T, config business.PermissionConfig) {
				assert.Equal(t, uint8(6), config.Asset.Decimals)
				assert.Equal(t, "1000000", config.Periodic.PeriodAmount.String())
			},
		},
		{
			name: "unknown token without decimals",
			body: PermissionConfigBody{
				PermissionType: "erc20-token-periodic",
				TokenAddress:   "0x0000000000000000000000000000000000001234",
				Amount:         "1",
				PeriodDuration: 3600,
				Expiry:         1_800_000_000,
			},
			wantErr: "token's decimals",
		},
		{
			name: "amount beyond token precision",
			body: PermissionConfigBody{
				PermissionType: "erc20-token-periodic",
				TokenAddress:   usdc,
				TokenDecimals:  uint8Ptr(6),
				Amount:         "0.0000001",
				PeriodDuration: 3600,
				Expiry:         1_800_000_000,
			},
			wantErr: "invalid period amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := tt.body.ToPermissionConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, config)
		})
	}
}
