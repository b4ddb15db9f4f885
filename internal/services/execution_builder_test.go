package services_test

import (
	"math/big"
	"testing"

	"github.com/cyphera/permissions-api/internal/services"
	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRecipient = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")
	testToken     = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
)

func TestExecutionBuilder_BuildExecution_Native(t *testing.T) {
	builder := services.NewExecutionBuilder()

	amount := big.NewInt(1_500_000_000_000_000) // 0.0015 ETH
	execution, err := builder.BuildExecution(business.NativeAsset(), testRecipient, amount)
	require.NoError(t, err)

	assert.Equal(t, testRecipient, execution.Target)
	assert.Equal(t, amount.String(), execution.Value.String())
	assert.Empty(t, execution.CallData)
}

func TestExecutionBuilder_BuildExecution_Token(t *testing.T) {
	builder := services.NewExecutionBuilder()

	amount := big.NewInt(10_000_000) // 10 USDC
	execution, err := builder.BuildExecution(business.TokenAsset(testToken, 6), testRecipient, amount)
	require.NoError(t, err)

	assert.Equal(t, testToken, execution.Target)
	assert.Equal(t, "0", execution.Value.String())
	// selector + two 32-byte words
	require.Len(t, execution.CallData, 4+32+32)
	// transfer(address,uint256) selector
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, execution.CallData[:4])

	decodedRecipient, decodedAmount, err := services.DecodeTransferCallData(execution.CallData)
	require.NoError(t, err)
	assert.Equal(t, testRecipient, decodedRecipient)
	assert.Equal(t, amount.String(), decodedAmount.String())
}

func TestExecutionBuilder_BuildExecution_AmountBounds(t *testing.T) {
	builder := services.NewExecutionBuilder()

	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	tests := []struct {
		name    string
		asset   business.Asset
		amount  *big.Int
		wantErr bool
	}{
		{
			name:   "max uint256 is accepted",
			asset:  business.TokenAsset(testToken, 6),
			amount: new(big.Int).Set(maxUint256),
		},
		{
			name:    "max uint256 plus one overflows",
			asset:   business.TokenAsset(testToken, 6),
			amount:  new(big.Int).Add(maxUint256, big.NewInt(1)),
			wantErr: true,
		},
		{
			name:    "negative amount is rejected",
			asset:   business.NativeAsset(),
			amount:  big.NewInt(-1),
			wantErr: true,
		},
		{
			name:    "nil amount is rejected",
			asset:   business.NativeAsset(),
			amount:  nil,
			wantErr: true,
		},
		{
			name:   "zero amount encodes cleanly",
			asset:  business.NativeAsset(),
			amount: big.NewInt(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := builder.BuildExecution(tt.asset, testRecipient, tt.amount)
			if tt.wantErr {
				var overflowErr *services.AmountOverflowError
				require.ErrorAs(t, err, &overflowErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExecutionBuilder_BuildExecution_DoesNotAliasAmount(t *testing.T) {
	builder := services.NewExecutionBuilder()

	amount := big.NewInt(42)
	execution, err := builder.BuildExecution(business.NativeAsset(), testRecipient, amount)
	require.NoError(t, err)

	amount.SetInt64(9999)
	assert.Equal(t, "42", execution.Value.String())
}

func TestDecodeTransferCallData_RejectsForeignCallData(t *testing.T) {
	_, _, err := services.DecodeTransferCallData([]byte{0x01, 0x02})
	assert.Error(t, err)

	// approve(address,uint256) selector with empty args
	_, _, err = services.DecodeTransferCallData([]byte{0x09, 0x5e, 0xa7, 0xb3})
	assert.Error(t, err)
}
