package services

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Minimal ERC-20 ABI: only the transfer function is needed to redeem a
// token permission.
const erc20TransferJSON = `[{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20TransferJSON))
	if err != nil {
		panic("failed to parse ERC-20 transfer ABI: " + err.Error())
	}
	return parsed
}()

// maxUint256 is the largest amount an on-chain uint256 can carry.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// AmountOverflowError reports an amount that does not fit the on-chain
// 256-bit unsigned word.
type AmountOverflowError struct {
	Amount *big.Int
}

func (e *AmountOverflowError) Error() string {
	if e.Amount == nil {
		return "transfer amount is missing"
	}
	return fmt.Sprintf("transfer amount %s does not fit an unsigned 256-bit integer", e.Amount.String())
}

// ExecutionBuilder translates a validated transfer request into the on-chain
// call payload. It is a pure encoder: no validation of the recipient happens
// here (the orchestrator does that) and no side effects occur.
type ExecutionBuilder struct{}

// NewExecutionBuilder creates a new execution builder
func NewExecutionBuilder() *ExecutionBuilder {
	return &ExecutionBuilder{}
}

// BuildExecution produces the execution payload for a transfer.
//
// Native asset:  {target: recipient, value: amount, callData: empty}
// Token asset:   {target: token, value: 0, callData: transfer(recipient, amount)}
func (b *ExecutionBuilder) BuildExecution(asset business.Asset, recipient common.Address, amount *big.Int) (business.Execution, error) {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(maxUint256) > 0 {
		return business.Execution{}, &AmountOverflowError{Amount: amount}
	}

	if asset.Native {
		return business.Execution{
			Target: recipient,
			Value:  new(big.Int).Set(amount),
		}, nil
	}

	callData, err := erc20ABI.Pack("transfer", recipient, amount)
	if err != nil {
		return business.Execution{}, fmt.Errorf("failed to encode transfer call: %w", err)
	}

	return business.Execution{
		Target:   asset.TokenAddress,
		Value:    big.NewInt(0),
		CallData: callData,
	}, nil
}

// DecodeTransferCallData recovers the recipient and amount from an encoded
// transfer call. Used to verify payloads in tests and diagnostics.
func DecodeTransferCallData(callData []byte) (common.Address, *big.Int, error) {
	method := erc20ABI.Methods["transfer"]
	if len(callData) < 4 {
		return common.Address{}, nil, fmt.Errorf("call data too short for a function selector")
	}
	if string(callData[:4]) != string(method.ID) {
		return common.Address{}, nil, fmt.Errorf("call data is not a transfer call")
	}

	values, err := method.Inputs.Unpack(callData[4:])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to decode transfer call: %w", err)
	}

	recipient, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("unexpected recipient type in transfer call")
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("unexpected amount type in transfer call")
	}

	return recipient, amount, nil
}
