package rpc

import (
	"context"
	"fmt"
	"math/big"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// FeeRate is a point-in-time fee estimate for one gas unit.
type FeeRate struct {
	BaseFee     *big.Int
	PriorityFee *big.Int
}

// PerGas returns the total wei-per-gas figure used for cost estimation.
func (f *FeeRate) PerGas() *big.Int {
	total := new(big.Int)
	if f.BaseFee != nil {
		total.Add(total, f.BaseFee)
	}
	if f.PriorityFee != nil {
		total.Add(total, f.PriorityFee)
	}
	return total
}

// Endpoint is a single JSON-RPC endpoint the funding oracle can query.
// Implementations must respect context cancellation on every call.
type Endpoint interface {
	Name() string
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	EstimateFeeRate(ctx context.Context) (*FeeRate, error)
}

// EthEndpoint queries an Ethereum JSON-RPC node through ethclient.
type EthEndpoint struct {
	name   string
	client *ethclient.Client
}

// NewEthEndpoint connects to the given JSON-RPC URL. For HTTP transports the
// connection is lazy, so construction does not touch the network.
func NewEthEndpoint(rawurl string) (*EthEndpoint, error) {
	client, err := ethclient.Dial(rawurl)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	return &EthEndpoint{
		name:   endpointName(rawurl),
		client: client,
	}, nil
}

// Name identifies the endpoint in logs. API keys embedded in the URL path
// are not included.
func (e *EthEndpoint) Name() string {
	return e.name
}

// GetBalance returns the address's native-currency balance at the latest block.
func (e *EthEndpoint) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := e.client.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// EstimateFeeRate returns the current base fee and suggested priority fee.
// Fails on pre-EIP-1559 endpoints that report no base fee.
func (e *EthEndpoint) EstimateFeeRate(ctx context.Context) (*FeeRate, error) {
	header, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	if header.BaseFee == nil {
		return nil, fmt.Errorf("endpoint does not report an EIP-1559 base fee")
	}

	tip, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get priority fee suggestion: %w", err)
	}

	return &FeeRate{BaseFee: header.BaseFee, PriorityFee: tip}, nil
}

// Close releases the underlying RPC connection.
func (e *EthEndpoint) Close() {
	e.client.Close()
}

// RankedEndpoints builds the ordered endpoint list the funding oracle
// iterates: the override URL, when set, ranks first, followed by the
// defaults in reliability order. URLs that fail to parse are skipped so one
// bad entry cannot empty the list.
func RankedEndpoints(override string, defaults []string) ([]Endpoint, error) {
	urls := make([]string, 0, len(defaults)+1)
	if override != "" {
		urls = append(urls, override)
	}
	urls = append(urls, defaults...)

	endpoints := make([]Endpoint, 0, len(urls))
	var lastErr error
	for _, u := range urls {
		endpoint, err := NewEthEndpoint(u)
		if err != nil {
			lastErr = err
			continue
		}
		endpoints = append(endpoints, endpoint)
	}

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no usable RPC endpoints: %w", lastErr)
	}
	return endpoints, nil
}

// endpointName reduces a URL to its host for logging.
func endpointName(rawurl string) string {
	parsed, err := url.Parse(rawurl)
	if err != nil || parsed.Host == "" {
		return rawurl
	}
	return parsed.Host
}
