// Package delegation implements the execution-client collaborator over the
// delegation server's HTTP API. The server owns credential decoding and
// transaction signing/broadcast; this client only shapes requests and
// surfaces results.
package delegation

import (
	"context"
	"fmt"
	"math/big"
	"time"

	httpclient "github.com/cyphera/permissions-api/internal/client/http"
	"github.com/cyphera/permissions-api/internal/services"
	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ClientConfig configures the delegation server client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	RPCTimeout time.Duration
}

// Client talks to the delegation server. It implements
// services.ExecutionClient.
//
// Read calls go through httpClient, which retries transient failures.
// Redemption submission goes through submitClient, which never retries: a
// gateway error can arrive after the server has already signed and
// broadcast, and re-posting would move value twice.
type Client struct {
	httpClient   *httpclient.HTTPClient
	submitClient *httpclient.HTTPClient
	apiKey       string
}

// NewClient creates a new delegation server client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("delegation server base URL is required")
	}

	// Default generous: redemption submission waits for broadcast.
	timeout := config.RPCTimeout
	if timeout == 0 {
		timeout = 3 * time.Minute
	}

	return &Client{
		httpClient: httpclient.NewHTTPClient(
			httpclient.WithBaseURL(config.BaseURL),
			httpclient.WithTimeout(timeout),
		),
		submitClient: httpclient.NewHTTPClient(
			httpclient.WithBaseURL(config.BaseURL),
			httpclient.WithTimeout(timeout),
			httpclient.WithRetryConfig(nil),
		),
		apiKey: config.APIKey,
	}, nil
}

type decodeContextRequest struct {
	PermissionsContext string `json:"permissionsContext"`
}

type decodeContextResponse struct {
	Delegations business.DelegationChain `json:"delegations"`
}

// DecodeContext asks the delegation server to decode an opaque permissions
// context into its delegation chain. The blob is treated as a capability
// token; this client never inspects it.
func (c *Client) DecodeContext(ctx context.Context, permissionsContext hexutil.Bytes) (business.DelegationChain, error) {
	if len(permissionsContext) == 0 {
		return nil, fmt.Errorf("permissions context cannot be empty")
	}

	resp, err := c.httpClient.Post(ctx, "/v1/delegations/decode", decodeContextRequest{
		PermissionsContext: permissionsContext.String(),
	}, c.authOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to decode permissions context: %w", err)
	}

	var decoded decodeContextResponse
	if err := httpclient.DecodeJSON(resp, &decoded); err != nil {
		return nil, err
	}

	// The decoder yields exactly one delegation chain per context.
	if len(decoded.Delegations) == 0 {
		return nil, fmt.Errorf("delegation server returned an empty delegation chain")
	}

	return decoded.Delegations, nil
}

type wireExecution struct {
	Target   string `json:"target"`
	Value    string `json:"value"`
	CallData string `json:"callData"`
}

type wireRedemption struct {
	Delegations business.DelegationChain `json:"delegations"`
	Executions  []wireExecution          `json:"executions"`
	Mode        business.ExecutionMode   `json:"mode"`
}

type submitRequest struct {
	DelegationManager string           `json:"delegationManager"`
	Redemptions       []wireRedemption `json:"redemptions"`
}

type submitResponse struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash"`
	ErrorMessage    string `json:"errorMessage"`
}

// Submit sends one or more delegation redemptions for signing and broadcast
// and returns the transaction hash. The server does not retry on-chain
// rejections and neither does this client.
func (c *Client) Submit(ctx context.Context, delegationManager common.Address, redemptions []business.DelegationRedemption) (common.Hash, error) {
	if len(redemptions) == 0 {
		return common.Hash{}, fmt.Errorf("at least one redemption is required")
	}

	req := submitRequest{
		DelegationManager: delegationManager.Hex(),
		Redemptions:       make([]wireRedemption, 0, len(redemptions)),
	}
	for _, redemption := range redemptions {
		executions := make([]wireExecution, 0, len(redemption.Executions))
		for _, execution := range redemption.Executions {
			executions = append(executions, toWireExecution(execution))
		}
		req.Redemptions = append(req.Redemptions, wireRedemption{
			Delegations: redemption.Chain,
			Executions:  executions,
			Mode:        redemption.Mode,
		})
	}

	resp, err := c.submitClient.Post(ctx, "/v1/delegations/redeem", req, c.authOptions()...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to submit redemption: %w", err)
	}

	var result submitResponse
	if err := httpclient.DecodeJSON(resp, &result); err != nil {
		return common.Hash{}, err
	}

	if !result.Success {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "unknown error (empty error message from server)"
		}
		return common.Hash{}, fmt.Errorf("delegation redemption failed: %s", msg)
	}
	if result.TransactionHash == "" {
		return common.Hash{}, fmt.Errorf("delegation redemption failed: empty transaction hash returned")
	}

	return common.HexToHash(result.TransactionHash), nil
}

type grantRequest struct {
	Permissions []services.PermissionWireRequest `json:"permissions"`
}

type grantResponse struct {
	Success            bool                      `json:"success"`
	PermissionsContext string                    `json:"permissionsContext"`
	DelegationManager  string                    `json:"delegationManager"`
	UserAccount        *business.UserAccountInfo `json:"userAccount"`
	ErrorMessage       string                    `json:"errorMessage"`
}

// GrantPermission forwards a permission request to the wallet through the
// delegation server and returns the issued credential. Implements
// services.PermissionAuthorizer.
func (c *Client) GrantPermission(ctx context.Context, req services.PermissionWireRequest) (*business.GrantedPermission, *business.UserAccountInfo, error) {
	resp, err := c.httpClient.Post(ctx, "/v1/permissions/grant", grantRequest{
		Permissions: []services.PermissionWireRequest{req},
	}, c.authOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to request permission grant: %w", err)
	}

	var result grantResponse
	if err := httpclient.DecodeJSON(resp, &result); err != nil {
		return nil, nil, err
	}

	if !result.Success {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "unknown error (empty error message from server)"
		}
		return nil, nil, fmt.Errorf("permission grant failed: %s", msg)
	}

	contextBlob, err := hexutil.Decode(result.PermissionsContext)
	if err != nil {
		return nil, nil, fmt.Errorf("authorizer returned an invalid permissions context: %w", err)
	}

	granted := &business.GrantedPermission{
		Context:           contextBlob,
		DelegationManager: common.HexToAddress(result.DelegationManager),
	}
	return granted, result.UserAccount, nil
}

func (c *Client) authOptions() []httpclient.RequestOption {
	if c.apiKey == "" {
		return nil
	}
	return []httpclient.RequestOption{httpclient.WithBearerToken(c.apiKey)}
}

func toWireExecution(execution business.Execution) wireExecution {
	value := execution.Value
	if value == nil {
		value = big.NewInt(0)
	}
	return wireExecution{
		Target:   execution.Target.Hex(),
		Value:    value.String(),
		CallData: hexutil.Encode(execution.CallData),
	}
}
