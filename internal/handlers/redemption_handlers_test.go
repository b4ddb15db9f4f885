package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cyphera/permissions-api/internal/client/rpc"
	"github.com/cyphera/permissions-api/internal/services"
	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well-known anvil test key, never used on a real network
const testSessionKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// stubEndpoint always reports a funded account.
type stubEndpoint struct{}

func (stubEndpoint) Name() string { return "stub" }

func (stubEndpoint) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return big.NewInt(1_000_000_000_000_000_000), nil
}

func (stubEndpoint) EstimateFeeRate(ctx context.Context) (*rpc.FeeRate, error) {
	return &rpc.FeeRate{BaseFee: big.NewInt(1_000_000_000), PriorityFee: big.NewInt(1_000_000_000)}, nil
}

// stubExecutor scripts the execution client for handler tests.
type stubExecutor struct {
	decodeErr error
	submitErr error
	txHash    common.Hash
}

func (s *stubExecutor) DecodeContext(ctx context.Context, permissionsContext hexutil.Bytes) (business.DelegationChain, error) {
	if s.decodeErr != nil {
		return nil, s.decodeErr
	}
	return business.DelegationChain{{Delegate: "0x11"}}, nil
}

func (s *stubExecutor) Submit(ctx context.Context, delegationManager common.Address, redemptions []business.DelegationRedemption) (common.Hash, error) {
	if s.submitErr != nil {
		return common.Hash{}, s.submitErr
	}
	return s.txHash, nil
}

func newRedeemRouter(t *testing.T, executor *stubExecutor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	session, err := services.NewSessionKeyService(testSessionKey)
	require.NoError(t, err)

	funding := services.NewFundingService([]rpc.Endpoint{stubEndpoint{}}, services.FundingConfig{
		AttemptTimeout:    time.Second,
		GasUnits:          200000,
		MarginPercent:     20,
		FallbackFeePerGas: big.NewInt(20_000_000_000),
	})

	redemption := services.NewRedemptionService(
		services.NewAccrualService(),
		funding,
		services.NewExecutionBuilder(),
		executor,
		session,
	)

	r := gin.New()
	r.POST("/api/v1/redeem", NewRedemptionHandler(redemption).Redeem)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func redeemBody(overrides map[string]interface{}) string {
	body := map[string]interface{}{
		"permissionType":     "native-token-stream",
		"amountPerSecond":    "1",
		"maxAmount":          "100",
		"startTime":          time.Now().Add(-time.Hour).Unix(),
		"expiry":             time.Now().Add(24 * time.Hour).Unix(),
		"permissionsContext": "0xdeadbeef0102",
		"delegationManager":  "0x739309deED0Ae184E66a427ACa432aE1D91d022e",
		"recipient":          "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		"amount":             "10",
	}
	for k, v := range overrides {
		body[k] = v
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func TestRedemptionHandler_Redeem_Success(t *testing.T) {
	executor := &stubExecutor{txHash: common.HexToHash("0xfeed")}
	r := newRedeemRouter(t, executor)

	w := postJSON(t, r, "/api/v1/redeem", redeemBody(nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RedeemResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, executor.txHash.Hex(), resp.TransactionHash)
	assert.Equal(t, "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", resp.Recipient)
	// 10 ETH requested; amounts travel in wei past the boundary
	assert.Equal(t, "10000000000000000000", resp.Amount)
	assert.Empty(t, resp.Warning)
}

func TestRedemptionHandler_Redeem_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		remove    string
		wantCode  int
	}{
		{
			name:     "missing recipient",
			remove:   "recipient",
			wantCode: http.StatusBadRequest,
		},
		{
			name:      "malformed permissions context",
			overrides: map[string]interface{}{"permissionsContext": "not-hex"},
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "malformed delegation manager",
			overrides: map[string]interface{}{"delegationManager": "0x123"},
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "unknown permission type",
			overrides: map[string]interface{}{"permissionType": "native-token-linear"},
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "unparseable amount",
			overrides: map[string]interface{}{"amount": "ten"},
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "malformed recipient",
			overrides: map[string]interface{}{"recipient": "0xzz"},
			wantCode:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRedeemRouter(t, &stubExecutor{txHash: common.HexToHash("0x01")})

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(redeemBody(tt.overrides)), &body))
			if tt.remove != "" {
				delete(body, tt.remove)
			}
			raw, _ := json.Marshal(body)

			w := postJSON(t, r, "/api/v1/redeem", string(raw))
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestRedemptionHandler_Redeem_InvalidConfigIs400(t *testing.T) {
	r := newRedeemRouter(t, &stubExecutor{txHash: common.HexToHash("0x01")})

	// The terms parse cleanly but violate the stream cap invariant; the
	// config check must catch this before anything is submitted.
	w := postJSON(t, r, "/api/v1/redeem", redeemBody(map[string]interface{}{
		"initialAmount": "500",
		"maxAmount":     "100",
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "invalid permission config")
}

func TestRedemptionHandler_Redeem_ExceedsAuthorizedIs422(t *testing.T) {
	r := newRedeemRouter(t, &stubExecutor{})

	// Rate 1 ETH/s capped at 100 ETH; ask for more than the cap.
	w := postJSON(t, r, "/api/v1/redeem", redeemBody(map[string]interface{}{
		"amount": "150",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestRedemptionHandler_Redeem_SubmissionFailureIs502(t *testing.T) {
	r := newRedeemRouter(t, &stubExecutor{submitErr: errors.New("delegation manager reverted")})

	w := postJSON(t, r, "/api/v1/redeem", redeemBody(nil))
	assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "delegation manager reverted")
}

func TestRedemptionHandler_Redeem_DecodeFailureIs502(t *testing.T) {
	r := newRedeemRouter(t, &stubExecutor{decodeErr: errors.New("malformed context")})

	w := postJSON(t, r, "/api/v1/redeem", redeemBody(nil))
	assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
}
