package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/cyphera/permissions-api/internal/helpers"
	"github.com/cyphera/permissions-api/internal/services"
	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
)

// RedemptionHandler drives delegation redemptions.
type RedemptionHandler struct {
	redemption *services.RedemptionService
}

// NewRedemptionHandler creates a new redemption handler
func NewRedemptionHandler(redemption *services.RedemptionService) *RedemptionHandler {
	return &RedemptionHandler{redemption: redemption}
}

// RedeemBody is the POST /redeem request. The session key is never part of
// the request; the backend redeems with its own.
type RedeemBody struct {
	PermissionConfigBody
	PermissionsContext string `json:"permissionsContext" binding:"required"`
	DelegationManager  string `json:"delegationManager" binding:"required"`
	Recipient          string `json:"recipient" binding:"required"`
}

// RedeemResponse reports a submitted redemption. The warning, when present,
// records an advisory funding condition that did not block submission.
type RedeemResponse struct {
	Success           bool   `json:"success"`
	TransactionHash   string `json:"transactionHash"`
	Recipient         string `json:"recipient"`
	Amount            string `json:"amount"`
	SessionAddress    string `json:"sessionAddress"`
	DelegationManager string `json:"delegationManager"`
	Warning           string `json:"warning,omitempty"`
}

// Redeem validates the request and submits one execution under the granted
// permission.
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	var body RedeemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if !helpers.IsHexBlob(body.PermissionsContext) {
		sendError(c, http.StatusBadRequest, "permissionsContext must be a 0x-prefixed hex blob", nil)
		return
	}
	if !helpers.IsAddressValid(body.DelegationManager) {
		sendError(c, http.StatusBadRequest, "Invalid delegation manager address", nil)
		return
	}

	config, err := body.ToPermissionConfig()
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	contextBlob, err := hexutil.Decode(body.PermissionsContext)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid permissions context encoding", err)
		return
	}

	amount, err := helpers.ParseUnits(body.Amount, config.Asset.Decimals)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	result, err := h.redemption.Redeem(c.Request.Context(), business.RedemptionRequest{
		Granted: business.GrantedPermission{
			Context:           contextBlob,
			DelegationManager: common.HexToAddress(body.DelegationManager),
		},
		Config:    config,
		Recipient: body.Recipient,
		Amount:    amount,
		AsOf:      time.Now(),
	})
	if err != nil {
		h.sendRedeemError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, RedeemResponse{
		Success:           true,
		TransactionHash:   result.TransactionHash.Hex(),
		Recipient:         result.Recipient.Hex(),
		Amount:            result.Amount.String(),
		SessionAddress:    result.SessionAddress.Hex(),
		DelegationManager: result.DelegationManager.Hex(),
		Warning:           result.FundingWarning,
	})
}

// sendRedeemError maps redemption failures onto HTTP statuses: local
// validation to 400, exceeded accrual to 422, submission failures to 502.
func (h *RedemptionHandler) sendRedeemError(c *gin.Context, err error) {
	var configErr *business.ConfigError
	var exceedsErr *services.ExceedsAuthorizedError
	var overflowErr *services.AmountOverflowError
	var submissionErr *services.SubmissionError

	switch {
	case errors.Is(err, services.ErrInvalidRecipient),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrMissingContext),
		errors.Is(err, services.ErrMissingManager):
		sendError(c, http.StatusBadRequest, err.Error(), err)
	case errors.As(err, &configErr), errors.As(err, &overflowErr):
		sendError(c, http.StatusBadRequest, err.Error(), err)
	case errors.As(err, &exceedsErr):
		sendError(c, http.StatusUnprocessableEntity, err.Error(), err)
	case errors.As(err, &submissionErr):
		sendError(c, http.StatusBadGateway, err.Error(), err)
	default:
		sendError(c, http.StatusInternalServerError, "Failed to redeem permission", err)
	}
}
