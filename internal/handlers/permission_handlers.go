package handlers

import (
	"errors"
	"net/http"

	"github.com/cyphera/permissions-api/internal/helpers"
	"github.com/cyphera/permissions-api/internal/services"
	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// PermissionHandler drives the permission request flow.
type PermissionHandler struct {
	permissions *services.PermissionService
	session     *services.SessionKeyService
}

// NewPermissionHandler creates a new permission handler
func NewPermissionHandler(permissions *services.PermissionService, session *services.SessionKeyService) *PermissionHandler {
	return &PermissionHandler{
		permissions: permissions,
		session:     session,
	}
}

// RequestPermissionBody is the POST /permissions request.
type RequestPermissionBody struct {
	PermissionConfigBody
	UserAddress string `json:"userAddress" binding:"required"`
}

// RequestPermissionResponse returns the issued credential and the accounts
// involved. The grant lives in memory for the session; nothing is persisted.
type RequestPermissionResponse struct {
	Success            bool                     `json:"success"`
	PermissionsContext string                   `json:"permissionsContext"`
	DelegationManager  string                   `json:"delegationManager"`
	SessionAddress     string                   `json:"sessionAddress"`
	UserAccount        business.UserAccountInfo `json:"userAccount"`
	// StartTime is the effective accrual window start. When the request
	// omitted it, this is the issuance-time default the grant was made
	// with; callers need it to reproduce the window at redeem time.
	StartTime int64 `json:"startTime"`
	GrantedAt int64 `json:"grantedAt"`
}

// RequestPermission validates the requested config and forwards it to the
// wallet authorizer.
func (h *PermissionHandler) RequestPermission(c *gin.Context) {
	var body RequestPermissionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if !helpers.IsAddressValid(body.UserAddress) {
		sendError(c, http.StatusBadRequest, "Invalid user address", nil)
		return
	}

	config, err := body.ToPermissionConfig()
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	grant, err := h.permissions.RequestPermission(
		c.Request.Context(),
		config,
		h.session.Address(),
		common.HexToAddress(body.UserAddress),
	)
	if err != nil {
		var configErr *business.ConfigError
		if errors.As(err, &configErr) {
			sendError(c, http.StatusBadRequest, configErr.Error(), err)
			return
		}
		sendError(c, http.StatusBadGateway, "Failed to obtain permission grant", err)
		return
	}

	sendSuccess(c, http.StatusOK, RequestPermissionResponse{
		Success:            true,
		PermissionsContext: grant.Granted.Context.String(),
		DelegationManager:  grant.Granted.DelegationManager.Hex(),
		SessionAddress:     grant.SessionAddress.Hex(),
		UserAccount:        grant.UserAccount,
		StartTime:          grant.Config.StartTime,
		GrantedAt:          grant.GrantedAt.Unix(),
	})
}
