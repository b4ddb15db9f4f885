package handlers

import (
	"net/http"

	"github.com/cyphera/permissions-api/internal/helpers"
	"github.com/cyphera/permissions-api/internal/services"
	"github.com/gin-gonic/gin"
)

// SessionAccountHandler exposes the session account's address and its
// funding status.
type SessionAccountHandler struct {
	session *services.SessionKeyService
	funding *services.FundingService
}

// NewSessionAccountHandler creates a new session account handler
func NewSessionAccountHandler(session *services.SessionKeyService, funding *services.FundingService) *SessionAccountHandler {
	return &SessionAccountHandler{
		session: session,
		funding: funding,
	}
}

// SessionAccountResponse reports the session address and the outcome of a
// fresh funding check. Balance figures are strings: wei values exceed
// float precision.
type SessionAccountResponse struct {
	Success             bool   `json:"success"`
	Address             string `json:"address"`
	Balance             string `json:"balance"`
	BalanceEth          string `json:"balanceEth"`
	EstimatedGasCost    string `json:"estimatedGasCost"`
	EstimatedGasCostEth string `json:"estimatedGasCostEth"`
	IsLowBalance        bool   `json:"isLowBalance"`
	Warning             string `json:"warning,omitempty"`
	RPCError            bool   `json:"rpcError,omitempty"`
	Error               string `json:"error,omitempty"`
}

// GetSessionAccount returns the session address and a point-in-time funding
// check. The check is recomputed on every call; balances and fees move
// block to block.
func (h *SessionAccountHandler) GetSessionAccount(c *gin.Context) {
	address := h.session.Address()
	funding := h.funding.CheckFunding(c.Request.Context(), address)

	resp := SessionAccountResponse{
		Success:      true,
		Address:      address.Hex(),
		IsLowBalance: funding.IsLowBalance,
		Warning:      funding.Warning,
	}

	if funding.Unknown {
		resp.Balance = "0"
		resp.BalanceEth = "0"
		resp.EstimatedGasCost = "0"
		resp.EstimatedGasCostEth = "0"
		resp.RPCError = true
		if funding.LastError != nil {
			resp.Error = funding.LastError.Error()
		}
		sendSuccess(c, http.StatusOK, resp)
		return
	}

	resp.Balance = funding.Balance.String()
	resp.BalanceEth = helpers.FormatWeiToEth(funding.Balance)
	resp.EstimatedGasCost = funding.EstimatedCost.String()
	resp.EstimatedGasCostEth = helpers.FormatWeiToEth(funding.EstimatedCost)

	sendSuccess(c, http.StatusOK, resp)
}
