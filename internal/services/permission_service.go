package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cyphera/permissions-api/internal/logger"
	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// WireSignerData carries the session account the permission is granted to.
type WireSignerData struct {
	Address common.Address `json:"address"`
}

// WireSigner identifies the grantee in the wire request.
type WireSigner struct {
	Type string         `json:"type"`
	Data WireSignerData `json:"data"`
}

// WirePermission is the kind-specific half of the wire request. Data holds
// only the fields the variant defines.
type WirePermission struct {
	Type business.PermissionKind `json:"type"`
	Data map[string]interface{}  `json:"data"`
}

// PermissionWireRequest is the request submitted to the wallet authorizer,
// one entry per requested permission.
type PermissionWireRequest struct {
	ChainID             uint64         `json:"chainId"`
	Expiry              int64          `json:"expiry"`
	Signer              WireSigner     `json:"signer"`
	Permission          WirePermission `json:"permission"`
	IsAdjustmentAllowed bool           `json:"isAdjustmentAllowed"`
}

// PermissionAuthorizer is the external collaborator that puts a permission
// request in front of the user's wallet and returns the issued credential.
type PermissionAuthorizer interface {
	GrantPermission(ctx context.Context, req PermissionWireRequest) (*business.GrantedPermission, *business.UserAccountInfo, error)
}

// PermissionService validates permission configs and drives the grant flow.
type PermissionService struct {
	authorizer PermissionAuthorizer
	logger     *zap.Logger
	now        func() time.Time
}

// NewPermissionService creates a new permission service
func NewPermissionService(authorizer PermissionAuthorizer) *PermissionService {
	return &PermissionService{
		authorizer: authorizer,
		logger:     logger.Log,
		now:        time.Now,
	}
}

// RequestPermission validates the config, fills the issuance-time default
// for a missing start time, and asks the authorizer to grant it to the
// session account. The returned grant is held in memory only.
func (s *PermissionService) RequestPermission(ctx context.Context, config business.PermissionConfig, sessionAddress, userAddress common.Address) (*business.PermissionGrant, error) {
	if config.StartTime == 0 {
		config.StartTime = s.now().Unix()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	wire := buildWireRequest(config, sessionAddress)

	s.logger.Info("Requesting permission grant",
		zap.String("kind", string(config.Kind)),
		zap.Uint64("chain_id", config.ChainID),
		zap.String("session_address", sessionAddress.Hex()),
		zap.String("user_address", userAddress.Hex()))

	granted, userAccount, err := s.authorizer.GrantPermission(ctx, wire)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain permission grant: %w", err)
	}
	if len(granted.Context) == 0 {
		return nil, fmt.Errorf("authorizer returned a grant without a permissions context")
	}

	grant := &business.PermissionGrant{
		Granted:        *granted,
		Config:         config,
		SessionAddress: sessionAddress,
		GrantedAt:      s.now(),
	}
	if userAccount != nil {
		grant.UserAccount = *userAccount
	}

	s.logger.Info("Permission granted",
		zap.String("kind", string(config.Kind)),
		zap.String("delegation_manager", granted.DelegationManager.Hex()))

	return grant, nil
}

// buildWireRequest lays the config out in the authorizer's wire format.
// Amounts travel as decimal strings in the smallest unit.
func buildWireRequest(config business.PermissionConfig, sessionAddress common.Address) PermissionWireRequest {
	data := map[string]interface{}{
		"justification": config.Justification,
	}

	switch {
	case config.Kind.IsPeriodic():
		data["periodAmount"] = config.Periodic.PeriodAmount.String()
		data["periodDuration"] = config.Periodic.PeriodDuration
	case config.Kind.IsStream():
		data["amountPerSecond"] = config.Stream.RatePerSecond.RatString()
		data["initialAmount"] = config.Stream.InitialAmount.String()
		data["maxAmount"] = config.Stream.MaxAmount.String()
	}

	if config.StartTime > 0 {
		data["startTime"] = config.StartTime
	}
	if !config.Kind.IsNative() {
		data["tokenAddress"] = config.Asset.TokenAddress.Hex()
	}

	return PermissionWireRequest{
		ChainID: config.ChainID,
		Expiry:  config.Expiry,
		Signer: WireSigner{
			Type: "account",
			Data: WireSignerData{Address: sessionAddress},
		},
		Permission: WirePermission{
			Type: config.Kind,
			Data: data,
		},
		IsAdjustmentAllowed: config.Adjustable,
	}
}
