package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/cyphera/permissions-api/internal/helpers"
	"github.com/cyphera/permissions-api/internal/logger"
	"github.com/cyphera/permissions-api/internal/types/business"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// Local pre-flight validation failures. Checked before any network call.
var (
	ErrInvalidRecipient = errors.New("recipient must be a 0x-prefixed 20-byte hex address")
	ErrInvalidAmount    = errors.New("requested amount must be positive")
	ErrMissingContext   = errors.New("granted permission is missing its permissions context")
	ErrMissingManager   = errors.New("granted permission is missing its delegation manager address")
)

// ExceedsAuthorizedError reports a stream redemption request above the
// currently accrued amount. Carries the concrete numbers so callers can
// render actionable guidance without re-deriving the math.
type ExceedsAuthorizedError struct {
	Requested  *big.Int
	Authorized *big.Int
}

func (e *ExceedsAuthorizedError) Error() string {
	return fmt.Sprintf("requested amount %s exceeds the currently authorized %s",
		e.Requested.String(), e.Authorized.String())
}

// SubmissionError wraps a failure from the execution client: network,
// credential decode, or on-chain revert. Terminal for the redemption
// attempt; this service never retries a submission.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("delegation redemption submission failed: %v", e.Cause)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// ExecutionClient is the external collaborator that decodes permission
// contexts and signs/broadcasts redemption transactions. Retry policy, if
// any, lives behind this interface.
type ExecutionClient interface {
	DecodeContext(ctx context.Context, permissionsContext hexutil.Bytes) (business.DelegationChain, error)
	Submit(ctx context.Context, delegationManager common.Address, redemptions []business.DelegationRedemption) (common.Hash, error)
}

// RedemptionService sequences a redemption: local validation, accrual
// authorization, advisory funding check, payload build, submission.
type RedemptionService struct {
	accrual  *AccrualService
	funding  *FundingService
	builder  *ExecutionBuilder
	executor ExecutionClient
	session  *SessionKeyService
	logger   *zap.Logger
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(
	accrual *AccrualService,
	funding *FundingService,
	builder *ExecutionBuilder,
	executor ExecutionClient,
	session *SessionKeyService,
) *RedemptionService {
	return &RedemptionService{
		accrual:  accrual,
		funding:  funding,
		builder:  builder,
		executor: executor,
		session:  session,
		logger:   logger.Log,
	}
}

// Redeem moves value to the recipient under a granted permission.
//
// Steps 1-3 are local and deterministic and run before any network call.
// The funding check is advisory: a low or unknown balance becomes a warning
// on the result, never an abort, because the network itself is the authority
// at broadcast time. Submission failures are surfaced with their cause and
// not retried here. Once submission has begun the attempt runs to
// completion; an in-flight ledger transaction cannot be safely recalled.
func (s *RedemptionService) Redeem(ctx context.Context, req business.RedemptionRequest) (*business.RedemptionResult, error) {
	if !helpers.IsAddressValid(req.Recipient) {
		return nil, ErrInvalidRecipient
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(req.Granted.Context) == 0 {
		return nil, ErrMissingContext
	}
	if req.Granted.DelegationManager == (common.Address{}) {
		return nil, ErrMissingManager
	}
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}

	// Periodic consumption is enforced by the on-chain delegation manager;
	// only stream accrual is checked locally.
	if req.Config.Kind.IsStream() {
		authorized := s.accrual.AuthorizedAmount(req.Config, req.AsOf)
		if req.Amount.Cmp(authorized) > 0 {
			return nil, &ExceedsAuthorizedError{
				Requested:  new(big.Int).Set(req.Amount),
				Authorized: authorized,
			}
		}
	}

	sessionAddress := s.session.Address()

	var fundingWarning string
	funding := s.funding.CheckFunding(ctx, sessionAddress)
	if funding.Unknown || funding.IsLowBalance {
		fundingWarning = funding.Warning
		s.logger.Warn("Proceeding with redemption despite funding warning",
			zap.String("session_address", sessionAddress.Hex()),
			zap.Bool("balance_unknown", funding.Unknown),
			zap.String("warning", fundingWarning))
	}

	recipient := common.HexToAddress(req.Recipient)
	execution, err := s.builder.BuildExecution(req.Config.Asset, recipient, req.Amount)
	if err != nil {
		return nil, err
	}

	chain, err := s.executor.DecodeContext(ctx, req.Granted.Context)
	if err != nil {
		return nil, &SubmissionError{Cause: fmt.Errorf("failed to decode permissions context: %w", err)}
	}

	s.logger.Info("Submitting delegation redemption",
		zap.String("recipient", recipient.Hex()),
		zap.String("amount", req.Amount.String()),
		zap.String("delegation_manager", req.Granted.DelegationManager.Hex()),
		zap.String("session_address", sessionAddress.Hex()))

	txHash, err := s.executor.Submit(ctx, req.Granted.DelegationManager, []business.DelegationRedemption{
		{
			Chain:      chain,
			Executions: []business.Execution{execution},
			Mode:       business.ExecutionModeSingleDefault,
		},
	})
	if err != nil {
		return nil, &SubmissionError{Cause: err}
	}

	s.logger.Info("Delegation redemption submitted",
		zap.String("tx_hash", txHash.Hex()),
		zap.String("recipient", recipient.Hex()))

	return &business.RedemptionResult{
		TransactionHash:   txHash,
		Recipient:         recipient,
		Amount:            new(big.Int).Set(req.Amount),
		SessionAddress:    sessionAddress,
		DelegationManager: req.Granted.DelegationManager,
		FundingWarning:    fundingWarning,
	}, nil
}
