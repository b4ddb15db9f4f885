package business

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// GrantedPermission is the credential issued by the wallet authorizer when a
// permission request is approved. The context blob is an opaque capability
// token: this service never inspects it beyond handing it to the execution
// client's decoder. Held in memory for the session only, never persisted.
type GrantedPermission struct {
	Context           hexutil.Bytes  `json:"permissionsContext"`
	DelegationManager common.Address `json:"delegationManager"`
}

// Execution is a single on-chain call submitted under a delegation.
type Execution struct {
	Target   common.Address
	Value    *big.Int
	CallData []byte
}

// ExecutionMode selects how the delegation manager processes the executions
// of a redemption.
type ExecutionMode string

// ExecutionModeSingleDefault submits one execution with default revert
// semantics. The only mode this service uses.
const ExecutionModeSingleDefault ExecutionMode = "single-default"

// Caveat restricts a delegation. Terms are ABI-encoded parameters for the
// enforcer contract, carried as a hex string.
type Caveat struct {
	Enforcer string `json:"enforcer"`
	Terms    string `json:"terms"`
}

// Delegation matches the MetaMask delegation toolkit format.
type Delegation struct {
	Delegate  string   `json:"delegate"`
	Delegator string   `json:"delegator"`
	Authority string   `json:"authority"`
	Caveats   []Caveat `json:"caveats"`
	Salt      string   `json:"salt"`
	Signature string   `json:"signature"`
}

// DelegationChain is a decoded permission context: an ordered chain of
// delegations ending at the session account. Decoding assumes exactly one
// chain per context blob.
type DelegationChain []Delegation

// DelegationRedemption pairs a decoded delegation chain with the executions
// to run under it.
type DelegationRedemption struct {
	Chain      DelegationChain
	Executions []Execution
	Mode       ExecutionMode
}

// RedemptionRequest is constructed per redemption attempt and never mutated.
type RedemptionRequest struct {
	Granted   GrantedPermission
	Config    PermissionConfig
	Recipient string
	Amount    *big.Int // smallest unit
	AsOf      time.Time
}

// RedemptionResult reports a successfully submitted redemption. The funding
// warning, when set, records an advisory low-balance or balance-unknown
// condition that did not block submission.
type RedemptionResult struct {
	TransactionHash   common.Hash
	Recipient         common.Address
	Amount            *big.Int
	SessionAddress    common.Address
	DelegationManager common.Address
	FundingWarning    string
}

// UserAccountInfo describes the delegating user account as reported by the
// authorizer.
type UserAccountInfo struct {
	Address    common.Address `json:"address"`
	IsUpgraded bool           `json:"isUpgraded"`
}

// PermissionGrant bundles everything a session holds after a successful
// permission request.
type PermissionGrant struct {
	Granted        GrantedPermission
	Config         PermissionConfig
	SessionAddress common.Address
	UserAccount    UserAccountInfo
	GrantedAt      time.Time
}
