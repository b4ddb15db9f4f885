package constants

import "time"

// Common string constants used throughout the codebase
const (
	// Environments
	ProdEnvironment = "prod"
	TestEnvironment = "test"

	// Networks
	SepoliaChainID = uint64(11155111)

	// Native currency
	NativeSymbol   = "ETH"
	NativeDecimals = uint8(18)

	// USDC on Ethereum Sepolia
	USDCSepoliaAddress  = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
	USDCSymbol          = "USDC"
	USDCSepoliaDecimals = uint8(6)
)

// Funding check defaults. A delegation redemption is a contract call through
// the delegation manager, so the gas estimate is well above a plain transfer.
const (
	RedemptionGasUnits     = uint64(200000)
	FundingMarginPercent   = int64(20)
	FallbackFeePerGasWei   = int64(20000000000) // 20 gwei
	EndpointAttemptTimeout = 7 * time.Second
)

// DefaultSepoliaRPCEndpoints is the ranked fallback list used when no custom
// RPC URL is configured, most reliable first.
var DefaultSepoliaRPCEndpoints = []string{
	"https://sepolia.infura.io/v3/9aa3d95b3bc440fa88ea12eaa4456161",
	"https://ethereum-sepolia-rpc.publicnode.com",
	"https://rpc.sepolia.ethpandaops.io",
	"https://sepolia.gateway.tenderly.co",
	"https://rpc.sepolia.org",
}

// PeriodDuration presets offered for periodic permissions, in seconds.
const (
	PeriodHourly  = int64(3600)
	Period6Hours  = int64(21600)
	Period12Hours = int64(43200)
	PeriodDaily   = int64(86400)
	PeriodWeekly  = int64(604800)
	PeriodMonthly = int64(2592000)
)
