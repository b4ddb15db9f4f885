package helpers

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits converts a human-readable decimal amount into the token's
// smallest unit, e.g. ParseUnits("1.5", 6) == 1500000. The conversion is
// exact: a fractional part with more digits than the token has decimals is
// rejected rather than rounded.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("amount cannot be negative: %s", amount)
	}

	whole := amount
	frac := ""
	if idx := strings.Index(amount, "."); idx >= 0 {
		whole = amount[:idx]
		frac = amount[idx+1:]
		if strings.Contains(frac, ".") {
			return nil, fmt.Errorf("invalid amount format: %s", amount)
		}
	}
	if whole == "" {
		whole = "0"
	}

	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	// Right-pad the fraction to the full precision and parse the
	// concatenation as a single integer.
	padded := frac + strings.Repeat("0", int(decimals)-len(frac))
	digits := whole + padded

	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}

	return value, nil
}

// ParseUnitsRat converts a human-readable decimal rate into the token's
// smallest unit as an exact rational, e.g. ParseUnitsRat("0.5", 6) ==
// 500000/1. Used for stream rates, where a sub-unit-per-second figure must
// not lose precision.
func ParseUnitsRat(amount string, decimals uint8) (*big.Rat, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	rat, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if rat.Sign() < 0 {
		return nil, fmt.Errorf("amount cannot be negative: %s", amount)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return rat.Mul(rat, new(big.Rat).SetInt(scale)), nil
}

// FormatUnits renders a smallest-unit amount as a human-readable decimal
// string, e.g. FormatUnits(1500000, 6) == "1.5". Display only; never feed
// the result back into authorization arithmetic.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}

	neg := value.Sign() < 0
	abs := new(big.Int).Abs(value)

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(abs, divisor, frac)

	out := whole.String()
	if frac.Sign() > 0 {
		fracStr := frac.String()
		if pad := int(decimals) - len(fracStr); pad > 0 {
			fracStr = strings.Repeat("0", pad) + fracStr
		}
		fracStr = strings.TrimRight(fracStr, "0")
		out = out + "." + fracStr
	}

	if neg {
		out = "-" + out
	}
	return out
}

// FormatWeiToEth renders a wei amount as an ETH string for warnings and
// API responses.
func FormatWeiToEth(wei *big.Int) string {
	return FormatUnits(wei, 18)
}
