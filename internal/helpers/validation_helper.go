package helpers

import "strings"

// hexDigits reports whether s consists only of hex characters.
func hexDigits(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// hexString reports whether s is 0x-prefixed hex of exactly digits
// characters after the prefix. A digits value of 0 accepts any non-empty
// even length.
func hexString(s string, digits int) bool {
	if !strings.HasPrefix(s, "0x") {
		return false
	}
	rest := s[2:]
	if digits > 0 {
		if len(rest) != digits {
			return false
		}
	} else if len(rest) == 0 || len(rest)%2 != 0 {
		return false
	}
	return hexDigits(rest)
}

// IsAddressValid reports whether address is a 0x-prefixed 20-byte hex
// Ethereum address. Checksum casing is not enforced.
func IsAddressValid(address string) bool {
	return hexString(address, 40)
}

// IsPrivateKeyValid reports whether key is a 0x-prefixed 32-byte hex
// private key.
func IsPrivateKeyValid(key string) bool {
	return hexString(key, 64)
}

// IsHexBlob reports whether blob is a 0x-prefixed hex blob of arbitrary
// even length, such as an encoded permission context.
func IsHexBlob(blob string) bool {
	return hexString(blob, 0)
}
