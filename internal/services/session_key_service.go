package services

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/cyphera/permissions-api/internal/helpers"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SessionKeyService holds the session key this backend redeems with. Only
// the derived address ever leaves this type; the raw key stays private to
// the process and is never handed to the builder or the accrual engine.
type SessionKeyService struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSessionKeyService derives the session account from a 0x-prefixed hex
// private key, typically supplied via SESSION_PRIVATE_KEY.
func NewSessionKeyService(hexKey string) (*SessionKeyService, error) {
	if !helpers.IsPrivateKeyValid(hexKey) {
		return nil, fmt.Errorf("session key must be a 0x-prefixed 32-byte hex string")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse session key: %w", err)
	}

	return &SessionKeyService{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the session account's public address.
func (s *SessionKeyService) Address() common.Address {
	return s.address
}
