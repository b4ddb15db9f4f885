package helpers_test

import (
	"testing"

	"github.com/cyphera/permissions-api/internal/helpers"
	"github.com/stretchr/testify/assert"
)

func TestIsAddressValid(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{name: "valid lowercase", address: "0x742d35cc6634c0532925a3b844bc9e7595f0beb0", want: true},
		{name: "valid checksummed", address: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", want: true},
		{name: "zero address", address: "0x0000000000000000000000000000000000000000", want: true},
		{name: "missing prefix", address: "742d35cc6634c0532925a3b844bc9e7595f0beb000", want: false},
		{name: "too short", address: "0x742d35", want: false},
		{name: "too long", address: "0x742d35cc6634c0532925a3b844bc9e7595f0beb000", want: false},
		{name: "non-hex characters", address: "0x742d35cc6634c0532925a3b844bc9e7595f0bezz", want: false},
		{name: "empty", address: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, helpers.IsAddressValid(tt.address))
		})
	}
}

func TestIsPrivateKeyValid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{name: "valid key", key: "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", want: true},
		{name: "missing prefix", key: "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", want: false},
		{name: "too short", key: "0xac0974", want: false},
		{name: "non-hex characters", key: "0xzz0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", want: false},
		{name: "empty", key: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, helpers.IsPrivateKeyValid(tt.key))
		})
	}
}

func TestIsHexBlob(t *testing.T) {
	tests := []struct {
		name string
		blob string
		want bool
	}{
		{name: "short blob", blob: "0xde", want: true},
		{name: "long blob", blob: "0xdeadbeef0102030405060708090a0b0c0d0e0f10", want: true},
		{name: "odd length", blob: "0xdea", want: false},
		{name: "missing prefix", blob: "deadbeef", want: false},
		{name: "bare prefix", blob: "0x", want: false},
		{name: "non-hex characters", blob: "0xdeadbeeg", want: false},
		{name: "empty", blob: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, helpers.IsHexBlob(tt.blob))
		})
	}
}
