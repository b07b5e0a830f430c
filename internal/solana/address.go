// Package solana validates Solana account addresses at the load
// boundary so downstream stages never re-check field shape.
package solana

import (
	"errors"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address validation errors.
var (
	ErrBadEncoding = errors.New("address is not valid base58")
	ErrBadLength   = errors.New("address does not decode to 32 bytes")
	ErrOffCurve    = errors.New("address is not on the ed25519 curve")
)

// ValidateMint checks that a token mint is a well-formed Solana
// address: base58, decoding to 32 bytes. Mints may be off-curve
// (program derived), so no curve check applies.
func ValidateMint(addr string) error {
	_, err := decode32(addr)
	return err
}

// ValidateWallet checks that a wallet address is a well-formed Solana
// account: base58, 32 bytes, and on the ed25519 curve. Wallets are
// keypair accounts, never program derived.
func ValidateWallet(addr string) error {
	decoded, err := decode32(addr)
	if err != nil {
		return err
	}
	if !isOnCurve(decoded) {
		return ErrOffCurve
	}
	return nil
}

// decode32 decodes base58 and enforces the 32-byte account length.
func decode32(addr string) ([]byte, error) {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return nil, ErrBadEncoding
	}
	if len(decoded) != 32 {
		return nil, ErrBadLength
	}
	return decoded, nil
}

// isOnCurve reports whether a 32-byte point is on the ed25519 curve.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
