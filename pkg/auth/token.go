package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// TokenKeyBytes is the number of random bytes in a token key
	// (40 hex characters on the wire).
	TokenKeyBytes = 20
	// OTPDigits is the length of a password-reset code.
	OTPDigits = 8
)

// GenerateTokenKey returns a new opaque token key: 20 random bytes,
// hex-encoded. Keys are unguessable; global uniqueness is enforced by the
// store's primary key on insert.
func GenerateTokenKey() (string, error) {
	raw := make([]byte, TokenKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// GenerateOTP returns a new zero-padded numeric reset code. Uniqueness
// across verification records is enforced by the store; callers retry on
// ErrDuplicate.
func GenerateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < OTPDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPDigits, n), nil
}
