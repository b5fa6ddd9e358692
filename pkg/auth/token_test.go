package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateTokenKey()
		require.NoError(t, err)
		assert.Len(t, key, 2*TokenKeyBytes)

		_, err = hex.DecodeString(key)
		assert.NoError(t, err, "key should be hex: %q", key)

		assert.False(t, seen[key], "duplicate key generated: %q", key)
		seen[key] = true
	}
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, OTPDigits)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "non-digit in code %q", code)
		}
	}
}
