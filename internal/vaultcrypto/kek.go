package vaultcrypto

import (
	"bytes"
	"fmt"
	"strings"

	"grantvault/internal/fault"
)

// KEKSize is the only accepted key length (AES-256).
const KEKSize = 32

const minDistinctBytes = 10

// Substrings that disqualify a KEK outright (checked case-insensitively).
var weakSubstrings = []string{
	"password",
	"12345678",
	"qwerty",
	"abcdef",
	"letmein",
	"secret",
	"00000000",
	"aaaaaaaa",
}

// ValidateKEK enforces the startup key policy: exactly 32 bytes, mixed
// character classes, enough distinct bytes, no trivial repetition and no
// known weak substring. The process must not start with a key that fails.
func ValidateKEK(kek []byte) error {
	if len(kek) != KEKSize {
		return fmt.Errorf("%w: kek must be exactly %d bytes, got %d", fault.ErrValidation, KEKSize, len(kek))
	}

	var hasUpper, hasLower, hasDigit bool
	distinct := make(map[byte]struct{}, len(kek))
	for _, b := range kek {
		switch {
		case b >= 'A' && b <= 'Z':
			hasUpper = true
		case b >= 'a' && b <= 'z':
			hasLower = true
		case b >= '0' && b <= '9':
			hasDigit = true
		}
		distinct[b] = struct{}{}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("%w: kek must contain upper, lower and digit characters", fault.ErrValidation)
	}
	if len(distinct) < minDistinctBytes {
		return fmt.Errorf("%w: kek must contain at least %d distinct characters", fault.ErrValidation, minDistinctBytes)
	}
	if bytes.Equal(kek[:KEKSize/2], kek[KEKSize/2:]) {
		return fmt.Errorf("%w: kek halves are identical", fault.ErrValidation)
	}

	lower := strings.ToLower(string(kek))
	for _, weak := range weakSubstrings {
		if strings.Contains(lower, weak) {
			return fmt.Errorf("%w: kek contains a known weak pattern", fault.ErrValidation)
		}
	}
	return nil
}
