// Package auth — one-time secrets for the registration and reset flows.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateOTP returns a numeric one-time password of the given length,
// drawn from crypto/rand. Leading zeros are allowed — the code is a string,
// not a number.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("auth: OTP length must be positive, got %d", length)
	}

	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("auth: generating OTP digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// GenerateResetToken returns a high-entropy reset token and the SHA-256 hex
// digest of it. The plaintext goes into the emailed link; only the digest is
// stored, so a database leak never exposes a usable token.
//
// 32 random bytes = 256 bits of entropy, hex-encoded to 64 characters.
func GenerateResetToken() (plaintext, digest string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("auth: generating reset token: %w", err)
	}
	plaintext = hex.EncodeToString(raw)
	return plaintext, HashToken(plaintext), nil
}

// HashToken returns the SHA-256 hex digest used to look up a stored reset
// token from the plaintext a client supplies.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEquals compares two secrets without leaking where they differ.
func ConstantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
