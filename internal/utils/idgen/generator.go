package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// GenerateSecureID returns an identifier of the form "<prefix>_<hex>" where
// the hex part has the requested length. Used for public-facing IDs like
// "conv_ab12..." so database surrogate keys never leak out of the API.
func GenerateSecureID(prefix string, length int) (string, error) {
	if prefix == "" {
		return "", errors.New("prefix must not be empty")
	}
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return prefix + "_" + hex.EncodeToString(buf)[:length], nil
}
