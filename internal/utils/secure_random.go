package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateRandomDigits returns a zero-padded string of n uniformly random decimal digits.
func GenerateRandomDigits(n int) (string, error) {
	if n <= 0 || n > 18 {
		return "", fmt.Errorf("digit count must be between 1 and 18, got %d", n)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to read random digits: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
