package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// generateCode returns a uniformly random numeric string of the given
// length. Leading zeros are allowed, so the space is 10^length codes.
func generateCode(length int) (string, error) {
	bound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("generate redemption code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
