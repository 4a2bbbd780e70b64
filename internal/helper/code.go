package helper

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeGenerator returns a fresh verification code. Uniqueness is the store's job.
type CodeGenerator func() (string, error)

var codeSpace = big.NewInt(1_000_000)

// GenerateCode draws a uniform number in [0, 999999] and left-pads it to six digits.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
