package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DigitSource yields n-digit decimal strings without a leading zero.
type DigitSource interface {
	NextDigits(n int) (string, error)
}

// CryptoDigits draws uniformly from [10^(n-1), 10^n) using crypto/rand.
type CryptoDigits struct{}

func (CryptoDigits) NextDigits(n int) (string, error) {
	if n < 1 || n > 18 {
		return "", fmt.Errorf("digit count %d out of range", n)
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(low, big.NewInt(10)), low)
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return v.Add(v, low).String(), nil
}
