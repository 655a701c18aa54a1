package otp

import (
	"crypto/rand"
	"math/big"
)

// DefaultLength is the code length used when the caller passes a
// non-positive length.
const DefaultLength = 6

// Generator defines the contract for producing one-time passcodes.
type Generator interface {
	// Generate returns a random numeric code of the given length.
	Generate(length int) (string, error)
}

// NumericCode generates fixed-length numeric codes using crypto/rand.
//
// A failed read from the random source is a process-level configuration
// problem; callers should treat the returned error as fatal rather than a
// user-facing failure.
type NumericCode struct{}

// NewNumericCode returns a NumericCode generator.
func NewNumericCode() *NumericCode {
	return &NumericCode{}
}

// Generate returns a random numeric code of the given length.
//
// Each digit is drawn independently and uniformly from 0-9, so leading
// zeros are possible and the result must stay a string.
func (g *NumericCode) Generate(length int) (string, error) {
	if length < 1 {
		length = DefaultLength
	}

	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		buf[i] = '0' + byte(n.Int64())
	}

	return string(buf), nil
}
