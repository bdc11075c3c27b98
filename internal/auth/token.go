package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	StateTokenBytes   = 16
	SessionTokenBytes = 32

	codeLength = 6
	codeSpace  = 1000000
)

// NewToken returns a hex-encoded random token with byteLen bytes of entropy.
// Entropy source failure is fatal: the process must not issue guessable
// credentials.
func NewToken(byteLen int) string {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("auth: random source unavailable: %v", err))
	}
	return hex.EncodeToString(b)
}

// NewCode returns a zero-padded 6-digit verification code, uniform over
// [0, 1000000).
func NewCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		panic(fmt.Sprintf("auth: random source unavailable: %v", err))
	}
	return fmt.Sprintf("%0*d", codeLength, n)
}
