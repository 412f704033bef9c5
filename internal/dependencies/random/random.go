package random

import (
	"crypto/rand"
	"math/big"
)

// Random is the source of unpredictability for room codes and catalog picks
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int

	// String builds a string of the given length from alphabet
	String(length int, alphabet string) string
}

// CryptoRandom draws from crypto/rand so room codes cannot be predicted
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a uniformly distributed int in [0, n), or 0 when n <= 0
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// Only possible if the OS entropy source is broken
		return 0
	}
	return int(v.Int64())
}

// String builds a string of the given length from alphabet
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(out)
}
