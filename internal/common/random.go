package common

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MakeNonce returns a random alphanumeric string of length n.
func MakeNonce(n int) (string, error) {
	limit := big.NewInt(int64(len(nonceAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = nonceAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// NewLocalID returns a client-generated record id. Server ids are numeric,
// so a uuid never collides with one.
func NewLocalID() string {
	return uuid.NewString()
}
