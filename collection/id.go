package collection

import (
	"crypto/rand"
	"math/big"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultIDLength is the length of generated record ids.
const DefaultIDLength = 10

// MakeID returns a random alphanumeric id of n characters.
func MakeID(n int) string {
	max := big.NewInt(int64(len(idAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("collection: crypto/rand failed: " + err.Error())
		}
		b[i] = idAlphabet[idx.Int64()]
	}
	return string(b)
}
