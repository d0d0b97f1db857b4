package random

import (
	"crypto/rand"
	"math/big"
)

const keyNumbers = "0123456789"

// GetRandomNumberString generates a random string of decimal digits of the specified length.
func GetRandomNumberString(length int) string {
	return pick(keyNumbers, length)
}

func pick(alphabet string, length int) string {
	key := make([]byte, length)
	for i := range length {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		key[i] = alphabet[n.Int64()]
	}
	return string(key)
}
