package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewCode returns a cryptographically random string of length characters
// drawn uniformly from alphabet.
func NewCode(alphabet string, length int) (string, error) {
	if alphabet == "" || length <= 0 {
		return "", fmt.Errorf("generate code: empty alphabet or non-positive length")
	}
	b := make([]byte, length)
	n := big.NewInt(int64(len(alphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
