// codegen.go

package sessiontoken

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet is the 62-symbol alphabet one-time codes draw from.
const codeAlphabet = "qpwoeirutyalskdjfhgmznxbcv1029384756QPWOEIRUTYALSKDJFHGZMXNCBV"

// CodeLength is the fixed length of generated one-time codes.
const CodeLength = 5

// GenerateCode produces a 5-character code with independent uniform draws
// per position from a cryptographically secure random source.
func GenerateCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, CodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("read random source: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
