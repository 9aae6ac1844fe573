// File: sessiontoken_codegen_test.go

package sessiontoken

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	require.Len(t, codeAlphabet, 62)

	previous := ""
	for i := 0; i < 1000; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)

		for _, ch := range code {
			require.True(t, strings.ContainsRune(codeAlphabet, ch),
				"code %q contains character outside the alphabet", code)
		}

		// Probabilistic: two consecutive identical 5-character draws from a
		// 62-symbol alphabet would indicate a broken random source.
		assert.NotEqual(t, previous, code)
		previous = code
	}
}
