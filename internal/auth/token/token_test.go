package token

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHexTokenLengthAndUniqueness(t *testing.T) {
	a, err := GenerateHexToken(32)
	require.NoError(t, err)
	b, err := GenerateHexToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)

	_, err = hex.DecodeString(a)
	assert.NoError(t, err)
}

func TestHashSHA256IsStable(t *testing.T) {
	assert.Equal(t, HashSHA256("refresh"), HashSHA256("refresh"))
	assert.NotEqual(t, HashSHA256("refresh"), HashSHA256("refresh2"))
	assert.Len(t, HashSHA256("x"), 64)
}
