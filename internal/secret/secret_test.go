package secret

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	decoded, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)
}

func TestHashAndVerify(t *testing.T) {
	raw, err := Generate()
	require.NoError(t, err)

	h := Hash(raw)
	assert.Len(t, h, 64)
	assert.Equal(t, h, Hash(raw), "hash must be deterministic")

	assert.True(t, Verify(raw, h))
	assert.False(t, Verify(raw+"x", h))
	assert.False(t, Verify("", h))
	assert.False(t, Verify(raw, Hash("something-else")))
}
