package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	return NewCodec(Config{
		Secret:    "test-secret-key-for-unit-tests-only",
		Issuer:    "authd-test",
		AccessTTL: 15 * time.Minute,
		Leeway:    30 * time.Second,
	})
}

func TestCodec_MintAndParse(t *testing.T) {
	codec := testCodec(t)
	now := time.Now()

	signed, expiresAt, err := codec.Mint("user-123", "alice@example.com", "admin", "sess-456", now)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.WithinDuration(t, now.Add(15*time.Minute), expiresAt, time.Second)

	claims, err := codec.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "sess-456", claims.SessionID)
	assert.Equal(t, "authd-test", claims.Issuer)
}

func TestCodec_Parse_TamperedSignature(t *testing.T) {
	codec := testCodec(t)

	signed, _, err := codec.Mint("user-123", "alice@example.com", "user", "sess-1", time.Now())
	require.NoError(t, err)

	// Replace a character in the middle of the signature, where every
	// base64 bit is significant, with a different valid one.
	i := len(signed) - 10
	replacement := byte('A')
	if signed[i] == 'A' {
		replacement = 'B'
	}
	tampered := signed[:i] + string(replacement) + signed[i+1:]

	_, err = codec.Parse(tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Parse_TamperedPayload(t *testing.T) {
	codec := testCodec(t)

	signed, _, err := codec.Mint("user-123", "alice@example.com", "user", "sess-1", time.Now())
	require.NoError(t, err)

	other, _, err := codec.Mint("user-999", "mallory@example.com", "admin", "sess-2", time.Now())
	require.NoError(t, err)

	// Splice the attacker payload onto the victim signature.
	victimParts := strings.Split(signed, ".")
	otherParts := strings.Split(other, ".")
	require.Len(t, victimParts, 3)
	spliced := otherParts[0] + "." + otherParts[1] + "." + victimParts[2]

	_, err = codec.Parse(spliced)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Parse_Expired(t *testing.T) {
	codec := testCodec(t)

	signed, _, err := codec.Mint("user-123", "alice@example.com", "user", "sess-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = codec.Parse(signed)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_Parse_LeewayAbsorbsSkew(t *testing.T) {
	codec := testCodec(t)

	// Expired 10s ago, inside the 30s leeway.
	issued := time.Now().Add(-15*time.Minute - 10*time.Second)
	signed, _, err := codec.Mint("user-123", "alice@example.com", "user", "sess-1", issued)
	require.NoError(t, err)

	claims, err := codec.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestCodec_Parse_Malformed(t *testing.T) {
	codec := testCodec(t)

	for _, input := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := codec.Parse(input)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", input)
	}
}

func TestCodec_Parse_WrongSecret(t *testing.T) {
	codec := testCodec(t)
	other := NewCodec(Config{
		Secret:    "a-completely-different-secret-value",
		Issuer:    "authd-test",
		AccessTTL: 15 * time.Minute,
	})

	signed, _, err := other.Mint("user-123", "alice@example.com", "user", "sess-1", time.Now())
	require.NoError(t, err)

	_, err = codec.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_SwapSecret(t *testing.T) {
	codec := testCodec(t)

	oldToken, _, err := codec.Mint("user-123", "alice@example.com", "user", "sess-1", time.Now())
	require.NoError(t, err)

	codec.SwapSecret("next-rotation-secret-value-here")

	// Tokens under the demoted secret keep verifying until expiry.
	claims, err := codec.Parse(oldToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)

	// New tokens sign under the new secret.
	newToken, _, err := codec.Mint("user-123", "alice@example.com", "user", "sess-1", time.Now())
	require.NoError(t, err)
	_, err = codec.Parse(newToken)
	require.NoError(t, err)

	// A second rotation drops the oldest secret.
	codec.SwapSecret("yet-another-rotation-secret")
	_, err = codec.Parse(oldToken)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
