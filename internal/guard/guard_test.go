package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remcostoeten/authd/internal/token"
)

type mapCookies map[string]string

func (m mapCookies) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func testGuard(t *testing.T) (*Guard, *token.Codec) {
	t.Helper()
	codec := token.NewCodec(token.Config{
		Secret:    "guard-test-secret-do-not-reuse",
		Issuer:    "authd-test",
		AccessTTL: 15 * time.Minute,
	})
	return New(DefaultConfig(), codec), codec
}

func validCookies(t *testing.T, codec *token.Codec) mapCookies {
	t.Helper()
	signed, _, err := codec.Mint("user-1", "alice@example.com", "user", "sess-1", time.Now())
	require.NoError(t, err)
	return mapCookies{AccessCookieName: signed}
}

func TestAuthorize_ProtectedPath(t *testing.T) {
	g, codec := testGuard(t)

	t.Run("no cookie redirects to login with callback", func(t *testing.T) {
		d := g.Authorize(mapCookies{}, "/dashboard/settings")
		assert.Equal(t, KindRedirectToLogin, d.Kind)
		assert.Equal(t, "/login?callbackUrl=%2Fdashboard%2Fsettings", d.Target)
	})

	t.Run("valid token allows with identity", func(t *testing.T) {
		d := g.Authorize(validCookies(t, codec), "/dashboard")
		assert.Equal(t, KindAllow, d.Kind)
		assert.Equal(t, "user-1", d.Identity.UserID)
		assert.Equal(t, "alice@example.com", d.Identity.Email)
		assert.Equal(t, "user", d.Identity.Role)
		assert.Equal(t, "sess-1", d.Identity.SessionID)
	})

	t.Run("garbage token treated same as absent", func(t *testing.T) {
		d := g.Authorize(mapCookies{AccessCookieName: "not-a-token"}, "/dashboard")
		assert.Equal(t, KindRedirectToLogin, d.Kind)
	})

	t.Run("expired token treated same as absent", func(t *testing.T) {
		signed, _, err := codec.Mint("user-1", "a@b.c", "user", "s", time.Now().Add(-2*time.Hour))
		require.NoError(t, err)
		d := g.Authorize(mapCookies{AccessCookieName: signed}, "/dashboard")
		assert.Equal(t, KindRedirectToLogin, d.Kind)
	})

	t.Run("prefix is path-segment aware", func(t *testing.T) {
		d := g.Authorize(mapCookies{}, "/dashboardish")
		assert.Equal(t, KindNext, d.Kind)
	})
}

func TestAuthorize_AuthPath(t *testing.T) {
	g, codec := testGuard(t)

	t.Run("authenticated caller bounced to dashboard", func(t *testing.T) {
		d := g.Authorize(validCookies(t, codec), "/login")
		assert.Equal(t, KindRedirectAway, d.Kind)
		assert.Equal(t, "/dashboard", d.Target)
	})

	t.Run("unauthenticated caller passes through", func(t *testing.T) {
		d := g.Authorize(mapCookies{}, "/register")
		assert.Equal(t, KindNext, d.Kind)
	})
}

func TestAuthorize_PublicPath(t *testing.T) {
	g, codec := testGuard(t)

	t.Run("unauthenticated passes through", func(t *testing.T) {
		d := g.Authorize(mapCookies{}, "/about")
		assert.Equal(t, KindNext, d.Kind)
	})

	t.Run("authenticated passes through untouched", func(t *testing.T) {
		d := g.Authorize(validCookies(t, codec), "/about")
		assert.Equal(t, KindNext, d.Kind)
		assert.Empty(t, d.Identity.UserID)
		assert.Empty(t, d.Target)
	})
}
