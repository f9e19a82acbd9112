// Package guard makes the front-door routing decision for page requests:
// given the request cookies and path, it answers allow, redirect to login,
// redirect away from auth pages, or pass through. The decision is pure
// computation over the parsed access token; the guard never touches the
// session store, so a revoked session keeps its access token working until
// that token expires.
package guard

import (
	"net/url"
	"strings"

	"github.com/remcostoeten/authd/internal/token"
)

// CookieReader is the read-only slice of the cookie jar the guard needs.
type CookieReader interface {
	// Get returns the named cookie's value and whether it was present.
	Get(name string) (string, bool)
}

// TokenParser validates a compact access token. *token.Codec satisfies it.
type TokenParser interface {
	Parse(tokenString string) (*token.Claims, error)
}

// Identity is the authenticated caller as established by the access token.
type Identity struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

// Kind discriminates the guard's decisions.
type Kind int

const (
	// KindNext lets the request continue unauthenticated.
	KindNext Kind = iota
	// KindAllow lets the request continue with an established identity.
	KindAllow
	// KindRedirectToLogin sends the caller to the login page, carrying the
	// originally requested path so login can return them there.
	KindRedirectToLogin
	// KindRedirectAway sends an already-authenticated caller off an auth
	// page to the default landing page.
	KindRedirectAway
)

// Decision is the guard's verdict for one request.
type Decision struct {
	Kind Kind
	// Identity is set only when Kind is KindAllow.
	Identity Identity
	// Target is set for the redirect kinds.
	Target string
}

// Config declares which paths the guard protects and where it redirects.
type Config struct {
	// ProtectedPrefixes are path prefixes that require authentication.
	ProtectedPrefixes []string
	// AuthPaths are exact paths that authenticated callers are bounced off.
	AuthPaths []string
	// LoginPath receives unauthenticated callers of protected paths.
	LoginPath string
	// DefaultPath receives authenticated callers of auth paths.
	DefaultPath string
}

// DefaultConfig mirrors the paths the web frontend serves.
func DefaultConfig() Config {
	return Config{
		ProtectedPrefixes: []string{"/dashboard"},
		AuthPaths:         []string{"/login", "/register"},
		LoginPath:         "/login",
		DefaultPath:       "/dashboard",
	}
}

// AccessCookieName is the cookie the guard reads the access token from.
const AccessCookieName = "access_token"

// Guard evaluates routing decisions. Safe for concurrent use.
type Guard struct {
	cfg    Config
	parser TokenParser
}

// New creates a guard with the given path config and token parser.
func New(cfg Config, parser TokenParser) *Guard {
	return &Guard{cfg: cfg, parser: parser}
}

// Authorize decides what happens to a request for path with the given
// cookies. Absent, malformed, tampered, and expired tokens all produce the
// same outcome; the guard leaks nothing about why a token was rejected.
func (g *Guard) Authorize(cookies CookieReader, path string) Decision {
	identity, authenticated := g.identify(cookies)

	switch {
	case g.isProtected(path):
		if !authenticated {
			return Decision{Kind: KindRedirectToLogin, Target: g.loginTarget(path)}
		}
		return Decision{Kind: KindAllow, Identity: identity}
	case g.isAuthPath(path):
		if authenticated {
			return Decision{Kind: KindRedirectAway, Target: g.cfg.DefaultPath}
		}
		return Decision{Kind: KindNext}
	default:
		// Public paths pass through untouched regardless of token state.
		return Decision{Kind: KindNext}
	}
}

func (g *Guard) identify(cookies CookieReader) (Identity, bool) {
	raw, ok := cookies.Get(AccessCookieName)
	if !ok || raw == "" {
		return Identity{}, false
	}
	claims, err := g.parser.Parse(raw)
	if err != nil {
		return Identity{}, false
	}
	return Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}, true
}

func (g *Guard) isProtected(path string) bool {
	for _, prefix := range g.cfg.ProtectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (g *Guard) isAuthPath(path string) bool {
	for _, p := range g.cfg.AuthPaths {
		if path == p {
			return true
		}
	}
	return false
}

func (g *Guard) loginTarget(requested string) string {
	v := url.Values{}
	v.Set("callbackUrl", requested)
	return g.cfg.LoginPath + "?" + v.Encode()
}
