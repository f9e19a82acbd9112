package token

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors returned by Parse. Callers treat all three as "not
// authenticated"; the distinction exists for logging and tests.
var (
	ErrMalformed        = errors.New("token malformed")
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
)

// Claims are the fields carried inside an access token. SessionID back-
// references the refresh session that authorized the token; it is audit
// metadata, not an ownership relation.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Config holds the codec's signing configuration, loaded once at startup.
type Config struct {
	// Secret is the current HS256 signing secret.
	Secret string
	// PreviousSecret, when non-empty, is also accepted for verification so
	// tokens signed before a key rotation stay valid until they expire.
	PreviousSecret string
	Issuer         string
	AccessTTL      time.Duration
	// Leeway absorbs clock skew between hosts when validating exp/iat.
	Leeway time.Duration
}

type keyset struct {
	current  []byte
	previous []byte
}

// Codec mints and parses signed access tokens. All methods are safe for
// concurrent use; the key material sits behind an atomic pointer so a
// rotation never tears a concurrent Parse.
type Codec struct {
	keys      atomic.Pointer[keyset]
	issuer    string
	accessTTL time.Duration
	leeway    time.Duration
}

// NewCodec creates a codec from the given config.
func NewCodec(cfg Config) *Codec {
	c := &Codec{
		issuer:    cfg.Issuer,
		accessTTL: cfg.AccessTTL,
		leeway:    cfg.Leeway,
	}
	ks := &keyset{current: []byte(cfg.Secret)}
	if cfg.PreviousSecret != "" {
		ks.previous = []byte(cfg.PreviousSecret)
	}
	c.keys.Store(ks)
	return c
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// SwapSecret installs a new current signing secret, demoting the old current
// secret to previous. Tokens signed under the old secret keep verifying until
// they expire; tokens under any older secret stop verifying immediately.
func (c *Codec) SwapSecret(next string) {
	old := c.keys.Load()
	c.keys.Store(&keyset{current: []byte(next), previous: old.current})
}

// Mint creates a signed access token for the given identity, bound to the
// refresh session that authorized it. Returns the compact token and its
// expiry instant.
func (c *Codec) Mint(userID, email, role, sessionID string, now time.Time) (string, time.Time, error) {
	now = now.UTC()
	expiresAt := now.Add(c.accessTTL)

	claims := &Claims{
		Email:     email,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.keys.Load().current)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse validates a compact access token and returns its claims. It verifies
// against the current secret first, then the previous one, so legitimate
// tokens survive a key-rotation window. Failures map onto exactly one of
// ErrMalformed, ErrInvalidSignature, or ErrExpired.
func (c *Codec) Parse(tokenString string) (*Claims, error) {
	ks := c.keys.Load()

	claims, err := c.parseWithKey(tokenString, ks.current)
	if err != nil && errors.Is(err, jwt.ErrTokenSignatureInvalid) && ks.previous != nil {
		claims, err = c.parseWithKey(tokenString, ks.previous)
	}
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

func (c *Codec) parseWithKey(tokenString string, key []byte) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithLeeway(c.leeway),
		jwt.WithExpirationRequired(),
	)

	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}

// classify collapses golang-jwt's error surface onto the codec's three
// sentinel kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}
