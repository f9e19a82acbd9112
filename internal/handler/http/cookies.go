package http

import (
	"net/http"
	"time"

	"github.com/remcostoeten/authd/internal/domain"
	"github.com/remcostoeten/authd/internal/guard"
)

// Cookie names. The access cookie name is owned by the guard package since
// the guard reads it too.
const (
	accessCookieName  = guard.AccessCookieName
	refreshCookieName = "refresh_token"
)

// refreshCookiePath scopes the refresh cookie to the auth endpoints, so the
// long-lived secret is never sent with ordinary API or page requests.
const refreshCookiePath = "/api/v1/auth"

// CookieConfig controls the security attributes of the auth cookies.
type CookieConfig struct {
	// Secure should be true everywhere except local development.
	Secure bool
	Domain string
}

// requestJar adapts an incoming request's cookies to guard.CookieReader.
type requestJar struct {
	r *http.Request
}

func (j requestJar) Get(name string) (string, bool) {
	c, err := j.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// setAuthCookies installs both auth cookies from a freshly minted pair.
// SameSite=Lax keeps the cookies off cross-site subrequests while still
// sending them on top-level navigation.
func setAuthCookies(w http.ResponseWriter, cfg CookieConfig, pair *domain.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath,
		Domain:   cfg.Domain,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies expires both auth cookies. Safe to call whether or not
// the client held valid cookies.
func clearAuthCookies(w http.ResponseWriter, cfg CookieConfig) {
	expired := time.Unix(0, 0)
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  expired,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		Domain:   cfg.Domain,
		Expires:  expired,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
