package http

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/remcostoeten/authd/internal/domain"
	"github.com/remcostoeten/authd/internal/guard"
	"github.com/remcostoeten/authd/internal/policy"
	"github.com/remcostoeten/authd/internal/token"
	"github.com/remcostoeten/authd/pkg/httputil"
	"github.com/remcostoeten/authd/pkg/logger"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the authenticated identity set by Authenticate.
func IdentityFromContext(ctx context.Context) (guard.Identity, bool) {
	id, ok := ctx.Value(identityKey).(guard.Identity)
	return id, ok
}

// Authenticate requires a valid access-token cookie and stores the resulting
// identity in the request context. The response never says why a token was
// rejected.
func Authenticate(codec *token.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(accessCookieName)
			if err != nil || c.Value == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := codec.Parse(c.Value)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			identity := guard.Identity{
				UserID:    claims.Subject,
				Email:     claims.Email,
				Role:      claims.Role,
				SessionID: claims.SessionID,
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = logger.WithUserID(ctx, identity.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAction gates a route on the authorization policy. Must run after
// Authenticate.
func RequireAction(action policy.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}
			if !policy.Can(identity.Role, action) {
				httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "FORBIDDEN", Message: "insufficient permissions"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
	})
}

// clientMeta extracts the caller's IP and user agent for session records.
// The first X-Forwarded-For hop wins when the service runs behind a proxy.
func clientMeta(r *http.Request) domain.ClientMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}

	return domain.ClientMeta{
		IP:        ip,
		UserAgent: r.UserAgent(),
	}
}
