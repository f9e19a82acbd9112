package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/remcostoeten/authd/internal/guard"
	"github.com/remcostoeten/authd/internal/policy"
	"github.com/remcostoeten/authd/internal/service"
	"github.com/remcostoeten/authd/internal/token"
	"github.com/remcostoeten/authd/pkg/health"
	"github.com/remcostoeten/authd/pkg/middleware"
)

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	authService *service.AuthService,
	codec *token.Codec,
	routeGuard *guard.Guard,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
	cookieConfig CookieConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("authd"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(authService, cookieConfig, logger)
	userHandler := NewUserHandler(authService, logger)
	guardHandler := NewGuardHandler(routeGuard, logger)

	// Auth endpoints (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		// These need a valid access token on top of the cookies.
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(codec))

			r.Post("/logout-all", authHandler.LogoutAll)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	// Route guard decision endpoint for the frontend edge.
	r.Get("/api/v1/guard/decision", guardHandler.Decide)

	// User and session endpoints (auth required)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(Authenticate(codec))

		r.With(RequireAction(policy.ActionViewProfile)).Get("/me", userHandler.Me)
		r.With(RequireAction(policy.ActionViewSessions)).Get("/me/sessions", userHandler.ListSessions)
		r.With(RequireAction(policy.ActionRevokeOwnSession)).Delete("/me/sessions/{id}", userHandler.RevokeSession)
	})

	// Admin surface
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(Authenticate(codec))
		r.Use(RequireAction(policy.ActionAccessAdmin))

		r.With(RequireAction(policy.ActionListUsers)).Get("/users", userHandler.ListUsers)
	})

	return r
}
