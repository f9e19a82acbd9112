package http

import (
	"log/slog"
	"net/http"

	"github.com/remcostoeten/authd/internal/guard"
	"github.com/remcostoeten/authd/pkg/httputil"
)

// GuardHandler exposes the route guard to the frontend edge. A web server
// that cannot verify tokens itself calls this with the user's cookies and
// the requested path, and acts on the returned decision.
type GuardHandler struct {
	guard  *guard.Guard
	logger *slog.Logger
}

// NewGuardHandler creates a new guard HTTP handler.
func NewGuardHandler(g *guard.Guard, logger *slog.Logger) *GuardHandler {
	return &GuardHandler{guard: g, logger: logger}
}

// GuardDecisionResponse is the JSON form of a guard decision.
type GuardDecisionResponse struct {
	Decision string `json:"decision"`
	Target   string `json:"target,omitempty"`
	Identity any    `json:"identity,omitempty"`
}

type guardIdentity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// Decide handles GET /api/v1/guard/decision?path=<requested path>
func (h *GuardHandler) Decide(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" || path[0] != '/' {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "path query parameter must be an absolute path"},
		})
		return
	}

	d := h.guard.Authorize(requestJar{r: r}, path)

	resp := GuardDecisionResponse{Target: d.Target}
	switch d.Kind {
	case guard.KindAllow:
		resp.Decision = "allow"
		resp.Identity = guardIdentity{
			UserID:    d.Identity.UserID,
			Email:     d.Identity.Email,
			Role:      d.Identity.Role,
			SessionID: d.Identity.SessionID,
		}
	case guard.KindRedirectToLogin:
		resp.Decision = "redirect_to_login"
	case guard.KindRedirectAway:
		resp.Decision = "redirect_away"
	default:
		resp.Decision = "next"
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}
