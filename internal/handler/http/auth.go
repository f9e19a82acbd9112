package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/remcostoeten/authd/internal/service"
	apperrors "github.com/remcostoeten/authd/pkg/errors"
	"github.com/remcostoeten/authd/pkg/httputil"
	"github.com/remcostoeten/authd/pkg/validator"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	cookies CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the JSON request body for changing a password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// --- Response types ---

// AuthResponse carries the user and session expiry after register/login/
// refresh. The tokens themselves travel only in cookies.
type AuthResponse struct {
	User             any       `json:"user,omitempty"`
	SessionID        string    `json:"session_id"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, tokens, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	}, clientMeta(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setAuthCookies(w, h.cookies, tokens)
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: AuthResponse{
			User:             user,
			SessionID:        tokens.SessionID,
			AccessExpiresAt:  tokens.AccessExpiresAt,
			RefreshExpiresAt: tokens.RefreshExpiresAt,
		},
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, tokens, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, clientMeta(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setAuthCookies(w, h.cookies, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{
			User:             user,
			SessionID:        tokens.SessionID,
			AccessExpiresAt:  tokens.AccessExpiresAt,
			RefreshExpiresAt: tokens.RefreshExpiresAt,
		},
	})
}

// Refresh handles POST /api/v1/auth/refresh. The refresh secret travels in
// the cookie, never in the body. A compromised or dead session clears both
// cookies so the client falls back to login.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookieName)
	if err != nil || c.Value == "" {
		clearAuthCookies(w, h.cookies)
		httputil.WriteError(w, r, apperrors.SessionCompromised(), h.logger)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), c.Value, clientMeta(r))
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionCompromised) {
			clearAuthCookies(w, h.cookies)
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setAuthCookies(w, h.cookies, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{
			SessionID:        tokens.SessionID,
			AccessExpiresAt:  tokens.AccessExpiresAt,
			RefreshExpiresAt: tokens.RefreshExpiresAt,
		},
	})
}

// Logout handles POST /api/v1/auth/logout. Cookies are cleared no matter
// what; revocation happens when the refresh cookie names a live session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var refreshCookie string
	if c, err := r.Cookie(refreshCookieName); err == nil {
		refreshCookie = c.Value
	}

	clearAuthCookies(w, h.cookies)

	if refreshCookie != "" {
		if err := h.service.Logout(r.Context(), refreshCookie); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "logged out"},
	})
}

// LogoutAll handles POST /api/v1/auth/logout-all. Requires authentication;
// revokes every session of the caller, including the current one.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	n, err := h.service.LogoutAll(r.Context(), identity.UserID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearAuthCookies(w, h.cookies)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"revoked_sessions": n},
	})
}

// ChangePassword handles POST /api/v1/auth/change-password. A successful
// change revokes every session, so the caller must log in again.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearAuthCookies(w, h.cookies)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "password changed, please sign in again"},
	})
}
