package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	// A bare sentinel cause is not rendered; it only restates the Code.
	err := Unauthorized("invalid email or password")
	assert.Equal(t, "UNAUTHORIZED: invalid email or password", err.Error())

	compromised := SessionCompromised()
	assert.Equal(t, "SESSION_COMPROMISED: session is no longer valid, please sign in again", compromised.Error())

	// A real cause still renders.
	wrapped := Internal(fmt.Errorf("pgx: broken"))
	assert.Contains(t, wrapped.Error(), "pgx: broken")

	unavail := StoreUnavailable(fmt.Errorf("dial tcp: connection refused"))
	assert.Contains(t, unavail.Error(), "dial tcp: connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	err := AlreadyExists("user", "email", "bob@example.com")
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	compromised := SessionCompromised()
	assert.True(t, errors.Is(compromised, ErrSessionCompromised))

	unavail := StoreUnavailable(fmt.Errorf("dial tcp: connection refused"))
	assert.True(t, errors.Is(unavail, ErrStoreUnavailable))
	assert.False(t, errors.Is(unavail, ErrSessionCompromised),
		"a store outage must never be classified as theft evidence")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", NotFound("user", "u-1"), http.StatusNotFound},
		{"already exists", AlreadyExists("user", "email", "a@b.c"), http.StatusConflict},
		{"invalid input", InvalidInput("bad"), http.StatusBadRequest},
		{"unauthorized sentinel", ErrUnauthorized, http.StatusUnauthorized},
		{"session compromised sentinel", ErrSessionCompromised, http.StatusUnauthorized},
		{"forbidden", Forbidden("nope"), http.StatusForbidden},
		{"store unavailable", StoreUnavailable(errors.New("timeout")), http.StatusServiceUnavailable},
		{"wrapped sentinel", fmt.Errorf("ctx: %w", ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
