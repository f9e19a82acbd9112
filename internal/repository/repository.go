package repository

import (
	"context"
	"errors"
	"time"

	"github.com/remcostoeten/authd/internal/domain"
)

// Session-specific outcomes of a rotation attempt. The service layer maps
// these onto client-facing errors; infrastructure failures are returned as
// ordinary wrapped errors and must never be confused with either.
var (
	// ErrSessionNotFound means the session is absent, revoked, or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSecretMismatch means the session is live but the presented refresh
	// secret is not its current one. The repository has already revoked the
	// session by the time this is returned.
	ErrSecretMismatch = errors.New("refresh secret mismatch")
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their normalized email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdatePassword replaces the user's password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// List returns all users ordered by creation time, newest first.
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

// SessionRepository defines the interface for refresh session persistence.
type SessionRepository interface {
	// Create inserts a new session.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// ListByUserID returns all non-revoked, unexpired sessions for the user,
	// most recently used first.
	ListByUserID(ctx context.Context, userID string) ([]domain.Session, error)

	// Rotate atomically swaps the session's refresh secret hash from oldHash
	// to newHash, extending its expiry and recording the client metadata.
	// Exactly one concurrent caller presenting oldHash wins and receives the
	// session's user id. Losers get ErrSecretMismatch (the session is
	// revoked as compromised and the owner's id is still returned, for
	// auditing) or ErrSessionNotFound when the session is gone, revoked,
	// or expired.
	Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt time.Time, meta domain.ClientMeta) (string, error)

	// Revoke marks a session revoked. Revoking an already-revoked session
	// is a no-op, not an error.
	Revoke(ctx context.Context, id string) error

	// RevokeAllForUser revokes every live session of the user and reports
	// how many were revoked.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes sessions whose expiry passed before the cutoff
	// and reports how many were deleted.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
