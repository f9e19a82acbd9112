package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/remcostoeten/authd/internal/domain"
	"github.com/remcostoeten/authd/internal/repository"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session into the database.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, issued_at, expires_at, last_used_at, last_used_ip, user_agent, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.RefreshTokenHash,
		s.IssuedAt,
		s.ExpiresAt,
		s.LastUsedAt,
		s.LastUsedIP,
		s.UserAgent,
		s.RevokedAt,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, refresh_token_hash, issued_at, expires_at, last_used_at, last_used_ip, user_agent, revoked_at, created_at
		FROM sessions
		WHERE id = $1`

	var s domain.Session
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.RefreshTokenHash,
		&s.IssuedAt,
		&s.ExpiresAt,
		&s.LastUsedAt,
		&s.LastUsedIP,
		&s.UserAgent,
		&s.RevokedAt,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &s, nil
}

// ListByUserID returns all live sessions for the user, most recently used first.
func (r *SessionRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Session, error) {
	query := `
		SELECT id, user_id, refresh_token_hash, issued_at, expires_at, last_used_at, last_used_ip, user_agent, revoked_at, created_at
		FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY last_used_at DESC`

	rows, err := r.db.Query(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.RefreshTokenHash,
			&s.IssuedAt,
			&s.ExpiresAt,
			&s.LastUsedAt,
			&s.LastUsedIP,
			&s.UserAgent,
			&s.RevokedAt,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// Rotate swaps the session's refresh secret hash in a single conditional
// UPDATE. The hash predicate makes the swap a compare-and-set: of any number
// of concurrent callers presenting the same old hash, exactly one matches a
// row. When no row matches, a follow-up read decides between a dead session
// and a live session holding a different hash; the latter is reuse of a
// rotated-out secret, so the session is revoked on the spot.
func (r *SessionRepository) Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt time.Time, meta domain.ClientMeta) (string, error) {
	now := time.Now().UTC()

	query := `
		UPDATE sessions
		SET refresh_token_hash = $1, expires_at = $2, last_used_at = $3, last_used_ip = $4, user_agent = $5
		WHERE id = $6 AND refresh_token_hash = $7 AND revoked_at IS NULL AND expires_at > $3
		RETURNING user_id`

	var userID string
	err := r.db.QueryRow(ctx, query, newHash, expiresAt, now, meta.IP, meta.UserAgent, id, oldHash).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("rotate session: %w", err)
	}

	s, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", repository.ErrSessionNotFound
		}
		return "", err
	}
	if !s.Active(now) {
		return "", repository.ErrSessionNotFound
	}

	// Live session, stale secret: someone is replaying a rotated-out
	// refresh secret. Kill the session before reporting the mismatch.
	// The owner's id comes back with the error so audit events can name
	// the affected user.
	if err := r.Revoke(ctx, id); err != nil {
		return s.UserID, errors.Join(repository.ErrSecretMismatch, fmt.Errorf("revoke compromised session: %w", err))
	}

	return s.UserID, repository.ErrSecretMismatch
}

// Revoke marks a session revoked. Already-revoked and missing sessions are
// left untouched; revocation is idempotent.
func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE sessions
		SET revoked_at = $1
		WHERE id = $2 AND revoked_at IS NULL`

	if _, err := r.db.Exec(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// RevokeAllForUser revokes every live session of the user.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE sessions
		SET revoked_at = $1
		WHERE user_id = $2 AND revoked_at IS NULL`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}

	return ct.RowsAffected(), nil
}

// DeleteExpired removes sessions whose expiry passed before the cutoff.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1`

	ct, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return ct.RowsAffected(), nil
}
