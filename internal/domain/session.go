package domain

import "time"

// Session is a single refresh-token lineage. The raw refresh secret is never
// stored; only its hash. Rotation atomically replaces the hash, so at most one
// secret is valid per session at any time.
type Session struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	RefreshTokenHash string     `json:"-"`
	IssuedAt         time.Time  `json:"issued_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	LastUsedAt       time.Time  `json:"last_used_at"`
	LastUsedIP       string     `json:"last_used_ip,omitempty"`
	UserAgent        string     `json:"user_agent,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Active reports whether the session can still authorize a refresh at the
// given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// ClientMeta carries request metadata recorded on session use.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// TokenPair holds the transport values handed to the client after a
// successful login, registration, or refresh. RefreshToken is
// "sessionID.rawSecret"; the raw secret is recoverable from nowhere else.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	SessionID        string    `json:"session_id"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
