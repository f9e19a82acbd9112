package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "bob@example.com", NormalizeEmail("  Bob@Example.COM "))
	assert.Equal(t, "bob@example.com", NormalizeEmail("bob@example.com"))
}

func TestSession_Active(t *testing.T) {
	now := time.Now().UTC()
	s := Session{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.Active(now))

	expired := Session{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.Active(now))

	revokedAt := now.Add(-time.Second)
	revoked := Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}
	assert.False(t, revoked.Active(now))
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleUser))
	assert.True(t, IsValidRole(RoleAdmin))
	assert.False(t, IsValidRole("superuser"))
	assert.False(t, IsValidRole(""))
}
