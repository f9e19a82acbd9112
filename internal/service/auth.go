package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/remcostoeten/authd/internal/domain"
	"github.com/remcostoeten/authd/internal/event"
	"github.com/remcostoeten/authd/internal/repository"
	"github.com/remcostoeten/authd/internal/secret"
	"github.com/remcostoeten/authd/internal/token"
	apperrors "github.com/remcostoeten/authd/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// dummyHash is compared against when the email is unknown so that login
// latency does not reveal whether an account exists.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("login-timing-equalizer"), bcryptCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// AuthService implements the business logic for accounts and sessions.
type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	codec       *token.Codec
	producer    *event.Producer
	logger      *slog.Logger
	refreshTTL  time.Duration
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	codec *token.Codec,
	producer *event.Producer,
	logger *slog.Logger,
	refreshTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		codec:       codec,
		producer:    producer,
		logger:      logger,
		refreshTTL:  refreshTTL,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates a new user account, opens its first session, and returns
// the user with a fresh token pair.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, meta domain.ClientMeta) (*domain.User, *domain.TokenPair, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, nil, err
		}
		return nil, nil, apperrors.StoreUnavailable(err)
	}

	tokens, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// Login authenticates a user with email and password, opening a new session.
// The failure response never distinguishes an unknown email from a wrong
// password, and the unknown-email path still runs a bcrypt comparison so the
// two cases take comparable time.
func (s *AuthService) Login(ctx context.Context, input LoginInput, meta domain.ClientMeta) (*domain.User, *domain.TokenPair, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
			return nil, nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, nil, apperrors.StoreUnavailable(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	tokens, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("session_id", tokens.SessionID),
	)

	return user, tokens, nil
}

// Refresh rotates the session behind a refresh cookie and mints a new token
// pair. The cookie value is "<session id>.<raw secret>". Reuse of a
// rotated-out secret revokes the session; the caller cannot tell that case
// apart from an expired or unknown session.
func (s *AuthService) Refresh(ctx context.Context, refreshCookie string, meta domain.ClientMeta) (*domain.TokenPair, error) {
	sessionID, rawSecret, ok := strings.Cut(refreshCookie, ".")
	if !ok || sessionID == "" || rawSecret == "" {
		return nil, apperrors.SessionCompromised()
	}

	newSecret, err := secret.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate rotation secret: %w", err)
	}

	now := time.Now().UTC()
	userID, err := s.sessionRepo.Rotate(ctx, sessionID, secret.Hash(rawSecret), secret.Hash(newSecret), now.Add(s.refreshTTL), meta)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrSecretMismatch):
		s.logger.WarnContext(ctx, "refresh secret reuse detected, session revoked",
			slog.String("session_id", sessionID),
			slog.String("user_id", userID),
			slog.String("ip", meta.IP),
		)
		if pubErr := s.producer.PublishSessionRevoked(ctx, sessionID, userID, event.ReasonSecretReuse); pubErr != nil {
			s.logger.ErrorContext(ctx, "failed to publish session.revoked event",
				slog.String("session_id", sessionID),
				slog.String("error", pubErr.Error()),
			)
		}
		return nil, apperrors.SessionCompromised()
	case errors.Is(err, repository.ErrSessionNotFound):
		return nil, apperrors.SessionCompromised()
	default:
		return nil, apperrors.StoreUnavailable(err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.SessionCompromised()
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	accessToken, accessExpiresAt, err := s.codec.Mint(user.ID, user.Email, user.Role, sessionID, now)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session refreshed",
		slog.String("user_id", user.ID),
		slog.String("session_id", sessionID),
	)

	return &domain.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     sessionID + "." + newSecret,
		SessionID:        sessionID,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}, nil
}

// Logout revokes the session named by the refresh cookie. Logging out an
// already-dead session succeeds; the caller's cookies are cleared either way.
func (s *AuthService) Logout(ctx context.Context, refreshCookie string) error {
	sessionID, _, ok := strings.Cut(refreshCookie, ".")
	if !ok || sessionID == "" {
		return nil
	}

	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return apperrors.StoreUnavailable(err)
	}

	if err := s.sessionRepo.Revoke(ctx, sessionID); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	if err := s.producer.PublishSessionRevoked(ctx, sessionID, sess.UserID, event.ReasonLogout); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish session.revoked event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", sess.UserID),
		slog.String("session_id", sessionID),
	)

	return nil
}

// LogoutAll revokes every live session of the user and reports how many.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.sessionRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, apperrors.StoreUnavailable(err)
	}

	s.logger.InfoContext(ctx, "all sessions revoked",
		slog.String("user_id", userID),
		slog.Int64("count", n),
	)

	return n, nil
}

// ChangePassword verifies the current password, installs a new hash, and
// revokes every session of the user. Clients must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return apperrors.StoreUnavailable(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	if _, err := s.sessionRepo.RevokeAllForUser(ctx, userID); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	if err := s.producer.PublishUserPasswordChanged(ctx, userID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed, all sessions revoked",
		slog.String("user_id", userID),
	)

	return nil
}

// GetUser retrieves a user by id.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	return user, nil
}

// ListUsers returns a page of all users, newest first.
func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return users, nil
}

// ListSessions returns the user's live sessions, most recently used first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.sessionRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return sessions, nil
}

// RevokeSession revokes one of the user's own sessions. A session that does
// not exist or belongs to someone else reads as not found.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return apperrors.NotFound("session", sessionID)
		}
		return apperrors.StoreUnavailable(err)
	}
	if sess.UserID != userID {
		return apperrors.NotFound("session", sessionID)
	}

	if err := s.sessionRepo.Revoke(ctx, sessionID); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	if err := s.producer.PublishSessionRevoked(ctx, sessionID, userID, event.ReasonRevokedByUser); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish session.revoked event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// DeleteExpiredSessions removes sessions that expired before the cutoff.
// Intended to run periodically from the background sweeper.
func (s *AuthService) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired sessions deleted",
			slog.Int64("count", n),
		)
	}
	return n, nil
}

// issueSession creates a new session row for the user and mints the matching
// token pair. The raw refresh secret appears only in the returned pair.
func (s *AuthService) issueSession(ctx context.Context, user *domain.User, meta domain.ClientMeta) (*domain.TokenPair, error) {
	rawSecret, err := secret.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate refresh secret: %w", err)
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		RefreshTokenHash: secret.Hash(rawSecret),
		IssuedAt:         now,
		ExpiresAt:        now.Add(s.refreshTTL),
		LastUsedAt:       now,
		LastUsedIP:       meta.IP,
		UserAgent:        meta.UserAgent,
		CreatedAt:        now,
	}

	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	accessToken, accessExpiresAt, err := s.codec.Mint(user.ID, user.Email, user.Role, sess.ID, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     sess.ID + "." + rawSecret,
		SessionID:        sess.ID,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: sess.ExpiresAt,
	}, nil
}

// validatePassword enforces the minimum password policy.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
