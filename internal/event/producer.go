package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/remcostoeten/authd/internal/domain"
	pkgkafka "github.com/remcostoeten/authd/pkg/kafka"
)

// Kafka topic constants for auth lifecycle events.
const (
	TopicUserRegistered      = "authd.user.registered"
	TopicUserPasswordChanged = "authd.user.password_changed"
	TopicSessionRevoked      = "authd.session.revoked"
)

// Aggregate type constants.
const (
	AggregateTypeUser    = "user"
	AggregateTypeSession = "session"
)

// Source identifier for events originating from this service.
const SourceAuthd = "authd"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserPasswordChangedData is the payload for a user.password_changed event.
type UserPasswordChangedData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// SessionRevokedData is the payload for a session.revoked event. Reason is
// one of "logout", "logout_all", "password_changed", "revoked_by_user", or
// "secret_reuse".
type SessionRevokedData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Reason    string `json:"reason"`
}

// Revocation reasons carried in session.revoked events.
const (
	ReasonLogout          = "logout"
	ReasonLogoutAll       = "logout_all"
	ReasonPasswordChanged = "password_changed"
	ReasonRevokedByUser   = "revoked_by_user"
	ReasonSecretReuse     = "secret_reuse"
)

// Producer publishes auth lifecycle events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceAuthd, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishUserPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishUserPasswordChanged(ctx context.Context, userID, email string) error {
	data := UserPasswordChangedData{
		UserID: userID,
		Email:  email,
	}

	event, err := pkgkafka.NewEvent(TopicUserPasswordChanged, userID, AggregateTypeUser, SourceAuthd, data)
	if err != nil {
		return fmt.Errorf("create user.password_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserPasswordChanged, event); err != nil {
		return fmt.Errorf("publish user.password_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.password_changed event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishSessionRevoked publishes a session.revoked event.
func (p *Producer) PublishSessionRevoked(ctx context.Context, sessionID, userID, reason string) error {
	data := SessionRevokedData{
		SessionID: sessionID,
		UserID:    userID,
		Reason:    reason,
	}

	event, err := pkgkafka.NewEvent(TopicSessionRevoked, sessionID, AggregateTypeSession, SourceAuthd, data)
	if err != nil {
		return fmt.Errorf("create session.revoked event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicSessionRevoked, event); err != nil {
		return fmt.Errorf("publish session.revoked event: %w", err)
	}

	p.logger.DebugContext(ctx, "published session.revoked event",
		slog.String("session_id", sessionID),
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)

	return nil
}
