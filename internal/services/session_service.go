// Package services – SessionService
//
// This file implements the session and mode gate: contact upserts, the
// inactivity window that triggers a fresh welcome, and the human-mode flag.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-broker-assistant/internal/domain"
)

// DefaultSessionTimeout is the inactivity window after which the welcome
// menu is sent again.
const DefaultSessionTimeout = 30 * time.Minute

// firstMessageTolerance bounds |createdAt - updatedAt| for a contact that
// was inserted by the current upsert. The two stamps are not guaranteed to
// be identical after a round trip through the store.
const firstMessageTolerance = time.Second

// SessionService owns the contact and conversation rows of an identity.
// SetHumanMode is the only way the takeover flag changes.
type SessionService struct {
	DB      *gorm.DB
	Repo    Repo
	Timeout time.Duration

	// Now is the clock; tests pin it.
	Now func() time.Time
}

// NewSessionService returns a SessionService. A non-positive timeout falls
// back to DefaultSessionTimeout.
func NewSessionService(db *gorm.DB, r Repo, timeout time.Duration) *SessionService {
	if r == nil {
		r = GormRepo{}
	}
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &SessionService{DB: db, Repo: r, Timeout: timeout, Now: time.Now}
}

func (s *SessionService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// UpsertContact records name as the latest display name of phone and reports
// whether this is the first message ever seen from it.
func (s *SessionService) UpsertContact(ctx context.Context, phone, name string) (*domain.Contact, bool, error) {
	c, err := s.Repo.UpsertContact(ctx, s.DB, phone, name, s.now())
	if err != nil {
		return nil, false, err
	}
	return c, IsFirstMessage(c), nil
}

// IsFirstMessage reports whether c was created by the upsert that returned
// it.
func IsFirstMessage(c *domain.Contact) bool {
	if c == nil {
		return false
	}
	d := c.UpdatedAt.Sub(c.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d < firstMessageTolerance
}

// GetOrCreate returns the session for phone, creating it when absent. An
// existing row is returned unchanged.
func (s *SessionService) GetOrCreate(ctx context.Context, phone string) (*domain.Conversation, error) {
	ctx, span := otel.Tracer("services/SessionService").Start(ctx, "GetOrCreate",
		trace.WithAttributes(attribute.String("phone", phone)))
	defer span.End()

	return s.Repo.GetOrCreateConversation(ctx, s.DB, phone, s.now())
}

// IsHumanMode reports whether a human agent owns the conversation.
func (s *SessionService) IsHumanMode(conv *domain.Conversation) bool {
	return conv != nil && conv.HumanMode
}

// SetHumanMode flips the takeover flag.
func (s *SessionService) SetHumanMode(ctx context.Context, phone string, on bool) error {
	return s.Repo.SetHumanMode(ctx, s.DB, phone, on)
}

// IsExpired reports whether the session has been idle for at least Timeout.
// Idle time equal to the timeout counts as expired.
func (s *SessionService) IsExpired(conv *domain.Conversation, now time.Time) bool {
	if conv == nil {
		return false
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return now.Sub(conv.LastActivityAt) >= timeout
}

// Touch stamps the session's last activity.
func (s *SessionService) Touch(ctx context.Context, phone string) error {
	return s.Repo.TouchConversation(ctx, s.DB, phone, s.now())
}
