// Package services – InspectService
//
// This file implements the read model behind the operator API: a snapshot
// of one conversation and its paginated transcript.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/quote"
	"github.com/tbourn/go-broker-assistant/internal/repo"
	"github.com/tbourn/go-broker-assistant/internal/utils"
)

// ConversationView is the operator-facing snapshot of one identity.
type ConversationView struct {
	Phone          string       `json:"phone"`
	Name           string       `json:"name"`
	HumanMode      bool         `json:"human_mode"`
	Quote          *quote.State `json:"quote,omitempty"`
	LastActivityAt time.Time    `json:"last_activity_at"`
	Messages       int64        `json:"messages"`
}

// InspectService serves read-only views of conversations for operators. It
// never mutates a session.
type InspectService struct {
	DB   *gorm.DB
	Repo Repo
}

// NewInspectService constructs an InspectService. A nil repo uses GormRepo.
func NewInspectService(db *gorm.DB, r Repo) *InspectService {
	if r == nil {
		r = GormRepo{}
	}
	return &InspectService{DB: db, Repo: r}
}

// Get returns the snapshot for phone or ErrConversationNotFound. A corrupt
// quote document is reported as no quote.
func (s *InspectService) Get(ctx context.Context, phone string) (*ConversationView, error) {
	ctx, span := otel.Tracer("services/InspectService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("phone", phone)))
	defer span.End()

	conv, err := s.Repo.GetConversation(ctx, s.DB, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}

	view := &ConversationView{
		Phone:          conv.Phone,
		HumanMode:      conv.HumanMode,
		LastActivityAt: conv.LastActivityAt,
	}
	if st, ok := quote.Decode(conv.QuoteState); ok {
		view.Quote = st
	}
	if c, err := s.Repo.GetContact(ctx, s.DB, phone); err == nil {
		view.Name = c.Name
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if view.Messages, err = s.Repo.CountMessages(ctx, s.DB, phone); err != nil {
		return nil, err
	}
	return view, nil
}

// ListPage returns one page of the transcript, oldest first, and the total
// count. page starts at 1.
func (s *InspectService) ListPage(ctx context.Context, phone string, page, pageSize int) ([]domain.Message, int64, error) {
	ctx, span := otel.Tracer("services/InspectService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("phone", phone),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	if _, err := s.Repo.GetConversation(ctx, s.DB, phone); errors.Is(err, repo.ErrNotFound) {
		return nil, 0, ErrConversationNotFound
	} else if err != nil {
		return nil, 0, err
	}

	total, err := s.Repo.CountMessages(ctx, s.DB, phone)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := s.Repo.ListMessagesPage(ctx, s.DB, phone, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	return items, total, nil
}

// Stats returns the transcript length and newest timestamp, used to build
// cache validators.
func (s *InspectService) Stats(ctx context.Context, phone string) (int64, *time.Time, error) {
	return s.Repo.MessagesStats(ctx, s.DB, phone)
}
