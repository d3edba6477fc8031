// Package services – Repo
//
// Repo is the storage surface the services depend on. GormRepo forwards to
// package repo; tests substitute their own.
package services

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/repo"
)

// Repo is the persistence contract used by the services. Every method takes
// the *gorm.DB to run on, so a caller can pass a transaction.
type Repo interface {
	// UpsertContact stores the latest display name for phone.
	UpsertContact(ctx context.Context, db *gorm.DB, phone, name string, now time.Time) (*domain.Contact, error)
	// GetContact fetches a contact or returns repo.ErrNotFound.
	GetContact(ctx context.Context, db *gorm.DB, phone string) (*domain.Contact, error)

	// GetOrCreateConversation creates the session row only when absent.
	GetOrCreateConversation(ctx context.Context, db *gorm.DB, phone string, now time.Time) (*domain.Conversation, error)
	// GetConversation fetches a session or returns repo.ErrNotFound.
	GetConversation(ctx context.Context, db *gorm.DB, phone string) (*domain.Conversation, error)
	// SetHumanMode writes the takeover flag and nothing else.
	SetHumanMode(ctx context.Context, db *gorm.DB, phone string, on bool) error
	// TouchConversation writes last_activity_at and nothing else.
	TouchConversation(ctx context.Context, db *gorm.DB, phone string, now time.Time) error
	// SaveQuoteState replaces the embedded quote document.
	SaveQuoteState(ctx context.Context, db *gorm.DB, phone string, raw datatypes.JSON) error

	// CreateMessage appends to the transcript.
	CreateMessage(ctx context.Context, db *gorm.DB, phone, role, content string) (*domain.Message, error)
	// ListRecentMessages returns the chronological tail of the transcript.
	ListRecentMessages(ctx context.Context, db *gorm.DB, phone string, limit int) ([]domain.Message, error)
	// LatestMessage returns the newest transcript entry or repo.ErrNotFound.
	LatestMessage(ctx context.Context, db *gorm.DB, phone string) (*domain.Message, error)
	// CountMessages returns the transcript length.
	CountMessages(ctx context.Context, db *gorm.DB, phone string) (int64, error)
	// ListMessagesPage returns a page of the transcript, oldest first.
	ListMessagesPage(ctx context.Context, db *gorm.DB, phone string, offset, limit int) ([]domain.Message, error)
	// MessagesStats returns the transcript length and newest timestamp.
	MessagesStats(ctx context.Context, db *gorm.DB, phone string) (int64, *time.Time, error)

	// MarkEventProcessed records a gateway message id, or returns
	// repo.ErrDuplicate when it is already recorded.
	MarkEventProcessed(ctx context.Context, db *gorm.DB, messageID, phone string, ttl time.Duration, now time.Time) error
}

// GormRepo adapts the repo package's free functions to Repo.
type GormRepo struct{}

var _ Repo = GormRepo{}

func (GormRepo) UpsertContact(ctx context.Context, db *gorm.DB, phone, name string, now time.Time) (*domain.Contact, error) {
	return repo.UpsertContact(ctx, db, phone, name, now)
}

func (GormRepo) GetContact(ctx context.Context, db *gorm.DB, phone string) (*domain.Contact, error) {
	return repo.GetContact(ctx, db, phone)
}

func (GormRepo) GetOrCreateConversation(ctx context.Context, db *gorm.DB, phone string, now time.Time) (*domain.Conversation, error) {
	return repo.GetOrCreateConversation(ctx, db, phone, now)
}

func (GormRepo) GetConversation(ctx context.Context, db *gorm.DB, phone string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, phone)
}

func (GormRepo) SetHumanMode(ctx context.Context, db *gorm.DB, phone string, on bool) error {
	return repo.SetHumanMode(ctx, db, phone, on)
}

func (GormRepo) TouchConversation(ctx context.Context, db *gorm.DB, phone string, now time.Time) error {
	return repo.TouchConversation(ctx, db, phone, now)
}

func (GormRepo) SaveQuoteState(ctx context.Context, db *gorm.DB, phone string, raw datatypes.JSON) error {
	return repo.SaveQuoteState(ctx, db, phone, raw)
}

func (GormRepo) CreateMessage(ctx context.Context, db *gorm.DB, phone, role, content string) (*domain.Message, error) {
	return repo.CreateMessage(ctx, db, phone, role, content)
}

func (GormRepo) ListRecentMessages(ctx context.Context, db *gorm.DB, phone string, limit int) ([]domain.Message, error) {
	return repo.ListRecentMessages(ctx, db, phone, limit)
}

func (GormRepo) LatestMessage(ctx context.Context, db *gorm.DB, phone string) (*domain.Message, error) {
	return repo.LatestMessage(ctx, db, phone)
}

func (GormRepo) CountMessages(ctx context.Context, db *gorm.DB, phone string) (int64, error) {
	return repo.CountMessages(ctx, db, phone)
}

func (GormRepo) ListMessagesPage(ctx context.Context, db *gorm.DB, phone string, offset, limit int) ([]domain.Message, error) {
	return repo.ListMessagesPage(ctx, db, phone, offset, limit)
}

func (GormRepo) MessagesStats(ctx context.Context, db *gorm.DB, phone string) (int64, *time.Time, error) {
	return repo.MessagesStats(ctx, db, phone)
}

func (GormRepo) MarkEventProcessed(ctx context.Context, db *gorm.DB, messageID, phone string, ttl time.Duration, now time.Time) error {
	return repo.MarkEventProcessed(ctx, db, messageID, phone, ttl, now)
}
