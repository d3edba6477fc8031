// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Contact
// and Conversation models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Conversation mutations are column-scoped on purpose: TouchConversation
// writes only last_activity_at, SetHumanMode only human_mode, and
// SaveQuoteState only quote_state. None of them can clobber the others.
package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-broker-assistant/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertContact inserts the contact or, when the phone already exists,
// overwrites its name and UpdatedAt. CreatedAt is never changed by the
// update branch. The stored row is returned.
func UpsertContact(ctx context.Context, db *gorm.DB, phone, name string, now time.Time) (*domain.Contact, error) {
	now = now.UTC()
	c := &domain.Contact{Phone: phone, Name: name, CreatedAt: now, UpdatedAt: now}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone"}},
			DoUpdates: clause.Assignments(map[string]any{"name": name, "updated_at": now}),
		}).
		Create(c).Error
	if err != nil {
		return nil, err
	}
	return GetContact(ctx, db, phone)
}

// GetContact fetches a contact by phone or returns ErrNotFound.
func GetContact(ctx context.Context, db *gorm.DB, phone string) (*domain.Contact, error) {
	var c domain.Contact
	if err := db.WithContext(ctx).Where("phone = ?", phone).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreateConversation creates the session row if absent and returns the
// stored row. An existing row is left untouched.
func GetOrCreateConversation(ctx context.Context, db *gorm.DB, phone string, now time.Time) (*domain.Conversation, error) {
	now = now.UTC()
	conv := &domain.Conversation{Phone: phone, LastActivityAt: now, CreatedAt: now, UpdatedAt: now}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "phone"}}, DoNothing: true}).
		Create(conv).Error
	if err != nil {
		return nil, err
	}
	return GetConversation(ctx, db, phone)
}

// GetConversation fetches a session by phone or returns ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, phone string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := db.WithContext(ctx).Where("phone = ?", phone).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// SetHumanMode updates the takeover flag. ErrNotFound when no row matched.
func SetHumanMode(ctx context.Context, db *gorm.DB, phone string, on bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("phone = ?", phone).
		Update("human_mode", on)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchConversation stamps last_activity_at and nothing else.
func TouchConversation(ctx context.Context, db *gorm.DB, phone string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("phone = ?", phone).
		UpdateColumn("last_activity_at", now.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveQuoteState replaces the embedded quote document. A nil raw value
// clears the column.
func SaveQuoteState(ctx context.Context, db *gorm.DB, phone string, raw datatypes.JSON) error {
	var v any
	if len(raw) > 0 {
		v = raw
	}
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("phone = ?", phone).
		Update("quote_state", v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
