// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file records processed gateway message ids so a
// redelivered webhook is recognized and dropped.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-broker-assistant/internal/domain"
)

// ErrDuplicate indicates that the message id was already processed and its
// record has not expired yet.
var ErrDuplicate = errors.New("duplicate")

// MarkEventProcessed records messageID for ttl. It returns ErrDuplicate when
// a live record already exists. Expired records for the same id are replaced.
func MarkEventProcessed(ctx context.Context, db *gorm.DB, messageID, phone string, ttl time.Duration, now time.Time) error {
	now = now.UTC()
	tx := db.WithContext(ctx)
	if err := tx.Where("message_id = ? AND expires_at <= ?", messageID, now).
		Delete(&domain.ProcessedEvent{}).Error; err != nil {
		return err
	}
	rec := &domain.ProcessedEvent{
		MessageID: messageID,
		Phone:     phone,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := tx.Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// PurgeExpiredEvents deletes records whose TTL elapsed and returns how many
// rows were removed.
func PurgeExpiredEvents(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&domain.ProcessedEvent{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite and pgx often return plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}
