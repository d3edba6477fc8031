// Package domain defines the persistence models for broker contacts, their
// conversation sessions, and the message transcript. These types are mapped
// with GORM and form the core data layer of the assistant. Every record is
// keyed by the broker's phone number (the identity).
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Contact is the display name last observed for a phone number.
//
// Fields:
//   - Phone: identity, primary key.
//   - Name: latest sender name reported by the gateway; overwritten on every
//     inbound event.
//   - CreatedAt: first time the identity was seen. Compared with UpdatedAt to
//     detect the first message ever received from the identity.
//   - UpdatedAt: time of the latest upsert.
type Contact struct {
	Phone     string    `json:"phone"      gorm:"type:varchar(32);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string { return "contacts" }

// Conversation is the per-identity session record.
//
// Fields:
//   - Phone: identity, primary key.
//   - HumanMode: true while a human agent owns the chat; the bot stays silent.
//   - QuoteState: the embedded quote form as a versioned JSON document, or
//     NULL when no quote was ever started. Decoded with quote.Decode.
//   - LastActivityAt: drives session expiry; only Touch writes it.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Conversation struct {
	Phone          string         `json:"phone"            gorm:"type:varchar(32);primaryKey"`
	HumanMode      bool           `json:"human_mode"       gorm:"not null;default:false"`
	QuoteState     datatypes.JSON `json:"quote_state"      swaggertype:"object"`
	LastActivityAt time.Time      `json:"last_activity_at" gorm:"not null;index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is one immutable transcript entry.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Phone     string    `json:"phone"      gorm:"type:varchar(32);not null;index:idx_phone_msgs,priority:1"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_phone_msgs,priority:2"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// ProcessedEvent records an inbound gateway message id that has already been
// accepted for processing, so redelivered webhooks are dropped.
type ProcessedEvent struct {
	MessageID string    `gorm:"type:varchar(128);primaryKey"`
	Phone     string    `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedEvent) TableName() string { return "processed_events" }
