package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/gateway"
	"github.com/tbourn/go-broker-assistant/internal/services"
)

// Submitter hands a normalized event to the background pipeline. It must not
// block. *worker.Dispatcher implements it.
type Submitter interface {
	Submit(in gateway.Inbound) bool
}

// ConversationReader serves the operator read API.
// *services.InspectService implements it.
type ConversationReader interface {
	// Get returns the snapshot for phone or services.ErrConversationNotFound.
	Get(ctx context.Context, phone string) (*services.ConversationView, error)
	// ListPage returns one transcript page and the total count.
	ListPage(ctx context.Context, phone string, page, pageSize int) ([]domain.Message, int64, error)
	// Stats returns the transcript length and newest timestamp.
	Stats(ctx context.Context, phone string) (int64, *time.Time, error)
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	events  Submitter
	reader  ConversationReader
	service string
	now     func() time.Time
}

// New returns Handlers bound to the pipeline and the read service. service
// is the name reported by /health.
func New(events Submitter, reader ConversationReader, service string) *Handlers {
	return &Handlers{events: events, reader: reader, service: service, now: time.Now}
}
