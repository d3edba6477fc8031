package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/gateway"
	"github.com/tbourn/go-broker-assistant/internal/services"
)

type fakeSubmitter struct {
	mu     sync.Mutex
	events []gateway.Inbound
	closed bool
}

func (f *fakeSubmitter) Submit(in gateway.Inbound) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.events = append(f.events, in)
	return true
}

type fakeReader struct {
	view     *services.ConversationView
	messages []domain.Message
	latest   *time.Time
	err      error
	statsErr error
	calls    int
}

func (f *fakeReader) Get(_ context.Context, phone string) (*services.ConversationView, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.view == nil || f.view.Phone != phone {
		return nil, services.ErrConversationNotFound
	}
	return f.view, nil
}

func (f *fakeReader) ListPage(_ context.Context, phone string, page, pageSize int) ([]domain.Message, int64, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	if f.view == nil || f.view.Phone != phone {
		return nil, 0, services.ErrConversationNotFound
	}
	total := int64(len(f.messages))
	start := (page - 1) * pageSize
	if start >= len(f.messages) {
		return []domain.Message{}, total, nil
	}
	end := min(start+pageSize, len(f.messages))
	return f.messages[start:end], total, nil
}

func (f *fakeReader) Stats(context.Context, string) (int64, *time.Time, error) {
	if f.statsErr != nil {
		return 0, nil, f.statsErr
	}
	return int64(len(f.messages)), f.latest, nil
}

var errDBDown = errors.New("db down")
