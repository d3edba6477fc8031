package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/knowledge"
	"github.com/tbourn/go-broker-assistant/internal/llm"
	"github.com/tbourn/go-broker-assistant/internal/quote"
	"github.com/tbourn/go-broker-assistant/internal/repo"
)

const testPhone = "5511999990000"

// newServicesDB returns a migrated in-memory database private to the test.
func newServicesDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ----- clock -----

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ----- sender -----

type sentMsg struct {
	phone string
	text  string
	delay int
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMsg
	// fail, when set, decides per message whether the send errors.
	fail func(text string) error
}

var errGatewayDown = errors.New("gateway down")

func (f *fakeSender) Send(_ context.Context, phone, text string, delay int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(text); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMsg{phone: phone, text: text, delay: delay})
	return nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, s := range f.sent {
		out[i] = s.text
	}
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

// ----- generator -----

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	prompts []llm.Prompt
}

func (g *fakeGenerator) Generate(_ context.Context, p llm.Prompt) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, p)
	if g.reply == "" {
		return "Resposta da Issy."
	}
	return g.reply
}

// ----- harness -----

type harness struct {
	db     *gorm.DB
	clock  *clock
	sender *fakeSender
	gen    *fakeGenerator
	orch   *Orchestrator
}

func newHarness(t *testing.T, admins ...string) *harness {
	t.Helper()
	db := newServicesDB(t)
	clk := newClock()
	sender := &fakeSender{}
	gen := &fakeGenerator{}

	sessions := NewSessionService(db, GormRepo{}, 30*time.Minute)
	sessions.Now = clk.Now

	allowed := map[string]bool{}
	for _, a := range admins {
		allowed[a] = true
	}
	admin := NewAdminService(db, GormRepo{}, sessions, sender, func(p string) bool { return allowed[p] })
	handoff := NewHandoffService(db, GormRepo{}, sessions, sender)
	quotes := NewQuoteService(db, GormRepo{}, quote.NewMachine(nil), sender, 0, 0)
	quotes.Now = clk.Now

	orch := &Orchestrator{
		DB:        db,
		Repo:      GormRepo{},
		Sessions:  sessions,
		Admin:     admin,
		Handoff:   handoff,
		Quotes:    quotes,
		Generator: gen,
		Index:     knowledge.NewIndex(knowledge.CatalogFacts()),
		Sender:    sender,
		Opts: Options{
			HistoryLimit: 20,
			FactsTopK:    4,
			DedupeTTL:    time.Hour,
		},
		Now: clk.Now,
	}
	return &harness{db: db, clock: clk, sender: sender, gen: gen, orch: orch}
}

var msgSeq int

// send delivers text from testPhone one minute after the previous event.
func (h *harness) send(t *testing.T, text string) Outcome {
	t.Helper()
	h.clock.Advance(time.Minute)
	msgSeq++
	out, err := h.orch.Handle(context.Background(), inbound(fmt.Sprintf("msg-%d", msgSeq), text))
	if err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
	return out
}

func (h *harness) transcript(t *testing.T) []domain.Message {
	t.Helper()
	msgs, err := repo.ListRecentMessages(context.Background(), h.db, testPhone, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	return msgs
}

func (h *harness) conversation(t *testing.T) *domain.Conversation {
	t.Helper()
	conv, err := repo.GetConversation(context.Background(), h.db, testPhone)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	return conv
}
