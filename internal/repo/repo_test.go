package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-broker-assistant/internal/config"
	"github.com/tbourn/go-broker-assistant/internal/domain"
)

// test DB helper: unique in-memory database per test to avoid schema leakage.
func newRepoDB(t *testing.T) *gorm.DB {
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
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// --- bootstrap ---

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "does-not-exist", "app.db")
	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}
	if !os.IsNotExist(err) && !strings.Contains(strings.ToLower(err.Error()), "no such file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpen_SQLiteWithTracingAndMigrate(t *testing.T) {
	cfg := config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "app.db")}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, tbl := range []any{&domain.Contact{}, &domain.Conversation{}, &domain.Message{}, &domain.ProcessedEvent{}} {
		if !db.Migrator().HasTable(tbl) {
			t.Fatalf("expected table for %T", tbl)
		}
	}
	var mode string
	db.Raw("PRAGMA journal_mode;").Scan(&mode)
	if strings.ToLower(mode) != "wal" {
		t.Fatalf("journal_mode = %q; want wal", mode)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(config.Config{DBDriver: "oracle"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

// --- contacts ---

func TestUpsertContact_CreatesThenUpdatesName(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	t0 := time.Now().UTC()

	c, err := UpsertContact(ctx, db, "5511", "Ana", t0)
	if err != nil {
		t.Fatalf("UpsertContact: %v", err)
	}
	if c.Name != "Ana" || !c.CreatedAt.Equal(c.UpdatedAt) {
		t.Fatalf("first upsert unexpected: %+v", c)
	}

	c2, err := UpsertContact(ctx, db, "5511", "Ana Souza", t0.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("UpsertContact #2: %v", err)
	}
	if c2.Name != "Ana Souza" {
		t.Fatalf("name not overwritten: %+v", c2)
	}
	if !c2.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("created_at must not change: %v vs %v", c2.CreatedAt, c.CreatedAt)
	}
	if c2.UpdatedAt.Sub(c2.CreatedAt) < 4*time.Minute {
		t.Fatalf("updated_at not advanced: %+v", c2)
	}
}

// --- conversations ---

func TestGetOrCreateConversation_IdempotentAndPreservesFlags(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a, err := GetOrCreateConversation(ctx, db, "5511", now)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if a.HumanMode {
		t.Fatalf("new conversation must start in bot mode")
	}
	if err := SetHumanMode(ctx, db, "5511", true); err != nil {
		t.Fatalf("SetHumanMode: %v", err)
	}
	if err := SaveQuoteState(ctx, db, "5511", datatypes.JSON(`{"v":1}`)); err != nil {
		t.Fatalf("SaveQuoteState: %v", err)
	}

	b, err := GetOrCreateConversation(ctx, db, "5511", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetOrCreate #2: %v", err)
	}
	if !b.HumanMode || string(b.QuoteState) != `{"v":1}` {
		t.Fatalf("second get-or-create clobbered state: %+v", b)
	}
	if !b.LastActivityAt.Equal(a.LastActivityAt) {
		t.Fatalf("last activity changed by get-or-create: %v vs %v", b.LastActivityAt, a.LastActivityAt)
	}
}

func TestTouchConversation_OnlyTouchesActivity(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	t0 := time.Now().UTC().Add(-time.Hour)

	if _, err := GetOrCreateConversation(ctx, db, "5511", t0); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	_ = SetHumanMode(ctx, db, "5511", true)
	_ = SaveQuoteState(ctx, db, "5511", datatypes.JSON(`{"v":1}`))

	t1 := t0.Add(30 * time.Minute)
	if err := TouchConversation(ctx, db, "5511", t1); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, err := GetConversation(ctx, db, "5511")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if !got.LastActivityAt.Equal(t1) {
		t.Fatalf("last_activity_at = %v; want %v", got.LastActivityAt, t1)
	}
	if !got.HumanMode || string(got.QuoteState) != `{"v":1}` {
		t.Fatalf("touch clobbered other fields: %+v", got)
	}
}

func TestConversationMutations_NotFound(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	if err := SetHumanMode(ctx, db, "nobody", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetHumanMode missing: %v", err)
	}
	if err := TouchConversation(ctx, db, "nobody", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Touch missing: %v", err)
	}
	if err := SaveQuoteState(ctx, db, "nobody", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SaveQuoteState missing: %v", err)
	}
	if _, err := GetConversation(ctx, db, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetConversation missing: %v", err)
	}
}

func TestSaveQuoteState_NilClears(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	_, _ = GetOrCreateConversation(ctx, db, "5511", time.Now())
	_ = SaveQuoteState(ctx, db, "5511", datatypes.JSON(`{"v":1}`))
	if err := SaveQuoteState(ctx, db, "5511", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ := GetConversation(ctx, db, "5511")
	if len(got.QuoteState) != 0 {
		t.Fatalf("expected cleared quote state, got %s", got.QuoteState)
	}
}

// --- messages ---

func seedMessages(t *testing.T, db *gorm.DB, phone string, contents ...string) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	for i, c := range contents {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		m := &domain.Message{ID: fmt.Sprintf("%s-%02d", phone, i), Phone: phone, Role: role, Content: c, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestCreateMessage_And_Latest(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	m, err := CreateMessage(ctx, db, "5511", domain.RoleUser, "oi")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("unexpected message: %+v", m)
	}
	if _, err := CreateMessage(ctx, db, "5511", "system", "x"); err == nil {
		t.Fatalf("role check should reject system role")
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := CreateMessage(ctx, db, "5511", domain.RoleAssistant, "ola!"); err != nil {
		t.Fatalf("CreateMessage #2: %v", err)
	}
	latest, err := LatestMessage(ctx, db, "5511")
	if err != nil {
		t.Fatalf("LatestMessage: %v", err)
	}
	if latest.Content != "ola!" {
		t.Fatalf("latest = %q", latest.Content)
	}
	if _, err := LatestMessage(ctx, db, "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRecentMessages_ChronologicalTail(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedMessages(t, db, "5511", "a", "b", "c", "d", "e")
	seedMessages(t, db, "5521", "zzz")

	got, err := ListRecentMessages(ctx, db, "5511", 3)
	if err != nil {
		t.Fatalf("ListRecentMessages: %v", err)
	}
	if len(got) != 3 || got[0].Content != "c" || got[1].Content != "d" || got[2].Content != "e" {
		t.Fatalf("unexpected tail: %+v", got)
	}
	all, _ := ListRecentMessages(ctx, db, "5511", 0)
	if len(all) != 5 || all[0].Content != "a" {
		t.Fatalf("unexpected full transcript: %+v", all)
	}
}

func TestCountAndPage(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedMessages(t, db, "5511", "a", "b", "c")

	n, err := CountMessages(ctx, db, "5511")
	if err != nil || n != 3 {
		t.Fatalf("CountMessages = %d, %v", n, err)
	}
	page, err := ListMessagesPage(ctx, db, "5511", 1, 1)
	if err != nil || len(page) != 1 || page[0].Content != "b" {
		t.Fatalf("ListMessagesPage = %+v, %v", page, err)
	}
}

func TestCountMessages_MissingTableErrors(t *testing.T) {
	dsn := "file:count_missing?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := CountMessages(context.Background(), db, "5511"); err == nil {
		t.Fatalf("expected error on missing table")
	}
}

func TestMessagesStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	n, latest, err := MessagesStats(ctx, db, "5511")
	if err != nil || n != 0 || latest != nil {
		t.Fatalf("empty stats = %d %v %v", n, latest, err)
	}
	seedMessages(t, db, "5511", "a", "b")
	n, latest, err = MessagesStats(ctx, db, "5511")
	if err != nil || n != 2 || latest == nil {
		t.Fatalf("stats = %d %v %v", n, latest, err)
	}
}

// --- processed events ---

func TestMarkEventProcessed_DuplicateAndExpiry(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := MarkEventProcessed(ctx, db, "evt-1", "5511", time.Hour, now); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := MarkEventProcessed(ctx, db, "evt-1", "5511", time.Hour, now.Add(time.Minute)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// After expiry the id is accepted again.
	if err := MarkEventProcessed(ctx, db, "evt-1", "5511", time.Hour, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("mark after expiry: %v", err)
	}
}

func TestPurgeExpiredEvents(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = MarkEventProcessed(ctx, db, "old", "5511", time.Minute, now.Add(-time.Hour))
	_ = MarkEventProcessed(ctx, db, "new", "5511", time.Hour, now)

	n, err := PurgeExpiredEvents(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpiredEvents = %d, %v", n, err)
	}
}
