package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/repo"
)

func TestAdminService_IsCommand(t *testing.T) {
	s := &AdminService{}
	for _, in := range []string{"/bot", " /BOT ", "/status", "/Status\n"} {
		if !s.IsCommand(in) {
			t.Fatalf("%q should be a command", in)
		}
	}
	for _, in := range []string{"/humano", "/bot agora", "bot", "status", "", "/statu"} {
		if s.IsCommand(in) {
			t.Fatalf("%q should not be a command", in)
		}
	}
}

func TestAdminService_IsAllowed(t *testing.T) {
	s := &AdminService{}
	if s.IsAllowed(testPhone) {
		t.Fatalf("nil allow-list must deny")
	}
	s.IsAdmin = func(p string) bool { return p == testPhone }
	if !s.IsAllowed(testPhone) || s.IsAllowed("5521") {
		t.Fatalf("allow-list not honored")
	}
}

func TestAdminService_RestoreBot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.orch.Sessions.GetOrCreate(ctx, testPhone); err != nil {
		t.Fatal(err)
	}
	_ = h.orch.Sessions.SetHumanMode(ctx, testPhone, true)

	if err := h.orch.Admin.Execute(ctx, testPhone, " /Bot "); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if h.conversation(t).HumanMode {
		t.Fatalf("human mode should be off")
	}
	if len(h.sender.sent) != 1 || h.sender.sent[0].text != RestoreBotMessage || h.sender.sent[0].delay != 0 {
		t.Fatalf("unexpected sends: %+v", h.sender.sent)
	}
	if n := len(h.transcript(t)); n != 0 {
		t.Fatalf("admin replies are not transcript entries, got %d", n)
	}
}

func TestAdminService_RestoreBot_MissingSession(t *testing.T) {
	h := newHarness(t)
	err := h.orch.Admin.Execute(context.Background(), testPhone, "/bot")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(h.sender.sent) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestAdminService_StatusReport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	got, err := h.orch.Admin.StatusReport(ctx, testPhone)
	if err != nil {
		t.Fatalf("StatusReport: %v", err)
	}
	want := "*Status do Chat*\nModo: Bot\nCorretor: Desconhecido\nUltima mensagem: \"(sem mensagens)\""
	if got != want {
		t.Fatalf("empty report:\n%s\nwant:\n%s", got, want)
	}

	if _, _, err := h.orch.Sessions.UpsertContact(ctx, testPhone, "Carla"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.orch.Sessions.GetOrCreate(ctx, testPhone); err != nil {
		t.Fatal(err)
	}
	_ = h.orch.Sessions.SetHumanMode(ctx, testPhone, true)
	long := strings.Repeat("á", 150)
	if _, err := repo.CreateMessage(ctx, h.db, testPhone, domain.RoleUser, long); err != nil {
		t.Fatal(err)
	}

	got, err = h.orch.Admin.StatusReport(ctx, testPhone)
	if err != nil {
		t.Fatal(err)
	}
	want = "*Status do Chat*\nModo: Humano\nCorretor: Carla\nUltima mensagem: \"" + strings.Repeat("á", 100) + "\""
	if got != want {
		t.Fatalf("report:\n%s\nwant:\n%s", got, want)
	}

	if err := h.orch.Admin.Execute(ctx, testPhone, "/status"); err != nil {
		t.Fatalf("Execute status: %v", err)
	}
	if len(h.sender.sent) != 1 || h.sender.sent[0].text != want || h.sender.sent[0].delay != 0 {
		t.Fatalf("status not sent as system message: %+v", h.sender.sent)
	}
}

func TestAdminService_SendFailure(t *testing.T) {
	h := newHarness(t)
	h.sender.fail = func(string) error { return errGatewayDown }
	err := h.orch.Admin.Execute(context.Background(), testPhone, "/status")
	if !errors.Is(err, ErrSendFailed) || !errors.Is(err, errGatewayDown) {
		t.Fatalf("expected wrapped send failure, got %v", err)
	}
}
