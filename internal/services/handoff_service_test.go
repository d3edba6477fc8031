package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-broker-assistant/internal/domain"
)

func msgs(pairs ...string) []domain.Message {
	out := make([]domain.Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.Message{Role: pairs[i], Content: pairs[i+1]})
	}
	return out
}

func TestBuildBriefing(t *testing.T) {
	long := strings.Repeat("x", 200)
	history := msgs(
		domain.RoleUser, "primeira",
		domain.RoleAssistant, "resposta",
		domain.RoleUser, "segunda",
		domain.RoleUser, "terceira",
		domain.RoleAssistant, "outra resposta",
		domain.RoleUser, long,
	)
	got := BuildBriefing("Ana", testPhone, history)

	for _, want := range []string{
		"*TRANSFERENCIA PARA ATENDIMENTO HUMANO*",
		"*Corretor:* Ana (" + testPhone + ")",
		"*Mensagens anteriores:* 6",
		"- segunda\n- terceira\n- " + strings.Repeat("x", 120) + "\n",
		"Para retornar ao bot: envie */bot* neste chat",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("briefing missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "primeira") || strings.Contains(got, "resposta") {
		t.Fatalf("only the last three user messages belong in the briefing:\n%s", got)
	}
	if strings.Contains(got, strings.Repeat("x", 121)) {
		t.Fatalf("preview not truncated")
	}
}

func TestBuildBriefing_NoHistory(t *testing.T) {
	got := BuildBriefing("Bruno", "5521", nil)
	if !strings.Contains(got, "*Mensagens anteriores:* 0") || !strings.Contains(got, "- (sem mensagens anteriores)") {
		t.Fatalf("unexpected briefing:\n%s", got)
	}
	if BuildBriefing("Bruno", "5521", nil) != got {
		t.Fatalf("briefing must be deterministic")
	}
}

func TestHandoffService_Execute_Order(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.orch.Sessions.GetOrCreate(ctx, testPhone); err != nil {
		t.Fatal(err)
	}

	// The flag must still be off while the briefing is in flight.
	var modeDuringBriefing *bool
	h.sender.fail = func(text string) error {
		if strings.HasPrefix(text, "*TRANSFERENCIA") {
			on := h.conversation(t).HumanMode
			modeDuringBriefing = &on
		}
		return nil
	}

	history := msgs(domain.RoleUser, "quanto custa?")
	if err := h.orch.Handoff.Execute(ctx, testPhone, "Ana", history); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if modeDuringBriefing == nil || *modeDuringBriefing {
		t.Fatalf("human mode must flip only after the briefing is sent")
	}
	if !h.conversation(t).HumanMode {
		t.Fatalf("human mode should be on")
	}
	sent := h.sender.sent
	if len(sent) != 2 {
		t.Fatalf("sends = %d", len(sent))
	}
	if sent[0].delay != 0 || !strings.HasPrefix(sent[0].text, "*TRANSFERENCIA") {
		t.Fatalf("briefing send = %+v", sent[0])
	}
	if sent[1].delay != 1 || sent[1].text != ConfirmationMessage("Ana") {
		t.Fatalf("confirmation send = %+v", sent[1])
	}
	tr := h.transcript(t)
	if len(tr) != 2 || tr[0].Content != sent[0].text || tr[1].Content != sent[1].text {
		t.Fatalf("transcript = %+v", tr)
	}
	for _, m := range tr {
		if m.Role != domain.RoleAssistant {
			t.Fatalf("handoff messages are assistant messages: %+v", m)
		}
	}
}

func TestHandoffService_BriefingFailureKeepsBot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.orch.Sessions.GetOrCreate(ctx, testPhone); err != nil {
		t.Fatal(err)
	}
	h.sender.fail = func(string) error { return errGatewayDown }

	err := h.orch.Handoff.Execute(ctx, testPhone, "Ana", nil)
	if !errors.Is(err, ErrSendFailed) || !errors.Is(err, errGatewayDown) {
		t.Fatalf("expected send failure, got %v", err)
	}
	if h.conversation(t).HumanMode {
		t.Fatalf("human mode must not flip when the briefing was not delivered")
	}
	if n := len(h.transcript(t)); n != 0 {
		t.Fatalf("nothing may be recorded, got %d", n)
	}
}

func TestHandoffService_ConfirmationFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.orch.Sessions.GetOrCreate(ctx, testPhone); err != nil {
		t.Fatal(err)
	}
	h.sender.fail = func(text string) error {
		if strings.HasPrefix(text, "Entendido") {
			return errGatewayDown
		}
		return nil
	}

	if err := h.orch.Handoff.Execute(ctx, testPhone, "Ana", nil); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected send failure, got %v", err)
	}
	if !h.conversation(t).HumanMode {
		t.Fatalf("briefing was delivered, so human mode stays on")
	}
	tr := h.transcript(t)
	if len(tr) != 1 || !strings.HasPrefix(tr[0].Content, "*TRANSFERENCIA") {
		t.Fatalf("only the delivered briefing is recorded: %+v", tr)
	}
}
