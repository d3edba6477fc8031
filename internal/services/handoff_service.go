// Package services – HandoffService
//
// This file implements the transfer to a human agent: the briefing built
// from recent history, the switch to human mode and the confirmation to the
// broker. Human mode flips only after the briefing was delivered.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/gateway"
	"github.com/tbourn/go-broker-assistant/internal/utils"
)

const (
	briefingUserMessages = 3
	briefingPreviewRunes = 120
	confirmationDelay    = 1
)

// HandoffService moves a conversation from the bot to a human agent.
type HandoffService struct {
	DB       *gorm.DB
	Repo     Repo
	Sessions *SessionService
	Sender   gateway.Sender
}

// NewHandoffService wires a HandoffService.
func NewHandoffService(db *gorm.DB, r Repo, sessions *SessionService, sender gateway.Sender) *HandoffService {
	if r == nil {
		r = GormRepo{}
	}
	return &HandoffService{DB: db, Repo: r, Sessions: sessions, Sender: sender}
}

// BuildBriefing renders the summary the human agent reads before taking
// over. history is the transcript before the triggering message.
func BuildBriefing(name, phone string, history []domain.Message) string {
	var users []string
	for _, m := range history {
		if m.Role == domain.RoleUser {
			users = append(users, m.Content)
		}
	}
	if len(users) > briefingUserMessages {
		users = users[len(users)-briefingUserMessages:]
	}

	var bullets strings.Builder
	if len(users) == 0 {
		bullets.WriteString("- (sem mensagens anteriores)")
	}
	for i, u := range users {
		if i > 0 {
			bullets.WriteByte('\n')
		}
		bullets.WriteString("- " + utils.Truncate(u, briefingPreviewRunes))
	}

	return "*TRANSFERENCIA PARA ATENDIMENTO HUMANO*\n\n" +
		fmt.Sprintf("*Corretor:* %s (%s)\n", name, phone) +
		fmt.Sprintf("*Mensagens anteriores:* %d\n\n", len(history)) +
		"*Ultimas mensagens do corretor:*\n" +
		bullets.String() + "\n\n" +
		"Para retornar ao bot: envie */bot* neste chat"
}

// ConfirmationMessage tells the broker a specialist is taking over.
func ConfirmationMessage(name string) string {
	return fmt.Sprintf("Entendido, %s! Estou transferindo para um especialista da assessoria. "+
		"Eles vao ver todo o contexto da conversa e entrar em contato em breve.", name)
}

// Execute runs the handoff in order: send the briefing, switch to human
// mode, send the confirmation. Each message is written to the transcript
// only after its own send succeeded. The first failure stops the sequence,
// so a failed briefing leaves the bot in charge.
func (s *HandoffService) Execute(ctx context.Context, phone, name string, history []domain.Message) error {
	ctx, span := otel.Tracer("services/HandoffService").Start(ctx, "Execute",
		trace.WithAttributes(
			attribute.String("phone", phone),
			attribute.Int("history.len", len(history)),
		),
	)
	defer span.End()

	briefing := BuildBriefing(name, phone, history)
	if err := s.Sender.Send(ctx, phone, briefing, 0); err != nil {
		span.RecordError(err)
		return fmt.Errorf("handoff briefing: %w: %w", ErrSendFailed, err)
	}
	if err := s.Sessions.SetHumanMode(ctx, phone, true); err != nil {
		return fmt.Errorf("handoff set human mode: %w", err)
	}
	if _, err := s.Repo.CreateMessage(ctx, s.DB, phone, domain.RoleAssistant, briefing); err != nil {
		return fmt.Errorf("handoff save briefing: %w", err)
	}

	confirmation := ConfirmationMessage(name)
	if err := s.Sender.Send(ctx, phone, confirmation, confirmationDelay); err != nil {
		span.RecordError(err)
		return fmt.Errorf("handoff confirmation: %w: %w", ErrSendFailed, err)
	}
	if _, err := s.Repo.CreateMessage(ctx, s.DB, phone, domain.RoleAssistant, confirmation); err != nil {
		return fmt.Errorf("handoff save confirmation: %w", err)
	}

	log.Ctx(ctx).Info().Int("history", len(history)).Msg("handoff to human completed")
	return nil
}
