// Package services – AdminService
//
// This file implements the in-band admin commands (/bot and /status).
// Callers check the allow-list first; once invoked, a command runs its side
// effect unconditionally and replies without a typing delay. Any other text
// is not a command and falls through to normal routing.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-broker-assistant/internal/gateway"
	"github.com/tbourn/go-broker-assistant/internal/repo"
	"github.com/tbourn/go-broker-assistant/internal/utils"
)

// Admin commands. They match the whole trimmed, lowercased message.
const (
	CommandRestoreBot = "/bot"
	CommandStatus     = "/status"
)

// RestoreBotMessage confirms a /bot command.
const RestoreBotMessage = "Bot mode restaurado. Issy voltou a responder neste chat."

const statusPreviewRunes = 100

// AdminService runs the in-band supervisor commands. Allow-list membership
// is the caller's check: Execute acts unconditionally.
type AdminService struct {
	DB       *gorm.DB
	Repo     Repo
	Sessions *SessionService
	Sender   gateway.Sender

	// IsAdmin decides allow-list membership, usually config.Config.IsAdmin.
	IsAdmin func(phone string) bool
}

// NewAdminService wires an AdminService.
func NewAdminService(db *gorm.DB, r Repo, sessions *SessionService, sender gateway.Sender, isAdmin func(string) bool) *AdminService {
	if r == nil {
		r = GormRepo{}
	}
	return &AdminService{DB: db, Repo: r, Sessions: sessions, Sender: sender, IsAdmin: isAdmin}
}

// IsCommand reports whether text is one of the admin commands. Anything else
// goes through normal routing, even from an allow-listed phone.
func (s *AdminService) IsCommand(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case CommandRestoreBot, CommandStatus:
		return true
	}
	return false
}

// IsAllowed reports whether phone may run admin commands.
func (s *AdminService) IsAllowed(phone string) bool {
	return s.IsAdmin != nil && s.IsAdmin(phone)
}

// Execute runs the command in text for phone. Replies are system messages:
// they go out without a typing delay and are not added to the transcript.
func (s *AdminService) Execute(ctx context.Context, phone, text string) error {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case CommandRestoreBot:
		if err := s.Sessions.SetHumanMode(ctx, phone, false); err != nil {
			return fmt.Errorf("restore bot: %w", err)
		}
		if err := s.Sender.Send(ctx, phone, RestoreBotMessage, 0); err != nil {
			return fmt.Errorf("%w: %w", ErrSendFailed, err)
		}
		log.Ctx(ctx).Info().Str("command", CommandRestoreBot).Msg("admin command executed")
		return nil

	case CommandStatus:
		report, err := s.StatusReport(ctx, phone)
		if err != nil {
			return err
		}
		if err := s.Sender.Send(ctx, phone, report, 0); err != nil {
			return fmt.Errorf("%w: %w", ErrSendFailed, err)
		}
		log.Ctx(ctx).Info().Str("command", CommandStatus).Msg("admin command executed")
		return nil
	}
	return nil
}

// StatusReport renders the /status reply. Missing rows are reported with
// placeholders rather than as errors.
func (s *AdminService) StatusReport(ctx context.Context, phone string) (string, error) {
	mode := "Bot"
	conv, err := s.Repo.GetConversation(ctx, s.DB, phone)
	switch {
	case err == nil:
		if conv.HumanMode {
			mode = "Humano"
		}
	case !errors.Is(err, repo.ErrNotFound):
		return "", err
	}

	name := gateway.UnknownName
	contact, err := s.Repo.GetContact(ctx, s.DB, phone)
	switch {
	case err == nil:
		if contact.Name != "" {
			name = contact.Name
		}
	case !errors.Is(err, repo.ErrNotFound):
		return "", err
	}

	last := "(sem mensagens)"
	msg, err := s.Repo.LatestMessage(ctx, s.DB, phone)
	switch {
	case err == nil:
		if msg.Content != "" {
			last = utils.Truncate(msg.Content, statusPreviewRunes)
		}
	case !errors.Is(err, repo.ErrNotFound):
		return "", err
	}

	return fmt.Sprintf("*Status do Chat*\nModo: %s\nCorretor: %s\nUltima mensagem: \"%s\"", mode, name, last), nil
}
