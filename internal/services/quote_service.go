// Package services – QuoteService
//
// This file wraps quote.Machine with persistence and delivery. The state is
// read once per event and written once, only after the reply went out.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/gateway"
	"github.com/tbourn/go-broker-assistant/internal/quote"
)

// QuoteService delivers and persists quote.Machine transitions. The state
// is read once per event and written once, after the reply was sent; the
// reply is recorded in the transcript only after that.
type QuoteService struct {
	DB      *gorm.DB
	Repo    Repo
	Machine *quote.Machine
	Sender  gateway.Sender

	// DelayMin and DelayMax bound the typing delay in seconds.
	DelayMin, DelayMax int

	Now func() time.Time
}

// NewQuoteService wires a QuoteService.
func NewQuoteService(db *gorm.DB, r Repo, m *quote.Machine, sender gateway.Sender, delayMin, delayMax int) *QuoteService {
	if r == nil {
		r = GormRepo{}
	}
	return &QuoteService{DB: db, Repo: r, Machine: m, Sender: sender, DelayMin: delayMin, DelayMax: delayMax, Now: time.Now}
}

// State decodes the conversation's quote document. A corrupt or missing
// document is nil.
func (s *QuoteService) State(conv *domain.Conversation) *quote.State {
	if conv == nil {
		return nil
	}
	st, ok := quote.Decode(conv.QuoteState)
	if !ok {
		return nil
	}
	return st
}

// Handle applies text to the conversation's quote. restart discards any
// in-flight quote and begins a new one. An unexpected status/step pair in
// the stored state yields quote.ErrInvalidTransition with nothing written.
func (s *QuoteService) Handle(ctx context.Context, conv *domain.Conversation, text string, restart bool) (quote.Result, error) {
	ctx, span := otel.Tracer("services/QuoteService").Start(ctx, "Handle",
		trace.WithAttributes(
			attribute.String("phone", conv.Phone),
			attribute.Bool("restart", restart),
		),
	)
	defer span.End()

	current := s.State(conv)
	if restart {
		current = nil
	}

	res, err := s.Machine.Handle(ctx, current, text, s.now())
	if err != nil {
		span.RecordError(err)
		return quote.Result{}, err
	}
	span.SetAttributes(
		attribute.String("quote.transition", string(res.Transition)),
		attribute.String("quote.step", string(res.State.CurrentStep)),
	)

	// An undelivered reply leaves the stored state as it was, so a quote is
	// never committed as complete without its price reaching the broker.
	err = s.Sender.Send(ctx, conv.Phone, res.Reply, gateway.HumanDelay(s.DelayMin, s.DelayMax))
	countSend(err)
	if err != nil {
		span.RecordError(err)
		return res, fmt.Errorf("quote reply: %w: %w", ErrSendFailed, err)
	}
	if err := s.save(ctx, conv.Phone, res.State); err != nil {
		return res, err
	}
	quotesTotal.WithLabelValues(string(res.State.Status)).Inc()

	if _, err := s.Repo.CreateMessage(ctx, s.DB, conv.Phone, domain.RoleAssistant, res.Reply); err != nil {
		return res, fmt.Errorf("quote save reply: %w", err)
	}

	ev := log.Ctx(ctx).Info().
		Str("transition", string(res.Transition)).
		Str("status", string(res.State.Status)).
		Str("step", string(res.State.CurrentStep)).
		Int("retry", res.State.RetryCount)
	if res.Transition == quote.TransitionCompleted {
		ev = ev.Int("monthly_total", res.MonthlyTotal)
	}
	ev.Msg("quote transition")
	return res, nil
}

// Abandon marks an active quote as abandoned. It reports whether anything
// was written.
func (s *QuoteService) Abandon(ctx context.Context, conv *domain.Conversation) (bool, error) {
	st := s.State(conv)
	if !st.Abandon(s.now()) {
		return false, nil
	}
	if err := s.save(ctx, conv.Phone, *st); err != nil {
		return false, err
	}
	quotesTotal.WithLabelValues(string(quote.StatusAbandoned)).Inc()
	return true, nil
}

func (s *QuoteService) save(ctx context.Context, phone string, st quote.State) error {
	raw, err := quote.Encode(st)
	if err != nil {
		return fmt.Errorf("encode quote state: %w", err)
	}
	if err := s.Repo.SaveQuoteState(ctx, s.DB, phone, datatypes.JSON(raw)); err != nil {
		return fmt.Errorf("save quote state: %w", err)
	}
	return nil
}

func (s *QuoteService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
