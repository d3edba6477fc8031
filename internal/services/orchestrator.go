// Package services – Orchestrator
//
// This file implements the per-event conversation pipeline. Each inbound
// message runs the steps in a fixed order: dedupe, contact upsert, intent
// classification, admin commands, the human-mode gate, session touch and
// welcome, then handoff, the quote flow or a generated answer.
//
// Observability: Handle opens a span per event and logs the outcome with
// the event's correlation fields.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/gateway"
	"github.com/tbourn/go-broker-assistant/internal/intent"
	"github.com/tbourn/go-broker-assistant/internal/knowledge"
	"github.com/tbourn/go-broker-assistant/internal/llm"
	"github.com/tbourn/go-broker-assistant/internal/quote"
	"github.com/tbourn/go-broker-assistant/internal/repo"
)

// Outcome names where the pipeline stopped for one event.
type Outcome string

const (
	OutcomeIgnored     Outcome = "ignored"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeAdmin       Outcome = "admin"
	OutcomeAdminDenied Outcome = "admin_denied"
	OutcomeHumanMode   Outcome = "human_mode"
	OutcomeWelcome     Outcome = "welcome"
	OutcomeHandoff     Outcome = "handoff"
	OutcomeQuote       Outcome = "quote"
	OutcomeAnswer      Outcome = "answer"
	OutcomeFailed      Outcome = "failed"
)

// WelcomeMessage is sent on the first message and after session expiry.
func WelcomeMessage(name string) string {
	return fmt.Sprintf("Olá, %s! Eu sou a Issy, assistente virtual da assessoria. 😊\n\n"+
		"Como posso te ajudar hoje?\n\n"+
		"1️⃣ Tirar dúvidas sobre produtos e coberturas\n"+
		"2️⃣ Fazer uma cotação de plano de saúde\n"+
		"3️⃣ Falar com um especialista\n\n"+
		"_(Responda com o número ou escreva sua pergunta)_", name)
}

// Options tunes the Orchestrator.
type Options struct {
	HistoryLimit int
	FactsTopK    int
	DelayMin     int
	DelayMax     int
	// DedupeTTL is how long a gateway message id is remembered. Zero turns
	// deduplication off.
	DedupeTTL time.Duration
}

// Orchestrator routes one inbound event through the pipeline: admin
// commands, the human-mode gate, welcome, handoff, the quote flow and the
// generated answer. It is not safe to run two events of the same phone at
// once; callers serialize per phone (see package lock).
type Orchestrator struct {
	DB   *gorm.DB
	Repo Repo

	Sessions *SessionService
	Admin    *AdminService
	Handoff  *HandoffService
	Quotes   *QuoteService

	Generator llm.Generator
	Index     knowledge.Index
	Sender    gateway.Sender

	Opts Options
	Now  func() time.Time
}

// Handle processes in and reports where it stopped. A non-nil error is
// terminal for the event; nothing is retried here.
func (o *Orchestrator) Handle(ctx context.Context, in gateway.Inbound) (outcome Outcome, err error) {
	ctx, span := otel.Tracer("services/Orchestrator").Start(ctx, "Handle",
		trace.WithAttributes(
			attribute.String("phone", in.Phone),
			attribute.String("message.id", in.MessageID),
		),
	)
	defer func() {
		if err != nil && outcome == "" {
			outcome = OutcomeFailed
		}
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		eventsTotal.WithLabelValues(string(outcome)).Inc()
	}()

	logger := log.With().Str("phone", in.Phone).Str("message_id", in.MessageID).Logger()
	ctx = logger.WithContext(ctx)

	// 1. normalize
	text := strings.TrimSpace(in.Text)
	if in.FromMe || in.IsGroup {
		return OutcomeIgnored, nil
	}
	if in.Phone == "" || text == "" {
		return OutcomeIgnored, ErrInvalidInbound
	}
	if dup, err := o.claim(ctx, in); err != nil {
		return "", err
	} else if dup {
		return OutcomeDuplicate, nil
	}

	// 2. contact
	contact, first, err := o.Sessions.UpsertContact(ctx, in.Phone, in.SenderName)
	if err != nil {
		return "", fmt.Errorf("upsert contact: %w", err)
	}

	// 3. classify
	label := intent.Classify(text)
	intentsTotal.WithLabelValues(label.String()).Inc()
	span.SetAttributes(attribute.String("intent", label.String()))
	logger = logger.With().Str("intent", label.String()).Logger()
	ctx = logger.WithContext(ctx)

	// 4. admin commands never fall through
	if o.Admin != nil && o.Admin.IsCommand(text) {
		if !o.Admin.IsAllowed(in.Phone) {
			logger.Warn().Msg("admin command from phone outside the allow-list")
			return OutcomeAdminDenied, nil
		}
		if err := o.Admin.Execute(ctx, in.Phone, text); err != nil {
			return OutcomeAdmin, err
		}
		return OutcomeAdmin, nil
	}

	// 5. human mode gate
	conv, err := o.Sessions.GetOrCreate(ctx, in.Phone)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if o.Sessions.IsHumanMode(conv) {
		logger.Debug().Msg("human mode active; bot stays silent")
		return OutcomeHumanMode, nil
	}

	// 6. touch; expiry is judged on the row read before the touch
	expired := o.Sessions.IsExpired(conv, o.now())
	if err := o.Sessions.Touch(ctx, in.Phone); err != nil {
		return "", fmt.Errorf("touch session: %w", err)
	}

	// 7. welcome
	if first || expired {
		welcome := WelcomeMessage(contact.Name)
		if err := o.reply(ctx, in.Phone, welcome, o.delay()); err != nil {
			return OutcomeWelcome, fmt.Errorf("welcome: %w", err)
		}
		if label == intent.Greeting || label == intent.Unknown {
			return OutcomeWelcome, nil
		}
	}

	// Inside an active quote a bare menu digit is a field answer.
	qs := o.Quotes.State(conv)
	active := qs.Active()
	menuDigitInQuote := active && intent.IsMenuShortcut(text)

	// 8. handoff
	if label == intent.Handoff && !menuDigitInQuote {
		history, err := o.Repo.ListRecentMessages(ctx, o.DB, in.Phone, o.Opts.HistoryLimit)
		if err != nil {
			return OutcomeHandoff, fmt.Errorf("load history: %w", err)
		}
		if err := o.saveUser(ctx, in.Phone, text); err != nil {
			return OutcomeHandoff, err
		}
		if err := o.Handoff.Execute(ctx, in.Phone, contact.Name, history); err != nil {
			return OutcomeHandoff, err
		}
		// Only once a human has been briefed; until then the bot keeps the quote.
		if _, err := o.Quotes.Abandon(ctx, conv); err != nil {
			logger.Warn().Err(err).Msg("could not abandon active quote")
		}
		return OutcomeHandoff, nil
	}

	// 9. quote flow; a new quote request restarts an in-flight one
	if active || label == intent.Quote {
		if err := o.saveUser(ctx, in.Phone, text); err != nil {
			return OutcomeQuote, err
		}
		restart := label == intent.Quote && !menuDigitInQuote
		if _, err := o.Quotes.Handle(ctx, conv, text, restart); err != nil {
			if errors.Is(err, quote.ErrInvalidTransition) {
				logger.Error().Err(err).Msg("dropping event with inconsistent quote state")
			}
			return OutcomeQuote, err
		}
		return OutcomeQuote, nil
	}

	// 10. generated answer
	if err := o.answer(ctx, in.Phone, contact.Name, label, text); err != nil {
		return OutcomeAnswer, err
	}
	return OutcomeAnswer, nil
}

func (o *Orchestrator) answer(ctx context.Context, phone, name string, label intent.Intent, text string) error {
	ctx, span := otel.Tracer("services/Orchestrator").Start(ctx, "answer")
	defer span.End()
	logger := log.Ctx(ctx)

	// History first, so the inbound message is not in its own context.
	history, err := o.Repo.ListRecentMessages(ctx, o.DB, phone, o.Opts.HistoryLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if err := o.saveUser(ctx, phone, text); err != nil {
		return err
	}

	product, _ := knowledge.DetectProduct(text)
	facts := o.facts(text, product)
	span.SetAttributes(
		attribute.String("product", string(product)),
		attribute.Int("facts", len(facts)),
		attribute.Int("history.len", len(history)),
	)

	raw := o.Generator.Generate(ctx, llm.Prompt{
		ContactName: name,
		Intent:      label,
		Product:     product,
		Facts:       facts,
		History:     history,
		UserText:    text,
	})
	parsed := llm.ParseMarkers(raw)
	if parsed.Quotation != nil {
		quotesTotal.WithLabelValues("external_complete").Inc()
		logger.Info().Interface("quotation", parsed.Quotation).Msg("model reported a completed quotation")
	}

	body := parsed.Text
	if body == "" && !parsed.Transfer {
		body = llm.FallbackMessage
	}
	if body != "" {
		if err := o.reply(ctx, phone, body, o.delay()); err != nil {
			return err
		}
	}

	if !parsed.Transfer {
		return nil
	}
	prior, err := o.Repo.ListRecentMessages(ctx, o.DB, phone, o.Opts.HistoryLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	logger.Info().Msg("model requested a transfer")
	return o.Handoff.Execute(ctx, phone, name, prior)
}

// facts returns the fact texts attached to the prompt.
func (o *Orchestrator) facts(text string, product knowledge.Product) []string {
	if o.Index == nil || o.Opts.FactsTopK <= 0 {
		return nil
	}
	res := o.Index.Lookup(text, product, o.Opts.FactsTopK)
	out := make([]string, 0, len(res))
	for _, r := range res {
		out = append(out, r.Snippet)
	}
	return out
}

// reply sends text and records it in the transcript only after the send
// succeeded.
func (o *Orchestrator) reply(ctx context.Context, phone, text string, delay int) error {
	err := o.Sender.Send(ctx, phone, text, delay)
	countSend(err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if _, err := o.Repo.CreateMessage(ctx, o.DB, phone, domain.RoleAssistant, text); err != nil {
		return fmt.Errorf("save reply: %w", err)
	}
	return nil
}

func (o *Orchestrator) saveUser(ctx context.Context, phone, text string) error {
	if _, err := o.Repo.CreateMessage(ctx, o.DB, phone, domain.RoleUser, text); err != nil {
		return fmt.Errorf("save inbound: %w", err)
	}
	return nil
}

// claim records the gateway message id. It reports true for a redelivery.
func (o *Orchestrator) claim(ctx context.Context, in gateway.Inbound) (bool, error) {
	if in.MessageID == "" || o.Opts.DedupeTTL <= 0 {
		return false, nil
	}
	err := o.Repo.MarkEventProcessed(ctx, o.DB, in.MessageID, in.Phone, o.Opts.DedupeTTL, o.now())
	if errors.Is(err, repo.ErrDuplicate) {
		log.Ctx(ctx).Info().Err(ErrDuplicateEvent).Msg("dropping redelivered message")
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("mark event: %w", err)
	}
	return false, nil
}

func (o *Orchestrator) delay() int {
	return gateway.HumanDelay(o.Opts.DelayMin, o.Opts.DelayMax)
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}
