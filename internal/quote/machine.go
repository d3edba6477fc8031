package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
)

// ErrInvalidTransition is returned when the state holds a status/step pair
// the machine never produces. The event should be dropped and logged.
var ErrInvalidTransition = errors.New("quote: invalid state transition")

// Transition names what Handle did, for logs and metrics.
type Transition string

const (
	TransitionStarted   Transition = "started"
	TransitionAdvanced  Transition = "advanced"
	TransitionRetried   Transition = "retried"
	TransitionConfirm   Transition = "confirming"
	TransitionCompleted Transition = "completed"
	TransitionCorrected Transition = "corrected"
	TransitionRestarted Transition = "restarted"
)

// Result is the outcome of one inbound message.
type Result struct {
	State      State
	Reply      string
	Transition Transition
	// MonthlyTotal is set when Transition is TransitionCompleted.
	MonthlyTotal int
}

var (
	approvalKeywords  = []string{"sim", "correto", "ok", "yes", "isso", "certo", "1", "confirmar", "confirma"}
	rejectionKeywords = []string{"nao", "errado", "corrigir", "erro", "2", "mudar", "alterar"}

	// Checked in this order; the first matching field is re-collected.
	correctionFields = []struct {
		step     Step
		keywords []string
	}{
		{StepLives, []string{"vidas", "vida", "quantidade"}},
		{StepAgeRange, []string{"idade", "faixa", "etaria"}},
		{StepCity, []string{"cidade", "local", "regiao"}},
		{StepPlanType, []string{"acomodacao", "plano", "tipo", "apartamento", "enfermaria"}},
	}
)

// Machine runs quote transitions. Extractor may be nil, in which case only
// the deterministic fast paths are used.
type Machine struct {
	Extractor Extractor
}

// NewMachine returns a Machine using ex for generative field extraction.
func NewMachine(ex Extractor) *Machine { return &Machine{Extractor: ex} }

// Handle applies text to current and returns the next state and reply.
// A nil, complete or abandoned state starts a fresh quote and asks for the
// number of lives, regardless of text. current is never mutated.
func (m *Machine) Handle(ctx context.Context, current *State, text string, now time.Time) (Result, error) {
	if current == nil || current.Status == StatusComplete || current.Status == StatusAbandoned {
		st := Fresh(now)
		return Result{State: st, Reply: Prompt(StepLives), Transition: TransitionStarted}, nil
	}

	st := *current
	st.UpdatedAt = now.UTC()

	switch st.Status {
	case StatusCollecting:
		switch st.CurrentStep {
		case StepLives:
			return m.handleLives(ctx, st, text), nil
		case StepAgeRange:
			return m.handleAgeRange(ctx, st, text), nil
		case StepCity:
			return handleCity(st, text), nil
		case StepPlanType:
			return handlePlanType(st, text), nil
		}
	case StatusConfirming:
		if st.CurrentStep == StepConfirm {
			return handleConfirm(st, text, now), nil
		}
	}
	return Result{}, fmt.Errorf("%w: status=%s step=%s", ErrInvalidTransition, st.Status, st.CurrentStep)
}

func (m *Machine) handleLives(ctx context.Context, st State, text string) Result {
	n, ok := LivesFast(text)
	if !ok && !pureNumber(text) && m.Extractor != nil {
		raw, err := m.Extractor.ExtractLives(ctx, text)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("lives extraction failed")
		} else {
			n, ok = ParseLivesAnswer(raw)
		}
	}
	if !ok {
		return retry(st)
	}
	st.Lives = &n
	return advance(st, StepAgeRange)
}

func (m *Machine) handleAgeRange(ctx context.Context, st State, text string) Result {
	r, ok := AgeRangeFast(text)
	if !ok && m.Extractor != nil {
		raw, err := m.Extractor.ExtractAgeRange(ctx, text)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("age range extraction failed")
		} else {
			r, ok = ParseAgeAnswer(raw)
		}
	}
	if !ok {
		return retry(st)
	}
	st.AgeRange = &r
	return advance(st, StepCity)
}

func handleCity(st State, text string) Result {
	c, ok := ResolveCity(text)
	if !ok {
		return retry(st)
	}
	st.City = &c
	return advance(st, StepPlanType)
}

func handlePlanType(st State, text string) Result {
	p, ok := ResolvePlanType(text)
	if !ok {
		return retry(st)
	}
	st.PlanType = &p
	st.Status = StatusConfirming
	st.CurrentStep = StepConfirm
	st.RetryCount = 0
	return Result{State: st, Reply: ConfirmationMessage(st), Transition: TransitionConfirm}
}

func handleConfirm(st State, text string, now time.Time) Result {
	norm := Normalize(text)

	if containsAny(norm, rejectionKeywords) {
		words := wordSet(norm)
		for _, f := range correctionFields {
			if hasWord(words, f.keywords) {
				clearField(&st, f.step)
				st.Status = StatusCollecting
				st.CurrentStep = f.step
				st.RetryCount = 0
				return Result{State: st, Reply: Prompt(f.step), Transition: TransitionCorrected}
			}
		}
		fresh := Fresh(now)
		fresh.StartedAt = st.StartedAt
		return Result{State: fresh, Reply: Prompt(StepLives), Transition: TransitionRestarted}
	}

	if containsAny(norm, approvalKeywords) {
		st.Status = StatusComplete
		st.CurrentStep = StepDone
		st.RetryCount = 0
		return Result{
			State:        st,
			Reply:        QuoteMessage(st),
			Transition:   TransitionCompleted,
			MonthlyTotal: MonthlyTotal(*st.Lives, *st.AgeRange, *st.PlanType),
		}
	}

	return retry(st)
}

func advance(st State, next Step) Result {
	st.CurrentStep = next
	st.RetryCount = 0
	return Result{State: st, Reply: Prompt(next), Transition: TransitionAdvanced}
}

func retry(st State) Result {
	st.RetryCount++
	return Result{State: st, Reply: RetryMessage(st.CurrentStep, st.RetryCount), Transition: TransitionRetried}
}

func clearField(st *State, step Step) {
	switch step {
	case StepLives:
		st.Lives = nil
	case StepAgeRange:
		st.AgeRange = nil
	case StepCity:
		st.City = nil
	case StepPlanType:
		st.PlanType = nil
	}
}

// Field names are matched as whole words: "cidade" contains "idade".
func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[w] = struct{}{}
	}
	return out
}

func hasWord(words map[string]struct{}, keys []string) bool {
	for _, k := range keys {
		if _, ok := words[k]; ok {
			return true
		}
	}
	return false
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
