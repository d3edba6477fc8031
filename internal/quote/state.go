// Package quote implements the guided health-plan quote collection: a
// multi-step form (lives, age range, city, accommodation) with per-field
// extraction, an escalating retry budget, a confirmation step that can
// restart from a single field, and deterministic pricing.
//
// The package is storage- and transport-agnostic. Machine.Handle takes the
// current State and the broker's text and returns the next State plus the
// reply to send; persisting and sending are the caller's job.
package quote

import (
	"encoding/json"
	"time"
)

// Status is the coarse phase of a quote.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusConfirming Status = "confirming"
	StatusComplete   Status = "complete"
	StatusAbandoned  Status = "abandoned"
)

// Step is the field currently being asked for.
type Step string

const (
	StepLives    Step = "lives"
	StepAgeRange Step = "age_range"
	StepCity     Step = "city"
	StepPlanType Step = "plan_type"
	StepConfirm  Step = "confirm"
	StepDone     Step = "done"
)

// PlanType is the accommodation tier.
type PlanType string

const (
	PlanEnfermaria  PlanType = "enfermaria"
	PlanApartamento PlanType = "apartamento"
)

// stateVersion tags the stored document. Documents with any other tag are
// ignored on read.
const stateVersion = 1

// State is the form-filling aggregate embedded in a conversation row.
type State struct {
	Status      Status    `json:"status"`
	CurrentStep Step      `json:"currentStep"`
	RetryCount  int       `json:"retryCount"`
	Lives       *int      `json:"lives"`
	AgeRange    *string   `json:"ageRange"`
	City        *string   `json:"city"`
	PlanType    *PlanType `json:"planType"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Fresh returns a new quote waiting for the number of lives.
func Fresh(now time.Time) State {
	now = now.UTC()
	return State{
		Status:      StatusCollecting,
		CurrentStep: StepLives,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// Active reports whether the quote is still collecting or confirming.
func (s *State) Active() bool {
	return s != nil && (s.Status == StatusCollecting || s.Status == StatusConfirming)
}

// Abandon marks an active quote as abandoned. Terminal states are kept.
func (s *State) Abandon(now time.Time) bool {
	if !s.Active() {
		return false
	}
	s.Status = StatusAbandoned
	s.UpdatedAt = now.UTC()
	return true
}

// envelope is the stored shape. Pointer scalars let Decode tell a missing
// field from a zero value.
type envelope struct {
	V           *int      `json:"v"`
	Status      *Status   `json:"status"`
	CurrentStep *Step     `json:"currentStep"`
	RetryCount  *int      `json:"retryCount"`
	Lives       *int      `json:"lives"`
	AgeRange    *string   `json:"ageRange"`
	City        *string   `json:"city"`
	PlanType    *PlanType `json:"planType"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Encode serializes s with its version tag.
func Encode(s State) ([]byte, error) {
	v := stateVersion
	return json.Marshal(envelope{
		V:           &v,
		Status:      &s.Status,
		CurrentStep: &s.CurrentStep,
		RetryCount:  &s.RetryCount,
		Lives:       s.Lives,
		AgeRange:    s.AgeRange,
		City:        s.City,
		PlanType:    s.PlanType,
		StartedAt:   s.StartedAt,
		UpdatedAt:   s.UpdatedAt,
	})
}

// Decode parses a stored document. It returns (nil, false) for empty input
// and for anything that fails structural validation: bad JSON, unknown
// version, missing scalars, unknown status or step, or a status/step
// combination the machine can never produce.
func Decode(raw []byte) (*State, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if e.V == nil || *e.V != stateVersion || e.Status == nil || e.CurrentStep == nil || e.RetryCount == nil {
		return nil, false
	}
	s := &State{
		Status:      *e.Status,
		CurrentStep: *e.CurrentStep,
		RetryCount:  *e.RetryCount,
		Lives:       e.Lives,
		AgeRange:    e.AgeRange,
		City:        e.City,
		PlanType:    e.PlanType,
		StartedAt:   e.StartedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if !s.valid() {
		return nil, false
	}
	return s, true
}

func (s *State) valid() bool {
	if s.RetryCount < 0 || !s.fieldsInDomain() {
		return false
	}
	switch s.Status {
	case StatusCollecting:
		return s.hasFieldsBefore(s.CurrentStep)
	case StatusConfirming:
		return s.CurrentStep == StepConfirm && s.complete()
	case StatusComplete:
		return s.CurrentStep == StepDone && s.complete()
	case StatusAbandoned:
		return knownStep(s.CurrentStep)
	}
	return false
}

// hasFieldsBefore reports whether every field collected ahead of step is
// set. Later fields may still hold values from before a correction.
func (s *State) hasFieldsBefore(step Step) bool {
	switch step {
	case StepLives:
		return true
	case StepAgeRange:
		return s.Lives != nil
	case StepCity:
		return s.Lives != nil && s.AgeRange != nil
	case StepPlanType:
		return s.Lives != nil && s.AgeRange != nil && s.City != nil
	}
	return false
}

// fieldsInDomain checks every non-nil field against the values the
// extractors can produce.
func (s *State) fieldsInDomain() bool {
	if s.Lives != nil && (*s.Lives < minLives || *s.Lives > maxLives) {
		return false
	}
	if s.AgeRange != nil {
		lo, hi, ok := parseRange(*s.AgeRange)
		if !ok || lo < 0 || hi > maxAge || lo >= hi {
			return false
		}
	}
	if s.City != nil && !knownCity(*s.City) {
		return false
	}
	if s.PlanType != nil && *s.PlanType != PlanEnfermaria && *s.PlanType != PlanApartamento {
		return false
	}
	return true
}

func knownCity(c string) bool {
	for _, known := range Cities {
		if c == known {
			return true
		}
	}
	return false
}

func (s *State) complete() bool {
	return s.Lives != nil && s.AgeRange != nil && s.City != nil && s.PlanType != nil
}

func knownStep(st Step) bool {
	switch st {
	case StepLives, StepAgeRange, StepCity, StepPlanType, StepConfirm, StepDone:
		return true
	}
	return false
}
