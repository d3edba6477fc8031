// Package services holds the conversation pipeline: the session and mode
// gate, admin commands, the human handoff, the persisting wrapper around the
// quote machine, and the Orchestrator that routes every inbound event.
//
// This file centralizes service-level error values so callers can branch on
// them with errors.Is. Translation into log fields or metric labels happens
// at the edges (worker, handlers).
package services

import "errors"

var (
	// ErrInvalidInbound is returned when an event reaches the pipeline without
	// a phone or text. The gateway parsers drop these first.
	ErrInvalidInbound = errors.New("invalid inbound event")

	// ErrSendFailed wraps an outbound delivery error. Nothing sent under it is
	// written to the transcript.
	ErrSendFailed = errors.New("send failed")

	// ErrDuplicateEvent is returned when a gateway message id was already
	// processed.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrConversationNotFound is returned by read APIs for an unknown phone.
	ErrConversationNotFound = errors.New("conversation not found")
)
