// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Submission lifecycle events
	SubmissionStateChanged EventType = "submission.state"
	SubmissionCompleted    EventType = "submission.completed"
	SubmissionFailed       EventType = "submission.failed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event of the given type with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// StateChangedEvent is emitted on every pipeline state transition.
type StateChangedEvent struct {
	BaseEvent
	SubmissionID string
	Method       string
	Selector     string
	From         string
	To           string
	Fallback     bool
	Signature    string
}

// CompletedEvent is emitted when a submission is confirmed.
type CompletedEvent struct {
	BaseEvent
	SubmissionID string
	Method       string
	Signature    string
	Slot         uint64
	FallbackUsed bool
}

// FailedEvent is emitted when a submission ends rejected, timed out or with an error.
type FailedEvent struct {
	BaseEvent
	SubmissionID string
	Method       string
	Signature    string
	Kind         string
	Reason       string
	Logs         []string
}
