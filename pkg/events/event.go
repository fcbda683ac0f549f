package events

import (
	"context"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher sends events to a bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}

// Conversation lifecycle event types.
const (
	TypeSessionCreated   = "SESSION_CREATED"
	TypeProcessSubmitted = "PROCESS_SUBMITTED"
	TypeProcessCompleted = "PROCESS_COMPLETED"
	TypeSessionRated     = "SESSION_RATED"
	TypeSessionSolved    = "SESSION_SOLVED"
	TypeSessionAborted   = "SESSION_ABORTED"
)
