// Package events publishes domain events for downstream consumers such as
// notification fan-out. Publishing happens after the state change commits
// and never affects the outcome of the operation that produced the event.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	ConversationCreated = "conversation.created"
	MessageAppended     = "message.appended"
	ConversationRead    = "conversation.read"
	RelationshipAdded   = "relationship.added"
	RelationshipUpdated = "relationship.updated"
	RelationshipRemoved = "relationship.removed"
)

// Event is the envelope written to the broker.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ActorID    int64     `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`

	// Key groups related events onto the same partition.
	Key string `json:"-"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }
