package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the contract for everything that crosses the event bus.
type Event interface {
	// EventType returns the unique code for this event (e.g. "EXCHANGE_PERSISTED").
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

// NewExchangePersisted signals that a turn finished and its exchange
// hit the database. Downstream consumers can forward transcripts or
// fan the completion out to connected clients.
func NewExchangePersisted(sessionId, exchangeId uuid.UUID, userText string) Event {
	return BaseEvent{
		Type: "EXCHANGE_PERSISTED",
		Data: map[string]interface{}{
			"session_id":  sessionId.String(),
			"exchange_id": exchangeId.String(),
			"user_text":   userText,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentIngested signals that a knowledge document was stored and
// is awaiting embedding.
func NewDocumentIngested(documentId, userId uuid.UUID) Event {
	return BaseEvent{
		Type: "DOCUMENT_INGESTED",
		Data: map[string]interface{}{
			"document_id": documentId.String(),
			"user_id":     userId.String(),
		},
		OccurredAt: time.Now(),
	}
}
