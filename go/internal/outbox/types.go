package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a live auction event waiting in (or relayed from) the outbox
type Event struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"sessionId"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	SentAt    *time.Time      `json:"sentAt,omitempty"`
}

// Envelope is the message body written to the event bus
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an outbox event for publishing
func NewEnvelope(e Event) Envelope {
	return Envelope{
		EventID:   e.ID.String(),
		EventType: e.EventType,
		SessionID: e.SessionID.String(),
		Timestamp: e.CreatedAt.UTC(),
		Payload:   e.Payload,
	}
}

// Publisher delivers outbox events to a bus
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
