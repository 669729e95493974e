package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Capture is best-effort; critical flows must not block on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: partition by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// Phone is the normalized inspector number for conversation events.
	Phone string `json:"phone,omitempty" db:"phone"`
	// MessageID is the provider message id that triggered the turn.
	MessageID string `json:"message_id,omitempty" db:"message_id"`
	// ThreadID is the AI conversation thread involved, when known.
	ThreadID string `json:"thread_id,omitempty" db:"thread_id"`

	// ActorUserID / ActorRole identify the back-office user for admin events.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeTurnProcessed  EventType = "turn_processed"
	EventTypeTurnFailed     EventType = "turn_failed"
	EventTypeSessionDropped EventType = "session_dropped"
)
