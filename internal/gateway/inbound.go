package gateway

import (
	"encoding/json"
	"io"
)

// InboundEnvelope is the subset of the provider webhook payload we care
// about. Keep it minimal and provider-adapter-only; business logic never
// sees the raw shape.
//
// The gateway posts JSON like:
//
//	{"event":"message","payload":{"id":"...","from":"whatsapp:+65...","body":"..."}}
type InboundEnvelope struct {
	Event   string         `json:"event"`
	Payload InboundPayload `json:"payload"`
}

type InboundPayload struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Body string `json:"body"`
}

// EventMessage is the only event type this engine processes; everything
// else is acknowledged and dropped.
const EventMessage = "message"

// InboundMessage is the normalized shape handed to the webhook pipeline.
type InboundMessage struct {
	MessageID string
	From      string
	Body      string
}

// ParseInbound decodes and normalizes a provider webhook body.
// ok is false for recognized-but-irrelevant events (status callbacks,
// delivery receipts); an error means the body was not a valid envelope.
func ParseInbound(r io.Reader) (InboundMessage, bool, error) {
	var env InboundEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return InboundMessage{}, false, err
	}
	if env.Event != EventMessage {
		return InboundMessage{}, false, nil
	}
	return InboundMessage{
		MessageID: env.Payload.ID,
		From:      NormalizePhone(env.Payload.From),
		Body:      env.Payload.Body,
	}, true, nil
}
