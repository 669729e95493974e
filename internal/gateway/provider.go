package gateway

import (
	"context"
	"strings"
)

// Provider is the provider-agnostic messaging surface used by business
// logic.
//
// Rules:
// - No provider SDK/HTTP calls outside gateway adapters.
// - Phones are E.164 where possible; normalize at this boundary.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	// SendText delivers one message chunk to a phone number. One call per
	// chunk; success or failure is per call.
	SendText(ctx context.Context, phone, text string) error
}

// NormalizePhone strips provider decoration ("whatsapp:+65...", spaces,
// dashes) down to a bare E.164-ish number. Unknown shapes are passed
// through trimmed rather than rejected; the domain lookup decides whether
// the number is known.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	var b strings.Builder
	for i, r := range s {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return s
	}
	if !strings.HasPrefix(out, "+") {
		out = "+" + out
	}
	return out
}
