package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to inspectors.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogTurn records the outcome of one webhook conversation turn.
func (s *Service) LogTurn(ctx context.Context, phone, messageID, threadID string, failure error) error {
	e := Event{
		Type:      EventTypeTurnProcessed,
		Phone:     phone,
		MessageID: messageID,
		ThreadID:  threadID,
		Message:   "turn processed",
	}
	if failure != nil {
		e.Type = EventTypeTurnFailed
		e.Message = failure.Error()
	}
	return s.Append(ctx, e)
}

// LogSessionDropped records an admin force-expiring a conversation session.
func (s *Service) LogSessionDropped(ctx context.Context, phone, actorUserID, actorRole string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeSessionDropped,
		Phone:       phone,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		Message:     "session dropped by operator",
	})
}
