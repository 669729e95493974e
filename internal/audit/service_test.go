package audit

import (
	"context"
	"errors"
	"testing"
)

func TestAppend_FillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.LogTurn(context.Background(), "+6591234567", "m1", "th_1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled: %+v", e)
	}
	if e.Type != EventTypeTurnProcessed {
		t.Fatalf("expected turn_processed, got %s", e.Type)
	}
}

func TestLogTurn_FailureBecomesTurnFailed(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogTurn(context.Background(), "+6591234567", "m1", "th_1", errors.New("run expired")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := repo.Events()[0]
	if e.Type != EventTypeTurnFailed || e.Message != "run expired" {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestAppend_RejectsMissingType(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Append(context.Background(), Event{}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}
