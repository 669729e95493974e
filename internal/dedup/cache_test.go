package dedup

import (
	"context"
	"testing"
	"time"
)

func TestMarkIfNew_RejectsNilClient(t *testing.T) {
	c := NewCache(nil, time.Minute)
	if _, err := c.MarkIfNew(context.Background(), "m1"); err == nil {
		t.Fatalf("expected error with nil client")
	}
}

func TestMarkIfNew_RejectsEmptyMessageID(t *testing.T) {
	c := NewCache(nil, time.Minute)
	if _, err := c.MarkIfNew(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty message id")
	}
}
