package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inspection-platform/internal/gateway"
)

// Sender delivers assistant replies through the messaging gateway,
// splitting long texts into transport-sized chunks.
//
// Delivery is all-or-nothing for the turn: the first failed chunk aborts the
// remainder and fails the send. There is no partial-success bookkeeping; the
// inspector re-sends if needed.
type Sender struct {
	provider   gateway.Provider
	chunkLimit int
	chunkDelay time.Duration
	log        *slog.Logger

	// sleep is injectable so tests do not pay the pacing delay.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSender(provider gateway.Provider, chunkLimit int, chunkDelay time.Duration, log *slog.Logger) *Sender {
	if chunkLimit <= 0 {
		chunkLimit = 1500
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sender{
		provider:   provider,
		chunkLimit: chunkLimit,
		chunkDelay: chunkDelay,
		log:        log,
		sleep:      sleepCtx,
	}
}

// Send splits text and delivers the chunks in order, pacing between chunks
// when more than one is sent. messageID is carried for log correlation only.
func (s *Sender) Send(ctx context.Context, phone, text, messageID string) error {
	chunks := ChunkText(text, s.chunkLimit)
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if i > 0 && s.chunkDelay > 0 {
			if err := s.sleep(ctx, s.chunkDelay); err != nil {
				return err
			}
		}
		if err := s.provider.SendText(ctx, phone, chunk); err != nil {
			s.log.Error("outbound send failed",
				"provider", s.provider.Name(),
				"to", phone,
				"message_id", messageID,
				"chunk", i+1,
				"chunks", len(chunks),
				"err", err,
			)
			return fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	s.log.Debug("reply delivered",
		"provider", s.provider.Name(),
		"to", phone,
		"message_id", messageID,
		"chunks", len(chunks),
	)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
