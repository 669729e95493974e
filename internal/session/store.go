package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store maps a normalized inspector phone number to the external
// conversation thread id.
//
// Backed by Redis so restarts and concurrent server instances observe the
// same sessions. The TTL is sliding: an active conversation keeps its thread
// for as long as messages keep arriving within the window.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

const keyPrefix = "session:phone:"

var ErrNotConfigured = errors.New("session: redis client is nil")

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// claimScript implements atomic create-if-absent. When two first-messages
// from the same phone race, exactly one SET wins and both callers converge
// on the surviving thread id.
var claimScript = redis.NewScript(`
-- KEYS[1] = session key
-- ARGV[1] = candidate thread id
-- ARGV[2] = ttl_ms
local existing = redis.call('GET', KEYS[1])
if existing then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  return existing
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return ARGV[1]
`)

// Resolve returns the live thread id for the phone, refreshing the TTL.
func (s *Store) Resolve(ctx context.Context, phone string) (string, bool, error) {
	if s.rdb == nil {
		return "", false, ErrNotConfigured
	}
	if phone == "" {
		return "", false, errors.New("session: phone is required")
	}
	threadID, err := s.rdb.GetEx(ctx, keyPrefix+phone, s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return threadID, true, nil
}

// Claim registers threadID for the phone unless a live session already
// exists, and returns the winning thread id. Callers must use the returned
// id, not their candidate: losing the race means another request created
// the session first.
func (s *Store) Claim(ctx context.Context, phone, threadID string) (string, error) {
	if s.rdb == nil {
		return "", ErrNotConfigured
	}
	if phone == "" || threadID == "" {
		return "", errors.New("session: phone and thread id are required")
	}
	winner, err := claimScript.Run(ctx, s.rdb, []string{keyPrefix + phone}, threadID, s.ttl.Milliseconds()).Text()
	if err != nil {
		return "", err
	}
	return winner, nil
}

// Delete drops the session so the next message starts a fresh thread.
func (s *Store) Delete(ctx context.Context, phone string) error {
	if s.rdb == nil {
		return ErrNotConfigured
	}
	return s.rdb.Del(ctx, keyPrefix+phone).Err()
}
