// Package redisstore provides a Redis-backed implementation of convo.Store.
// Sessions expire via key TTL, so eviction needs no sweeper; a missed status
// callback just lets the key age out.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/doula/internal/convo"
)

const keyPrefix = "doula:session:"

// DefaultTTL matches the in-memory store's idle eviction window.
const DefaultTTL = 30 * time.Minute

// Store persists call sessions in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis-backed session store. ttl <= 0 falls back to DefaultTTL.
func New(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// GetOrCreate returns the session for callID, creating a fresh one when it
// is absent or has already ended.
func (s *Store) GetOrCreate(ctx context.Context, callID string) (*convo.Session, error) {
	sess, ok, err := s.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	if ok && !sess.Ended {
		return sess, nil
	}

	now := time.Now()
	sess = &convo.Session{
		CallID:     callID,
		State:      convo.StateGreeting,
		CreatedAt:  now,
		LastActive: now,
	}
	if err := s.set(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get retrieves a session by call SID.
func (s *Store) Get(ctx context.Context, callID string) (*convo.Session, bool, error) {
	val, err := s.client.Get(ctx, keyPrefix+callID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session: %w", err)
	}

	var sess convo.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, false, fmt.Errorf("unmarshal session %s: %w", callID, err)
	}
	return &sess, true, nil
}

// Update persists the session and refreshes its TTL. A stale write that
// would drop turns is ignored, same contract as the in-memory store.
func (s *Store) Update(ctx context.Context, in *convo.Session) error {
	prev, ok, err := s.Get(ctx, in.CallID)
	if err != nil {
		return err
	}
	if ok && len(prev.Turns) > len(in.Turns) {
		return nil
	}
	return s.set(ctx, in)
}

// End marks the session ended. Unknown call IDs are a no-op.
func (s *Store) End(ctx context.Context, callID, reason string) error {
	sess, ok, err := s.Get(ctx, callID)
	if err != nil || !ok {
		return err
	}
	sess.Ended = true
	sess.State = convo.StateEnded
	sess.EndReason = reason
	return s.set(ctx, sess)
}

// Evict removes the session outright.
func (s *Store) Evict(ctx context.Context, callID string) error {
	if err := s.client.Del(ctx, keyPrefix+callID).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (s *Store) set(ctx context.Context, sess *convo.Session) error {
	val, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.CallID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+sess.CallID, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}
