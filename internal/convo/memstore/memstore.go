// Package memstore provides an in-memory implementation of convo.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/doula/internal/convo"
)

// DefaultTTL evicts sessions idle longer than this when no status callback
// arrived (Twilio retries callbacks, but delivery is not guaranteed).
const DefaultTTL = 30 * time.Minute

const sweepInterval = time.Minute

// Store holds call sessions in memory. Process restart loses all sessions,
// which is acceptable: a live phone call does not survive a restart either.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*convo.Session // call SID -> session
	ttl      time.Duration
	done     chan struct{}
	stop     sync.Once
}

// New initializes an in-memory Store with the given idle TTL (0 = DefaultTTL)
// and starts the eviction sweep.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*convo.Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Close stops the eviction sweep.
func (s *Store) Close() {
	s.stop.Do(func() { close(s.done) })
}

// GetOrCreate returns the session for callID, creating a fresh one when it
// is absent or has already ended.
func (s *Store) GetOrCreate(_ context.Context, callID string) (*convo.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[callID]; ok && !sess.Ended {
		cp := clone(sess)
		return cp, nil
	}

	now := time.Now()
	sess := &convo.Session{
		CallID:     callID,
		State:      convo.StateGreeting,
		CreatedAt:  now,
		LastActive: now,
	}
	s.sessions[callID] = clone(sess)
	return sess, nil
}

// Get retrieves a session by call SID. Returns a copy.
func (s *Store) Get(_ context.Context, callID string) (*convo.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[callID]
	if !ok {
		return nil, false, nil
	}
	return clone(sess), true, nil
}

// Update stores a copy of the session. Turns are never truncated: if the
// stored session already has more turns than the update (a stale write),
// the stored turns win.
func (s *Store) Update(_ context.Context, in *convo.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.sessions[in.CallID]; ok && len(prev.Turns) > len(in.Turns) {
		return nil
	}
	s.sessions[in.CallID] = clone(in)
	return nil
}

// End marks the session ended. Unknown call IDs are a no-op.
func (s *Store) End(_ context.Context, callID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callID]
	if !ok {
		return nil
	}
	sess.Ended = true
	sess.State = convo.StateEnded
	sess.EndReason = reason
	return nil
}

// Evict removes the session outright.
func (s *Store) Evict(_ context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callID)
	return nil
}

// Len reports the number of live sessions (including ended but not yet
// evicted ones).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) sweep() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-t.C:
			s.evictIdle(now)
		}
	}
}

func (s *Store) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// clone deep-copies a session so callers never share turn slices with the map.
func clone(in *convo.Session) *convo.Session {
	cp := *in
	cp.Turns = make([]convo.Turn, len(in.Turns))
	copy(cp.Turns, in.Turns)
	return &cp
}
