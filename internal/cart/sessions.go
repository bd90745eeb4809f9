package cart

import (
	"context"
	"sync"
	"time"
)

// StorageFactory returns the durable storage scoped to one session.
type StorageFactory func(sessionID string) Storage

// SessionGauge is notified of the number of stores held in memory.
type SessionGauge interface {
	OpenSessions(n int)
}

type sessionEntry struct {
	store    *Store
	lastSeen time.Time
}

// Sessions hands out one Store per session id. A store is restored from its
// storage on first access and evicted after sitting idle; the next access
// restores it again.
type Sessions struct {
	mu      sync.Mutex
	stores  map[string]*sessionEntry
	factory StorageFactory
	idle    time.Duration
	gauge   SessionGauge
	opts    []Option
	now     func() time.Time
	onEvict func(sessionID string)
}

func NewSessions(factory StorageFactory, idle time.Duration, gauge SessionGauge, opts ...Option) *Sessions {
	return &Sessions{
		stores:  make(map[string]*sessionEntry),
		factory: factory,
		idle:    idle,
		gauge:   gauge,
		opts:    opts,
		now:     time.Now,
	}
}

// Open returns the session's store, creating and restoring it when needed.
// A store whose restore failed on a storage error is returned but not kept,
// so the next request retries the restore instead of serving an empty cart
// for the whole idle period.
func (s *Sessions) Open(ctx context.Context, sessionID string) *Store {
	if store := s.touch(sessionID); store != nil {
		return store
	}

	// Restore outside the registry lock so slow storage only delays this session.
	candidate := Open(ctx, s.factory(sessionID), s.opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.stores[sessionID]; ok {
		entry.lastSeen = s.now()
		return entry.store
	}
	if candidate.readFailed {
		return candidate
	}
	s.stores[sessionID] = &sessionEntry{store: candidate, lastSeen: s.now()}
	s.report()
	return candidate
}

func (s *Sessions) touch(sessionID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.stores[sessionID]
	if !ok {
		return nil
	}
	entry.lastSeen = s.now()
	return entry.store
}

// OnEvict registers fn to run for every session dropped by Sweep.
func (s *Sessions) OnEvict(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Sweep evicts stores idle for longer than the configured duration and
// returns how many were dropped.
func (s *Sessions) Sweep() int {
	if s.idle <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.idle)
	evicted := 0
	for id, entry := range s.stores {
		if entry.lastSeen.Before(cutoff) {
			delete(s.stores, id)
			evicted++
			if s.onEvict != nil {
				s.onEvict(id)
			}
		}
	}
	if evicted > 0 {
		s.report()
	}
	return evicted
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

func (s *Sessions) report() {
	if s.gauge != nil {
		s.gauge.OpenSessions(len(s.stores))
	}
}
