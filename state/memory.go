package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore implements Store, SessionStore and Locker in memory.
// Useful for tests and as a fallback when persistent storage is unavailable.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]Record
	sessions map[string]*ErrorState
	closed   atomic.Bool

	lockCh chan struct{}
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ SessionStore = (*MemoryStore)(nil)
	_ Locker       = (*MemoryStore)(nil)
)

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		sessions: make(map[string]*ErrorState),
		lockCh:   make(chan struct{}, 1),
	}
}

// Load retrieves a record.
func (s *MemoryStore) Load(sig string) (Record, error) {
	if err := ValidateKey(sig); err != nil {
		return Record{}, err
	}
	if s.closed.Load() {
		return Record{}, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[sig]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Save stores a record.
func (s *MemoryStore) Save(sig string, rec Record) error {
	if err := ValidateKey(sig); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sig] = rec
	return nil
}

// Clear removes a record.
func (s *MemoryStore) Clear(sig string) error {
	if err := ValidateKey(sig); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sig)
	return nil
}

// All returns a copy of every record.
func (s *MemoryStore) All() (map[string]Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out, nil
}

// PruneBefore removes records last attempted before cutoff.
func (s *MemoryStore) PruneBefore(cutoff time.Time) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for sig, r := range s.records {
		if r.LastAttemptAt.Before(cutoff) {
			delete(s.records, sig)
			removed = append(removed, sig)
		}
	}
	return removed, nil
}

// Stats summarises tracked records.
func (s *MemoryStore) Stats() (Stats, error) {
	all, err := s.All()
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(all), nil
}

// LoadSession retrieves a session view. The returned value is a copy.
func (s *MemoryStore) LoadSession(sig string) (*ErrorState, error) {
	if err := ValidateKey(sig); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sig]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneState(st), nil
}

// SaveSession stores a copy of the session view.
func (s *MemoryStore) SaveSession(st *ErrorState) error {
	if err := ValidateKey(st.Signature); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[st.Signature] = cloneState(st)
	return nil
}

// ClearSession removes a session view.
func (s *MemoryStore) ClearSession(sig string) error {
	if err := ValidateKey(sig); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sig)
	return nil
}

// Lock acquires the store-wide lock.
func (s *MemoryStore) Lock(ctx context.Context) (Lock, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	select {
	case s.lockCh <- struct{}{}:
		return &memoryLock{ch: s.lockCh}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down the store.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

type memoryLock struct {
	ch       chan struct{}
	released atomic.Bool
}

func (l *memoryLock) Unlock() error {
	if l.released.Swap(true) {
		return nil
	}
	<-l.ch
	return nil
}

// cloneState deep-copies an ErrorState so callers cannot mutate stored values.
func cloneState(st *ErrorState) *ErrorState {
	c := *st
	c.OfficialDocsSearched = append([]string(nil), st.OfficialDocsSearched...)
	c.CommunityDocsSearched = append([]string(nil), st.CommunityDocsSearched...)
	c.FixStrategiesAttempted = append([]FixAttempt(nil), st.FixStrategiesAttempted...)
	return &c
}
