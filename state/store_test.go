package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockingStore is what every backend under test provides.
type lockingStore interface {
	Store
	Locker
}

// storeFactory opens a fresh backend for the shared conformance tests.
type storeFactory func(t *testing.T) lockingStore

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) lockingStore {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) lockingStore {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"badger": func(t *testing.T) lockingStore {
			s, err := NewBadgerStore(BadgerConfig{InMemory: true})
			require.NoError(t, err)
			return s
		},
	}
}

// ============================================================================
// LEVEL 1: Unit Tests - Load/Save/Clear on every backend
// ============================================================================

func TestStore_Load_NotFound(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			_, err := s.Load("err_missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_SaveLoad(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			now := time.Now().UTC().Truncate(time.Second)
			rec := Record{Phase: 2, AttemptsInPhase: 1, TotalAttempts: 3, LastAttemptAt: now}
			require.NoError(t, s.Save("err_a", rec))

			got, err := s.Load("err_a")
			require.NoError(t, err)
			assert.Equal(t, 2, got.Phase)
			assert.Equal(t, 1, got.AttemptsInPhase)
			assert.Equal(t, 3, got.TotalAttempts)
			assert.True(t, got.LastAttemptAt.Equal(now), "timestamp %v vs %v", got.LastAttemptAt, now)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			require.NoError(t, s.Save("err_a", NewRecord()))
			require.NoError(t, s.Clear("err_a"))

			_, err := s.Load("err_a")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.NoError(t, s.Clear("err_never"), "clearing a missing signature succeeds")
		})
	}
}

func TestStore_InvalidKey(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			assert.ErrorIs(t, s.Save("bad key", NewRecord()), ErrInvalidKey)
			_, err := s.Load("")
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

// ============================================================================
// LEVEL 2: Aggregates - All, Stats, PruneBefore
// ============================================================================

func TestStore_AllAndStats(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			now := time.Now()
			require.NoError(t, s.Save("err_a", Record{Phase: 1, LastAttemptAt: now}))
			require.NoError(t, s.Save("err_b", Record{Phase: 3, LastAttemptAt: now}))
			require.NoError(t, s.Save("err_c", Record{Phase: 3, LastAttemptAt: now}))

			all, err := s.All()
			require.NoError(t, err)
			assert.Len(t, all, 3)

			st, err := s.Stats()
			require.NoError(t, err)
			assert.Equal(t, 3, st.Total)
			assert.Equal(t, 2, st.ByPhase[3])
			assert.Equal(t, 1, st.ByPhase[1])
		})
	}
}

func TestStore_PruneBefore(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			now := time.Now()
			require.NoError(t, s.Save("err_old", Record{Phase: 2, LastAttemptAt: now.Add(-48 * time.Hour)}))
			require.NoError(t, s.Save("err_new", Record{Phase: 1, LastAttemptAt: now.Add(-time.Hour)}))

			removed, err := s.PruneBefore(now.Add(-24 * time.Hour))
			require.NoError(t, err)
			assert.Equal(t, []string{"err_old"}, removed)

			_, err = s.Load("err_new")
			assert.NoError(t, err, "fresh record survives")
			_, err = s.Load("err_old")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PruneBeforeFollowsCutoffNotWallClock(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			now := time.Now()
			require.NoError(t, s.Save("err_a", Record{Phase: 1, LastAttemptAt: now}))

			removed, err := s.PruneBefore(now.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, []string{"err_a"}, removed)
		})
	}
}

// ============================================================================
// LEVEL 3: Locking
// ============================================================================

func TestStore_LockSerialises(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			require.NoError(t, s.Save("err_counter", NewRecord()))

			var wg sync.WaitGroup
			const workers = 8
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					lock, err := s.Lock(context.Background())
					if !assert.NoError(t, err) {
						return
					}
					defer lock.Unlock()

					r, _ := s.Load("err_counter")
					r.TotalAttempts++
					assert.NoError(t, s.Save("err_counter", r))
				}()
			}
			wg.Wait()

			r, err := s.Load("err_counter")
			require.NoError(t, err)
			assert.Equal(t, workers, r.TotalAttempts)
		})
	}
}

func TestStore_LockContextCancelled(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			held, err := s.Lock(context.Background())
			require.NoError(t, err)
			defer held.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err = s.Lock(ctx)
			assert.Error(t, err, "second Lock fails while held")
		})
	}
}

func TestStore_DoubleUnlock(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			lock, err := s.Lock(context.Background())
			require.NoError(t, err)
			require.NoError(t, lock.Unlock())
			assert.NoError(t, lock.Unlock(), "second Unlock is harmless")

			again, err := s.Lock(context.Background())
			require.NoError(t, err)
			assert.NoError(t, again.Unlock())
		})
	}
}
