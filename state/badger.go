package state

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	rkerrors "github.com/vinayprograms/recoverkit/errors"
	"github.com/vinayprograms/recoverkit/logging"
)

// Key prefixes inside the badger keyspace.
const (
	retryPrefix   = "retry/"
	sessionPrefix = "session/"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every transaction.
	SyncWrites bool

	// Logger receives badger's internal messages. Nil disables them.
	Logger *logging.Logger
}

// BadgerStore implements Store, SessionStore and Locker on BadgerDB.
// Badger's directory lock already excludes other processes, so Lock only
// serialises callers within this process.
type BadgerStore struct {
	db     *badger.DB
	closed atomic.Bool
	lockCh chan struct{}
}

var (
	_ Store        = (*BadgerStore)(nil)
	_ SessionStore = (*BadgerStore)(nil)
	_ Locker       = (*BadgerStore)(nil)
)

// NewBadgerStore opens a badger database.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, rkerrors.InvalidInput("badger path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger.AsPrintf())
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		code := rkerrors.ErrCodeStoreRead
		if strings.Contains(err.Error(), "directory lock") {
			// Another process has the database open.
			code = rkerrors.ErrCodeLockFailed
		}
		return nil, rkerrors.WrapWithCode(err, code, "open badger database", rkerrors.WithPath(cfg.Path))
	}
	return &BadgerStore{db: db, lockCh: make(chan struct{}, 1)}, nil
}

// Load retrieves a record.
func (s *BadgerStore) Load(sig string) (Record, error) {
	var r Record
	err := s.get(retryPrefix, sig, &r)
	return r, err
}

// Save stores a record.
func (s *BadgerStore) Save(sig string, rec Record) error {
	return s.put(retryPrefix, sig, rec)
}

// Clear removes a record.
func (s *BadgerStore) Clear(sig string) error {
	return s.del(retryPrefix, sig)
}

// All returns every record.
func (s *BadgerStore) All() (map[string]Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	out := make(map[string]Record)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(retryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), retryPrefix)
			var r Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return rkerrors.Corrupted(string(item.Key()), err, rkerrors.WithSignature(key))
			}
			out[key] = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PruneBefore removes records last attempted before cutoff, with their
// sessions.
func (s *BadgerStore) PruneBefore(cutoff time.Time) ([]string, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	var removed []string
	err = s.db.Update(func(txn *badger.Txn) error {
		for sig, r := range all {
			if !r.LastAttemptAt.Before(cutoff) {
				continue
			}
			if err := txn.Delete([]byte(retryPrefix + sig)); err != nil {
				return err
			}
			if err := txn.Delete([]byte(sessionPrefix + sig)); err != nil {
				return err
			}
			removed = append(removed, sig)
		}
		return nil
	})
	if err != nil {
		return nil, rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite, "prune records")
	}
	return removed, nil
}

// Stats summarises tracked records.
func (s *BadgerStore) Stats() (Stats, error) {
	all, err := s.All()
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(all), nil
}

// LoadSession retrieves a session view.
func (s *BadgerStore) LoadSession(sig string) (*ErrorState, error) {
	var st ErrorState
	if err := s.get(sessionPrefix, sig, &st); err != nil {
		return nil, err
	}
	st.Signature = sig
	return &st, nil
}

// SaveSession stores a session view.
func (s *BadgerStore) SaveSession(st *ErrorState) error {
	return s.put(sessionPrefix, st.Signature, st)
}

// ClearSession removes a session view.
func (s *BadgerStore) ClearSession(sig string) error {
	return s.del(sessionPrefix, sig)
}

// Lock acquires the in-process lock.
func (s *BadgerStore) Lock(ctx context.Context) (Lock, error) {
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

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) get(prefix, sig string, v interface{}) error {
	if err := ValidateKey(sig); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	key := []byte(prefix + sig)
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreRead, "read key", rkerrors.WithSignature(sig))
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, v); err != nil {
				return rkerrors.Corrupted(string(key), err, rkerrors.WithSignature(sig))
			}
			return nil
		})
	})
}

func (s *BadgerStore) put(prefix, sig string, v interface{}) error {
	if err := ValidateKey(sig); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeInternal, "encode value", rkerrors.WithSignature(sig))
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefix+sig), data)
	})
	if err != nil {
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite, "write key", rkerrors.WithSignature(sig))
	}
	return nil
}

func (s *BadgerStore) del(prefix, sig string) error {
	if err := ValidateKey(sig); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefix + sig))
	})
	if err != nil {
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite, "delete key", rkerrors.WithSignature(sig))
	}
	return nil
}
