package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	rkerrors "github.com/vinayprograms/recoverkit/errors"
)

// File names inside the state directory.
const (
	RetryFileName   = "retry-tracking.json"
	SessionFileName = "error-states.json"
	lockSuffix      = ".lock"
)

// FileStore implements Store and Locker on a single JSON file mapping
// signature to Record.
type FileStore struct {
	path   string
	locker fileLocker
}

var (
	_ Store  = (*FileStore)(nil)
	_ Locker = (*FileStore)(nil)
)

// NewFileStore opens (creating if needed) the retry file under dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite,
			"create state directory", rkerrors.WithPath(dir))
	}
	return &FileStore{
		path:   filepath.Join(dir, RetryFileName),
		locker: newFileLocker(),
	}, nil
}

// Path returns the retry file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load retrieves a record.
func (s *FileStore) Load(sig string) (Record, error) {
	if err := ValidateKey(sig); err != nil {
		return Record{}, err
	}
	records, err := s.read()
	if err != nil {
		return Record{}, err
	}
	r, ok := records[sig]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Save stores a record. A corrupted file is moved aside and replaced.
func (s *FileStore) Save(sig string, rec Record) error {
	if err := ValidateKey(sig); err != nil {
		return err
	}
	records, err := s.readForWrite()
	if err != nil {
		return err
	}
	records[sig] = rec
	return writeJSONAtomic(s.path, records)
}

// Clear removes a record.
func (s *FileStore) Clear(sig string) error {
	if err := ValidateKey(sig); err != nil {
		return err
	}
	records, err := s.readForWrite()
	if err != nil {
		return err
	}
	if _, ok := records[sig]; !ok {
		return nil
	}
	delete(records, sig)
	return writeJSONAtomic(s.path, records)
}

// All returns every record.
func (s *FileStore) All() (map[string]Record, error) {
	return s.read()
}

// PruneBefore removes records last attempted before cutoff.
func (s *FileStore) PruneBefore(cutoff time.Time) ([]string, error) {
	records, err := s.readForWrite()
	if err != nil {
		return nil, err
	}
	var removed []string
	for sig, r := range records {
		if r.LastAttemptAt.Before(cutoff) {
			delete(records, sig)
			removed = append(removed, sig)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, writeJSONAtomic(s.path, records)
}

// Stats summarises tracked records.
func (s *FileStore) Stats() (Stats, error) {
	records, err := s.read()
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(records), nil
}

// Lock takes the advisory cross-process lock for the state directory.
func (s *FileStore) Lock(ctx context.Context) (Lock, error) {
	return acquireFileLock(ctx, s.locker, s.path+lockSuffix)
}

// Close is a no-op; the file is opened per operation.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (map[string]Record, error) {
	records := make(map[string]Record)
	if err := readJSON(s.path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *FileStore) readForWrite() (map[string]Record, error) {
	records, err := s.read()
	if rkerrors.Is(err, rkerrors.ErrCodeCorruption) {
		if qerr := quarantine(s.path); qerr != nil {
			return nil, qerr
		}
		return make(map[string]Record), nil
	}
	return records, err
}

// SessionFile implements SessionStore on a JSON file mapping signature to
// ErrorState.
type SessionFile struct {
	path string
}

var _ SessionStore = (*SessionFile)(nil)

// NewSessionFile opens (creating if needed) the session file under dir.
func NewSessionFile(dir string) (*SessionFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite,
			"create state directory", rkerrors.WithPath(dir))
	}
	return &SessionFile{path: filepath.Join(dir, SessionFileName)}, nil
}

// Path returns the session file path.
func (s *SessionFile) Path() string {
	return s.path
}

// LoadSession retrieves a session view.
func (s *SessionFile) LoadSession(sig string) (*ErrorState, error) {
	if err := ValidateKey(sig); err != nil {
		return nil, err
	}
	states := make(map[string]*ErrorState)
	if err := readJSON(s.path, &states); err != nil {
		return nil, err
	}
	st, ok := states[sig]
	if !ok || st == nil {
		return nil, ErrNotFound
	}
	st.Signature = sig
	return st, nil
}

// SaveSession writes the session view.
func (s *SessionFile) SaveSession(st *ErrorState) error {
	if err := ValidateKey(st.Signature); err != nil {
		return err
	}
	states, err := s.readForWrite()
	if err != nil {
		return err
	}
	states[st.Signature] = st
	return writeJSONAtomic(s.path, states)
}

// ClearSession removes a session view.
func (s *SessionFile) ClearSession(sig string) error {
	if err := ValidateKey(sig); err != nil {
		return err
	}
	states, err := s.readForWrite()
	if err != nil {
		return err
	}
	if _, ok := states[sig]; !ok {
		return nil
	}
	delete(states, sig)
	return writeJSONAtomic(s.path, states)
}

func (s *SessionFile) readForWrite() (map[string]*ErrorState, error) {
	states := make(map[string]*ErrorState)
	err := readJSON(s.path, &states)
	if rkerrors.Is(err, rkerrors.ErrCodeCorruption) {
		if qerr := quarantine(s.path); qerr != nil {
			return nil, qerr
		}
		return make(map[string]*ErrorState), nil
	}
	return states, err
}

// readJSON decodes path into v. A missing or empty file leaves v untouched.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreRead, "read state file", rkerrors.WithPath(path))
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return rkerrors.Corrupted(path, err)
	}
	return nil
}

// writeJSONAtomic writes v to a temp file in the same directory and renames
// it over path.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeInternal, "encode state", rkerrors.WithPath(path))
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite, "create temp file", rkerrors.WithPath(path))
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite, "write temp file", rkerrors.WithPath(path))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite, "sync temp file", rkerrors.WithPath(path))
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite, "close temp file", rkerrors.WithPath(path))
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite, "rename state file", rkerrors.WithPath(path))
	}
	return nil
}

// quarantine moves a corrupted file aside so it can be inspected later.
func quarantine(path string) error {
	dest := fmt.Sprintf("%s.corrupt-%d", path, time.Now().UnixNano())
	if err := os.Rename(path, dest); err != nil && !os.IsNotExist(err) {
		return rkerrors.WrapWithCode(err, rkerrors.ErrCodeStoreWrite, "quarantine corrupted state", rkerrors.WithPath(path))
	}
	return nil
}
