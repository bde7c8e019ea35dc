package state

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/vinayprograms/recoverkit/classify"
)

// Common errors.
var (
	ErrNotFound   = errors.New("key not found")
	ErrClosed     = errors.New("store closed")
	ErrInvalidKey = errors.New("invalid key")
	ErrLockHeld   = errors.New("lock already held")
)

// Phase bounds.
const (
	MinPhase = 1
	MaxPhase = 3
)

// Record is the persisted retry counter for one signature.
type Record struct {
	Phase           int       `json:"phase"`
	AttemptsInPhase int       `json:"attempts_in_phase"`
	TotalAttempts   int       `json:"total_attempts"`
	LastAttemptAt   time.Time `json:"last_attempt_at"`
}

// NewRecord returns the record for a signature seen for the first time.
func NewRecord() Record {
	return Record{Phase: MinPhase}
}

// ClampPhase forces a phase read from storage into [MinPhase, MaxPhase].
func ClampPhase(phase int) int {
	if phase < MinPhase {
		return MinPhase
	}
	if phase > MaxPhase {
		return MaxPhase
	}
	return phase
}

// Sanitize clamps values that external edits or corruption may have broken.
func (r Record) Sanitize() Record {
	r.Phase = ClampPhase(r.Phase)
	if r.AttemptsInPhase < 0 {
		r.AttemptsInPhase = 0
	}
	if r.TotalAttempts < r.AttemptsInPhase {
		r.TotalAttempts = r.AttemptsInPhase
	}
	return r
}

// FixAttempt is one entry of the attempted-fix log.
type FixAttempt struct {
	Phase     int       `json:"phase"`
	Strategy  string    `json:"strategy"`
	Succeeded bool      `json:"succeeded"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorState is the session view of a signature.
type ErrorState struct {
	Signature    string            `json:"signature"`
	Category     classify.Category `json:"category"`
	ToolName     string            `json:"tool_name"`
	ErrorMessage string            `json:"error_message"`

	// Derived from Record on every invocation.
	Phase           int `json:"phase"`
	AttemptsInPhase int `json:"attempts_in_phase"`

	OfficialDocsSearched  []string `json:"official_docs_searched,omitempty"`
	CommunityDocsSearched []string `json:"community_docs_searched,omitempty"`

	FixStrategiesAttempted []FixAttempt `json:"fix_strategies_attempted,omitempty"`
	PendingFix             string       `json:"pending_fix,omitempty"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// NewErrorState creates the session view for a newly seen signature.
func NewErrorState(sig string, category classify.Category, tool string, now time.Time) *ErrorState {
	return &ErrorState{
		Signature: sig,
		Category:  category,
		ToolName:  tool,
		Phase:     MinPhase,
		FirstSeen: now,
		LastSeen:  now,
	}
}

// SyncFrom overwrites the derived phase fields from the canonical record.
func (s *ErrorState) SyncFrom(r Record) {
	s.Phase = ClampPhase(r.Phase)
	s.AttemptsInPhase = r.AttemptsInPhase
}

// FailedStrategies returns the strategies logged as failed, oldest first.
func (s *ErrorState) FailedStrategies() []FixAttempt {
	var out []FixAttempt
	for _, a := range s.FixStrategiesAttempted {
		if !a.Succeeded {
			out = append(out, a)
		}
	}
	return out
}

// HasFailed reports whether the strategy text is already logged as failed.
func (s *ErrorState) HasFailed(strategy string) bool {
	if s == nil {
		return false
	}
	for _, a := range s.FixStrategiesAttempted {
		if !a.Succeeded && a.Strategy == strategy {
			return true
		}
	}
	return false
}

// SettlePending moves the pending suggestion into the attempt log. It is a
// no-op when nothing is pending. A failure already logged for the same
// strategy is not logged twice.
func (s *ErrorState) SettlePending(succeeded bool, now time.Time) {
	if s.PendingFix == "" {
		return
	}
	if !succeeded && s.HasFailed(s.PendingFix) {
		s.PendingFix = ""
		return
	}
	s.FixStrategiesAttempted = append(s.FixStrategiesAttempted, FixAttempt{
		Phase:     ClampPhase(s.Phase),
		Strategy:  s.PendingFix,
		Succeeded: succeeded,
		Timestamp: now,
	})
	s.PendingFix = ""
}

// MarkSearched records a documentation topic as shown. Repeats are ignored.
func (s *ErrorState) MarkSearched(official bool, topic string) {
	list := &s.CommunityDocsSearched
	if official {
		list = &s.OfficialDocsSearched
	}
	for _, t := range *list {
		if t == topic {
			return
		}
	}
	*list = append(*list, topic)
}

// Stats summarises tracked signatures.
type Stats struct {
	Total   int         `json:"total"`
	ByPhase map[int]int `json:"by_phase"`
}

// ComputeStats builds Stats from a record set.
func ComputeStats(records map[string]Record) Stats {
	st := Stats{ByPhase: map[int]int{1: 0, 2: 0, 3: 0}}
	for _, r := range records {
		st.Total++
		st.ByPhase[ClampPhase(r.Phase)]++
	}
	return st
}

// SortedSignatures returns record keys ordered by most recent attempt.
func SortedSignatures(records map[string]Record) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := records[keys[i]], records[keys[j]]
		if !a.LastAttemptAt.Equal(b.LastAttemptAt) {
			return a.LastAttemptAt.After(b.LastAttemptAt)
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Store is the canonical retry record store.
type Store interface {
	// Load returns the record for sig, or ErrNotFound.
	Load(sig string) (Record, error)

	// Save writes the record for sig.
	Save(sig string, rec Record) error

	// Clear removes the record. Clearing a missing signature is not an error.
	Clear(sig string) error

	// All returns every tracked record.
	All() (map[string]Record, error)

	// PruneBefore removes records whose last attempt is before cutoff and
	// returns the removed signatures.
	PruneBefore(cutoff time.Time) ([]string, error)

	// Stats returns the number of tracked signatures and their phase spread.
	Stats() (Stats, error)

	// Close releases resources.
	Close() error
}

// SessionStore persists ErrorState views.
type SessionStore interface {
	// LoadSession returns the state for sig, or ErrNotFound.
	LoadSession(sig string) (*ErrorState, error)

	// SaveSession writes st under st.Signature.
	SaveSession(st *ErrorState) error

	// ClearSession removes the state. Missing signatures are not an error.
	ClearSession(sig string) error
}

// Locker is implemented by stores that can serialise load-modify-save
// sequences across processes.
type Locker interface {
	// Lock blocks until the lock is held or ctx is done.
	Lock(ctx context.Context) (Lock, error)
}

// Lock represents a held lock.
type Lock interface {
	// Unlock releases the lock. Calling it twice is harmless.
	Unlock() error
}

// ValidateKey checks if a signature is usable as a storage key.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, " \t\n/") {
		return ErrInvalidKey
	}
	if strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
		return ErrInvalidKey
	}
	if len(key) > 1024 {
		return ErrInvalidKey
	}
	return nil
}
