// Package recovery orchestrates one failure-recovery decision per tool error.
//
// Handle runs the whole pipeline: signature and category, phase bookkeeping
// against the retry store, pattern matching, research hints, message
// composition, session persistence and, when a signature runs out of
// attempts, a permanent failure record. It never returns an error; every
// internal failure degrades to a logged warning and a usable message.
package recovery

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vinayprograms/recoverkit/classify"
	rkerrors "github.com/vinayprograms/recoverkit/errors"
	"github.com/vinayprograms/recoverkit/hints"
	"github.com/vinayprograms/recoverkit/logging"
	"github.com/vinayprograms/recoverkit/memory"
	"github.com/vinayprograms/recoverkit/patterns"
	"github.com/vinayprograms/recoverkit/phase"
	"github.com/vinayprograms/recoverkit/response"
	"github.com/vinayprograms/recoverkit/state"
)

const (
	defaultLockTimeout  = 5 * time.Second
	lockRetryDelay      = 20 * time.Millisecond
	defaultPruneAfter   = 24 * time.Hour
	maxStoredErrorBytes = 2000
)

// Event is one failed tool invocation.
type Event struct {
	Tool      string
	ErrorText string
	SessionID string
}

// Result is the engine's decision for one event.
type Result struct {
	Message   string
	Signature string
	Category  classify.Category
	Phase     int
	Escalated bool
	Exhausted bool

	// State is the updated session view, already persisted when possible.
	State *state.ErrorState
}

// Engine is the recovery orchestrator for one project.
type Engine struct {
	store       state.Store
	sessions    state.SessionStore
	recorder    memory.Recorder
	library     *patterns.Library
	hints       *hints.Provider
	limits      phase.Limits
	logger      *logging.Logger
	now         func() time.Time
	pruneAfter  time.Duration
	lockTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the failure recorder.
func WithRecorder(r memory.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLimits sets the retry table.
func WithLimits(l phase.Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLibrary replaces the pattern library.
func WithLibrary(l *patterns.Library) Option {
	return func(e *Engine) { e.library = l }
}

// WithPruneAfter sets the age after which untouched records are dropped.
// Zero disables pruning on Handle.
func WithPruneAfter(d time.Duration) Option {
	return func(e *Engine) { e.pruneAfter = d }
}

// WithLockTimeout bounds the wait for the store lock.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lockTimeout = d }
}

// New creates an engine over the given stores.
func New(store state.Store, sessions state.SessionStore, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		sessions:    sessions,
		recorder:    memory.NewInMemoryRecorder(),
		library:     patterns.Default(),
		hints:       hints.NewProvider(),
		limits:      phase.DefaultLimits(),
		logger:      logging.Discard(),
		now:         time.Now,
		pruneAfter:  defaultPruneAfter,
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recorder returns the configured failure recorder.
func (e *Engine) Recorder() memory.Recorder {
	return e.recorder
}

// Handle processes one failure event.
func (e *Engine) Handle(ctx context.Context, ev Event) (res Result) {
	start := e.now()
	log := e.logger.WithTraceID(uuid.New().String())

	defer func() {
		if r := recover(); r != nil {
			perr := rkerrors.RecoverPanic(r)
			log.Error("recovered from panic", map[string]interface{}{
				"error": perr.Error(),
				"code":  string(perr.Code()),
			})
			res = Result{Message: response.Default()}
		}
	}()

	sig := classify.Signature(ev.ErrorText, ev.Tool)
	cat := classify.Categorize(ev.ErrorText)
	log.InvocationStart(ev.Tool, sig, ev.SessionID)

	unlock := e.lock(ctx, log)
	defer unlock()

	if e.pruneAfter > 0 {
		e.prune(log, e.pruneAfter)
	}

	limit := e.limits.Limit(cat)
	step := phase.Advance(e.loadRecord(log, sig), limit)
	step.Record.LastAttemptAt = start
	rec := step.Record

	if step.Escalated {
		log.PhaseEscalated(sig, step.FromPhase, rec.Phase)
	}
	log.AttemptRecorded(sig, string(cat), rec.Phase, rec.AttemptsInPhase, phase.RemainingAttempts(rec, limit))

	st := e.loadSession(log, sig, cat, ev.Tool, start)
	st.SettlePending(false, start)
	st.SyncFrom(rec)
	st.Category = cat
	st.ToolName = ev.Tool
	st.ErrorMessage = truncate(ev.ErrorText, maxStoredErrorBytes)
	st.LastSeen = start

	suggestion := e.library.SuggestedFix(cat, ev.ErrorText, st)
	h := e.hints.Hints(cat, ev.ErrorText, rec.Phase)
	markSearched(st, h, rec.Phase)

	msg := response.Compose(response.Input{
		Phase:           rec.Phase,
		AttemptsInPhase: rec.AttemptsInPhase,
		Limit:           limit,
		TotalAttempts:   rec.TotalAttempts,
		Category:        cat,
		Pattern:         suggestion.Pattern,
		Fix:             suggestion.Fix,
		Hints:           h,
		Failed:          st.FailedStrategies(),
		Exhausted:       step.Exhausted,
	})
	st.PendingFix = suggestion.Fix

	if err := e.store.Save(sig, rec); err != nil {
		log.StoreFailure("save", sig, err)
	}
	if err := e.sessions.SaveSession(st); err != nil {
		log.StoreFailure("save_session", sig, err)
	}

	if step.Exhausted {
		log.Exhausted(sig, rec.TotalAttempts)
	}
	if step.BecameExhausted {
		e.recordFailure(ctx, log, sig, cat, ev, rec.TotalAttempts, start)
	}

	log.InvocationComplete(sig, e.now().Sub(start), step.Exhausted)

	return Result{
		Message:   msg,
		Signature: sig,
		Category:  cat,
		Phase:     rec.Phase,
		Escalated: step.Escalated,
		Exhausted: step.Exhausted,
		State:     st,
	}
}

// Resolve marks the pending suggestion for sig as succeeded and clears the
// signature's record and session. Unknown signatures are not an error.
func (e *Engine) Resolve(ctx context.Context, sig string) (*state.ErrorState, error) {
	if err := state.ValidateKey(sig); err != nil {
		return nil, rkerrors.InvalidInput("invalid signature", rkerrors.WithSignature(sig), rkerrors.WithCause(err))
	}

	unlock := e.lock(ctx, e.logger)
	defer unlock()

	st, err := e.sessions.LoadSession(sig)
	switch {
	case err == nil:
		st.SettlePending(true, e.now())
	case errors.Is(err, state.ErrNotFound):
		st = nil
	default:
		e.logger.StoreFailure("load_session", sig, err)
		st = nil
	}

	if err := e.store.Clear(sig); err != nil {
		return st, rkerrors.Wrap(err, "clear retry record", rkerrors.WithSignature(sig))
	}
	if err := e.sessions.ClearSession(sig); err != nil {
		return st, rkerrors.Wrap(err, "clear session", rkerrors.WithSignature(sig))
	}
	e.logger.Info("signature resolved", map[string]interface{}{"signature": sig})
	return st, nil
}

// Clear drops the record and session for sig without logging an outcome.
func (e *Engine) Clear(ctx context.Context, sig string) error {
	if err := state.ValidateKey(sig); err != nil {
		return rkerrors.InvalidInput("invalid signature", rkerrors.WithSignature(sig), rkerrors.WithCause(err))
	}

	unlock := e.lock(ctx, e.logger)
	defer unlock()

	if err := e.store.Clear(sig); err != nil {
		return rkerrors.Wrap(err, "clear retry record", rkerrors.WithSignature(sig))
	}
	if err := e.sessions.ClearSession(sig); err != nil {
		return rkerrors.Wrap(err, "clear session", rkerrors.WithSignature(sig))
	}
	return nil
}

// Stats reports tracked signatures by phase.
func (e *Engine) Stats(ctx context.Context) (state.Stats, error) {
	st, err := e.store.Stats()
	if err != nil {
		return state.Stats{}, rkerrors.Wrap(err, "read stats")
	}
	return st, nil
}

// Records returns every tracked record.
func (e *Engine) Records(ctx context.Context) (map[string]state.Record, error) {
	all, err := e.store.All()
	if err != nil {
		return nil, rkerrors.Wrap(err, "read records")
	}
	return all, nil
}

// Session returns the session view for sig.
func (e *Engine) Session(ctx context.Context, sig string) (*state.ErrorState, error) {
	st, err := e.sessions.LoadSession(sig)
	if errors.Is(err, state.ErrNotFound) {
		return nil, rkerrors.NotFound("no session for signature", rkerrors.WithSignature(sig))
	}
	return st, err
}

// Prune removes records untouched for longer than age, with their sessions.
func (e *Engine) Prune(ctx context.Context, age time.Duration) ([]string, error) {
	unlock := e.lock(ctx, e.logger)
	defer unlock()

	removed, err := e.store.PruneBefore(e.now().Add(-age))
	if err != nil {
		return nil, rkerrors.Wrap(err, "prune records")
	}
	for _, sig := range removed {
		if err := e.sessions.ClearSession(sig); err != nil {
			e.logger.StoreFailure("prune_session", sig, err)
		}
	}
	return removed, nil
}

// Close releases the stores and the recorder.
func (e *Engine) Close() error {
	var errs []error
	if e.recorder != nil {
		errs = append(errs, e.recorder.Close())
	}
	errs = append(errs, e.store.Close())
	if c, ok := e.sessions.(interface{ Close() error }); ok && any(e.sessions) != any(e.store) {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// lock takes the store lock when supported. Retryable failures are retried
// until the lock timeout; anything else degrades to unlocked operation.
func (e *Engine) lock(ctx context.Context, log *logging.Logger) func() {
	locker, ok := e.store.(state.Locker)
	if !ok {
		return func() {}
	}

	lctx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()

	l, err := locker.Lock(lctx)
	for err != nil && rkerrors.IsRetryable(err) && lctx.Err() == nil {
		log.Debug("retrying state lock", map[string]interface{}{"error": err.Error()})
		select {
		case <-lctx.Done():
		case <-time.After(lockRetryDelay):
		}
		l, err = locker.Lock(lctx)
	}
	if err != nil {
		log.Warn("proceeding without state lock", map[string]interface{}{"error": err.Error()})
		return func() {}
	}
	return func() {
		if err := l.Unlock(); err != nil {
			log.Warn("failed to release state lock", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (e *Engine) prune(log *logging.Logger, age time.Duration) {
	removed, err := e.store.PruneBefore(e.now().Add(-age))
	if err != nil {
		log.StoreFailure("prune", "", err)
		return
	}
	for _, sig := range removed {
		if err := e.sessions.ClearSession(sig); err != nil {
			log.StoreFailure("prune_session", sig, err)
		}
	}
	if len(removed) > 0 {
		log.Debug("pruned stale signatures", map[string]interface{}{"count": len(removed)})
	}
}

// loadRecord returns the stored record, or a fresh one when it is missing or
// unreadable.
func (e *Engine) loadRecord(log *logging.Logger, sig string) state.Record {
	rec, err := e.store.Load(sig)
	if err == nil {
		return rec
	}
	if !errors.Is(err, state.ErrNotFound) {
		log.StoreFailure("load", sig, err)
	}
	return state.NewRecord()
}

func (e *Engine) loadSession(log *logging.Logger, sig string, cat classify.Category, tool string, now time.Time) *state.ErrorState {
	st, err := e.sessions.LoadSession(sig)
	if err == nil && st != nil {
		return st
	}
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		log.StoreFailure("load_session", sig, err)
	}
	return state.NewErrorState(sig, cat, tool, now)
}

func (e *Engine) recordFailure(ctx context.Context, log *logging.Logger, sig string, cat classify.Category, ev Event, total int, now time.Time) {
	if e.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.RecorderFailure(sig, rkerrors.RecoverPanic(r))
		}
	}()

	rec := memory.NewFailureRecord(sig, cat, ev.Tool, ev.ErrorText, total, now)
	if err := e.recorder.WriteFailure(ctx, rec); err != nil {
		log.RecorderFailure(sig, rkerrors.WrapWithCode(err, rkerrors.ErrCodeRecorderFailed,
			"write failure record", rkerrors.WithSignature(sig)))
	}
}

// markSearched notes the hint topics shown at this phase.
func markSearched(st *state.ErrorState, h hints.Hints, p int) {
	if p >= phase.Official {
		for _, topic := range h.Official {
			st.MarkSearched(true, topic)
		}
	}
	if p >= phase.Community {
		for _, topic := range h.Community {
			st.MarkSearched(false, topic)
		}
	}
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
