// Package phase implements the three-phase escalation state machine.
//
// Phase 1 is a raw attempt with existing knowledge, phase 2 adds official
// documentation research and phase 3 adds community research. Each category
// has a per-phase attempt budget. A signature escalates once its budget for
// the current phase is spent and becomes exhausted once the phase 3 budget is
// spent. All functions operate on state.Record values and never touch storage.
package phase

import (
	"fmt"
	"sort"

	"github.com/vinayprograms/recoverkit/classify"
	"github.com/vinayprograms/recoverkit/state"
)

// Phase numbers.
const (
	Raw       = state.MinPhase
	Official  = 2
	Community = state.MaxPhase
)

// Limits maps a category to the attempts allowed in a single phase.
type Limits map[classify.Category]int

// DefaultLimits returns the built-in retry table.
func DefaultLimits() Limits {
	return Limits{
		classify.NPMInstall:      2,
		classify.TypeScriptError: 3,
		classify.TestFailure:     3,
		classify.BuildFailure:    2,
		classify.FileNotFound:    1,
		classify.GitConflict:     1,
		classify.DatabaseError:   2,
		classify.APIError:        2,
		classify.Unknown:         2,
	}
}

// Limit returns the budget for cat. Unlisted categories use the unknown budget,
// and a table without that falls back to the built-in value.
func (l Limits) Limit(cat classify.Category) int {
	if n, ok := l[cat]; ok && n > 0 {
		return n
	}
	if n, ok := l[classify.Unknown]; ok && n > 0 {
		return n
	}
	if n := DefaultLimits()[cat]; n > 0 {
		return n
	}
	return DefaultLimits()[classify.Unknown]
}

// Merge returns a copy of l with overrides applied. Overrides below 1 or for
// unknown category names are rejected.
func (l Limits) Merge(overrides map[string]int) (Limits, error) {
	out := make(Limits, len(l))
	for k, v := range l {
		out[k] = v
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cat, ok := classify.Parse(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		n := overrides[name]
		if n < 1 {
			return nil, fmt.Errorf("limit for %s must be at least 1, got %d", cat, n)
		}
		out[cat] = n
	}
	return out, nil
}

// Clamp forces a phase into [1, 3].
func Clamp(p int) int {
	return state.ClampPhase(p)
}

// RecordAttempt counts one failure in the current phase.
func RecordAttempt(r state.Record) state.Record {
	r.AttemptsInPhase++
	r.TotalAttempts++
	return r
}

// ShouldEscalate reports whether the current phase budget is spent and a
// higher phase exists.
func ShouldEscalate(r state.Record, limit int) bool {
	return r.AttemptsInPhase >= limit && r.Phase < Community
}

// Escalate moves to the next phase and resets the phase counter.
// It does nothing in the last phase.
func Escalate(r state.Record) state.Record {
	if r.Phase >= Community {
		return r
	}
	r.Phase++
	r.AttemptsInPhase = 0
	return r
}

// IsExhausted reports whether the last phase budget is spent.
func IsExhausted(r state.Record, limit int) bool {
	return r.Phase == Community && r.AttemptsInPhase >= limit
}

// RemainingAttempts returns the attempts left in the current phase.
func RemainingAttempts(r state.Record, limit int) int {
	if n := limit - r.AttemptsInPhase; n > 0 {
		return n
	}
	return 0
}

// Description returns the user-facing label for a phase.
func Description(p int) string {
	switch Clamp(p) {
	case Raw:
		return "raw attempt with existing knowledge"
	case Official:
		return "search official documentation"
	default:
		return "search community solutions"
	}
}

// Step is the outcome of one Advance call.
type Step struct {
	Record state.Record

	// Escalated is set when this call moved the record to a higher phase.
	Escalated bool
	FromPhase int

	// Exhausted is true whenever the record is at or past the last budget.
	Exhausted bool

	// BecameExhausted is true only on the call that spent the last attempt.
	BecameExhausted bool
}

// Advance applies one failure to r: clamp, escalate if the previous
// invocation spent the phase budget, record the attempt, then test
// exhaustion. The order matters: it grants exactly 3*limit attempts.
func Advance(r state.Record, limit int) Step {
	r = r.Sanitize()
	step := Step{FromPhase: r.Phase}

	if ShouldEscalate(r, limit) {
		r = Escalate(r)
		step.Escalated = true
	}

	r = RecordAttempt(r)
	step.Exhausted = IsExhausted(r, limit)
	step.BecameExhausted = r.Phase == Community && r.AttemptsInPhase == limit
	step.Record = r
	return step
}
