package memory

import (
	"context"
	"errors"
)

// MultiRecorder fans a record out to several recorders. Every recorder is
// attempted; errors are joined.
type MultiRecorder struct {
	recorders []Recorder
}

var (
	_ Recorder = (*MultiRecorder)(nil)
	_ Searcher = (*MultiRecorder)(nil)
)

// NewMultiRecorder combines recorders. Nil entries are skipped.
func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	m := &MultiRecorder{}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// Len returns the number of recorders.
func (m *MultiRecorder) Len() int {
	return len(m.recorders)
}

// WriteFailure writes to every recorder.
func (m *MultiRecorder) WriteFailure(ctx context.Context, rec FailureRecord) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.WriteFailure(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Search uses the first recorder that supports searching.
func (m *MultiRecorder) Search(ctx context.Context, query string, opts SearchOpts) ([]SearchResult, error) {
	for _, r := range m.recorders {
		if s, ok := r.(Searcher); ok {
			return s.Search(ctx, query, opts)
		}
	}
	return nil, ErrNotSearchable
}

// Close closes every recorder.
func (m *MultiRecorder) Close() error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ErrNotSearchable is returned when no configured recorder can search.
var ErrNotSearchable = errors.New("no searchable recorder configured")
