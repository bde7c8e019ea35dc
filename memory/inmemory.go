package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryRecorder keeps records in memory. Used by tests and as the
// recorder when no backend is configured.
type InMemoryRecorder struct {
	mu      sync.RWMutex
	records []FailureRecord
}

var (
	_ Recorder = (*InMemoryRecorder)(nil)
	_ Searcher = (*InMemoryRecorder)(nil)
)

// NewInMemoryRecorder creates an empty recorder.
func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// WriteFailure stores the record.
func (r *InMemoryRecorder) WriteFailure(ctx context.Context, rec FailureRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// Records returns a copy of everything written, oldest first.
func (r *InMemoryRecorder) Records() []FailureRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]FailureRecord(nil), r.records...)
}

// Search scores records by the share of query keywords they contain.
// An empty query matches everything.
func (r *InMemoryRecorder) Search(ctx context.Context, query string, opts SearchOpts) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	terms := extractKeywords(query)
	var results []SearchResult
	for _, rec := range r.records {
		if opts.Category != "" && rec.Category != opts.Category {
			continue
		}
		score := 1.0
		if len(terms) > 0 {
			text := strings.ToLower(rec.What + " " + rec.Reason + " " + rec.Tool)
			hits := 0
			for _, t := range terms {
				if strings.Contains(text, t) {
					hits++
				}
			}
			if hits == 0 {
				continue
			}
			score = float64(hits) / float64(len(terms))
		}
		results = append(results, SearchResult{FailureRecord: rec, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if n := opts.limit(); len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// Close is a no-op.
func (r *InMemoryRecorder) Close() error {
	return nil
}

var stopWords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "were": true, "been": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"this": true, "that": true, "these": true, "those": true, "its": true,
}

// extractKeywords lower-cases text, splits on punctuation and drops short
// and stop words.
func extractKeywords(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	seen := make(map[string]bool)
	var keywords []string
	for _, w := range words {
		if len(w) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}
