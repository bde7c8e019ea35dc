// Package memory records exhausted failures permanently so later sessions can
// find them. Recorders are append-only; a failed write never blocks the
// recovery flow, the caller logs and continues.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vinayprograms/recoverkit/classify"
)

// Fixed record text.
const (
	DefaultSuggestion = "manual intervention required"
	maxWhatLength     = 200
	dateLayout        = "2006-01-02"
)

// FailureRecord is one permanent failure entry.
type FailureRecord struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`
	What          string    `json:"what"`
	Reason        string    `json:"reason"`
	Suggestion    string    `json:"suggestion"`
	Signature     string    `json:"signature"`
	Category      string    `json:"category"`
	Tool          string    `json:"tool"`
	TotalAttempts int       `json:"total_attempts"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewFailureRecord builds the record written when a signature is exhausted.
func NewFailureRecord(sig string, cat classify.Category, tool, errorText string, total int, now time.Time) FailureRecord {
	return FailureRecord{
		ID:            uuid.New().String(),
		Date:          now.Format(dateLayout),
		What:          summarize(tool, errorText),
		Reason:        fmt.Sprintf("exhausted %d attempts across 3 phases", total),
		Suggestion:    DefaultSuggestion,
		Signature:     sig,
		Category:      string(cat),
		Tool:          tool,
		TotalAttempts: total,
		CreatedAt:     now,
	}
}

// summarize returns a one-line description of the failure.
func summarize(tool, text string) string {
	line := strings.Join(strings.Fields(text), " ")
	if len(line) > maxWhatLength {
		line = cutRunes(line, maxWhatLength) + "..."
	}
	if tool == "" {
		return line
	}
	if line == "" {
		return tool + " failed"
	}
	return tool + ": " + line
}

// Recorder appends failure records to durable memory.
type Recorder interface {
	WriteFailure(ctx context.Context, rec FailureRecord) error
	Close() error
}

// SearchOpts configures Search.
type SearchOpts struct {
	Limit    int    // max results, default 10
	Category string // optional exact category filter
}

// SearchResult is a record with its relevance score.
type SearchResult struct {
	FailureRecord
	Score float64 `json:"score"`
}

// Searcher looks up recorded failures.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOpts) ([]SearchResult, error)
}

func (o SearchOpts) limit() int {
	if o.Limit <= 0 {
		return 10
	}
	return o.Limit
}

// cutRunes cuts s to at most n bytes without splitting a UTF-8 sequence.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
