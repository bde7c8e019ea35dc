package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MarkdownFileName is the failure log inside the memory directory.
const MarkdownFileName = "failures.md"

const markdownHeader = "# Recorded Failures\n\nErrors that exhausted every automatic recovery phase.\n"

// MarkdownRecorder appends records to a human-readable markdown file.
type MarkdownRecorder struct {
	mu   sync.Mutex
	path string
}

var _ Recorder = (*MarkdownRecorder)(nil)

// NewMarkdownRecorder writes to failures.md under dir.
func NewMarkdownRecorder(dir string) *MarkdownRecorder {
	return &MarkdownRecorder{path: filepath.Join(dir, MarkdownFileName)}
}

// Path returns the markdown file path.
func (r *MarkdownRecorder) Path() string {
	return r.path
}

// WriteFailure appends one entry, creating the file with a header if needed.
func (r *MarkdownRecorder) WriteFailure(ctx context.Context, rec FailureRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	_, statErr := os.Stat(r.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open failure log: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	if isNew {
		b.WriteString(markdownHeader)
	}
	b.WriteString(formatEntry(rec))

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to append failure: %w", err)
	}
	return nil
}

// Close is a no-op; the file is opened per write.
func (r *MarkdownRecorder) Close() error {
	return nil
}

func formatEntry(rec FailureRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n## %s: %s\n\n", rec.Date, rec.Category)
	fmt.Fprintf(&b, "- **What:** %s\n", escapeLine(rec.What))
	fmt.Fprintf(&b, "- **Reason:** %s\n", rec.Reason)
	fmt.Fprintf(&b, "- **Suggestion:** %s\n", rec.Suggestion)
	if rec.Signature != "" {
		fmt.Fprintf(&b, "- **Signature:** `%s`\n", rec.Signature)
	}
	return b.String()
}

// escapeLine keeps user text from breaking the list layout.
func escapeLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "`", "'")
}
