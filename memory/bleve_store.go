package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// BleveIndexName is the index directory inside the memory directory.
const BleveIndexName = "failures.bleve"

// BleveRecorder indexes failure records for BM25 full-text search.
//
// The index is opened on first use and held until Close. Hook processes only
// touch it on exhaustion, so the index file lock is held briefly.
type BleveRecorder struct {
	mu    sync.Mutex
	path  string
	index bleve.Index
}

var (
	_ Recorder = (*BleveRecorder)(nil)
	_ Searcher = (*BleveRecorder)(nil)
)

// BleveRecorderConfig configures the Bleve-based recorder.
type BleveRecorderConfig struct {
	// BasePath is the memory directory.
	BasePath string
}

// failureDocument is the indexed form of a FailureRecord.
type failureDocument struct {
	What          string    `json:"what"`
	Reason        string    `json:"reason"`
	Suggestion    string    `json:"suggestion"`
	Signature     string    `json:"signature"`
	Category      string    `json:"category"`
	Tool          string    `json:"tool"`
	Date          string    `json:"date"`
	TotalAttempts int       `json:"total_attempts"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewBleveRecorder creates a recorder. The index is not opened yet.
func NewBleveRecorder(cfg BleveRecorderConfig) *BleveRecorder {
	return &BleveRecorder{path: filepath.Join(cfg.BasePath, BleveIndexName)}
}

// open opens or creates the index. Callers hold mu.
func (r *BleveRecorder) open() (bleve.Index, error) {
	if r.index != nil {
		return r.index, nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if _, statErr := os.Stat(r.path); os.IsNotExist(statErr) {
		index, err = bleve.New(r.path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create bleve index: %w", err)
		}
	} else {
		index, err = bleve.Open(r.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bleve index: %w", err)
		}
	}
	r.index = index
	return index, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name

	keyword := bleve.NewKeywordFieldMapping()
	date := bleve.NewDateTimeFieldMapping()
	num := bleve.NewNumericFieldMapping()

	doc.AddFieldMappingsAt("what", text)
	doc.AddFieldMappingsAt("reason", text)
	doc.AddFieldMappingsAt("suggestion", text)
	doc.AddFieldMappingsAt("signature", keyword)
	doc.AddFieldMappingsAt("category", keyword)
	doc.AddFieldMappingsAt("tool", keyword)
	doc.AddFieldMappingsAt("date", keyword)
	doc.AddFieldMappingsAt("total_attempts", num)
	doc.AddFieldMappingsAt("created_at", date)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im
}

// WriteFailure indexes the record under its ID.
func (r *BleveRecorder) WriteFailure(ctx context.Context, rec FailureRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.open()
	if err != nil {
		return err
	}

	doc := failureDocument{
		What:          rec.What,
		Reason:        rec.Reason,
		Suggestion:    rec.Suggestion,
		Signature:     rec.Signature,
		Category:      rec.Category,
		Tool:          rec.Tool,
		Date:          rec.Date,
		TotalAttempts: rec.TotalAttempts,
		CreatedAt:     rec.CreatedAt,
	}
	if err := index.Index(rec.ID, doc); err != nil {
		return fmt.Errorf("failed to index failure: %w", err)
	}
	return nil
}

// Search runs a match query over the text fields. An empty query lists
// everything, newest first.
func (r *BleveRecorder) Search(ctx context.Context, queryText string, opts SearchOpts) ([]SearchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.open()
	if err != nil {
		return nil, err
	}

	var q query.Query
	if queryText == "" {
		q = bleve.NewMatchAllQuery()
	} else {
		what := bleve.NewMatchQuery(queryText)
		what.SetField("what")
		reason := bleve.NewMatchQuery(queryText)
		reason.SetField("reason")
		q = bleve.NewDisjunctionQuery(what, reason)
	}

	if opts.Category != "" {
		cat := bleve.NewTermQuery(opts.Category)
		cat.SetField("category")
		bq := bleve.NewBooleanQuery()
		bq.AddMust(q)
		bq.AddMust(cat)
		q = bq
	}

	req := bleve.NewSearchRequest(q)
	req.Size = opts.limit()
	req.Fields = []string{"*"}
	if queryText == "" {
		req.SortBy([]string{"-created_at"})
	}

	res, err := index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		rec := FailureRecord{ID: hit.ID}
		rec.What, _ = hit.Fields["what"].(string)
		rec.Reason, _ = hit.Fields["reason"].(string)
		rec.Suggestion, _ = hit.Fields["suggestion"].(string)
		rec.Signature, _ = hit.Fields["signature"].(string)
		rec.Category, _ = hit.Fields["category"].(string)
		rec.Tool, _ = hit.Fields["tool"].(string)
		rec.Date, _ = hit.Fields["date"].(string)
		if n, ok := hit.Fields["total_attempts"].(float64); ok {
			rec.TotalAttempts = int(n)
		}
		if s, ok := hit.Fields["created_at"].(string); ok {
			rec.CreatedAt, _ = time.Parse(time.RFC3339, s)
		}
		results = append(results, SearchResult{FailureRecord: rec, Score: hit.Score})
	}
	return results, nil
}

// Count returns the number of indexed failures.
func (r *BleveRecorder) Count() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.open()
	if err != nil {
		return 0, err
	}
	return index.DocCount()
}

// Close closes the index if it was opened.
func (r *BleveRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		return nil
	}
	err := r.index.Close()
	r.index = nil
	return err
}
