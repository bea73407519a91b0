package docstore

import (
	"context"
	"errors"
)

// MaxBatchWrites is the largest number of operations a single batch may commit.
// It matches Firestore's per-commit limit; every backend enforces it.
const MaxBatchWrites = 500

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrBatchTooLarge is returned by Commit when a batch holds more than MaxBatchWrites operations.
	ErrBatchTooLarge = errors.New("batch exceeds maximum number of writes")
)

// Document is a stored document. Data holds field values: strings, int64,
// float64, bool, nil, []any and nested map[string]any.
type Document struct {
	ID   string
	Data map[string]any
}

// Client is a document database with per-document atomicity, filtered and
// ordered cursor queries and bounded atomic batches.
type Client interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Set writes a document. With MergeAll, fields not present in data keep
	// their stored values; otherwise the document is replaced.
	Set(ctx context.Context, collection, id string, data map[string]any, opts ...SetOption) error

	// Query returns the documents matching q.
	Query(ctx context.Context, q Query) ([]Document, error)

	// Batch starts an atomic batch of writes.
	Batch() Batch
}

// Batch collects writes that commit atomically: all of them or none.
type Batch interface {
	Set(collection, id string, data map[string]any, opts ...SetOption)
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// SetConfig holds the resolved options of a Set call.
type SetConfig struct {
	Merge bool
}

// SetOption configures a Set call.
type SetOption func(*SetConfig)

// MergeAll merges the written fields into the stored document instead of replacing it.
var MergeAll SetOption = func(c *SetConfig) { c.Merge = true }

// ApplySetOptions resolves opts.
func ApplySetOptions(opts []SetOption) SetConfig {
	var cfg SetConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Write is one operation recorded in a batch.
type Write struct {
	Collection string
	ID         string
	Data       map[string]any
	Merge      bool
	Delete     bool
}

// WriteSet records batch operations. Backends embed it and implement Commit.
type WriteSet struct {
	writes []Write
}

// Set records a set operation.
func (w *WriteSet) Set(collection, id string, data map[string]any, opts ...SetOption) {
	w.writes = append(w.writes, Write{
		Collection: collection,
		ID:         id,
		Data:       data,
		Merge:      ApplySetOptions(opts).Merge,
	})
}

// Delete records a delete operation.
func (w *WriteSet) Delete(collection, id string) {
	w.writes = append(w.writes, Write{Collection: collection, ID: id, Delete: true})
}

// Len returns the number of recorded operations.
func (w *WriteSet) Len() int {
	return len(w.writes)
}

// Writes returns the recorded operations in order.
func (w *WriteSet) Writes() []Write {
	return w.writes
}

// CheckSize returns ErrBatchTooLarge when the set holds more than MaxBatchWrites operations.
func (w *WriteSet) CheckSize() error {
	if len(w.writes) > MaxBatchWrites {
		return ErrBatchTooLarge
	}
	return nil
}
