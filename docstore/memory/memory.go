package memory

import (
	"context"
	"sync"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
)

// Client is an in-process docstore.Client. It is safe for concurrent use and
// enforces the same batch ceiling as Firestore.
type Client struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

var _ docstore.Client = (*Client)(nil)

// NewClient returns an empty in-memory document store.
func NewClient() *Client {
	return &Client{
		collections: make(map[string]map[string]map[string]any),
	}
}

// Get returns a copy of the document.
func (c *Client) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.collections[collection][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Document{ID: id, Data: docstore.CloneData(data)}, nil
}

// Set writes one document.
func (c *Client) Set(ctx context.Context, collection, id string, data map[string]any, opts ...docstore.SetOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.apply(docstore.Write{
		Collection: collection,
		ID:         id,
		Data:       data,
		Merge:      docstore.ApplySetOptions(opts).Merge,
	})
	return nil
}

// Query evaluates q over a snapshot of the collection.
func (c *Client) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	docs := make([]docstore.Document, 0, len(c.collections[q.Collection]))
	for id, data := range c.collections[q.Collection] {
		docs = append(docs, docstore.Document{ID: id, Data: docstore.CloneData(data)})
	}
	c.mu.RUnlock()

	return docstore.Evaluate(q, docs), nil
}

// Batch starts a batch that commits under a single lock.
func (c *Client) Batch() docstore.Batch {
	return &batch{client: c}
}

// Count returns the number of documents in a collection.
func (c *Client) Count(collection string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.collections[collection])
}

// Close releases nothing; it lets the client stand in for network backends.
func (c *Client) Close() error {
	return nil
}

func (c *Client) apply(w docstore.Write) {
	docs := c.collections[w.Collection]
	if w.Delete {
		delete(docs, w.ID)
		return
	}
	if docs == nil {
		docs = make(map[string]map[string]any)
		c.collections[w.Collection] = docs
	}

	data := docstore.NormalizeData(w.Data)
	if existing, ok := docs[w.ID]; ok && w.Merge {
		data = docstore.MergeData(existing, data)
	}
	docs[w.ID] = data
}

type batch struct {
	docstore.WriteSet
	client *Client
}

func (b *batch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.CheckSize(); err != nil {
		return err
	}

	b.client.mu.Lock()
	defer b.client.mu.Unlock()

	for _, w := range b.Writes() {
		b.client.apply(w)
	}
	return nil
}
