package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client implements docstore.Client on Cloud Firestore.
type Client struct {
	client *firestore.Client
}

var _ docstore.Client = (*Client)(nil)

// FirestoreOptions configuration for a Firestore connection
type FirestoreOptions struct {
	ProjectID       string
	DatabaseID      string // Default "(default)"
	CredentialsFile string // Optional; application default credentials otherwise
}

// NewClient opens a Firestore client. FIRESTORE_EMULATOR_HOST is honored by
// the underlying library.
func NewClient(ctx context.Context, opts FirestoreOptions) (*Client, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	databaseID := opts.DatabaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, opts.ProjectID, databaseID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create firestore client: %w", err)
	}
	return &Client{client: client}, nil
}

// NewClientFromFirestore wraps an existing Firestore client.
func NewClientFromFirestore(client *firestore.Client) *Client {
	return &Client{client: client}
}

// Close closes the underlying Firestore client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Get returns one document.
func (c *Client) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	snap, err := c.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	return &docstore.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

// Set writes one document.
func (c *Client) Set(ctx context.Context, collection, id string, data map[string]any, opts ...docstore.SetOption) error {
	_, err := c.client.Collection(collection).Doc(id).Set(ctx, docstore.NormalizeData(data), setOptions(opts)...)
	return err
}

// Query runs q on Firestore. An explicit document id order is always added so
// cursors can resume after documents with equal order values.
func (c *Client) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	fq := c.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Path, string(f.Op), f.Value)
	}
	for _, o := range q.Orders {
		fq = fq.OrderBy(o.Path, direction(o.Direction))
	}
	fq = fq.OrderBy(firestore.DocumentID, direction(q.TieBreak()))

	if q.Cursor != nil {
		values := make([]any, 0, len(q.Orders)+1)
		for _, o := range q.Orders {
			v, _ := docstore.Lookup(q.Cursor.Data, o.Path)
			values = append(values, v)
		}
		values = append(values, q.Cursor.ID)
		fq = fq.StartAfter(values...)
	}
	if q.MaxResults > 0 {
		fq = fq.Limit(q.MaxResults)
	}
	if q.IDsOnly {
		fq = fq.Select()
	}

	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	docs := make([]docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		doc := docstore.Document{ID: snap.Ref.ID}
		if !q.IDsOnly {
			doc.Data = snap.Data()
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Batch starts a batch committed in a single Firestore transaction.
func (c *Client) Batch() docstore.Batch {
	return &batch{client: c.client}
}

type batch struct {
	docstore.WriteSet
	client *firestore.Client
}

func (b *batch) Commit(ctx context.Context) error {
	if err := b.CheckSize(); err != nil {
		return err
	}
	if b.Len() == 0 {
		return nil
	}

	return b.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, w := range b.Writes() {
			ref := b.client.Collection(w.Collection).Doc(w.ID)
			var err error
			if w.Delete {
				err = tx.Delete(ref)
			} else if w.Merge {
				err = tx.Set(ref, docstore.NormalizeData(w.Data), firestore.MergeAll)
			} else {
				err = tx.Set(ref, docstore.NormalizeData(w.Data))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func setOptions(opts []docstore.SetOption) []firestore.SetOption {
	if docstore.ApplySetOptions(opts).Merge {
		return []firestore.SetOption{firestore.MergeAll}
	}
	return nil
}

func direction(d docstore.Direction) firestore.Direction {
	if d == docstore.Desc {
		return firestore.Desc
	}
	return firestore.Asc
}
