package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client implements docstore.Client on a single PostgreSQL table holding one
// JSONB document per row. String equality filters are pushed into SQL; the
// full query is then evaluated over the narrowed rows.
type Client struct {
	pool      DBPool
	tableName string
}

var _ docstore.Client = (*Client)(nil)

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "documents"
}

// NewClient creates a new Postgres document store
func NewClient(ctx context.Context, opts PostgresOptions) (*Client, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewClientWithPool(pool, opts.TableName), nil
}

// NewClientWithPool creates a new Postgres document store with an existing pool
// Useful for testing with mocks
func NewClientWithPool(pool DBPool, tableName string) *Client {
	if tableName == "" {
		tableName = "documents"
	}
	return &Client{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (c *Client) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data JSONB NOT NULL,
			PRIMARY KEY (collection, id)
		);
	`, c.tableName)

	_, err := c.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (c *Client) Close() {
	c.pool.Close()
}

// Get returns one document.
func (c *Client) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	data, err := c.load(ctx, c.pool, collection, id, false)
	if err != nil {
		return nil, err
	}
	return &docstore.Document{ID: id, Data: data}, nil
}

func (c *Client) load(ctx context.Context, q querier, collection, id string, forUpdate bool) (map[string]any, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE collection = $1 AND id = $2", c.tableName)
	if forUpdate {
		query += " FOR UPDATE"
	}

	var raw []byte
	err := q.QueryRow(ctx, query, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return docstore.DecodeJSON(raw)
}

// Set writes one document.
func (c *Client) Set(ctx context.Context, collection, id string, data map[string]any, opts ...docstore.SetOption) error {
	return c.commit(ctx, []docstore.Write{{
		Collection: collection,
		ID:         id,
		Data:       data,
		Merge:      docstore.ApplySetOptions(opts).Merge,
	}})
}

// Query selects the collection rows that pass the pushed down filters and
// evaluates q over them.
func (c *Client) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT id, data FROM %s WHERE collection = $1", c.tableName)
	args := []any{q.Collection}
	for _, f := range q.Filters {
		s, ok := f.Value.(string)
		if f.Op != docstore.Equal || !ok {
			continue
		}
		args = append(args, strings.Split(f.Path, "."), s)
		fmt.Fprintf(&sb, " AND data #>> $%d = $%d", len(args)-1, len(args))
	}

	rows, err := c.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		data, err := docstore.DecodeJSON(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docstore.Evaluate(q, docs), nil
}

// Batch starts a batch committed in one SQL transaction.
func (c *Client) Batch() docstore.Batch {
	return &batch{client: c}
}

type batch struct {
	docstore.WriteSet
	client *Client
}

func (b *batch) Commit(ctx context.Context) error {
	if err := b.CheckSize(); err != nil {
		return err
	}
	if b.Len() == 0 {
		return nil
	}
	return b.client.commit(ctx, b.Writes())
}

func (c *Client) commit(ctx context.Context, writes []docstore.Write) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, w := range writes {
		if err := c.apply(ctx, tx, w); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *Client) apply(ctx context.Context, tx pgx.Tx, w docstore.Write) error {
	if w.Delete {
		query := fmt.Sprintf("DELETE FROM %s WHERE collection = $1 AND id = $2", c.tableName)
		if _, err := tx.Exec(ctx, query, w.Collection, w.ID); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		return nil
	}

	data := docstore.NormalizeData(w.Data)
	if w.Merge {
		current, err := c.load(ctx, tx, w.Collection, w.ID, true)
		switch {
		case err == nil:
			data = docstore.MergeData(current, data)
		case !errors.Is(err, docstore.ErrNotFound):
			return err
		}
	}

	payload, err := docstore.EncodeJSON(data)
	if err != nil {
		return err
	}

	// FOR UPDATE locks nothing while the row is missing, so a concurrent first
	// merge may insert it first. Merges then keep that writer's top-level fields.
	update := "EXCLUDED.data"
	if w.Merge {
		update = c.tableName + ".data || EXCLUDED.data"
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = %s
	`, c.tableName, update)
	if _, err := tx.Exec(ctx, query, w.Collection, w.ID, string(payload)); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}
