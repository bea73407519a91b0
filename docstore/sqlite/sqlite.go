package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	_ "github.com/mattn/go-sqlite3"
)

// Client implements docstore.Client on SQLite with one JSON text document per
// row.
type Client struct {
	db        *sql.DB
	tableName string
}

var _ docstore.Client = (*Client)(nil)

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "documents"
}

// NewClient opens the database and creates the schema.
func NewClient(opts SqliteOptions) (*Client, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	tableName := opts.TableName
	if tableName == "" {
		tableName = "documents"
	}

	c := &Client{
		db:        db,
		tableName: tableName,
	}

	if err := c.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (c *Client) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns one document.
func (c *Client) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	data, err := c.load(ctx, c.db, collection, id)
	if err != nil {
		return nil, err
	}
	return &docstore.Document{ID: id, Data: data}, nil
}

func (c *Client) load(ctx context.Context, q queryer, collection, id string) (map[string]any, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE collection = ? AND id = ?", c.tableName)

	var raw string
	err := q.QueryRowContext(ctx, query, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return docstore.DecodeJSON([]byte(raw))
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

// jsonPath converts a dotted field path to an SQLite JSON path with quoted
// labels. It reports false for labels that cannot be quoted.
func jsonPath(path string) (string, bool) {
	var sb strings.Builder
	sb.WriteString("$")
	for _, part := range strings.Split(path, ".") {
		if strings.Contains(part, `"`) {
			return "", false
		}
		sb.WriteString(`."`)
		sb.WriteString(part)
		sb.WriteString(`"`)
	}
	return sb.String(), true
}

// Query selects the collection rows that pass the pushed down string
// equality filters and evaluates q over them.
func (c *Client) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT id, data FROM %s WHERE collection = ?", c.tableName)
	args := []any{q.Collection}
	for _, f := range q.Filters {
		s, ok := f.Value.(string)
		if f.Op != docstore.Equal || !ok {
			continue
		}
		path, ok := jsonPath(f.Path)
		if !ok {
			continue
		}
		sb.WriteString(" AND json_extract(data, ?) = ?")
		args = append(args, path, s)
	}

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		data, err := docstore.DecodeJSON([]byte(raw))
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
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, w := range writes {
		if err := c.apply(ctx, tx, w); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *Client) apply(ctx context.Context, tx *sql.Tx, w docstore.Write) error {
	if w.Delete {
		query := fmt.Sprintf("DELETE FROM %s WHERE collection = ? AND id = ?", c.tableName)
		if _, err := tx.ExecContext(ctx, query, w.Collection, w.ID); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		return nil
	}

	data := docstore.NormalizeData(w.Data)
	if w.Merge {
		current, err := c.load(ctx, tx, w.Collection, w.ID)
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

	query := fmt.Sprintf(`
		INSERT INTO %s (collection, id, data)
		VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data
	`, c.tableName)
	if _, err := tx.ExecContext(ctx, query, w.Collection, w.ID, string(payload)); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}
