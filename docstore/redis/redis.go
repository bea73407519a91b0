package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic transaction retries when watched keys change.
const maxTxRetries = 16

// mgetChunk is the number of keys fetched per MGET while scanning a collection.
const mgetChunk = 500

// Client implements docstore.Client on Redis. Each document is a JSON string
// and each collection keeps a set of its document ids. Queries scan the
// collection set and are evaluated client side.
type Client struct {
	client redis.UniversalClient
	prefix string
}

var _ docstore.Client = (*Client)(nil)

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Key prefix, default "langgraph:"
}

// NewClient creates a new Redis document store
func NewClient(opts RedisOptions) *Client {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewClientFromRedis(client, opts.Prefix)
}

// NewClientFromRedis wraps an existing go-redis client. Multi-key
// transactions require all keys to live on one node.
func NewClientFromRedis(client redis.UniversalClient, prefix string) *Client {
	if prefix == "" {
		prefix = "langgraph:"
	}
	return &Client{client: client, prefix: prefix}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) docKey(collection, id string) string {
	return fmt.Sprintf("%sdoc:%s:%s", c.prefix, collection, id)
}

func (c *Client) indexKey(collection string) string {
	return fmt.Sprintf("%scollection:%s", c.prefix, collection)
}

// Get returns one document.
func (c *Client) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	raw, err := c.client.Get(ctx, c.docKey(collection, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load document from redis: %w", err)
	}

	data, err := docstore.DecodeJSON(raw)
	if err != nil {
		return nil, err
	}
	return &docstore.Document{ID: id, Data: data}, nil
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

// Query loads the whole collection and evaluates q over it.
func (c *Client) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	ids, err := c.client.SMembers(ctx, c.indexKey(q.Collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", q.Collection, err)
	}

	docs := make([]docstore.Document, 0, len(ids))
	for start := 0; start < len(ids); start += mgetChunk {
		end := min(start+mgetChunk, len(ids))
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, c.docKey(q.Collection, id))
		}

		values, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch documents: %w", err)
		}
		for i, v := range values {
			// MGet returns nil for ids whose document was removed after SMEMBERS.
			s, ok := v.(string)
			if !ok {
				continue
			}
			data, err := docstore.DecodeJSON([]byte(s))
			if err != nil {
				return nil, err
			}
			docs = append(docs, docstore.Document{ID: ids[start+i], Data: data})
		}
	}

	return docstore.Evaluate(q, docs), nil
}

// Batch starts a batch committed in one MULTI/EXEC transaction.
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

type redisOp struct {
	key     string
	index   string
	id      string
	payload []byte
	delete  bool
}

// commit applies writes atomically. Merge targets are watched so a concurrent
// change between the read and EXEC retries the whole transaction.
func (c *Client) commit(ctx context.Context, writes []docstore.Write) error {
	var watched []string
	seen := make(map[string]bool)
	for _, w := range writes {
		key := c.docKey(w.Collection, w.ID)
		if w.Merge && !seen[key] {
			seen[key] = true
			watched = append(watched, key)
		}
	}

	txf := func(tx *redis.Tx) error {
		current := make(map[string]map[string]any, len(watched))
		if len(watched) > 0 {
			values, err := tx.MGet(ctx, watched...).Result()
			if err != nil {
				return err
			}
			for i, v := range values {
				s, ok := v.(string)
				if !ok {
					continue
				}
				data, err := docstore.DecodeJSON([]byte(s))
				if err != nil {
					return err
				}
				current[watched[i]] = data
			}
		}

		ops := make([]redisOp, 0, len(writes))
		for _, w := range writes {
			op := redisOp{
				key:   c.docKey(w.Collection, w.ID),
				index: c.indexKey(w.Collection),
				id:    w.ID,
			}
			if w.Delete {
				op.delete = true
				delete(current, op.key)
				ops = append(ops, op)
				continue
			}

			data := docstore.NormalizeData(w.Data)
			if base, ok := current[op.key]; ok && w.Merge {
				data = docstore.MergeData(base, data)
			}
			current[op.key] = data

			payload, err := docstore.EncodeJSON(data)
			if err != nil {
				return err
			}
			op.payload = payload
			ops = append(ops, op)
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, op := range ops {
				if op.delete {
					pipe.Del(ctx, op.key)
					pipe.SRem(ctx, op.index, op.id)
					continue
				}
				pipe.Set(ctx, op.key, op.payload, 0)
				pipe.SAdd(ctx, op.index, op.id)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := c.client.Watch(ctx, txf, watched...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to commit to redis: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to commit to redis after %d attempts: %w", maxTxRetries, redis.TxFailedErr)
}
