package config

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	fsdocstore "github.com/cassina/langgraphgo-checkpoint-firestore/docstore/firestore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore/memory"
	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore/postgres"
	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore/redis"
	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore/sqlite"
	"github.com/cassina/langgraphgo-checkpoint-firestore/log"
	"github.com/cassina/langgraphgo-checkpoint-firestore/store/firestore"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open connects to the configured backend and returns a saver on it. The
// returned closer releases the backend connection. opts are applied after the
// options derived from cfg.
func Open(ctx context.Context, cfg Config, opts ...firestore.Option) (*firestore.FirestoreSaver, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	client, closer, err := openClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	saverOpts := []firestore.Option{
		firestore.WithLogger(log.NewGologLoggerWithLevel(os.Stderr, level)),
		firestore.WithCollections(cfg.Collections.Checkpoints, cfg.Collections.Writes),
		firestore.WithPageSize(cfg.ListPageSize),
		firestore.WithDeleteBatchSize(cfg.DeleteBatchSize),
	}
	saverOpts = append(saverOpts, opts...)

	return firestore.NewFirestoreSaver(client, saverOpts...), closer, nil
}

func openClient(ctx context.Context, cfg Config) (docstore.Client, io.Closer, error) {
	switch cfg.Backend {
	case BackendMemory:
		c := memory.NewClient()
		return c, c, nil

	case BackendFirestore:
		c, err := fsdocstore.NewClient(ctx, fsdocstore.FirestoreOptions{
			ProjectID:       cfg.Firestore.ProjectID,
			DatabaseID:      cfg.Firestore.DatabaseID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil

	case BackendRedis:
		c := redis.NewClient(redis.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		return c, c, nil

	case BackendPostgres:
		c, err := postgres.NewClient(ctx, postgres.PostgresOptions{
			ConnString: cfg.Postgres.ConnString,
			TableName:  cfg.Postgres.TableName,
		})
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.InitSchema {
			if err := c.InitSchema(ctx); err != nil {
				c.Close()
				return nil, nil, err
			}
		}
		return c, closerFunc(func() error { c.Close(); return nil }), nil

	case BackendSqlite:
		c, err := sqlite.NewClient(sqlite.SqliteOptions{
			Path:      cfg.Sqlite.Path,
			TableName: cfg.Sqlite.TableName,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
