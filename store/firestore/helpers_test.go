package firestore

import (
	"context"
	"testing"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore/memory"
	"github.com/cassina/langgraphgo-checkpoint-firestore/log"
	"github.com/cassina/langgraphgo-checkpoint-firestore/store"
	"github.com/stretchr/testify/require"
)

// faultyClient counts round trips and fails them on demand.
type faultyClient struct {
	docstore.Client

	queryErr  error
	setErr    error
	commitErr error
	// commitErr applies once this many commits have succeeded.
	commitsBeforeFail int

	queries int
	sets    int
	batches int
	commits int
}

func (c *faultyClient) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	c.queries++
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.Client.Query(ctx, q)
}

func (c *faultyClient) Set(ctx context.Context, collection, id string, data map[string]any, opts ...docstore.SetOption) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	return c.Client.Set(ctx, collection, id, data, opts...)
}

func (c *faultyClient) Batch() docstore.Batch {
	c.batches++
	return &faultyBatch{Batch: c.Client.Batch(), client: c}
}

type faultyBatch struct {
	docstore.Batch
	client *faultyClient
}

func (b *faultyBatch) Commit(ctx context.Context) error {
	c := b.client
	if c.commitErr != nil && c.commits >= c.commitsBeforeFail {
		c.commits++
		return c.commitErr
	}
	c.commits++
	return b.Batch.Commit(ctx)
}

func (c *faultyClient) reset() {
	c.queryErr, c.setErr, c.commitErr = nil, nil, nil
	c.queries, c.sets, c.batches, c.commits = 0, 0, 0, 0
}

func newTestSaver(t *testing.T, opts ...Option) (*FirestoreSaver, *faultyClient, *memory.Client) {
	t.Helper()
	mem := memory.NewClient()
	client := &faultyClient{Client: mem}
	opts = append([]Option{WithLogger(&log.NoOpLogger{})}, opts...)
	return NewFirestoreSaver(client, opts...), client, mem
}

func testCheckpoint(id string) *store.Checkpoint {
	return &store.Checkpoint{
		V:               1,
		ID:              id,
		TS:              "2024-05-01T10:00:00Z",
		ChannelValues:   map[string]any{"messages": []any{"hi"}, "count": "1"},
		ChannelVersions: map[string]any{"messages": "00001.0"},
		VersionsSeen:    map[string]map[string]any{"agent": {"messages": "00001.0"}},
	}
}

func mustPut(t *testing.T, s *FirestoreSaver, cfg store.Config, id string, metadata store.CheckpointMetadata) store.Config {
	t.Helper()
	next, err := s.Put(context.Background(), cfg, testCheckpoint(id), metadata)
	require.NoError(t, err)
	return next
}

func collect(t *testing.T, s *FirestoreSaver, cfg store.Config, opts *store.ListOptions) []*store.CheckpointTuple {
	t.Helper()
	var out []*store.CheckpointTuple
	for tuple, err := range s.List(context.Background(), cfg, opts) {
		require.NoError(t, err)
		out = append(out, tuple)
	}
	return out
}

func checkpointIDs(tuples []*store.CheckpointTuple) []string {
	ids := make([]string, len(tuples))
	for i, tuple := range tuples {
		ids[i] = tuple.Config.CheckpointID
	}
	return ids
}

// taggingSerializer tags metadata differently from checkpoints.
type taggingSerializer struct {
	store.Serializer
	dumps int
}

func (s *taggingSerializer) DumpsTyped(v any) (string, []byte, error) {
	s.dumps++
	tag, data, err := s.Serializer.DumpsTyped(v)
	if _, ok := v.(store.CheckpointMetadata); ok {
		tag = "metadata-json"
	}
	return tag, data, err
}
