package firestore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPut_RoundTrip(t *testing.T) {
	s, _, _ := newTestSaver(t)
	ctx := context.Background()

	cfg := store.Config{ThreadID: "t1", CheckpointNS: "ns"}
	next, err := s.Put(ctx, cfg, testCheckpoint("cp-1"), store.CheckpointMetadata{"source": "input", "step": -1})
	require.NoError(t, err)
	assert.Equal(t, store.Config{ThreadID: "t1", CheckpointNS: "ns", CheckpointID: "cp-1"}, next)

	tuple, err := s.GetTuple(ctx, next)
	require.NoError(t, err)
	require.NotNil(t, tuple)
	assert.Equal(t, next, tuple.Config)
	assert.Equal(t, testCheckpoint("cp-1"), tuple.Checkpoint)
	assert.Equal(t, store.CheckpointMetadata{"source": "input", "step": int64(-1)}, tuple.Metadata)
	assert.Nil(t, tuple.ParentConfig)
	assert.Empty(t, tuple.PendingWrites)

	cp, err := s.Get(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "cp-1", cp.ID)
}

func TestPut_StoredLayout(t *testing.T) {
	s, _, mem := newTestSaver(t)
	ctx := context.Background()

	mustPut(t, s, store.Config{ThreadID: "t1", CheckpointID: "cp-0"}, "cp-1", store.CheckpointMetadata{
		"source":  "loop",
		"step":    3,
		"writes":  map[string]any{"agent": "x"},
		"odd-key": "skipped",
	})

	doc, err := mem.Get(ctx, DefaultCheckpointsCollection, "t1||cp-1")
	require.NoError(t, err)
	assert.Equal(t, "t1", doc.Data[fieldThreadID])
	assert.Equal(t, "", doc.Data[fieldCheckpointNS])
	assert.Equal(t, "cp-1", doc.Data[fieldCheckpointID])
	assert.Equal(t, "cp-0", doc.Data[fieldParentCheckpointID])
	assert.Equal(t, store.JSONTypeTag, doc.Data[fieldType])
	assert.IsType(t, "", doc.Data[fieldCheckpoint])
	assert.IsType(t, "", doc.Data[fieldMetadata])
	assert.Equal(t, map[string]any{"source": "loop", "step": int64(3)}, doc.Data[fieldMetadataFields])
}

func TestPut_RootHasNullParent(t *testing.T) {
	s, _, mem := newTestSaver(t)

	mustPut(t, s, store.Config{ThreadID: "t1"}, "cp-1", nil)

	doc, err := mem.Get(context.Background(), DefaultCheckpointsCollection, checkpointDocID("t1", "", "cp-1"))
	require.NoError(t, err)
	v, ok := doc.Data[fieldParentCheckpointID]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestPut_MergeKeepsUnrelatedFields(t *testing.T) {
	s, _, mem := newTestSaver(t)
	ctx := context.Background()
	cfg := store.Config{ThreadID: "t1"}
	id := checkpointDocID("t1", "", "cp-1")

	mustPut(t, s, cfg, "cp-1", store.CheckpointMetadata{"step": 1})
	require.NoError(t, mem.Set(ctx, DefaultCheckpointsCollection, id, map[string]any{"annotation": "keep"}, docstore.MergeAll))
	mustPut(t, s, cfg, "cp-1", store.CheckpointMetadata{"step": 2})

	doc, err := mem.Get(ctx, DefaultCheckpointsCollection, id)
	require.NoError(t, err)
	assert.Equal(t, "keep", doc.Data["annotation"])

	tuple, err := s.GetTuple(ctx, store.Config{ThreadID: "t1", CheckpointID: "cp-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), tuple.Metadata["step"])
	assert.Equal(t, 1, mem.Count(DefaultCheckpointsCollection))
}

func TestPut_MissingThreadFailsBeforeSerializing(t *testing.T) {
	serde := &taggingSerializer{Serializer: store.NewJSONSerializer(nil)}
	s, client, _ := newTestSaver(t, WithSerializer(serde))

	_, err := s.Put(context.Background(), store.Config{}, testCheckpoint("cp-1"), nil)
	assert.ErrorIs(t, err, store.ErrMissingThreadID)
	assert.ErrorContains(t, err, "put")
	assert.Zero(t, serde.dumps)
	assert.Zero(t, client.sets)
}

func TestPut_MissingCheckpointID(t *testing.T) {
	s, client, _ := newTestSaver(t)

	_, err := s.Put(context.Background(), store.Config{ThreadID: "t1"}, &store.Checkpoint{}, nil)
	assert.ErrorIs(t, err, store.ErrMissingConfig)

	_, err = s.Put(context.Background(), store.Config{ThreadID: "t1"}, nil, nil)
	assert.ErrorIs(t, err, store.ErrMissingConfig)
	assert.Zero(t, client.sets)
}

func TestPut_SerializationMismatchWritesNothing(t *testing.T) {
	serde := &taggingSerializer{Serializer: store.NewJSONSerializer(nil)}
	s, client, mem := newTestSaver(t, WithSerializer(serde))

	_, err := s.Put(context.Background(), store.Config{ThreadID: "t1"}, testCheckpoint("cp-1"), store.CheckpointMetadata{})
	assert.ErrorIs(t, err, store.ErrSerializationMismatch)
	assert.Zero(t, client.sets)
	assert.Zero(t, mem.Count(DefaultCheckpointsCollection))
}

func TestPut_StoreFailure(t *testing.T) {
	s, client, _ := newTestSaver(t)
	cause := errors.New("connection reset")
	client.setErr = cause

	_, err := s.Put(context.Background(), store.Config{ThreadID: "t1"}, testCheckpoint("cp-1"), nil)
	assert.ErrorIs(t, err, store.ErrStoreWriteFailed)
	assert.ErrorIs(t, err, cause)
}

func TestPut_Lineage(t *testing.T) {
	s, _, _ := newTestSaver(t)
	ctx := context.Background()

	c1 := mustPut(t, s, store.Config{ThreadID: "T"}, "c1", nil)
	c2 := mustPut(t, s, c1, "c2", nil)

	latest, err := s.GetTuple(ctx, store.Config{ThreadID: "T"})
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, c2, latest.Config)
	assert.Equal(t, &store.Config{ThreadID: "T", CheckpointID: "c1"}, latest.ParentConfig)

	first, err := s.GetTuple(ctx, store.Config{ThreadID: "T", CheckpointID: "c1"})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "c1", first.Checkpoint.ID)
	assert.Nil(t, first.ParentConfig)
}

func TestList_PaginationEquivalence(t *testing.T) {
	s, _, _ := newTestSaver(t, WithPageSize(4))
	cfg := store.Config{ThreadID: "t1"}
	for i := 1; i <= 25; i++ {
		mustPut(t, s, cfg, fmt.Sprintf("cp-%03d", i), store.CheckpointMetadata{"step": i})
	}

	all := checkpointIDs(collect(t, s, cfg, nil))
	require.Len(t, all, 25)
	assert.True(t, slices.IsSortedFunc(all, func(a, b string) int { return strings.Compare(b, a) }))
	assert.Equal(t, "cp-025", all[0])

	for limit := 1; limit <= 30; limit++ {
		got := checkpointIDs(collect(t, s, cfg, &store.ListOptions{Limit: limit}))
		assert.Equal(t, all[:min(limit, len(all))], got, "limit %d", limit)
	}
}

func TestList_FetchesOnlyNeededPages(t *testing.T) {
	s, client, _ := newTestSaver(t, WithPageSize(2))
	cfg := store.Config{ThreadID: "t1"}
	for i := 1; i <= 10; i++ {
		mustPut(t, s, cfg, fmt.Sprintf("cp-%02d", i), nil)
	}

	client.reset()
	assert.Len(t, collect(t, s, cfg, &store.ListOptions{Limit: 4}), 4)
	assert.Equal(t, 2, client.queries, "the limit is reached on a full page")

	client.reset()
	for range s.List(context.Background(), cfg, nil) {
		break
	}
	assert.Equal(t, 1, client.queries, "breaking stops fetching")

	client.reset()
	assert.Len(t, collect(t, s, cfg, nil), 10)
	assert.Equal(t, 6, client.queries, "five full pages and a final empty one")
}

func TestList_NamespaceIsolation(t *testing.T) {
	s, _, _ := newTestSaver(t)

	mustPut(t, s, store.Config{ThreadID: "T", CheckpointNS: "ns1"}, "x", nil)
	mustPut(t, s, store.Config{ThreadID: "T", CheckpointNS: "ns2"}, "x", nil)
	mustPut(t, s, store.Config{ThreadID: "U", CheckpointNS: "ns1"}, "x", nil)

	got := collect(t, s, store.Config{ThreadID: "T", CheckpointNS: "ns1"}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, store.Config{ThreadID: "T", CheckpointNS: "ns1", CheckpointID: "x"}, got[0].Config)

	assert.Len(t, collect(t, s, store.Config{ThreadID: "T"}, nil), 2, "no namespace lists every namespace")
	assert.Len(t, collect(t, s, store.Config{}, nil), 3, "no thread lists every thread")
}

func TestList_Before(t *testing.T) {
	s, _, _ := newTestSaver(t)
	cfg := store.Config{ThreadID: "t1"}
	for i := 1; i <= 5; i++ {
		mustPut(t, s, cfg, fmt.Sprintf("cp-%d", i), nil)
	}

	got := collect(t, s, cfg, &store.ListOptions{Before: &store.Config{CheckpointID: "cp-3"}})
	assert.Equal(t, []string{"cp-2", "cp-1"}, checkpointIDs(got))

	got = collect(t, s, cfg, &store.ListOptions{Before: &store.Config{}})
	assert.Len(t, got, 5, "a before config without checkpoint id is ignored")
}

func TestList_MetadataFilter(t *testing.T) {
	s, _, _ := newTestSaver(t, WithPageSize(1))
	cfg := store.Config{ThreadID: "t1"}

	mustPut(t, s, cfg, "cp-1", store.CheckpointMetadata{"source": "loop", "step": 1})
	mustPut(t, s, cfg, "cp-2", store.CheckpointMetadata{"source": "input", "step": 2})
	mustPut(t, s, cfg, "cp-3", store.CheckpointMetadata{"source": "loop", "step": 3, "tags": []any{"a"}, "my-key": "v"})

	got := collect(t, s, cfg, &store.ListOptions{Filter: map[string]any{"source": "loop"}})
	assert.Equal(t, []string{"cp-3", "cp-1"}, checkpointIDs(got))

	got = collect(t, s, cfg, &store.ListOptions{Filter: map[string]any{"source": "loop", "step": 1}})
	assert.Equal(t, []string{"cp-1"}, checkpointIDs(got))

	got = collect(t, s, cfg, &store.ListOptions{Filter: map[string]any{"tags": []any{"a"}}})
	assert.Equal(t, []string{"cp-3"}, checkpointIDs(got))

	got = collect(t, s, cfg, &store.ListOptions{Filter: map[string]any{"my-key": "v"}, Limit: 1})
	assert.Equal(t, []string{"cp-3"}, checkpointIDs(got))

	got = collect(t, s, cfg, &store.ListOptions{Filter: map[string]any{"source": "none"}})
	assert.Empty(t, got)
}

func TestList_FilterUsesCurrentMetadata(t *testing.T) {
	s, _, _ := newTestSaver(t)
	cfg := store.Config{ThreadID: "t1"}

	mustPut(t, s, cfg, "cp-1", store.CheckpointMetadata{"source": "loop"})
	// The merge keeps the old metadata_fields entry, the decoded metadata wins.
	mustPut(t, s, cfg, "cp-1", store.CheckpointMetadata{"step": 1})

	got := collect(t, s, cfg, &store.ListOptions{Filter: map[string]any{"source": "loop"}})
	assert.Empty(t, got)
}

func TestList_QueryFailure(t *testing.T) {
	s, client, _ := newTestSaver(t)
	cause := errors.New("unavailable")
	client.queryErr = cause

	var errs []error
	for tuple, err := range s.List(context.Background(), store.Config{ThreadID: "t1"}, nil) {
		assert.Nil(t, tuple)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], store.ErrStoreReadFailed)
	assert.ErrorIs(t, errs[0], cause)
	assert.ErrorContains(t, errs[0], "list")
}

func TestList_CorruptedCheckpoint(t *testing.T) {
	s, _, mem := newTestSaver(t)
	ctx := context.Background()
	cfg := store.Config{ThreadID: "t1"}

	mustPut(t, s, cfg, "cp-1", nil)
	mustPut(t, s, cfg, "cp-2", nil)
	require.NoError(t, mem.Set(ctx, DefaultCheckpointsCollection, checkpointDocID("t1", "", "cp-1"),
		map[string]any{fieldCheckpoint: "%%% not base64"}, docstore.MergeAll))

	var ids []string
	var lastErr error
	for tuple, err := range s.List(ctx, cfg, nil) {
		if err != nil {
			lastErr = err
			continue
		}
		ids = append(ids, tuple.Config.CheckpointID)
	}
	assert.Equal(t, []string{"cp-2"}, ids)
	assert.ErrorIs(t, lastErr, store.ErrDeserializationFailed)
}

func TestCustomCollections(t *testing.T) {
	s, _, mem := newTestSaver(t, WithCollections("cps", "cp_writes"))
	cfg := mustPut(t, s, store.Config{ThreadID: "t1"}, "cp-1", nil)
	require.NoError(t, s.PutWrites(context.Background(), cfg, []store.Write{{Channel: "c", Value: "v"}}, "task"))

	assert.Equal(t, 1, mem.Count("cps"))
	assert.Equal(t, 1, mem.Count("cp_writes"))
	assert.Zero(t, mem.Count(DefaultCheckpointsCollection))
}

func TestWithDeleteBatchSizeIsClamped(t *testing.T) {
	s, _, _ := newTestSaver(t, WithDeleteBatchSize(10_000))
	assert.Equal(t, docstore.MaxBatchWrites, s.deleteBatchSize)

	s, _, _ = newTestSaver(t, WithDeleteBatchSize(0))
	assert.Equal(t, DeleteBatchSize, s.deleteBatchSize)
}
