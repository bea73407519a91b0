package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore/docstoretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewClient(RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisClient_Contract(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Client {
		c, _ := newTestClient(t)
		return c
	})
}

func TestRedisClient_KeyLayout(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "checkpoints", "t1|ns|cp-1", map[string]any{"thread_id": "t1"}))

	assert.True(t, mr.Exists("langgraph:doc:checkpoints:t1|ns|cp-1"))
	members, err := mr.Members("langgraph:collection:checkpoints")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1|ns|cp-1"}, members)

	b := c.Batch()
	b.Delete("checkpoints", "t1|ns|cp-1")
	require.NoError(t, b.Commit(ctx))

	assert.False(t, mr.Exists("langgraph:doc:checkpoints:t1|ns|cp-1"))
	isMember, _ := mr.IsMember("langgraph:collection:checkpoints", "t1|ns|cp-1")
	assert.False(t, isMember)
}

func TestRedisClient_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewClient(RedisOptions{Addr: mr.Addr(), Prefix: "app:"})
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), "things", "a", map[string]any{"v": 1}))
	assert.True(t, mr.Exists("app:doc:things:a"))
}

func TestRedisClient_SkipsStaleIndexEntries(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "things", "a", map[string]any{"v": "1"}))
	_, err := mr.SAdd("langgraph:collection:things", "ghost")
	require.NoError(t, err)

	docs, err := c.Query(ctx, docstore.NewQuery("things"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
}

func TestRedisClient_MergeWithinOneBatch(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	b := c.Batch()
	b.Set("things", "a", map[string]any{"x": "1"})
	b.Set("things", "a", map[string]any{"y": "2"}, docstore.MergeAll)
	require.NoError(t, b.Commit(ctx))

	doc, err := c.Get(ctx, "things", "a")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "1", "y": "2"}, doc.Data)
}

func TestRedisClient_ConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewClient(RedisOptions{Addr: mr.Addr()})
	defer c.Close()
	mr.Close()

	ctx := context.Background()
	_, err := c.Get(ctx, "things", "a")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, docstore.ErrNotFound)

	_, err = c.Query(ctx, docstore.NewQuery("things"))
	assert.Error(t, err)

	assert.Error(t, c.Set(ctx, "things", "a", map[string]any{}))
}
