// Package docstoretest holds the behavior every docstore.Client backend must share.
package docstoretest

import (
	"context"
	"fmt"
	"testing"

	"github.com/cassina/langgraphgo-checkpoint-firestore/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewClientFunc returns an empty client for one subtest.
type NewClientFunc func(t *testing.T) docstore.Client

// Run exercises a backend against the docstore.Client contract.
func Run(t *testing.T, newClient NewClientFunc) {
	t.Run("get missing", func(t *testing.T) { testGetMissing(t, newClient(t)) })
	t.Run("set and get", func(t *testing.T) { testSetGet(t, newClient(t)) })
	t.Run("merge", func(t *testing.T) { testMerge(t, newClient(t)) })
	t.Run("query filters", func(t *testing.T) { testQueryFilters(t, newClient(t)) })
	t.Run("query order and cursor", func(t *testing.T) { testQueryCursor(t, newClient(t)) })
	t.Run("keys only", func(t *testing.T) { testKeysOnly(t, newClient(t)) })
	t.Run("batch", func(t *testing.T) { testBatch(t, newClient(t)) })
	t.Run("batch too large", func(t *testing.T) { testBatchTooLarge(t, newClient(t)) })
}

func testGetMissing(t *testing.T, c docstore.Client) {
	_, err := c.Get(context.Background(), "things", "nope")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func testSetGet(t *testing.T, c docstore.Client) {
	ctx := context.Background()

	err := c.Set(ctx, "things", "a", map[string]any{
		"name":   "alpha",
		"n":      3,
		"ratio":  0.5,
		"ok":     true,
		"nested": map[string]any{"k": "v"},
		"none":   nil,
	})
	require.NoError(t, err)

	doc, err := c.Get(ctx, "things", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", doc.ID)
	assert.Equal(t, "alpha", doc.Data["name"])
	assert.Equal(t, int64(3), doc.Data["n"])
	assert.Equal(t, 0.5, doc.Data["ratio"])
	assert.Equal(t, true, doc.Data["ok"])
	assert.Equal(t, map[string]any{"k": "v"}, doc.Data["nested"])
	assert.Nil(t, doc.Data["none"])

	_, err = c.Get(ctx, "other", "a")
	assert.ErrorIs(t, err, docstore.ErrNotFound, "collections are isolated")
}

func testMerge(t *testing.T, c docstore.Client) {
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "things", "m", map[string]any{
		"a":      "1",
		"b":      "2",
		"nested": map[string]any{"x": "1"},
	}))
	require.NoError(t, c.Set(ctx, "things", "m", map[string]any{
		"b":      "3",
		"c":      "4",
		"nested": map[string]any{"y": "2"},
	}, docstore.MergeAll))

	doc, err := c.Get(ctx, "things", "m")
	require.NoError(t, err)
	assert.Equal(t, "1", doc.Data["a"], "unset field survives a merge")
	assert.Equal(t, "3", doc.Data["b"])
	assert.Equal(t, "4", doc.Data["c"])
	assert.Equal(t, map[string]any{"x": "1", "y": "2"}, doc.Data["nested"])

	require.NoError(t, c.Set(ctx, "things", "m", map[string]any{"only": "this"}))
	doc, err = c.Get(ctx, "things", "m")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"only": "this"}, doc.Data, "plain set replaces")
}

func seed(t *testing.T, c docstore.Client) {
	t.Helper()
	ctx := context.Background()
	rows := []struct {
		id, group, seq string
		step           int
	}{
		{"d1", "g1", "001", 1},
		{"d2", "g1", "002", 2},
		{"d3", "g2", "003", 1},
		{"d4", "g1", "004", 3},
		{"d5", "g1", "005", 2},
	}
	for _, r := range rows {
		require.NoError(t, c.Set(ctx, "items", r.id, map[string]any{
			"group": r.group,
			"seq":   r.seq,
			"meta":  map[string]any{"step": r.step},
		}))
	}
	require.NoError(t, c.Set(ctx, "items", "d6", map[string]any{"group": "g1"}))
}

func ids(docs []docstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func testQueryFilters(t *testing.T, c docstore.Client) {
	ctx := context.Background()
	seed(t, c)

	docs, err := c.Query(ctx, docstore.NewQuery("items").Where("group", docstore.Equal, "g1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d4", "d5", "d6"}, ids(docs), "unordered results come in id order")

	docs, err = c.Query(ctx, docstore.NewQuery("items").Where("meta.step", docstore.Equal, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"d2", "d5"}, ids(docs))

	docs, err = c.Query(ctx, docstore.NewQuery("items").
		Where("group", docstore.Equal, "g1").
		Where("seq", docstore.LessThan, "004").
		OrderBy("seq", docstore.Desc))
	require.NoError(t, err)
	assert.Equal(t, []string{"d2", "d1"}, ids(docs))

	docs, err = c.Query(ctx, docstore.NewQuery("items").Where("group", docstore.Equal, "g3"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testQueryCursor(t *testing.T, c docstore.Client) {
	ctx := context.Background()
	seed(t, c)

	base := docstore.NewQuery("items").
		Where("group", docstore.Equal, "g1").
		OrderBy("seq", docstore.Desc)

	all, err := c.Query(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"d5", "d4", "d2", "d1"}, ids(all), "documents without the order field are skipped")

	var paged []string
	q := base.Limit(3)
	for page := 0; page < 5; page++ {
		docs, err := c.Query(ctx, q)
		require.NoError(t, err)
		paged = append(paged, ids(docs)...)
		if len(docs) < 3 {
			break
		}
		q = base.Limit(3).StartAfter(docs[len(docs)-1])
	}
	assert.Equal(t, ids(all), paged)
}

func testKeysOnly(t *testing.T, c docstore.Client) {
	ctx := context.Background()
	seed(t, c)

	q := docstore.NewQuery("items").Where("group", docstore.Equal, "g1").KeysOnly().Limit(2)
	docs, err := c.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids(docs))

	docs, err = c.Query(ctx, q.StartAfter(docs[1]))
	require.NoError(t, err)
	assert.Equal(t, []string{"d4", "d5"}, ids(docs))
}

func testBatch(t *testing.T, c docstore.Client) {
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "things", "old", map[string]any{"v": "1"}))
	require.NoError(t, c.Set(ctx, "things", "keep", map[string]any{"v": "1", "w": "1"}))

	b := c.Batch()
	b.Set("things", "new", map[string]any{"v": "2"})
	b.Set("things", "keep", map[string]any{"v": "2"}, docstore.MergeAll)
	b.Delete("things", "old")
	b.Delete("things", "never-existed")
	assert.Equal(t, 4, b.Len())
	require.NoError(t, b.Commit(ctx))

	_, err := c.Get(ctx, "things", "old")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	doc, err := c.Get(ctx, "things", "new")
	require.NoError(t, err)
	assert.Equal(t, "2", doc.Data["v"])

	doc, err = c.Get(ctx, "things", "keep")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": "2", "w": "1"}, doc.Data)
}

func testBatchTooLarge(t *testing.T, c docstore.Client) {
	ctx := context.Background()

	b := c.Batch()
	for i := 0; i <= docstore.MaxBatchWrites; i++ {
		b.Set("bulk", fmt.Sprintf("doc-%04d", i), map[string]any{"i": i})
	}
	assert.ErrorIs(t, b.Commit(ctx), docstore.ErrBatchTooLarge)

	docs, err := c.Query(ctx, docstore.NewQuery("bulk").KeysOnly())
	require.NoError(t, err)
	assert.Empty(t, docs, "a rejected batch writes nothing")
}
