package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedMap map[string]any

func TestNormalize(t *testing.T) {
	assert.Equal(t, int64(3), Normalize(3))
	assert.Equal(t, int64(3), Normalize(uint8(3)))
	assert.Equal(t, float64(1.5), Normalize(float32(1.5)))
	assert.Equal(t, "x", Normalize("x"))
	assert.Nil(t, Normalize(nil))
	assert.Equal(t,
		map[string]any{"step": int64(1), "list": []any{int64(2), "a"}},
		Normalize(namedMap{"step": 1, "list": []any{2, "a"}}),
	)
	assert.Equal(t, []any{int64(1), int64(2)}, Normalize([]int{1, 2}))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, Compare(int64(1), 1.0))
	assert.Equal(t, -1, Compare(int64(1), 1.5))
	assert.Equal(t, 1, Compare("b", "a"))
	assert.Equal(t, -1, Compare(nil, false))
	assert.Equal(t, -1, Compare(false, true))
	assert.Equal(t, -1, Compare(int64(99), "1"), "numbers sort before strings")
	assert.Equal(t, -1, Compare([]any{int64(1)}, []any{int64(1), int64(2)}))
	assert.Equal(t, 0, Compare(map[string]any{"a": "x"}, map[string]any{"a": "x"}))
	assert.Equal(t, 1, Compare(map[string]any{"a": "y"}, map[string]any{"a": "x"}))
}

func TestLookup(t *testing.T) {
	data := map[string]any{"a": map[string]any{"b": "c"}, "x": "y"}

	v, ok := Lookup(data, "a.b")
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	_, ok = Lookup(data, "a.z")
	assert.False(t, ok)

	_, ok = Lookup(data, "x.y")
	assert.False(t, ok)

	_, ok = Lookup(nil, "x")
	assert.False(t, ok)
}

func TestMatches(t *testing.T) {
	data := map[string]any{"s": "m", "n": int64(5), "null": nil}

	assert.True(t, Matches(data, []Filter{{Path: "s", Op: Equal, Value: "m"}}))
	assert.True(t, Matches(data, []Filter{{Path: "n", Op: Equal, Value: 5.0}}))
	assert.True(t, Matches(data, []Filter{{Path: "s", Op: LessThan, Value: "n"}}))
	assert.True(t, Matches(data, []Filter{{Path: "n", Op: GreaterOrEqual, Value: int64(5)}}))
	assert.True(t, Matches(data, []Filter{{Path: "s", Op: NotEqual, Value: "x"}}))
	assert.True(t, Matches(data, []Filter{{Path: "null", Op: Equal, Value: nil}}))

	assert.False(t, Matches(data, []Filter{{Path: "missing", Op: Equal, Value: nil}}))
	assert.False(t, Matches(data, []Filter{{Path: "n", Op: LessThan, Value: "z"}}), "range filters need matching types")
	assert.False(t, Matches(data, []Filter{{Path: "null", Op: NotEqual, Value: "x"}}))
	assert.False(t, Matches(data, []Filter{{Path: "s", Op: Equal, Value: "m"}, {Path: "n", Op: LessThan, Value: int64(5)}}))
}

func TestEvaluate(t *testing.T) {
	docs := []Document{
		{ID: "a", Data: map[string]any{"t": "x", "k": "2"}},
		{ID: "b", Data: map[string]any{"t": "x", "k": "1"}},
		{ID: "c", Data: map[string]any{"t": "x", "k": "2"}},
		{ID: "d", Data: map[string]any{"t": "y", "k": "3"}},
		{ID: "e", Data: map[string]any{"t": "x"}},
	}

	q := NewQuery("c").Where("t", Equal, "x").OrderBy("k", Desc)
	out := Evaluate(q, docs)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{out[0].ID, out[1].ID, out[2].ID}, "ties break by id in the last order's direction")

	out = Evaluate(q.StartAfter(out[0]).Limit(1), docs)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)

	out = Evaluate(NewQuery("c").KeysOnly(), docs)
	require.Len(t, out, 5)
	assert.Equal(t, "a", out[0].ID)
	assert.Nil(t, out[0].Data)
	assert.NotNil(t, docs[0].Data, "input is untouched")
}

func TestQueryBuildersCopy(t *testing.T) {
	base := NewQuery("c").Where("a", Equal, 1)
	q1 := base.Where("b", Equal, 2)
	q2 := base.Where("c", Equal, 3)

	assert.Len(t, base.Filters, 1)
	assert.Equal(t, "b", q1.Filters[1].Path)
	assert.Equal(t, "c", q2.Filters[1].Path)
	assert.Equal(t, int64(1), base.Filters[0].Value)
	assert.Equal(t, Asc, base.TieBreak())
	assert.Equal(t, Desc, base.OrderBy("a", Desc).TieBreak())
}

func TestMergeData(t *testing.T) {
	dst := map[string]any{"a": "1", "m": map[string]any{"x": "1"}, "r": map[string]any{"k": "v"}}
	src := map[string]any{"b": "2", "m": map[string]any{"y": "2"}, "r": "scalar"}

	out := MergeData(dst, src)
	assert.Equal(t, map[string]any{
		"a": "1",
		"b": "2",
		"m": map[string]any{"x": "1", "y": "2"},
		"r": "scalar",
	}, out)
	assert.Equal(t, map[string]any{"x": "1"}, dst["m"], "dst is not modified")

	assert.Equal(t, map[string]any{"b": "2"}, MergeData(nil, map[string]any{"b": "2"}))
}

func TestJSONRoundTrip(t *testing.T) {
	b, err := EncodeJSON(map[string]any{"i": 7, "f": 0.25, "s": "x", "m": map[string]any{"n": 1}, "l": []any{1, "a"}})
	require.NoError(t, err)

	data, err := DecodeJSON(b)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"i": int64(7),
		"f": 0.25,
		"s": "x",
		"m": map[string]any{"n": int64(1)},
		"l": []any{int64(1), "a"},
	}, data)

	_, err = DecodeJSON([]byte("{"))
	assert.Error(t, err)

	data, err = DecodeJSON([]byte("null"))
	require.NoError(t, err)
	assert.Empty(t, data)
}
