package docstore

import (
	"bytes"
	"cmp"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"
)

// This file holds the reference query semantics. Backends that cannot push a
// query down to the database (memory, redis) evaluate it here.

// Normalize converts a Go value into the canonical document value space:
// integers become int64, floats become float64, and maps and slices are copied
// into map[string]any and []any.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int64, float64, []byte:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Normalize(val)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// NormalizeData normalizes every value of a document.
func NormalizeData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return Normalize(data).(map[string]any)
}

// Lookup returns the value at a dotted path.
func Lookup(data map[string]any, path string) (any, bool) {
	cur := data
	for {
		head, rest, nested := strings.Cut(path, ".")
		v, ok := cur[head]
		if !ok {
			return nil, false
		}
		if !nested {
			return v, true
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, path = m, rest
	}
}

// rank orders value types the way Firestore does.
func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	case string:
		return 3
	case []byte:
		return 4
	case []any:
		return 5
	case map[string]any:
		return 6
	default:
		return 7
	}
}

// Compare orders two normalized values. Values of different types order by
// type; numbers compare numerically across int64 and float64.
func Compare(a, b any) int {
	if ra, rb := rank(a), rank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
		return cmp.Compare(float64(x), b.(float64))
	case float64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, float64(y))
		}
		return cmp.Compare(x, b.(float64))
	case string:
		return strings.Compare(x, b.(string))
	case []byte:
		return bytes.Compare(x, b.([]byte))
	case []any:
		y := b.([]any)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := Compare(x[i], y[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(x), len(y))
	case map[string]any:
		return compareMaps(x, b.(map[string]any))
	default:
		if reflect.DeepEqual(a, b) {
			return 0
		}
		return -1
	}
}

func compareMaps(a, b map[string]any) int {
	ka := slices.Sorted(maps.Keys(a))
	kb := slices.Sorted(maps.Keys(b))
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := strings.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
		if c := Compare(a[ka[i]], b[kb[i]]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(ka), len(kb))
}

// Matches reports whether data satisfies every filter.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := Lookup(data, f.Path)
		if !ok || !matchOne(v, f) {
			return false
		}
	}
	return true
}

func matchOne(v any, f Filter) bool {
	want := f.Value
	switch f.Op {
	case Equal:
		return Compare(v, want) == 0
	case NotEqual:
		return v != nil && Compare(v, want) != 0
	}

	if rank(v) != rank(want) {
		return false
	}
	c := Compare(v, want)
	switch f.Op {
	case LessThan:
		return c < 0
	case LessOrEqual:
		return c <= 0
	case GreaterThan:
		return c > 0
	case GreaterOrEqual:
		return c >= 0
	}
	return false
}

// ComparePosition orders two documents by the query's orders, then by id.
func ComparePosition(q Query, a, b Document) int {
	for _, o := range q.Orders {
		va, _ := Lookup(a.Data, o.Path)
		vb, _ := Lookup(b.Data, o.Path)
		c := Compare(va, vb)
		if o.Direction == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	c := strings.Compare(a.ID, b.ID)
	if q.TieBreak() == Desc {
		c = -c
	}
	return c
}

// Evaluate runs q over an unordered set of documents: filters, orders,
// applies the cursor and the limit. docs is not modified.
func Evaluate(q Query, docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if !Matches(doc.Data, q.Filters) || !hasOrderFields(doc.Data, q.Orders) {
			continue
		}
		out = append(out, doc)
	}

	slices.SortStableFunc(out, func(a, b Document) int {
		return ComparePosition(q, a, b)
	})

	if q.Cursor != nil {
		start := len(out)
		for i, doc := range out {
			if ComparePosition(q, doc, *q.Cursor) > 0 {
				start = i
				break
			}
		}
		out = out[start:]
	}

	if q.MaxResults > 0 && len(out) > q.MaxResults {
		out = out[:q.MaxResults]
	}

	if q.IDsOnly {
		for i := range out {
			out[i] = Document{ID: out[i].ID}
		}
	}
	return out
}

func hasOrderFields(data map[string]any, orders []Order) bool {
	for _, o := range orders {
		if _, ok := Lookup(data, o.Path); !ok {
			return false
		}
	}
	return true
}

// MergeData returns dst with src merged in. Nested maps merge key by key;
// every other value in src replaces the stored one. Neither input is modified.
func MergeData(dst, src map[string]any) map[string]any {
	out := CloneData(dst)
	if out == nil {
		out = make(map[string]any, len(src))
	}
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := out[k].(map[string]any); ok {
				out[k] = MergeData(dm, sm)
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

// CloneData deep-copies a document's data.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return CloneData(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []byte:
		return slices.Clone(x)
	default:
		return v
	}
}
