package docstore

import "slices"

// Operator is a filter comparison.
type Operator string

const (
	Equal          Operator = "=="
	NotEqual       Operator = "!="
	LessThan       Operator = "<"
	LessOrEqual    Operator = "<="
	GreaterThan    Operator = ">"
	GreaterOrEqual Operator = ">="
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter compares the value at Path with Value. Path may address nested map
// fields with dots, e.g. "metadata_fields.source".
type Filter struct {
	Path  string
	Op    Operator
	Value any
}

// Order sorts results by the value at Path.
type Order struct {
	Path      string
	Direction Direction
}

// Query selects documents from one collection. Build it with NewQuery and the
// chaining methods; each method returns a modified copy.
//
// Documents that lack a filtered or ordered field never match. Ties, and
// queries without any order, are broken by document id, ascending unless the
// last order is descending.
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
	MaxResults int
	Cursor     *Document
	IDsOnly    bool
}

// NewQuery returns a query over collection.
func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

// Where adds a filter.
func (q Query) Where(path string, op Operator, value any) Query {
	q.Filters = append(slices.Clip(q.Filters), Filter{Path: path, Op: op, Value: Normalize(value)})
	return q
}

// OrderBy adds a sort key.
func (q Query) OrderBy(path string, dir Direction) Query {
	q.Orders = append(slices.Clip(q.Orders), Order{Path: path, Direction: dir})
	return q
}

// Limit caps the number of results. Zero means no limit.
func (q Query) Limit(n int) Query {
	q.MaxResults = n
	return q
}

// StartAfter resumes the query after doc, which must be a result of the same
// query (it needs the ordered fields and the id).
func (q Query) StartAfter(doc Document) Query {
	q.Cursor = &doc
	return q
}

// KeysOnly returns documents without their data.
func (q Query) KeysOnly() Query {
	q.IDsOnly = true
	return q
}

// TieBreak returns the direction used to order documents by id.
func (q Query) TieBreak() Direction {
	if len(q.Orders) == 0 {
		return Asc
	}
	return q.Orders[len(q.Orders)-1].Direction
}
