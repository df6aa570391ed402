// ABOUTME: Compound query construction and in-process evaluation
// ABOUTME: Supports equality/range filters, multi-field ordering and offset/limit windows
package docstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

type Op string

const (
	OpEqual          Op = "=="
	OpGreaterOrEqual Op = ">="
	OpLessOrEqual    Op = "<="
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

type Order struct {
	Field     string
	Direction Direction
}

// Query selects documents from one collection. Builder methods return a
// modified copy, so a base query can be reused.
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
	Offset     int
	Limit      int
}

// NewQuery starts a query over a collection.
func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

// Where adds a filter; filters are combined with AND.
func (q Query) Where(field string, op Op, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: NormalizeValue(value)})
	return q
}

// OrderBy adds an ordering. Documents missing the field are excluded.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Field: field, Direction: dir})
	return q
}

// Window restricts results to limit documents after skipping offset.
// A zero limit means no limit.
func (q Query) Window(offset, limit int) Query {
	q.Offset = offset
	q.Limit = limit
	return q
}

// Unwindowed returns the query without offset or limit, as Count uses it.
func (q Query) Unwindowed() Query {
	return q.Window(0, 0)
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate rejects malformed collections, field paths, operators and windows.
func (q Query) Validate() error {
	if err := ValidateName("collection", q.Collection); err != nil {
		return err
	}
	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return fmt.Errorf("%w: field %q", ErrInvalidArgument, f.Field)
		}
		switch f.Op {
		case OpEqual, OpGreaterOrEqual, OpLessOrEqual:
		default:
			return fmt.Errorf("%w: operator %q", ErrInvalidArgument, f.Op)
		}
	}
	for _, o := range q.Orders {
		if !fieldPattern.MatchString(o.Field) {
			return fmt.Errorf("%w: order field %q", ErrInvalidArgument, o.Field)
		}
	}
	if q.Offset < 0 || q.Limit < 0 {
		return fmt.Errorf("%w: negative window", ErrInvalidArgument)
	}
	return nil
}

// apply filters, orders and windows snapshots in memory.
func (q Query) apply(docs []Snapshot) []Snapshot {
	matched := make([]Snapshot, 0, len(docs))
	for _, doc := range docs {
		if q.matches(doc) {
			matched = append(matched, doc)
		}
	}

	tieDir := Ascending
	if n := len(q.Orders); n > 0 {
		tieDir = q.Orders[n-1].Direction
	}
	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range q.Orders {
			a, _ := lookup(matched[i].Fields, o.Field)
			b, _ := lookup(matched[j].Fields, o.Field)
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if o.Direction == Descending {
				return c > 0
			}
			return c < 0
		}
		if tieDir == Descending {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].ID < matched[j].ID
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []Snapshot{}
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched
}

func (q Query) matches(doc Snapshot) bool {
	for _, o := range q.Orders {
		if _, ok := lookup(doc.Fields, o.Field); !ok {
			return false
		}
	}
	for _, f := range q.Filters {
		v, ok := lookup(doc.Fields, f.Field)
		if !ok {
			return false
		}
		if typeRank(v) != typeRank(f.Value) {
			return false
		}
		c := compareValues(v, f.Value)
		switch f.Op {
		case OpEqual:
			if c != 0 {
				return false
			}
		case OpGreaterOrEqual:
			if c < 0 {
				return false
			}
		case OpLessOrEqual:
			if c > 0 {
				return false
			}
		}
	}
	return true
}

// lookup resolves a dotted field path.
func lookup(fields Fields, path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(fields)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// typeRank orders values of different types:
// null < bool < number < timestamp < string < everything else.
func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case Timestamp:
		return 3
	case string:
		return 4
	}
	return 5
}

func compareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case nil:
		return 0
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case Timestamp:
		bv := b.(Timestamp)
		switch {
		case av.Seconds != bv.Seconds:
			if av.Seconds < bv.Seconds {
				return -1
			}
			return 1
		case av.Nanos < bv.Nanos:
			return -1
		case av.Nanos > bv.Nanos:
			return 1
		}
		return 0
	case string:
		return strings.Compare(av, b.(string))
	}
	// Arrays and maps have no natural order; compare their encodings.
	ea, _ := json.Marshal(a)
	eb, _ := json.Marshal(b)
	return strings.Compare(string(ea), string(eb))
}
