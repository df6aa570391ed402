// ABOUTME: Translates docstore queries into SQLite JSON1 SQL
// ABOUTME: Filters and orderings run inside SQLite against the fields column
package db

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harperreed/agencycrm/docstore"
)

// rankExpr mirrors the cross-type ordering used by the in-memory evaluator:
// null < bool < number < timestamp < string < everything else.
const rankExpr = `CASE json_type(fields, ?)
	WHEN 'null' THEN 0
	WHEN 'true' THEN 1
	WHEN 'false' THEN 1
	WHEN 'integer' THEN 2
	WHEN 'real' THEN 2
	WHEN 'text' THEN 4
	WHEN 'object' THEN CASE WHEN json_type(fields, ?) = 'text' THEN 3 ELSE 5 END
	ELSE 5 END`

// valueExpr yields a comparable value for any rank. Timestamps compare by
// their fixed width text, objects and arrays by their JSON text.
const valueExpr = `COALESCE(json_extract(fields, ?), json_extract(fields, ?))`

type sqlQuery struct {
	where strings.Builder
	args  []interface{}
}

func jsonPath(field string) string {
	return "$." + field
}

func timestampPath(field string) string {
	return "$." + field + "._ts"
}

func (b *sqlQuery) and(clause string, args ...interface{}) {
	b.where.WriteString(" AND ")
	b.where.WriteString(clause)
	b.args = append(b.args, args...)
}

// buildWhere renders the collection, filter and order-presence predicates.
func buildWhere(q docstore.Query) (*sqlQuery, error) {
	b := &sqlQuery{}
	b.where.WriteString("collection = ?")
	b.args = append(b.args, q.Collection)

	for _, f := range q.Filters {
		if err := b.filter(f); err != nil {
			return nil, err
		}
	}
	for _, o := range q.Orders {
		b.and("json_type(fields, ?) IS NOT NULL", jsonPath(o.Field))
	}
	return b, nil
}

func (b *sqlQuery) filter(f docstore.Filter) error {
	path, tsPath := jsonPath(f.Field), timestampPath(f.Field)
	op := string(f.Op)
	if f.Op == docstore.OpEqual {
		op = "="
	}

	switch v := f.Value.(type) {
	case nil:
		// Nulls are all equal, so every operator matches exactly the nulls.
		b.and("json_type(fields, ?) = 'null'", path)
	case bool:
		arg := 0
		if v {
			arg = 1
		}
		b.and(fmt.Sprintf("json_type(fields, ?) IN ('true', 'false') AND json_extract(fields, ?) %s ?", op), path, path, arg)
	case float64:
		b.and(fmt.Sprintf("json_type(fields, ?) IN ('integer', 'real') AND json_extract(fields, ?) %s ?", op), path, path, v)
	case docstore.Timestamp:
		b.and(fmt.Sprintf("json_type(fields, ?) = 'object' AND json_type(fields, ?) = 'text' AND json_extract(fields, ?) %s ?", op),
			path, tsPath, tsPath, v.String())
	case string:
		b.and(fmt.Sprintf("json_type(fields, ?) = 'text' AND json_extract(fields, ?) %s ?", op), path, path, v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: filter value for %s: %v", docstore.ErrInvalidArgument, f.Field, err)
		}
		b.and(fmt.Sprintf("json_type(fields, ?) IN ('array', 'object') AND json_type(fields, ?) IS NOT 'text' AND json_extract(fields, ?) %s ?", op),
			path, tsPath, path, string(encoded))
	}
	return nil
}

// buildOrder renders ORDER BY with the id tie breaker following the last
// ordering's direction.
func buildOrder(q docstore.Query) (string, []interface{}) {
	var parts []string
	var args []interface{}
	tie := "ASC"

	for _, o := range q.Orders {
		dir := "ASC"
		if o.Direction == docstore.Descending {
			dir = "DESC"
		}
		tie = dir
		path, tsPath := jsonPath(o.Field), timestampPath(o.Field)
		parts = append(parts, "("+rankExpr+") "+dir, valueExpr+" "+dir)
		args = append(args, path, tsPath, tsPath, path)
	}
	parts = append(parts, "id "+tie)
	return " ORDER BY " + strings.Join(parts, ", "), args
}

// buildSelect renders the full query for Query.
func buildSelect(q docstore.Query) (string, []interface{}, error) {
	b, err := buildWhere(q)
	if err != nil {
		return "", nil, err
	}
	order, orderArgs := buildOrder(q)

	stmt := "SELECT id, fields FROM documents WHERE " + b.where.String() + order
	args := append(b.args, orderArgs...)

	switch {
	case q.Limit > 0:
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	case q.Offset > 0:
		stmt += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}
	return stmt, args, nil
}

// buildCount renders the count statement, ignoring any window.
func buildCount(q docstore.Query) (string, []interface{}, error) {
	b, err := buildWhere(q)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM documents WHERE " + b.where.String(), b.args, nil
}
