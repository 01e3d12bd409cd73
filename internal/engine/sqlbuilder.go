package engine

import (
	"context"
	"fmt"
	"strings"

	"dataservice/internal/schema"
	"dataservice/internal/store"
)

// BuildInsertSQL builds a parameterized INSERT returning the full row.
// Columns follow the entity's field order so generated SQL is deterministic.
func BuildInsertSQL(d store.Dialect, e *schema.Entity, fields map[string]any) (string, []any) {
	pb := d.NewParamBuilder()
	var cols, vals []string
	for _, f := range e.Fields {
		if f.IsAuto() {
			continue
		}
		v, ok := fields[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, f.Name)
		vals = append(vals, pb.Add(v))
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		e.Table, strings.Join(cols, ", "), strings.Join(vals, ", "),
		strings.Join(e.FieldNames(), ", "))
	return sql, pb.Params()
}

// BuildUpdateSQL builds a parameterized UPDATE for the given id, merging the
// supplied fields and refreshing any auto-update timestamp columns.
func BuildUpdateSQL(d store.Dialect, e *schema.Entity, id int64, fields map[string]any) (string, []any) {
	pb := d.NewParamBuilder()
	var sets []string
	for _, f := range e.Fields {
		if f.Auto == "update" {
			sets = append(sets, fmt.Sprintf("%s = %s", f.Name, d.NowExpr()))
			continue
		}
		if f.IsAuto() {
			continue
		}
		v, ok := fields[f.Name]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", f.Name, pb.Add(v)))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING %s",
		e.Table, strings.Join(sets, ", "), e.PrimaryKey.Field, pb.Add(id),
		strings.Join(e.FieldNames(), ", "))
	return sql, pb.Params()
}

// BuildDeleteSQL builds a parameterized DELETE for the given id.
func BuildDeleteSQL(d store.Dialect, e *schema.Entity, id int64) (string, []any) {
	pb := d.NewParamBuilder()
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		e.Table, e.PrimaryKey.Field, pb.Add(id))
	return sql, pb.Params()
}

// BuildSelectSQL builds a parameterized SELECT with optional equality
// filters and a row cap. Filter keys follow the entity's field order.
func BuildSelectSQL(d store.Dialect, e *schema.Entity, where map[string]any, limit int) (string, []any) {
	pb := d.NewParamBuilder()

	var clauses []string
	for _, name := range e.FieldNames() {
		v, ok := where[name]
		if !ok {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", name, pb.Add(v)))
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(e.FieldNames(), ", "), e.Table)
	if len(clauses) > 0 {
		sql += " WHERE " + strings.Join(clauses, " AND ")
	}
	sql += fmt.Sprintf(" LIMIT %s", pb.Add(limit))
	return sql, pb.Params()
}

func fetchRecord(ctx context.Context, q store.Querier, d store.Dialect, e *schema.Entity, id int64) (map[string]any, error) {
	pb := d.NewParamBuilder()
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(e.FieldNames(), ", "), e.Table, e.PrimaryKey.Field, pb.Add(id))
	return store.QueryRow(ctx, q, sql, pb.Params()...)
}

// toInt64 normalizes the driver's representation of an integer id.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
