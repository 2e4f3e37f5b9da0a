package store

import (
	"context"
	"fmt"

	perr "commitflow/internal/platform/errors"
)

// ExecOne runs a write that must touch exactly one row
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if n := tag.RowsAffected(); n != 1 {
		return fmt.Errorf("%s: want 1 row affected, got %d", tag.String(), n)
	}
	return nil
}

// One maps the only row of a query through scan. No rows is perr.ErrNotFound
// and a second row is an error.
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var zero T
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return zero, err
	}
	defer rows.Close()

	if err := first(rows); err != nil {
		return zero, err
	}
	v, err := scan(rows)
	if err != nil {
		return zero, err
	}
	if rows.Next() {
		return zero, fmt.Errorf("want 1 row, got more")
	}
	return v, rows.Err()
}

// Many maps every row of a query through scan
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return Collect(rows, scan)
}

// Collect drains rows through scan, closing them. It serves both backends.
func Collect[T any](rows Rows, scan func(Row) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ScalarCH reads the first column of the first row of a clickhouse query
func ScalarCH[T any](ctx context.Context, c Clickhouse, sql string, args ...any) (T, error) {
	var v T
	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		return v, err
	}
	defer rows.Close()

	if err := first(rows); err != nil {
		return v, err
	}
	if err := rows.Scan(&v); err != nil {
		return v, err
	}
	return v, rows.Err()
}

// first advances to the first row, reporting ErrNotFound for an empty set
func first(rows Rows) error {
	if rows.Next() {
		return nil
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return perr.ErrNotFound
}
