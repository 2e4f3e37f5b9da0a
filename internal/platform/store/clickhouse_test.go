package store

import (
	"context"
	"errors"
	"testing"

	"commitflow/internal/platform/store/ch"
)

type recCH struct {
	execSQL   []string
	inserted  int
	insertErr error
	rows      ch.Rows
	closed    bool
}

func (r *recCH) Exec(_ context.Context, sql string, _ ...any) error {
	r.execSQL = append(r.execSQL, sql)
	return nil
}

func (r *recCH) Insert(_ context.Context, _ string, rows [][]any) error {
	r.inserted += len(rows)
	return r.insertErr
}

func (r *recCH) Query(context.Context, string, ...any) (ch.Rows, error) {
	if r.rows == nil {
		return nil, errors.New("no rows")
	}
	return r.rows, nil
}

func (r *recCH) Ping(context.Context) error { return nil }
func (r *recCH) Close() error               { r.closed = true; return nil }

type chRows struct{ sliceRows }

func (c *chRows) Close() error { c.closed = true; return nil }

func TestClickhouseSeam_Delegates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	inner := &recCH{rows: &chRows{sliceRows{cols: []string{"name"}, data: [][]any{{"x"}}}}}
	a := newCHAdapter(inner)

	if err := a.Exec(ctx, "DROP TABLE t"); err != nil || len(inner.execSQL) != 1 {
		t.Fatalf("Exec not delegated: %v %v", err, inner.execSQL)
	}
	if err := a.Insert(ctx, "t", nil); err != nil || inner.inserted != 0 {
		t.Fatalf("empty insert should be skipped")
	}
	if err := a.Insert(ctx, "t", [][]any{{1}, {2}}); err != nil || inner.inserted != 2 {
		t.Fatalf("Insert not delegated: %v %d", err, inner.inserted)
	}

	rows, err := a.Query(ctx, "SELECT name")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	got, err := Collect(rows, scanName)
	if err != nil || len(got) != 1 || got[0] != "x" {
		t.Fatalf("Collect = %v %v", got, err)
	}

	if err := a.(Pinger).Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := a.Close(); err != nil || !inner.closed {
		t.Fatalf("Close not delegated")
	}
}

func TestClickhouseSeam_QueryError(t *testing.T) {
	t.Parallel()

	a := newCHAdapter(&recCH{})
	if _, err := a.Query(context.Background(), "SELECT 1"); err == nil {
		t.Fatalf("expected query error")
	}
}
