package store

import (
	"context"
	"errors"

	"commitflow/internal/platform/store/ch"
)

// chConn is the part of *ch.CH the seam drives
type chConn interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Insert(ctx context.Context, table string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (ch.Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ chConn = (*ch.CH)(nil)

// chSeam turns a chConn into the Clickhouse seam
type chSeam struct {
	conn chConn
	name string
}

var _ interface {
	Clickhouse
	Pinger
} = (*chSeam)(nil)

func openCH(ctx context.Context, cfg CHConfig) (*chSeam, error) {
	name := cfg.ClientName
	if name == "" {
		name = "commitflow"
	}
	c, err := ch.Open(ctx, ch.Config{
		URL:          cfg.URL,
		ClientName:   name,
		ClientTag:    cfg.ClientTag,
		MaxOpenConns: cfg.MaxOpenConns,
		DialTimeout:  cfg.DialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &chSeam{conn: c, name: name}, nil
}

func newCHAdapter(c chConn) Clickhouse { return &chSeam{conn: c} }

func (s *chSeam) Exec(ctx context.Context, sql string, args ...any) error {
	return s.conn.Exec(ctx, sql, args...)
}

// Insert skips the round trip for an empty batch
func (s *chSeam) Insert(ctx context.Context, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	return s.conn.Insert(ctx, table, rows)
}

func (s *chSeam) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRowsOf{rs}, nil
}

func (s *chSeam) Ping(ctx context.Context) error {
	if s == nil || s.conn == nil {
		return errors.New("clickhouse: not open")
	}
	return s.conn.Ping(ctx)
}

func (s *chSeam) Close() error { return s.conn.Close() }

// chRowsOf drops the error from Close so ch.Rows fits Rows
type chRowsOf struct{ ch.Rows }

func (r chRowsOf) Close() { _ = r.Rows.Close() }
