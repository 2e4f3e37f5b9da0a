package store

import (
	"context"

	"commitflow/internal/platform/logger"
	"commitflow/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is what *pgxpool.Pool and pgx.Tx have in common
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgQuerier struct{ db pgxQuerier }

func (q pgQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return q.db.Exec(ctx, sql, args...)
}

func (q pgQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (q pgQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return q.db.QueryRow(ctx, sql, args...)
}

// pgPool is the TxRunner over a pgx pool
type pgPool struct {
	pgQuerier
	pool *pgxpool.Pool
}

var _ interface {
	TxRunner
	Pinger
} = (*pgPool)(nil)

func openPG(ctx context.Context, cfg PGConfig, log logger.Logger) (*pgPool, error) {
	pool, err := pg.Open(ctx, pg.Config{
		URL:            cfg.URL,
		MaxConns:       cfg.MaxConns,
		LogSQL:         cfg.LogSQL,
		SlowQuery:      cfg.SlowQuery,
		ConnectRetries: cfg.ConnectRetries,
		PingTimeout:    cfg.PingTimeout,
		Log:            log,
	})
	if err != nil {
		return nil, err
	}
	return &pgPool{pgQuerier: pgQuerier{db: pool}, pool: pool}, nil
}

func (p *pgPool) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(pgQuerier{db: tx})
	})
}

func (p *pgPool) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *pgPool) Close() error {
	p.pool.Close()
	return nil
}
