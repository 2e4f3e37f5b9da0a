// Package pg opens a pgx pool, waits for the server to answer and optionally
// traces every statement through zerolog
package pg

import (
	"context"
	"fmt"
	"time"

	"commitflow/internal/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool
type Config struct {
	URL       string
	MaxConns  int32
	LogSQL    bool
	SlowQuery time.Duration

	ConnectRetries int
	PingTimeout    time.Duration

	Log logger.Logger
}

const (
	defaultRetries     = 20
	defaultPingTimeout = 3 * time.Second
	firstBackoff       = 150 * time.Millisecond
	maxBackoff         = 2 * time.Second
)

// Open builds the pool and pings until the server answers or the retries run out
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.LogSQL {
		pcfg.ConnConfig.Tracer = NewTracer(cfg.Log, cfg.SlowQuery)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := waitReady(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitReady(ctx context.Context, pool *pgxpool.Pool, cfg Config) error {
	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = defaultRetries
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	var err error
	wait := firstBackoff
	for i := 1; ; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = pool.Ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if i == attempts {
			return fmt.Errorf("ping failed after %d attempts: %w", attempts, err)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait = min(wait*2, maxBackoff)
	}
}
