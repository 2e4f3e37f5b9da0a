// Package store opens the pipeline's database backends: postgres for the
// run ledger and clickhouse for the warehouse
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commitflow/internal/platform/logger"

	"github.com/rs/zerolog"
)

// Config selects and tunes backends. A backend with an empty URL stays closed.
type Config struct {
	PG PGConfig
	CH CHConfig
}

// PGConfig configures the postgres pool
type PGConfig struct {
	URL       string
	MaxConns  int32
	LogSQL    bool
	SlowQuery time.Duration

	ConnectRetries int           // 20 when zero
	PingTimeout    time.Duration // 3s when zero
}

// CHConfig configures the clickhouse connection
type CHConfig struct {
	URL          string
	ClientName   string // "commitflow" when empty
	ClientTag    string
	MaxOpenConns int
	DialTimeout  time.Duration
}

// Store holds the opened backends; a nil seam means that backend is disabled
type Store struct {
	PG TxRunner
	CH Clickhouse

	log logger.Logger
}

// Option tunes Open
type Option func(*Store)

// WithLogger routes store diagnostics, SQL traces included, to log
func WithLogger(log logger.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open connects every backend that has a URL. On failure nothing is left open.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}

	if cfg.PG.URL != "" {
		db, err := openPG(ctx, cfg.PG, s.log)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s.PG = db
	}
	if cfg.CH.URL != "" {
		c, err := openCH(ctx, cfg.CH)
		if err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		s.CH = c
		s.log.Debug().Str("client", c.name).Msg("clickhouse connected")
	}
	return s, nil
}

// Guard pings each open backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store: nil")
	}
	var errs []error
	check := func(name string, seam any) {
		if p, ok := seam.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	check("pg", s.PG)
	check("ch", s.CH)
	return errors.Join(errs...)
}

// Close releases every open backend
func (s *Store) Close(context.Context) error {
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
