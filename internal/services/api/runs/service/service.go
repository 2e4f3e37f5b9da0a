// Package service reads run history and queues runs in the background
package service

import (
	"context"
	"strings"
	"sync"

	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"
	lumnet "commitflow/internal/platform/net"
	"commitflow/internal/platform/validate"
	"commitflow/internal/services/api/runs/domain"
	pipedom "commitflow/internal/services/pipeline/domain"
)

const defaultLimit = 50

// Service defines the runs service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the runs service. Queued runs detach from the request and
// run on base, so they stop when the process shuts down.
type Svc struct {
	base   context.Context
	driver pipedom.DriverPort
	ledger pipedom.Ledger
	wg     sync.WaitGroup
}

// New constructs a runs service
func New(base context.Context, driver pipedom.DriverPort, ledger pipedom.Ledger) *Svc {
	if driver == nil {
		panic("runs.Service requires a non nil driver")
	}
	if ledger == nil {
		panic("runs.Service requires a non nil ledger")
	}
	return &Svc{base: base, driver: driver, ledger: ledger}
}

// List returns the most recent runs, newest first
func (s *Svc) List(ctx context.Context, in domain.ListInput) ([]domain.Run, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Limit == 0 {
		in.Limit = defaultLimit
	}
	return s.ledger.ListRuns(ctx, in.Limit)
}

// Get returns one run by id
func (s *Svc) Get(ctx context.Context, id string) (domain.Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Run{}, perr.InvalidArgf("run id is required")
	}
	return s.ledger.GetRun(ctx, id)
}

// Latest returns the newest run for a logical date
func (s *Svc) Latest(ctx context.Context, date string) (domain.Run, error) {
	d, err := day.Parse(date)
	if err != nil {
		return domain.Run{}, err
	}
	return s.ledger.LatestRun(ctx, d)
}

// Trigger queues one date. A date already running here is a conflict.
func (s *Svc) Trigger(ctx context.Context, in domain.TriggerInput) (domain.Accepted, error) {
	d, err := day.Parse(in.Date)
	if err != nil {
		return domain.Accepted{}, err
	}
	if s.driver.Busy(d) {
		return domain.Accepted{}, pipedom.ErrRunInProgress
	}
	s.spawn(ctx, "trigger", func(bg context.Context) {
		run, err := s.driver.Run(bg, d)
		if err != nil {
			logger.C(bg).Warn().Err(err).Str("run_id", run.ID).Str("date", d.String()).Msg("runs: queued run failed")
		}
	})
	return domain.Accepted{Status: "queued", Dates: []string{d.String()}}, nil
}

// Backfill queues a range. Bad bounds and oversized ranges fail before anything starts.
func (s *Svc) Backfill(ctx context.Context, in domain.BackfillInput) (domain.Accepted, error) {
	start, err := day.Parse(in.Start)
	if err != nil {
		return domain.Accepted{}, perr.WithField(err, "start")
	}
	end, err := day.Parse(in.End)
	if err != nil {
		return domain.Accepted{}, perr.WithField(err, "end")
	}
	dates, err := s.driver.Dates(start, end)
	if err != nil {
		return domain.Accepted{}, err
	}
	s.spawn(ctx, "backfill", func(bg context.Context) {
		if _, err := s.driver.RunRange(bg, start, end); err != nil {
			logger.C(bg).Warn().Err(err).Msg("runs: queued backfill finished with failures")
		}
	})

	out := domain.Accepted{Status: "queued", Dates: make([]string, len(dates))}
	for i, d := range dates {
		out.Dates[i] = d.String()
	}
	return out, nil
}

// Wait blocks until every queued run has returned
func (s *Svc) Wait() { s.wg.Wait() }

// spawn runs fn on the service base context, keeping the request id for logs
func (s *Svc) spawn(ctx context.Context, kind string, fn func(context.Context)) {
	bg := logger.WithRequest(s.base, lumnet.RequestID(ctx))
	l := logger.C(bg).Info().Str("kind", kind)
	if op := lumnet.Operator(ctx); op != "" {
		l = l.Str("operator", op)
	}
	l.Msg("runs: queued")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(bg)
	}()
}
