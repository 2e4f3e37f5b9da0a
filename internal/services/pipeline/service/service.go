// Package service drives extract, transform and load for one logical date at a time
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"
	"commitflow/internal/services/pipeline/domain"
	"commitflow/internal/services/pipeline/guardrails"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config controls range concurrency and stage budgets
type Config struct {
	// Workers caps how many dates RunRange processes at once
	Workers int `validate:"gte=1"`

	// MaxRangeDays rejects larger ranges, 0 means unlimited
	MaxRangeDays int `validate:"gte=0"`

	Timeouts guardrails.Timeouts
}

// Stages bundles the three stage ports and the artifact check between them
type Stages struct {
	Extract   domain.Extractor
	Transform domain.Transformer
	Load      domain.Loader
	Artifacts domain.Artifacts
}

// Driver runs the stage state machine
type Driver struct {
	st     Stages
	ledger domain.Ledger
	cfg    Config

	// Lease holds a cross process claim on the date while the run executes; nil skips it
	Lease domain.LeaseFunc

	locks *dateLocks
	now   func() time.Time
	newID func() string
}

var _ domain.DriverPort = (*Driver)(nil)

// New constructs the driver
func New(st Stages, ledger domain.Ledger, cfg Config, lease domain.LeaseFunc) *Driver {
	if st.Extract == nil || st.Transform == nil || st.Load == nil || st.Artifacts == nil {
		panic("pipeline.Driver requires every stage and an artifact checker")
	}
	if ledger == nil {
		panic("pipeline.Driver requires a non nil Ledger")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Driver{
		st:     st,
		ledger: ledger,
		cfg:    cfg,
		Lease:  lease,
		locks:  newDateLocks(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Busy reports whether d is running in this process
func (s *Driver) Busy(d day.Date) bool { return s.locks.Held(d) }

// Run executes the pipeline for d. A second call for a date already running
// returns domain.ErrRunInProgress without starting anything. The returned Run
// describes where execution stopped; err is the failing stage's cause.
func (s *Driver) Run(ctx context.Context, d day.Date) (domain.Run, error) {
	if d.IsZero() {
		return domain.Run{}, perr.InvalidArgf("pipeline: logical date is required")
	}
	release, ok := s.locks.TryLock(d)
	if !ok {
		return domain.Run{}, domain.ErrRunInProgress
	}
	defer release()

	if s.Lease == nil {
		return s.execute(ctx, d)
	}

	var (
		run    domain.Run
		runErr error
	)
	err := s.Lease(ctx, d, func(ctx context.Context) error {
		run, runErr = s.execute(ctx, d)
		return runErr
	})
	switch {
	case errors.Is(err, guardrails.ErrLeaseHeld):
		logger.C(ctx).Debug().Str("logical_date", d.String()).Msg("pipeline: lease held elsewhere")
		return domain.Run{}, domain.ErrRunInProgress
	case run.ID == "":
		return domain.Run{}, err
	}
	return run, err
}

func (s *Driver) execute(ctx context.Context, d day.Date) (domain.Run, error) {
	ctx, cancel := guardrails.WithRun(ctx, s.cfg.Timeouts)
	defer cancel()

	run := domain.NewRun(s.newID(), d, s.now())
	ctx = logger.WithRun(ctx, run.ID, d.String())
	l := logger.C(ctx)
	l.Info().Msg("pipeline: run start")
	start := time.Now()

	s.record(ctx, run, true)

	for _, to := range []domain.State{domain.StateExtracting, domain.StateTransforming, domain.StateLoading} {
		run.Advance(to)
		s.record(ctx, run, false)

		stage := to.Stage()
		if err := s.stage(ctx, &run, stage); err != nil {
			err = causeOf(ctx, err)
			run.Fail(stage, err)
			run.FinishedAt = s.now().UTC()
			s.record(ctx, run, false)
			l.Error().Err(err).Str("stage", string(stage)).Str("kind", run.ErrorKind).
				Dur("elapsed", time.Since(start)).Msg("pipeline: run failed")
			return run, err
		}
	}

	run.Advance(domain.StateSucceeded)
	run.FinishedAt = s.now().UTC()
	s.record(ctx, run, false)
	l.Info().
		Int("raw_rows", run.RawRows).
		Int("staged_rows", run.StagedRows).
		Int("loaded_rows", run.LoadedRows).
		Dur("elapsed", time.Since(start)).
		Msg("pipeline: run succeeded")
	return run, nil
}

// stage runs one stage under its budget and confirms its artifact
func (s *Driver) stage(ctx context.Context, run *domain.Run, stage domain.Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = logger.WithStage(ctx, string(stage))
	ctx, cancel := guardrails.ForStage(ctx, s.cfg.Timeouts, stage)
	defer cancel()

	t0 := time.Now()
	logger.C(ctx).Info().Msg("pipeline: stage start")

	var err error
	switch stage {
	case domain.StageExtract:
		snap, e := s.st.Extract.Extract(ctx, run.LogicalDate)
		err = e
		if err == nil {
			run.RawRows = snap.Rows
			err = s.confirm(ctx, stage, snap.Key)
		}
	case domain.StageTransform:
		res, e := s.st.Transform.Transform(ctx, run.LogicalDate)
		rep := res.Report
		run.StagedRows, run.Excluded, run.Deduped, run.OutOfWindow = rep.Staged, rep.Excluded, rep.Duplicates, rep.OutOfWindow
		err = e
		if err == nil {
			err = s.confirm(ctx, stage, res.Key)
		}
	case domain.StageLoad:
		res, e := s.st.Load.Load(ctx, run.LogicalDate)
		err = e
		if err == nil {
			run.LoadedRows = res.Rows
		}
	default:
		err = perr.Internalf("pipeline: unknown stage %q", stage)
	}
	if err != nil {
		return err
	}
	logger.C(ctx).Info().Dur("elapsed", time.Since(t0)).Msg("pipeline: stage done")
	return nil
}

// causeOf swaps a bare cancellation for the reason ctx was cancelled, when one was given
func causeOf(ctx context.Context, err error) error {
	if !errors.Is(err, context.Canceled) {
		return err
	}
	if c := context.Cause(ctx); c != nil && !errors.Is(c, context.Canceled) {
		return c
	}
	return err
}

// confirm fails the producing stage when its output is absent
func (s *Driver) confirm(ctx context.Context, stage domain.Stage, key string) error {
	ok, err := s.st.Artifacts.Exists(ctx, key)
	if err != nil {
		return perr.WithOp(err, string(stage))
	}
	if !ok {
		return perr.WithOp(perr.NotFoundf("%s output %s is missing", stage, key), string(stage))
	}
	return nil
}

// record writes run to the ledger. Ledger trouble never fails a run.
func (s *Driver) record(ctx context.Context, run domain.Run, start bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	var err error
	if start {
		err = s.ledger.StartRun(ctx, run)
	} else {
		err = s.ledger.UpdateRun(ctx, run)
	}
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("state", string(run.State)).Msg("pipeline: ledger write failed")
	}
}

// Dates lists [start, end] or rejects a range RunRange would refuse
func (s *Driver) Dates(start, end day.Date) ([]day.Date, error) {
	dates, err := day.Range(start, end)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxRangeDays > 0 && len(dates) > s.cfg.MaxRangeDays {
		return nil, perr.InvalidArgf("pipeline: range of %d days exceeds limit %d", len(dates), s.cfg.MaxRangeDays)
	}
	return dates, nil
}

// RunRange runs every date in [start, end], at most Workers at a time. Dates are
// independent: one failure does not stop the others. The returned slice is in
// date order; the error joins every per-date failure.
func (s *Driver) RunRange(ctx context.Context, start, end day.Date) ([]domain.Run, error) {
	dates, err := s.Dates(start, end)
	if err != nil {
		return nil, err
	}

	runs := make([]domain.Run, len(dates))
	errs := make([]error, len(dates))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, d := range dates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				runs[i], errs[i] = domain.Run{LogicalDate: d}, fmt.Errorf("%s: %w", d, err)
				return nil
			}
			run, err := s.Run(ctx, d)
			if run.ID == "" {
				run.LogicalDate = d
			}
			runs[i] = run
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", d, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	joined := errors.Join(errs...)
	if joined != nil {
		logger.C(ctx).Warn().Err(joined).
			Str("start", start.String()).Str("end", end.String()).
			Msg("pipeline: range finished with failures")
	}
	return runs, joined
}
