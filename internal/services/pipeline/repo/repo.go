// Package repo persists pipeline run history
package repo

import (
	"context"
	"strings"
	"time"

	"commitflow/internal/modkit/repokit"
	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/store"
	"commitflow/internal/services/pipeline/domain"
)

// Schema is the ledger DDL; every statement is safe to rerun
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id            uuid PRIMARY KEY,
		logical_date  date NOT NULL,
		state         text NOT NULL,
		failed_stage  text,
		error_kind    text,
		error         text,
		raw_rows      integer NOT NULL DEFAULT 0,
		staged_rows   integer NOT NULL DEFAULT 0,
		excluded      integer NOT NULL DEFAULT 0,
		deduped       integer NOT NULL DEFAULT 0,
		out_of_window integer NOT NULL DEFAULT 0,
		loaded_rows   integer NOT NULL DEFAULT 0,
		started_at    timestamptz NOT NULL,
		finished_at   timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS pipeline_runs_date_idx ON pipeline_runs (logical_date, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS pipeline_leases (
		logical_date date PRIMARY KEY,
		owner        text NOT NULL,
		claimed_at   timestamptz NOT NULL,
		expires_at   timestamptz NOT NULL
	)`,
}

// EnsureSchema applies Schema in one transaction
func EnsureSchema(ctx context.Context, db repokit.TxRunner) error {
	return db.Tx(ctx, func(q repokit.Queryer) error {
		for _, ddl := range Schema {
			if _, err := q.Exec(ctx, ddl); err != nil {
				return perr.FromPostgres(err, "pipeline: ensure ledger schema")
			}
		}
		return nil
	})
}

type (
	// PG is a Postgres binder for domain.Ledger
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.Ledger
func NewPG() repokit.Binder[domain.Ledger] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Ledger { return &queries{q: q} }

const runColumns = `id::text, logical_date::text, state, COALESCE(failed_stage,''), COALESCE(error_kind,''),
	COALESCE(error,''), raw_rows, staged_rows, excluded, deduped, out_of_window, loaded_rows,
	started_at, finished_at`

// StartRun records a new run (idempotent on id)
func (r *queries) StartRun(ctx context.Context, run domain.Run) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pipeline_runs (id, logical_date, state, started_at)
		VALUES ($1::uuid, $2::date, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state, started_at = EXCLUDED.started_at, finished_at = null, error = null
	`, run.ID, run.LogicalDate.String(), string(run.State), run.StartedAt.UTC())
	return perr.FromPostgresf(err, "pipeline: start run %s", run.ID)
}

// UpdateRun writes the current state and counters of a run
func (r *queries) UpdateRun(ctx context.Context, run domain.Run) error {
	var finished *time.Time
	if !run.FinishedAt.IsZero() {
		t := run.FinishedAt.UTC()
		finished = &t
	}
	err := store.ExecOne(ctx, r.q, `
		UPDATE pipeline_runs SET
			state = $2,
			failed_stage = NULLIF($3,''),
			error_kind = NULLIF($4,''),
			error = NULLIF($5,''),
			raw_rows = $6,
			staged_rows = $7,
			excluded = $8,
			deduped = $9,
			out_of_window = $10,
			loaded_rows = $11,
			finished_at = $12
		WHERE id = $1::uuid
	`,
		run.ID, string(run.State), string(run.FailedStage), run.ErrorKind, run.Error,
		run.RawRows, run.StagedRows, run.Excluded, run.Deduped, run.OutOfWindow, run.LoadedRows, finished,
	)
	return perr.FromPostgresf(err, "pipeline: update run %s", run.ID)
}

// GetRun loads one run by id
func (r *queries) GetRun(ctx context.Context, id string) (domain.Run, error) {
	run, err := store.One(ctx, r.q, scanRun, `SELECT `+runColumns+` FROM pipeline_runs WHERE id::text = $1`, id)
	return run, notFound(err, "run %s", id)
}

// LatestRun returns the most recently started run for d
func (r *queries) LatestRun(ctx context.Context, d day.Date) (domain.Run, error) {
	run, err := store.One(ctx, r.q, scanRun, `
		SELECT `+runColumns+` FROM pipeline_runs
		WHERE logical_date = $1::date
		ORDER BY started_at DESC, id DESC
		LIMIT 1`, d.String())
	return run, notFound(err, "no run for %s", d)
}

// ListRuns returns up to limit runs, newest first
func (r *queries) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	runs, err := store.Many(ctx, r.q, scanRun, `
		SELECT `+runColumns+` FROM pipeline_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "pipeline: list runs")
	}
	return runs, nil
}

func scanRun(row store.Row) (domain.Run, error) {
	var (
		run      domain.Run
		date     string
		state    string
		stage    string
		finished *time.Time
	)
	if err := row.Scan(
		&run.ID, &date, &state, &stage, &run.ErrorKind, &run.Error,
		&run.RawRows, &run.StagedRows, &run.Excluded, &run.Deduped, &run.OutOfWindow, &run.LoadedRows,
		&run.StartedAt, &finished,
	); err != nil {
		return domain.Run{}, err
	}
	d, err := day.Parse(strings.TrimSpace(date))
	if err != nil {
		return domain.Run{}, err
	}
	run.LogicalDate = d
	run.State = domain.State(state)
	run.FailedStage = domain.Stage(stage)
	run.StartedAt = run.StartedAt.UTC()
	if finished != nil {
		run.FinishedAt = finished.UTC()
	}
	return run, nil
}

func notFound(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return perr.NotFoundf(format, a...)
	}
	return perr.FromPostgres(err, "pipeline: read run")
}
