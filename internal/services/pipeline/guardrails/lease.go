package guardrails

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"commitflow/internal/modkit/repokit"
	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"
	"commitflow/internal/services/pipeline/domain"

	"github.com/jackc/pgx/v5"
)

// ErrLeaseHeld signals another process owns the logical date
var ErrLeaseHeld = errors.New("pipeline: date lease already held")

// ErrLeaseLost signals the lease could not be kept alive while the body ran
var ErrLeaseLost = perr.Conflictf("pipeline: date lease lost")

// releaseTimeout bounds the lease release, which runs after the caller may have given up
const releaseTimeout = 10 * time.Second

// MakeDateLease claims a pipeline_leases row for the logical date, runs do, then
// releases it. A lease whose expires_at has passed is reclaimed, so a crashed
// holder blocks the date for at most ttl. While do runs the row is extended every
// ttl/3; when it cannot be extended do's context is cancelled with ErrLeaseLost.
func MakeDateLease(db repokit.TxRunner, owner string, ttl time.Duration) domain.LeaseFunc {
	owner = fmt.Sprintf("%s:%d", owner, os.Getpid())
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	l := lease{db: db, owner: owner, ttl: ttl, interval: fmt.Sprintf("%d milliseconds", ttl.Milliseconds())}

	return func(ctx context.Context, d day.Date, do func(context.Context) error) error {
		claimed, err := l.claim(ctx, d)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld
		}
		defer l.release(ctx, d)

		runCtx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)
		stop, done := make(chan struct{}), make(chan struct{})
		go func() {
			defer close(done)
			l.heartbeat(runCtx, d, stop, cancel)
		}()

		err = do(runCtx)
		close(stop)
		<-done
		if err != nil && errors.Is(context.Cause(runCtx), ErrLeaseLost) && !errors.Is(err, ErrLeaseLost) {
			return fmt.Errorf("%w: %s: %w", ErrLeaseLost, d, err)
		}
		return err
	}
}

type lease struct {
	db       repokit.TxRunner
	owner    string
	ttl      time.Duration
	interval string
}

func (l lease) claim(ctx context.Context, d day.Date) (bool, error) {
	var claimed bool
	err := l.db.Tx(ctx, func(q repokit.Queryer) error {
		row := q.QueryRow(ctx, `
			INSERT INTO pipeline_leases (logical_date, owner, claimed_at, expires_at)
			VALUES ($1::date, $2, now(), now() + ($3)::interval)
			ON CONFLICT (logical_date) DO UPDATE
			   SET owner = EXCLUDED.owner, claimed_at = now(), expires_at = EXCLUDED.expires_at
			 WHERE pipeline_leases.expires_at <= now()
			RETURNING true
		`, d.String(), l.owner, l.interval)
		if err := row.Scan(&claimed); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil // held by someone else
			}
			return perr.FromPostgresf(err, "pipeline: claim lease %s", d)
		}
		return nil
	})
	return claimed, err
}

// heartbeat extends the lease until stop closes. A renewal that matches no row
// means the lease was taken over; failing renewals for a whole ttl mean it may
// have expired. Either way the run is cancelled.
func (l lease) heartbeat(ctx context.Context, d day.Date, stop <-chan struct{}, cancel context.CancelCauseFunc) {
	t := time.NewTicker(l.ttl / 3)
	defer t.Stop()
	kept := time.Now()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
		}
		tag, err := l.db.Exec(ctx, `
			UPDATE pipeline_leases SET expires_at = now() + ($3)::interval
			 WHERE logical_date = $1::date AND owner = $2
		`, d.String(), l.owner, l.interval)
		switch {
		case err == nil && tag.RowsAffected() > 0:
			kept = time.Now()
		case err == nil:
			logger.C(ctx).Error().Str("date", d.String()).Msg("pipeline: lease taken over, cancelling run")
			cancel(ErrLeaseLost)
			return
		case ctx.Err() != nil:
			return
		default:
			logger.C(ctx).Warn().Err(err).Str("date", d.String()).Msg("pipeline: lease renewal failed")
			if time.Since(kept) >= l.ttl-l.ttl/3 {
				cancel(ErrLeaseLost)
				return
			}
		}
	}
}

func (l lease) release(ctx context.Context, d day.Date) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if _, err := l.db.Exec(rctx, `DELETE FROM pipeline_leases WHERE logical_date = $1::date AND owner = $2`, d.String(), l.owner); err != nil {
		logger.C(ctx).Warn().Err(err).Str("date", d.String()).Msg("pipeline: lease release failed")
	}
}
