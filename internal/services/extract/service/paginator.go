// Package service implements the rate-limited commits paginator and the bronze snapshot writer
package service

import (
	"context"
	"iter"
	"math/rand"
	"time"

	"commitflow/internal/adapters/ingest/github"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"
	"commitflow/internal/platform/validate"
	"commitflow/internal/services/extract/domain"
)

// Config holds paging and retry settings
type Config struct {
	PerPage    int           `json:"per_page" validate:"gt=0,lte=100"`
	MaxRetries int           `json:"max_retries" validate:"gte=1"` // attempts per page for transient failures
	RetryBase  time.Duration `json:"retry_base" validate:"gt=0"`
	MaxWait    time.Duration `json:"max_wait" validate:"gt=0"` // total suspension budget across all pages
}

// backoffCap bounds a single transient backoff sleep
const backoffCap = 30 * time.Second

// Paginator walks the commits endpoint page by page
type Paginator struct {
	fetch domain.PageFetcher
	cfg   Config

	// seams
	sleep  func(context.Context, time.Duration) error
	now    func() time.Time
	jitter func(time.Duration) time.Duration
}

// NewPaginator builds a Paginator over fetch
func NewPaginator(fetch domain.PageFetcher, cfg Config) *Paginator {
	if fetch == nil {
		panic("extract.Paginator requires a non nil PageFetcher")
	}
	return &Paginator{fetch: fetch, cfg: cfg, sleep: sleepCtx, now: time.Now, jitter: jitter}
}

// Commits yields every commit in w in upstream order. The sequence ends after the
// first error; ranging stops early when the consumer breaks.
// Errors carry one of the codes InvalidArgument, FatalFetch or FetchExhausted,
// or are ctx.Err() on cancellation.
func (p *Paginator) Commits(ctx context.Context, w domain.Window) iter.Seq2[domain.CommitRecord, error] {
	return func(yield func(domain.CommitRecord, error) bool) {
		if err := p.check(w); err != nil {
			yield(domain.CommitRecord{}, err)
			return
		}

		st := &walk{window: w, seen: map[string]int{"": 1}}
		for st.page = 1; ; st.page++ {
			pg, err := p.fetchPage(ctx, st)
			if err != nil {
				yield(domain.CommitRecord{}, err)
				return
			}
			for i, c := range pg.Commits {
				if !yield(domain.CommitRecord{Commit: c, Page: st.page, Ordinal: i}, nil) {
					return
				}
			}
			st.total += len(pg.Commits)
			if pg.Last() {
				logger.C(ctx).Info().
					Str("repo", w.Repo).
					Int("pages", st.page).
					Int("commits", st.total).
					Dur("waited", st.waited).
					Msg("extract: pagination complete")
				return
			}
			if prev, ok := st.seen[pg.NextCursor]; ok {
				yield(domain.CommitRecord{}, perr.WithOp(perr.FatalFetchf(
					"page %d cursor=%q: next cursor %q repeats page %d", st.page, st.cursor, pg.NextCursor, prev), "extract"))
				return
			}
			st.seen[pg.NextCursor] = st.page + 1

			// quota drained on a good page: hold off before asking for the next one
			if pg.RateRemaining == 0 && !pg.RateResetAt.IsZero() {
				if d := pg.RateResetAt.Sub(p.now()); d > 0 {
					logger.C(ctx).Warn().Int("page", st.page).Dur("wait", d).Msg("extract: quota exhausted, waiting for reset")
					if err := p.suspend(ctx, st, d); err != nil {
						yield(domain.CommitRecord{}, err)
						return
					}
				}
			}
			st.cursor = pg.NextCursor
		}
	}
}

// walk is the mutable state of one Commits call
type walk struct {
	window domain.Window
	page   int
	cursor string
	total  int
	waited time.Duration
	seen   map[string]int // cursor -> page it was requested for
}

func (p *Paginator) check(w domain.Window) error {
	if err := validate.Struct(p.cfg); err != nil {
		return perr.WithOp(err, "extract")
	}
	if err := validate.Struct(w); err != nil {
		return perr.WithOp(err, "extract")
	}
	return nil
}

// fetchPage requests one cursor until it succeeds, fails for good, or the retry
// and wait budgets run out. The cursor never advances here.
func (p *Paginator) fetchPage(ctx context.Context, st *walk) (github.Page, error) {
	req := github.PageRequest{
		Repo:    st.window.Repo,
		Ref:     st.window.Ref,
		Since:   st.window.Since,
		Until:   st.window.Until,
		PerPage: p.cfg.PerPage,
		Cursor:  st.cursor,
	}

	transient, limited := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return github.Page{}, err
		}
		pg, err := p.fetch.CommitsPage(ctx, req)
		if err == nil {
			return pg, nil
		}
		if ctx.Err() != nil {
			return github.Page{}, ctx.Err()
		}

		if rl, ok := github.AsRateLimited(err); ok {
			d := rl.Wait(p.now())
			if d <= 0 {
				d = p.backoff(limited)
			}
			limited++
			logger.C(ctx).Warn().
				Int("page", st.page).
				Str("cursor", st.cursor).
				Int("status", rl.Status).
				Dur("wait", d).
				Msg("extract: rate limited, retrying same cursor")
			if err := p.suspend(ctx, st, d); err != nil {
				return github.Page{}, err
			}
			continue
		}

		if github.IsTransient(err) {
			transient++
			if transient >= p.cfg.MaxRetries {
				return github.Page{}, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeFetchExhausted,
					"page %d cursor=%q: gave up after %d attempts", st.page, st.cursor, transient), "extract")
			}
			d := p.backoff(transient - 1)
			logger.C(ctx).Warn().
				Err(err).
				Int("page", st.page).
				Int("attempt", transient).
				Dur("backoff", d).
				Msg("extract: transient failure")
			if err := p.suspend(ctx, st, d); err != nil {
				return github.Page{}, err
			}
			continue
		}

		if !github.IsFatal(err) {
			err = perr.Wrapf(err, perr.ErrorCodeFatalFetch, "page %d cursor=%q", st.page, st.cursor)
		}
		return github.Page{}, perr.WithOp(err, "extract")
	}
}

// suspend sleeps for d unless that would overrun MaxWait
func (p *Paginator) suspend(ctx context.Context, st *walk, d time.Duration) error {
	if st.waited+d > p.cfg.MaxWait {
		return perr.WithOp(perr.Newf(perr.ErrorCodeFetchExhausted,
			"page %d cursor=%q: wait budget %s exhausted (waited %s, next %s)",
			st.page, st.cursor, p.cfg.MaxWait, st.waited, d), "extract")
	}
	if err := p.sleep(ctx, d); err != nil {
		return err
	}
	st.waited += d
	return nil
}

// backoff is exponential in attempt with jitter, capped at backoffCap
func (p *Paginator) backoff(attempt int) time.Duration {
	d := p.cfg.RetryBase
	for i := 0; i < attempt && d < backoffCap; i++ {
		d *= 2
	}
	return p.jitter(min(d, backoffCap))
}

// jitter picks a duration in [d/2, d)
func jitter(d time.Duration) time.Duration {
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
