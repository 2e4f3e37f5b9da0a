package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"commitflow/internal/adapters/ingest/github"
	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/services/extract/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDay = day.MustParse("2024-01-15")
	t0      = time.Date(2024, 1, 16, 6, 0, 0, 0, time.UTC)
)

type step struct {
	page github.Page
	err  error
}

// scripted replays steps in order and records the cursor of every call
type scripted struct {
	mu      sync.Mutex
	steps   []step
	cursors []string
	hook    func(call int)
}

func (s *scripted) CommitsPage(_ context.Context, req github.PageRequest) (github.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.cursors)
	s.cursors = append(s.cursors, req.Cursor)
	if s.hook != nil {
		s.hook(n)
	}
	if n >= len(s.steps) {
		return github.Page{}, fmt.Errorf("unexpected call %d", n)
	}
	return s.steps[n].page, s.steps[n].err
}

func page(next string, shas ...string) github.Page {
	p := github.Page{NextCursor: next, RateRemaining: -1}
	for _, s := range shas {
		p.Commits = append(p.Commits, github.Commit{SHA: s, CommittedAt: "2024-01-15T10:00:00Z"})
	}
	return p
}

func cfg() Config {
	return Config{PerPage: 2, MaxRetries: 3, RetryBase: time.Second, MaxWait: time.Hour}
}

// newTestPaginator records sleeps instead of sleeping and removes jitter
func newTestPaginator(f domain.PageFetcher, c Config) (*Paginator, *[]time.Duration) {
	p := NewPaginator(f, c)
	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	p.now = func() time.Time { return t0 }
	p.jitter = func(d time.Duration) time.Duration { return d }
	return p, &slept
}

func drain(t *testing.T, ctx context.Context, p *Paginator) ([]domain.CommitRecord, error) {
	t.Helper()
	var out []domain.CommitRecord
	for rec, err := range p.Commits(ctx, domain.WindowFor("octo/hello", "", testDay)) {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func shas(recs []domain.CommitRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.SHA
	}
	return out
}

func TestCommits_WalksEveryPage(t *testing.T) {
	f := &scripted{steps: []step{
		{page: page("c2", "a", "b")},
		{page: page("c3", "c", "d")},
		{page: page("", "e")},
	}}
	p, slept := newTestPaginator(f, cfg())

	recs, err := drain(t, context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, shas(recs))
	assert.Equal(t, []string{"", "c2", "c3"}, f.cursors)
	assert.Empty(t, *slept)

	assert.Equal(t, 1, recs[0].Page)
	assert.Equal(t, 1, recs[1].Ordinal)
	assert.Equal(t, 3, recs[4].Page)
	assert.Equal(t, 0, recs[4].Ordinal)
}

func TestCommits_StopsOnEmptyPage(t *testing.T) {
	f := &scripted{steps: []step{
		{page: page("c2", "a")},
		{page: page("c3")}, // empty page with a dangling cursor still ends the walk
	}}
	p, _ := newTestPaginator(f, cfg())

	recs, err := drain(t, context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, shas(recs))
	assert.Len(t, f.cursors, 2)
}

func TestCommits_RateLimitRetriesSameCursor(t *testing.T) {
	reset := t0.Add(42 * time.Second)
	f := &scripted{steps: []step{
		{page: page("c2", "a", "b")},
		{err: github.NewRateLimited(http.StatusTooManyRequests, reset, 0)},
		{page: page("", "c")},
	}}
	p, slept := newTestPaginator(f, cfg())

	recs, err := drain(t, context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, shas(recs))
	assert.Equal(t, []string{"", "c2", "c2"}, f.cursors)
	assert.Equal(t, []time.Duration{42 * time.Second}, *slept)
}

func TestCommits_RateLimitWithoutHintBacksOff(t *testing.T) {
	f := &scripted{steps: []step{
		{err: github.NewRateLimited(http.StatusForbidden, time.Time{}, 0)},
		{err: github.NewRateLimited(http.StatusForbidden, time.Time{}, 0)},
		{page: page("", "a")},
	}}
	p, slept := newTestPaginator(f, cfg())

	recs, err := drain(t, context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestCommits_ProactiveWaitWhenQuotaDrained(t *testing.T) {
	first := page("c2", "a")
	first.RateRemaining = 0
	first.RateResetAt = t0.Add(30 * time.Second)
	f := &scripted{steps: []step{{page: first}, {page: page("", "b")}}}
	p, slept := newTestPaginator(f, cfg())

	recs, err := drain(t, context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, shas(recs))
	assert.Equal(t, []time.Duration{30 * time.Second}, *slept)
}

func TestCommits_TransientRecovers(t *testing.T) {
	f := &scripted{steps: []step{
		{err: perr.Unavailablef("boom")},
		{page: page("", "a")},
	}}
	p, slept := newTestPaginator(f, cfg())

	recs, err := drain(t, context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, []time.Duration{time.Second}, *slept)
}

func TestCommits_TransientExhausted(t *testing.T) {
	f := &scripted{steps: []step{
		{page: page("c2", "a")},
		{err: perr.Unavailablef("502")},
		{err: perr.Unavailablef("502")},
		{err: perr.Unavailablef("502")},
	}}
	p, slept := newTestPaginator(f, cfg())

	recs, err := drain(t, context.Background(), p)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeFetchExhausted), "got %v", err)
	assert.Contains(t, err.Error(), `page 2 cursor="c2"`)
	assert.Equal(t, "TransientFetchExhausted", perr.KindOf(err))
	assert.Equal(t, []string{"a"}, shas(recs), "records before the failure were already yielded")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestCommits_FatalIsImmediate(t *testing.T) {
	f := &scripted{steps: []step{{err: perr.FatalFetchf("github: status 401")}}}
	p, slept := newTestPaginator(f, cfg())

	_, err := drain(t, context.Background(), p)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeFatalFetch))
	assert.Len(t, f.cursors, 1)
	assert.Empty(t, *slept)
}

func TestCommits_UnknownErrorIsFatal(t *testing.T) {
	f := &scripted{steps: []step{{err: errors.New("weird")}}}
	p, _ := newTestPaginator(f, cfg())

	_, err := drain(t, context.Background(), p)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeFatalFetch), "got %v", err)
}

func TestCommits_WaitBudget(t *testing.T) {
	c := cfg()
	c.MaxWait = 10 * time.Minute
	f := &scripted{steps: []step{
		{err: github.NewRateLimited(http.StatusTooManyRequests, t0.Add(time.Hour), 0)},
	}}
	p, slept := newTestPaginator(f, c)

	_, err := drain(t, context.Background(), p)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeFetchExhausted), "got %v", err)
	assert.Contains(t, err.Error(), "wait budget")
	assert.Empty(t, *slept)
}

func TestCommits_InvalidInput(t *testing.T) {
	cases := []struct {
		name string
		cfg  func(*Config)
		win  func(*domain.Window)
	}{
		{"zero page size", func(c *Config) { c.PerPage = 0 }, nil},
		{"oversized page", func(c *Config) { c.PerPage = 101 }, nil},
		{"no retries", func(c *Config) { c.MaxRetries = 0 }, nil},
		{"since after until", nil, func(w *domain.Window) { w.Since, w.Until = w.Until, w.Since }},
		{"bad repo", nil, func(w *domain.Window) { w.Repo = "nope" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := cfg()
			if tc.cfg != nil {
				tc.cfg(&c)
			}
			w := domain.WindowFor("octo/hello", "", testDay)
			if tc.win != nil {
				tc.win(&w)
			}
			f := &scripted{}
			p, _ := newTestPaginator(f, c)

			var got error
			for _, err := range p.Commits(context.Background(), w) {
				got = err
			}
			assert.True(t, perr.IsCode(got, perr.ErrorCodeInvalidArgument), "got %v", got)
			assert.Empty(t, f.cursors, "no request may be made")
		})
	}
}

func TestCommits_ConsumerBreakStopsFetching(t *testing.T) {
	f := &scripted{steps: []step{
		{page: page("c2", "a", "b")},
		{page: page("", "c")},
	}}
	p, _ := newTestPaginator(f, cfg())

	for rec, err := range p.Commits(context.Background(), domain.WindowFor("octo/hello", "", testDay)) {
		require.NoError(t, err)
		if rec.SHA == "a" {
			break
		}
	}
	assert.Len(t, f.cursors, 1)
}

func TestCommits_CancelDuringBackoff(t *testing.T) {
	c := cfg()
	c.RetryBase = time.Hour
	c.MaxWait = 24 * time.Hour
	f := &scripted{steps: []step{{err: perr.Unavailablef("down")}}}
	p := NewPaginator(f, c) // real sleep

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := drain(t, ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommits_CancelDuringRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &scripted{
		steps: []step{{err: perr.Unavailablef("reset by peer")}},
		hook:  func(int) { cancel() },
	}
	p, slept := newTestPaginator(f, cfg())

	_, err := drain(t, ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *slept)
}

// the real client against a synthetic API: page 2 is limited once, then served
func TestCommits_ThroughClient_RateLimitedSecondPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		cursor := r.URL.Query().Get("cursor")
		switch {
		case cursor == "":
			fmt.Fprint(w, `{"commits":[{"sha":"sha1","commit":{"author":{"name":"A","email":"a@x.io","date":"2024-01-15T01:00:00Z"},"message":"one"}}],"next_page_cursor":"p2","rate_limit_remaining":10}`)
		case cursor == "p2" && n == 2:
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		case cursor == "p2":
			fmt.Fprint(w, `{"commits":[{"sha":"sha2","commit":{"author":{"name":"B","email":"b@x.io","date":"2024-01-15T02:00:00Z"},"message":"two"}}],"next_page_cursor":null,"rate_limit_remaining":9}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client := github.NewClient(github.Options{BaseURL: srv.URL, Token: "tok"})
	p, slept := newTestPaginator(client, cfg())

	recs, err := drain(t, context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"sha1", "sha2"}, shas(recs))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{7 * time.Second}, *slept)
	assert.Equal(t, "2024-01-15T02:00:00Z", recs[1].AuthoredAt)
}

func TestCommits_ThroughClient_ResetOnlyInBody(t *testing.T) {
	resetAt := t0.Add(10 * time.Minute)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch cursor := r.URL.Query().Get("cursor"); {
		case cursor == "":
			fmt.Fprint(w, `{"commits":[{"sha":"sha1","commit":{"author":{"name":"A","email":"a@x.io","date":"2024-01-15T01:00:00Z"},"message":"one"}}],"next_page_cursor":"p2","rate_limit_remaining":10}`)
		case cursor == "p2" && n == 2:
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"rate_limit_remaining":0,"rate_limit_reset_at":%q}`, resetAt.Format(time.RFC3339))
		case cursor == "p2":
			fmt.Fprint(w, `{"commits":[{"sha":"sha2","commit":{"author":{"name":"B","email":"b@x.io","date":"2024-01-15T02:00:00Z"},"message":"two"}}],"next_page_cursor":null,"rate_limit_remaining":9}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	p, slept := newTestPaginator(github.NewClient(github.Options{BaseURL: srv.URL, Token: "tok"}), cfg())

	recs, err := drain(t, context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"sha1", "sha2"}, shas(recs))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{10 * time.Minute}, *slept, "waits until the reset named in the body")
}

func TestCommits_RepeatedCursorIsFatal(t *testing.T) {
	cases := []struct {
		name  string
		steps []step
		pages int
	}{
		{"stuck cursor", []step{
			{page: page("same", "a")},
			{page: page("same", "b")},
		}, 2},
		{"cycle back", []step{
			{page: page("c2", "a")},
			{page: page("c3", "b")},
			{page: page("c2", "c")},
		}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &scripted{steps: tc.steps}
			p, _ := newTestPaginator(f, cfg())

			recs, err := drain(t, context.Background(), p)
			require.Error(t, err)
			assert.True(t, perr.IsCode(err, perr.ErrorCodeFatalFetch), "got %v", err)
			assert.Equal(t, "FatalFetchError", perr.KindOf(err))
			assert.Contains(t, err.Error(), fmt.Sprintf("page %d", tc.pages))
			assert.Len(t, f.cursors, tc.pages, "no request is made for a repeated cursor")
			assert.Len(t, recs, tc.pages)
		})
	}
}
