package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	perr "commitflow/internal/platform/errors"
)

func commitJSON(sha, date string) string {
	return fmt.Sprintf(`{"sha":%q,"commit":{"author":{"name":"Ada","email":"ada@example.com","date":%q},"committer":{"name":"Ada","email":"ada@example.com","date":%q},"message":"fix: thing\n\nbody"}}`, sha, date, date)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, Token: "tok"})
}

func req() PageRequest {
	return PageRequest{
		Repo:    "octo/hello",
		Since:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Until:   time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		PerPage: 2,
	}
}

func TestCommitsPage_OK(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprintf(w, `{"commits":[%s,%s],"next_page_cursor":"c2","rate_limit_remaining":41,"rate_limit_reset_at":"2024-01-15T01:00:00Z"}`,
			commitJSON("sha1", "2024-01-15T10:00:00Z"), commitJSON("sha2", "2024-01-15T11:00:00+02:00"))
	})

	p, err := c.CommitsPage(context.Background(), req())
	if err != nil {
		t.Fatalf("CommitsPage: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotPath != "/repos/octo/hello/commits" {
		t.Fatalf("path = %q", gotPath)
	}
	if want := "per_page=2&since=2024-01-15T00%3A00%3A00Z&until=2024-01-16T00%3A00%3A00Z"; gotQuery != want {
		t.Fatalf("query = %q, want %q", gotQuery, want)
	}
	if len(p.Commits) != 2 || p.NextCursor != "c2" || p.Last() {
		t.Fatalf("page = %+v", p)
	}
	c0 := p.Commits[0]
	if c0.SHA != "sha1" || c0.AuthorName != "Ada" || c0.AuthorEmail != "ada@example.com" || c0.Message != "fix: thing\n\nbody" {
		t.Fatalf("commit = %+v", c0)
	}
	if p.Commits[1].CommittedAt != "2024-01-15T11:00:00+02:00" {
		t.Fatalf("dates must stay verbatim, got %q", p.Commits[1].CommittedAt)
	}
	if p.RateRemaining != 41 || !p.RateResetAt.Equal(time.Date(2024, 1, 15, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("rate = %d %v", p.RateRemaining, p.RateResetAt)
	}
}

func TestCommitsPage_CursorAndLastPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") != "c2" || r.URL.Query().Get("sha") != "main" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("X-RateLimit-Remaining", "7")
		fmt.Fprint(w, `{"commits":[],"next_page_cursor":null}`)
	})
	pr := req()
	pr.Cursor, pr.Ref = "c2", "main"
	p, err := c.CommitsPage(context.Background(), pr)
	if err != nil {
		t.Fatalf("CommitsPage: %v", err)
	}
	if !p.Last() || p.RateRemaining != 7 {
		t.Fatalf("page = %+v", p)
	}
}

func TestCommitsPage_OddDateStaysRowLevel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"commits":[%s]}`, commitJSON("sha1", "yesterday-ish"))
	})
	p, err := c.CommitsPage(context.Background(), req())
	if err != nil {
		t.Fatalf("CommitsPage: %v", err)
	}
	if p.Commits[0].SHA != "sha1" || p.Commits[0].AuthorName != "Ada" || p.Commits[0].CommittedAt != "yesterday-ish" {
		t.Fatalf("commit = %+v", p.Commits[0])
	}
	if p.RateRemaining != -1 {
		t.Fatalf("unknown rate should be -1, got %d", p.RateRemaining)
	}
}

func TestCommitsPage_Classification(t *testing.T) {
	reset := time.Now().Add(time.Minute).Unix()
	bodyReset := time.Unix(reset, 0).UTC()
	limitedBody := fmt.Sprintf(`{"rate_limit_remaining":0,"rate_limit_reset_at":%q}`, bodyReset.Format(time.RFC3339))
	cases := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		check   func(error) bool
	}{
		{"429", 429, map[string]string{"X-RateLimit-Reset": strconv.FormatInt(reset, 10)}, "", func(err error) bool {
			rl, ok := AsRateLimited(err)
			return ok && rl.ResetAt.Unix() == reset && perr.IsCode(err, perr.ErrorCodeTooManyRequests)
		}},
		{"403 exhausted", 403, map[string]string{"X-RateLimit-Remaining": "0"}, "", func(err error) bool {
			_, ok := AsRateLimited(err)
			return ok
		}},
		{"429 body reset", 429, nil, limitedBody, func(err error) bool {
			rl, ok := AsRateLimited(err)
			return ok && rl.ResetAt.Equal(bodyReset)
		}},
		{"403 body exhausted", 403, map[string]string{"X-RateLimit-Remaining": "10"}, limitedBody, func(err error) bool {
			rl, ok := AsRateLimited(err)
			return ok && rl.Status == 403 && rl.ResetAt.Equal(bodyReset)
		}},
		{"429 garbage body keeps headers", 429, map[string]string{"X-RateLimit-Reset": strconv.FormatInt(reset, 10)}, "<html>slow down</html>", func(err error) bool {
			rl, ok := AsRateLimited(err)
			return ok && rl.ResetAt.Unix() == reset
		}},
		{"403 secondary", 403, map[string]string{"Retry-After": "3"}, "", func(err error) bool {
			rl, ok := AsRateLimited(err)
			return ok && rl.Wait(time.Now()) == 3*time.Second
		}},
		{"403 forbidden", 403, map[string]string{"X-RateLimit-Remaining": "10"}, `{"message":"Resource not accessible"}`, IsFatal},
		{"401", 401, nil, `{"message":"Bad credentials"}`, func(err error) bool {
			return IsFatal(err) && perr.KindOf(err) == "FatalFetchError"
		}},
		{"404", 404, nil, "", IsFatal},
		{"422", 422, nil, "", IsFatal},
		{"500", 500, nil, "", IsTransient},
		{"502", 502, nil, "", IsTransient},
		{"503", 503, nil, "", IsTransient},
		{"408", 408, nil, "", IsTransient},
		{"bad json", 200, nil, `{"commits":`, IsFatal},
		{"bad reset", 200, nil, `{"commits":[],"rate_limit_reset_at":"soon"}`, IsFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})
			_, err := c.CommitsPage(context.Background(), req())
			if err == nil || !tc.check(err) {
				t.Fatalf("unexpected classification: %v", err)
			}
		})
	}
}

func TestCommitsPage_FatalMessageFromErrorDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials","documentation_url":"https://docs.github.com"}`)
	})
	_, err := c.CommitsPage(context.Background(), req())
	if err == nil || !IsFatal(err) {
		t.Fatalf("want fatal, got %v", err)
	}
	if got := err.Error(); got != `github: status 401 cursor="": Bad credentials` {
		t.Fatalf("message = %q", got)
	}
}

func TestCommitsPage_TransportErrorAndCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: url, Token: "tok"})
	if _, err := c.CommitsPage(context.Background(), req()); !IsTransient(err) {
		t.Fatalf("closed server should be transient, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.CommitsPage(ctx, req()); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled ctx should surface context.Canceled, got %v", err)
	}
}

func TestCommitsPage_Pacing(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"commits":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Token: "tok", RPS: 20, Burst: 1})
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.CommitsPage(context.Background(), req()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if calls != 3 {
		t.Fatalf("calls = %d", calls)
	}
	// 3 calls at 20rps with burst 1 take at least ~100ms
	if el := time.Since(start); el < 80*time.Millisecond {
		t.Fatalf("pacing not applied, took %v", el)
	}
}
