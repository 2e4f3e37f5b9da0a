// Package github is a rate-aware client for the commits listing endpoint.
// It fetches exactly one page per call and classifies failures; retry policy
// belongs to the caller.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"
)

const (
	baseURLDefault = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	defaultUA      = "commitflow-extract"
	maxBodyBytes   = 32 << 20
	errBodyBytes   = 4096
)

// Options configures the Client
type Options struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration

	// RPS paces requests client side; 0 disables pacing
	RPS   float64
	Burst int

	// HTTPClient overrides the transport (tests)
	HTTPClient *http.Client
}

// Client fetches commit pages
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	log     logger.Logger
	now     func() time.Time
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	var lim *rate.Limiter
	if o.RPS > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}
	return &Client{
		http:    hc,
		opts:    o,
		limiter: lim,
		log:     *logger.Named("github"),
		now:     time.Now,
	}
}

// pageURL renders GET /repos/{owner}/{name}/commits with the window and cursor
func (c *Client) pageURL(req PageRequest) string {
	q := url.Values{}
	q.Set("since", req.Since.UTC().Format(time.RFC3339))
	q.Set("until", req.Until.UTC().Format(time.RFC3339))
	q.Set("per_page", strconv.Itoa(req.PerPage))
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}
	if req.Ref != "" {
		q.Set("sha", req.Ref)
	}
	return c.opts.BaseURL + "/repos/" + req.Repo + "/commits?" + q.Encode()
}

// CommitsPage fetches one page. Errors are one of:
//   - *RateLimitedError on 429, or 403 with no remaining quota
//   - perr.ErrorCodeUnavailable for transport failures, timeouts and 5xx
//   - perr.ErrorCodeFatalFetch for any other non-2xx or an undecodable body
//   - ctx.Err() when the caller gave up
func (c *Client) CommitsPage(ctx context.Context, req PageRequest) (Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return Page{}, ctx.Err()
			}
			return Page{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "github: pacing")
		}
	}

	u := c.pageURL(req)
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, perr.Wrapf(err, perr.ErrorCodeFatalFetch, "github: build request")
	}
	hreq.Header.Set("User-Agent", c.opts.UserAgent)
	hreq.Header.Set("Accept", "application/vnd.github+json")
	if c.opts.Token != "" {
		hreq.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	start := c.now()
	resp, err := c.http.Do(hreq)
	lat := c.now().Sub(start)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		return Page{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github: request cursor=%q", req.Cursor)
	}

	rem, reset, retryAfter := parseRateHeaders(resp.Header)
	c.log.Debug().
		Str("repo", req.Repo).
		Str("cursor", req.Cursor).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Int("rate_remaining", rem).
		Time("rate_reset", reset).
		Msg("github http response")

	switch {
	case resp.StatusCode == http.StatusOK:
		return c.decodePage(ctx, resp, rem, reset)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusForbidden:
		data := readErrorBody(resp.Body)
		rem, reset = limitFromBody(data, rem, reset)
		if resp.StatusCode == http.StatusTooManyRequests || rem == 0 || retryAfter > 0 {
			return Page{}, NewRateLimited(resp.StatusCode, reset, retryAfter)
		}
		resp.Body = io.NopCloser(bytes.NewReader(data))
		return Page{}, fatalFromResponse(resp, req.Cursor)
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode >= 500:
		_ = drainAndClose(resp.Body)
		return Page{}, perr.Newf(perr.ErrorCodeUnavailable, "github: transient status %d cursor=%q", resp.StatusCode, req.Cursor)
	default:
		return Page{}, fatalFromResponse(resp, req.Cursor)
	}
}

func (c *Client) decodePage(ctx context.Context, resp *http.Response, hdrRem int, hdrReset time.Time) (Page, error) {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		return Page{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "github: read body")
	}

	var body pageBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return Page{}, perr.Wrap(err, perr.ErrorCodeFatalFetch, "github: malformed page body")
	}

	out := Page{Commits: make([]Commit, 0, len(body.Commits))}
	for i, rc := range body.Commits {
		cm, err := decodeCommit(rc)
		if err != nil {
			return Page{}, perr.Wrapf(err, perr.ErrorCodeFatalFetch, "github: malformed commit %d", i)
		}
		out.Commits = append(out.Commits, cm)
	}
	if body.NextPageCursor != nil {
		out.NextCursor = *body.NextPageCursor
	}
	out.RateRemaining, out.RateResetAt, err = rateFromBody(body, hdrRem, hdrReset)
	if err != nil {
		return Page{}, perr.Wrap(err, perr.ErrorCodeFatalFetch, "github: malformed rate fields")
	}
	return out, nil
}

// fatalFromResponse turns a non-retryable status into a FatalFetch error, using
// go-github's error document parsing for the message
func fatalFromResponse(resp *http.Response, cursor string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyBytes))
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))

	msg := strings.TrimSpace(string(data))
	var er *gh.ErrorResponse
	if cerr := gh.CheckResponse(resp); errors.As(cerr, &er) && er.Message != "" {
		msg = er.Message
	}
	return perr.Newf(perr.ErrorCodeFatalFetch, "github: status %d cursor=%q: %s", resp.StatusCode, cursor, msg)
}
