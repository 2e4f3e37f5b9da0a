package pg

import (
	"context"
	"strings"
	"time"

	"commitflow/internal/platform/logger"

	"github.com/jackc/pgx/v5"
)

// Tracer logs each statement once it finishes. Statements at or over the slow
// threshold log at warn and failures at error.
type Tracer struct {
	log  logger.Logger
	slow time.Duration
	now  func() time.Time
}

var _ pgx.QueryTracer = (*Tracer)(nil)

// NewTracer returns a Tracer writing to log; slow <= 0 disables the slow flag
func NewTracer(log logger.Logger, slow time.Duration) *Tracer {
	return &Tracer{log: log.With().Str("component", "pg").Logger(), slow: slow, now: time.Now}
}

type queryKey struct{}

type queryStart struct {
	sql  string
	args []any
	at   time.Time
}

// TraceQueryStart stashes the statement on ctx
func (t *Tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryKey{}, queryStart{sql: d.SQL, args: d.Args, at: t.now()})
}

// TraceQueryEnd writes the log line
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryEndData) {
	q, ok := ctx.Value(queryKey{}).(queryStart)
	if !ok {
		return
	}
	took := t.now().Sub(q.at)
	slow := t.slow > 0 && took >= t.slow

	ev := t.log.Info()
	switch {
	case d.Err != nil:
		ev = t.log.Error().Err(d.Err)
	case slow:
		ev = t.log.Warn()
	}
	ev.Dur("took", took).
		Bool("slow", slow).
		Str("sql", strings.Join(strings.Fields(q.sql), " ")).
		Interface("args", q.args).
		Int64("rows", d.CommandTag.RowsAffected()).
		Msg("pg query")
}
