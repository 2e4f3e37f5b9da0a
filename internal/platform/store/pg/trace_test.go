package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traced(t *testing.T, slow, took time.Duration, err error) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	tr := NewTracer(zerolog.New(&buf), slow)
	at := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return at }

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL:  "SELECT *\n\t FROM pipeline_runs\n WHERE id = $1",
		Args: []any{"run-1"},
	})
	at = at.Add(took)
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1"), Err: err})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	return line
}

func TestTracer_Info(t *testing.T) {
	line := traced(t, time.Second, 10*time.Millisecond, nil)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "pg", line["component"])
	assert.Equal(t, "SELECT * FROM pipeline_runs WHERE id = $1", line["sql"])
	assert.Equal(t, []any{"run-1"}, line["args"])
	assert.EqualValues(t, 1, line["rows"])
	assert.Equal(t, false, line["slow"])
}

func TestTracer_Slow(t *testing.T) {
	line := traced(t, 100*time.Millisecond, 100*time.Millisecond, nil)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, true, line["slow"])
}

func TestTracer_SlowDisabled(t *testing.T) {
	line := traced(t, 0, time.Hour, nil)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, false, line["slow"])
}

func TestTracer_Error(t *testing.T) {
	line := traced(t, time.Millisecond, time.Second, errors.New("relation does not exist"))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "relation does not exist", line["error"])
}

func TestTracer_EndWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	NewTracer(zerolog.New(&buf), 0).TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	assert.Zero(t, buf.Len())
}
