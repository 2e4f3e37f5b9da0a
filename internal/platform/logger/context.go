package logger

import "context"

type fieldsKey struct{}

type field struct{ name, value string }

// with returns ctx carrying name=value, replacing an earlier value for name.
// Blank values leave ctx as is.
func with(ctx context.Context, name, value string) context.Context {
	if value == "" {
		return ctx
	}
	prev := fieldsOf(ctx)
	next := make([]field, 0, len(prev)+1)
	for _, f := range prev {
		if f.name != name {
			next = append(next, f)
		}
	}
	return context.WithValue(ctx, fieldsKey{}, append(next, field{name, value}))
}

func fieldsOf(ctx context.Context) []field {
	fs, _ := ctx.Value(fieldsKey{}).([]field)
	return fs
}

// WithRequest tags ctx with the http request id
func WithRequest(ctx context.Context, reqID string) context.Context {
	return with(ctx, "request_id", reqID)
}

// WithRun tags ctx with a pipeline run and its logical date (YYYY-MM-DD)
func WithRun(ctx context.Context, runID, logicalDate string) context.Context {
	return with(with(ctx, "run_id", runID), "logical_date", logicalDate)
}

// WithStage tags ctx with the pipeline stage being executed
func WithStage(ctx context.Context, stage string) context.Context {
	return with(ctx, "stage", stage)
}

// C returns a child of the root logger carrying ctx's fields
func C(ctx context.Context) *Logger {
	fs := fieldsOf(ctx)
	if len(fs) == 0 {
		return Get()
	}
	b := Get().With()
	for _, f := range fs {
		b = b.Str(f.name, f.value)
	}
	l := b.Logger()
	return &l
}
