// Package guardrails holds cross cutting safety helpers for pipeline runs
package guardrails

import (
	"context"
	"time"

	"commitflow/internal/services/pipeline/domain"
)

// Timeouts is an optional budget bundle for one run.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Run is the overall time budget for one logical date
	Run time.Duration

	// Extract caps paging plus the bronze write
	Extract time.Duration

	// Transform caps the bronze to staging step
	Transform time.Duration

	// Load caps the partition replace
	Load time.Duration
}

// WithRun returns a context limited by the run budget without extending any parent deadline
func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Run)
}

// ForStage returns a sub context for stage bounded by its budget and any remaining parent budget
func ForStage(parent context.Context, t Timeouts, stage domain.Stage) (context.Context, context.CancelFunc) {
	switch stage {
	case domain.StageExtract:
		return withChildTimeout(parent, t.Extract)
	case domain.StageTransform:
		return withChildTimeout(parent, t.Transform)
	case domain.StageLoad:
		return withChildTimeout(parent, t.Load)
	}
	return context.WithCancel(parent)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
