package domain

import (
	"context"

	"commitflow/internal/platform/day"
	extractdom "commitflow/internal/services/extract/domain"
	loaddom "commitflow/internal/services/load/domain"
	transformdom "commitflow/internal/services/transform/domain"
)

// DriverPort is the public port of the pipeline module
type DriverPort interface {
	// Run executes extract, transform and load for d in order
	Run(ctx context.Context, d day.Date) (Run, error)

	// RunRange runs every date in [start, end] and returns all runs; the error
	// joins the failures
	RunRange(ctx context.Context, start, end day.Date) ([]Run, error)

	// Dates lists [start, end] or the error RunRange would return for it
	Dates(start, end day.Date) ([]day.Date, error)

	// Busy reports whether d is running in this process
	Busy(d day.Date) bool
}

// Extractor lands the bronze snapshot for a whole logical date
type Extractor interface {
	Extract(ctx context.Context, d day.Date) (extractdom.SnapshotRef, error)
	Key(d day.Date) string
}

// Transformer is the transform stage port
type Transformer = transformdom.TransformerPort

// Loader is the load stage port
type Loader = loaddom.LoaderPort

// Artifacts confirms a stage output exists before the next stage starts
type Artifacts interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Ledger persists run history
type Ledger interface {
	StartRun(ctx context.Context, r Run) error
	UpdateRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	LatestRun(ctx context.Context, d day.Date) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// LeaseFunc holds a cross-process claim on d while do runs
type LeaseFunc func(ctx context.Context, d day.Date, do func(context.Context) error) error
