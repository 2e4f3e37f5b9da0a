// Package domain holds the transform stage ports and result
package domain

import (
	"context"

	"commitflow/internal/core/mapping"
	"commitflow/internal/platform/day"
)

// StagedFile is the staging object name inside a date partition
const StagedFile = "commits_transformed.parquet"

// TransformerPort is the public port of the transform module
type TransformerPort interface {
	// Transform reads the bronze snapshot for d and writes the staged file
	Transform(ctx context.Context, d day.Date) (Result, error)

	// Key returns the staging object key for d
	Key(d day.Date) string
}

// Result describes a transform run. Report is filled even when the run fails
// the data quality check.
type Result struct {
	Source string
	Key    string
	Bytes  int64
	Report mapping.Report
}

// ObjectStore is the bucket surface the stage needs
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
