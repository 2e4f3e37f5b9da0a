package domain

import (
	"context"
	"iter"

	"commitflow/internal/adapters/ingest/github"
	"commitflow/internal/platform/day"
)

// ExtractorPort is the public port of the extract module
type ExtractorPort interface {
	// Extract pages the window and writes the bronze snapshot for its logical date
	Extract(ctx context.Context, w Window) (SnapshotRef, error)

	// Key returns the bronze object key for d
	Key(d day.Date) string
}

// CommitSource yields the commits of a window lazily
type CommitSource interface {
	Commits(ctx context.Context, w Window) iter.Seq2[CommitRecord, error]
}

// PageFetcher fetches one page of commits; *github.Client implements it
type PageFetcher interface {
	CommitsPage(ctx context.Context, req github.PageRequest) (github.Page, error)
}

// ObjectWriter stores a finished object; *objstore.Bucket implements it
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
