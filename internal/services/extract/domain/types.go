// Package domain holds the extraction window, commit records and ports for the extract stage
package domain

import (
	"time"

	"commitflow/internal/adapters/ingest/github"
	"commitflow/internal/platform/day"
)

// SnapshotFile is the bronze object name inside a date partition
const SnapshotFile = "commits.parquet"

// Window bounds one extraction: [Since, Until) for Repo at Ref
type Window struct {
	Repo        string    `json:"repo" validate:"required,repo_slug"`
	Ref         string    `json:"ref"`
	LogicalDate day.Date  `json:"logical_date"`
	Since       time.Time `json:"since" validate:"required,ltefield=Until"`
	Until       time.Time `json:"until" validate:"required"`
}

// WindowFor covers the whole UTC day d
func WindowFor(repo, ref string, d day.Date) Window {
	return Window{Repo: repo, Ref: ref, LogicalDate: d, Since: d.Start(), Until: d.End()}
}

// CommitRecord is one upstream commit and where it sat in the page stream
type CommitRecord struct {
	github.Commit
	Page    int // 1-based
	Ordinal int // position within the page
}

// SnapshotRef describes a written bronze snapshot
type SnapshotRef struct {
	Key   string
	Rows  int
	Bytes int64
}
