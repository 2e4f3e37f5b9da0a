// Package domain holds the warehouse port, the destination schema and the loader port
package domain

import (
	"context"

	"commitflow/internal/adapters/columnar"
	"commitflow/internal/platform/day"
)

// Column is a destination column name and its warehouse type
type Column = columnar.Column

// Schema is the destination table contract, in order
var Schema = []Column{
	{Name: "commit_sha", Type: "String"},
	{Name: "author_name", Type: "String"},
	{Name: "author_email", Type: "String"},
	{Name: "commit_message", Type: "String"},
	{Name: "committed_at", Type: "DateTime64(6, 'UTC')"},
	{Name: "created_date", Type: "Date"},
}

// Warehouse is the partitioned analytical store
type Warehouse interface {
	// EnsureTable creates the destination table when absent
	EnsureTable(ctx context.Context) error

	// Columns lists the destination columns in table order; empty when the table is missing
	Columns(ctx context.Context) ([]Column, error)

	// ReplacePartition swaps the whole partition for d with rows; readers see the
	// old or the new content, never a mix. Empty rows clear the partition.
	ReplacePartition(ctx context.Context, d day.Date, rows []columnar.StagedCommit) error

	// PartitionCount returns the row count of partition d
	PartitionCount(ctx context.Context, d day.Date) (int64, error)

	// Table is the qualified destination name
	Table() string
}

// LoaderPort is the public port of the load module
type LoaderPort interface {
	Load(ctx context.Context, d day.Date) (Result, error)
}

// Result describes a completed load
type Result struct {
	Source    string
	Table     string
	Partition string
	Rows      int
}

// ObjectReader reads staged files
type ObjectReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}
