// Package service loads one staged file into its warehouse partition
package service

import (
	"context"
	"time"

	"commitflow/internal/adapters/columnar"
	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"
	"commitflow/internal/platform/objstore"
	"commitflow/internal/services/load/domain"
	transformdom "commitflow/internal/services/transform/domain"
)

// Config holds the staging prefix
type Config struct {
	StagingPrefix string `validate:"required"`
}

// Service implements domain.LoaderPort
type Service struct {
	store domain.ObjectReader
	wh    domain.Warehouse
	cfg   Config
}

// New constructs the load service
func New(store domain.ObjectReader, wh domain.Warehouse, cfg Config) *Service {
	if store == nil || wh == nil {
		panic("load.Service requires an object reader and a warehouse")
	}
	return &Service{store: store, wh: wh, cfg: cfg}
}

// Source returns the staged key loaded for d
func (s *Service) Source(d day.Date) string {
	return objstore.PartitionKey(s.cfg.StagingPrefix, d, transformdom.StagedFile)
}

// Load implements domain.LoaderPort. Both schemas are checked before anything is
// written; every row must belong to partition d.
func (s *Service) Load(ctx context.Context, d day.Date) (domain.Result, error) {
	res := domain.Result{Source: s.Source(d), Table: s.wh.Table(), Partition: d.PartitionID()}
	t0 := time.Now()

	data, err := s.store.Get(ctx, res.Source)
	if err != nil {
		return res, perr.WithOp(err, "load")
	}

	cols, err := columnar.FileColumns(data)
	if err != nil {
		return res, perr.WithOp(err, "load")
	}
	if diff := columnar.SameColumns(cols, columnar.StagedColumns()); diff != "" {
		return res, perr.WithOp(perr.SchemaMismatchf("staged file %s: %s", res.Source, diff), "load")
	}
	rows, err := columnar.DecodeStaged(data)
	if err != nil {
		return res, perr.WithOp(err, "load")
	}
	for i, r := range rows {
		if got := r.Created(); !got.Equal(d) {
			return res, perr.WithOp(perr.Newf(perr.ErrorCodePartitionLoad,
				"row %d (%s) has created_date %s outside partition %s", i, r.CommitSHA, got, d), "load")
		}
	}

	if err := s.wh.EnsureTable(ctx); err != nil {
		return res, s.warehouseErr(ctx, err, "ensure table %s", res.Table)
	}
	dst, err := s.wh.Columns(ctx)
	if err != nil {
		return res, s.warehouseErr(ctx, err, "read columns of %s", res.Table)
	}
	if diff := columnar.SameColumns(dst, domain.Schema); diff != "" {
		return res, perr.WithOp(perr.SchemaMismatchf("table %s: %s", res.Table, diff), "load")
	}

	if err := s.wh.ReplacePartition(ctx, d, rows); err != nil {
		return res, s.warehouseErr(ctx, err, "replace partition %s of %s", res.Partition, res.Table)
	}
	res.Rows = len(rows)

	logger.C(ctx).Info().
		Str("table", res.Table).
		Str("partition", res.Partition).
		Int("rows", res.Rows).
		Dur("elapsed", time.Since(t0)).
		Msg("load: partition replaced")
	return res, nil
}

func (s *Service) warehouseErr(ctx context.Context, err error, format string, a ...any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return perr.WithOp(perr.Wrapf(err, perr.ErrorCodePartitionLoad, format, a...), "load")
}
