// Package service runs the mapping plan from bronze to staging
package service

import (
	"context"
	"time"

	"commitflow/internal/adapters/columnar"
	"commitflow/internal/core/mapping"
	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"
	"commitflow/internal/platform/objstore"
	extractdom "commitflow/internal/services/extract/domain"
	"commitflow/internal/services/transform/domain"
)

// Config holds the object prefixes
type Config struct {
	BronzePrefix  string `validate:"required"`
	StagingPrefix string `validate:"required,nefield=BronzePrefix"`
}

// Service implements domain.TransformerPort
type Service struct {
	store domain.ObjectStore
	plan  *mapping.Plan
	cfg   Config
}

// New constructs the transform service
func New(store domain.ObjectStore, plan *mapping.Plan, cfg Config) *Service {
	if store == nil {
		panic("transform.Service requires a non nil ObjectStore")
	}
	if plan == nil {
		panic("transform.Service requires a compiled mapping plan")
	}
	return &Service{store: store, plan: plan, cfg: cfg}
}

// Key implements domain.TransformerPort
func (s *Service) Key(d day.Date) string {
	return objstore.PartitionKey(s.cfg.StagingPrefix, d, domain.StagedFile)
}

// Source returns the bronze key read for d
func (s *Service) Source(d day.Date) string {
	return objstore.PartitionKey(s.cfg.BronzePrefix, d, extractdom.SnapshotFile)
}

// Transform implements domain.TransformerPort. Output bytes depend only on the
// bronze bytes and the mapping version.
func (s *Service) Transform(ctx context.Context, d day.Date) (domain.Result, error) {
	res := domain.Result{Source: s.Source(d), Key: s.Key(d)}
	t0 := time.Now()
	log := logger.C(ctx)

	data, err := s.store.Get(ctx, res.Source)
	if err != nil {
		return res, perr.WithOp(err, "transform")
	}
	raws, err := columnar.DecodeRaw(data)
	if err != nil {
		return res, perr.WithOp(err, "transform")
	}

	out, err := s.plan.Apply(d, raws)
	res.Report = out.Report
	if err != nil {
		log.Error().
			Err(err).
			Int("total", out.Report.Total).
			Int("excluded", out.Report.Excluded).
			Interface("reasons", out.Report.Reasons).
			Msg("transform: data quality check failed")
		return res, perr.WithOp(err, "transform")
	}

	staged, err := columnar.EncodeStaged(out.Rows)
	if err != nil {
		return res, perr.WithOp(err, "transform")
	}
	if err := s.store.Put(ctx, res.Key, staged, columnar.ContentType); err != nil {
		return res, perr.WithOp(err, "transform")
	}
	res.Bytes = int64(len(staged))

	log.Info().
		Str("key", res.Key).
		Int("mapping_version", out.Report.MappingVersion).
		Int("total", out.Report.Total).
		Int("staged", out.Report.Staged).
		Int("excluded", out.Report.Excluded).
		Int("duplicates", out.Report.Duplicates).
		Int("out_of_window", out.Report.OutOfWindow).
		Dur("elapsed", time.Since(t0)).
		Msg("transform: staged")
	return res, nil
}
