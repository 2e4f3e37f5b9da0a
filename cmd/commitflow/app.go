package main

import (
	"context"
	"errors"
	"time"

	"commitflow/internal/core/mapping"
	"commitflow/internal/modkit"
	"commitflow/internal/modkit/module"
	"commitflow/internal/platform/config"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"
	"commitflow/internal/platform/objstore"
	"commitflow/internal/platform/store"
	extractmod "commitflow/internal/services/extract/module"
	loadmod "commitflow/internal/services/load/module"
	pipemod "commitflow/internal/services/pipeline/module"
	"commitflow/internal/services/pipeline/service"
	transformmod "commitflow/internal/services/transform/module"
)

// app holds the opened backends and the wired modules
type app struct {
	cfg      config.Conf
	deps     modkit.Deps
	store    *store.Store
	bucket   *objstore.Bucket
	pipeline *pipemod.Module
	plan     *mapping.Plan
}

// bootstrap opens the store and the bucket and wires the stage modules.
// Postgres is optional; without it runs are kept in memory.
func bootstrap(ctx context.Context, tag string) (*app, error) {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	chURL := chCfg.MayString("DBURL", "")
	if chURL == "" {
		return nil, perr.WithField(perr.InvalidArgf("SERVICE_CLICKHOUSE_DBURL is required"), "SERVICE_CLICKHOUSE_DBURL")
	}
	st, err := store.Open(ctx,
		store.Config{
			PG: store.PGConfig{
				URL:       pgCfg.MayString("DBURL", ""),
				MaxConns:  int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQuery: pgCfg.MayDuration("SLOW_QUERY", 500*time.Millisecond),
				LogSQL:    pgCfg.MayBool("LOG_SQL", false),
			},
			CH: store.CHConfig{
				URL:          chURL,
				ClientTag:    tag,
				MaxOpenConns: chCfg.MayInt("MAX_OPEN_CONNS", 4),
				DialTimeout:  chCfg.MayDuration("DIAL_TIMEOUT", 0),
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		return nil, err
	}

	bucket, err := objstore.Open(ctx, root.Prefix("CORE_STORAGE_").MayString("BUCKET_URL", ""))
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	a := &app{cfg: root, store: st, bucket: bucket}
	a.deps = modkit.Deps{
		Cfg:    root,
		PG:     st.PG,
		CH:     st.CH,
		Bucket: bucket,
	}
	if err := a.wire(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	ex, err := extractmod.New(a.deps)
	if err != nil {
		return err
	}
	tr, err := transformmod.New(a.deps)
	if err != nil {
		return err
	}
	ld, err := loadmod.New(a.deps)
	if err != nil {
		return err
	}
	pipe, err := pipemod.New(a.deps, service.Stages{
		Extract:   ex.Daily(),
		Transform: tr.Transformer(),
		Load:      ld.Loader(),
	})
	if err != nil {
		return err
	}
	if err := pipe.Prepare(ctx); err != nil {
		return err
	}

	module.Register(ex.Name(), ex.Ports())
	module.Register(tr.Name(), tr.Ports())
	module.Register(ld.Name(), ld.Ports())

	a.pipeline = pipe
	a.plan = tr.Plan()
	return nil
}

// Close releases the bucket and the store
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.bucket != nil {
		errs = append(errs, a.bucket.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close(ctx))
	}
	return errors.Join(errs...)
}
