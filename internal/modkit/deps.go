// Package modkit provides module wiring and core deps
package modkit

import (
	"commitflow/internal/modkit/repokit"
	"commitflow/internal/platform/config"
	"commitflow/internal/platform/objstore"
	"commitflow/internal/platform/store"
)

// Deps holds the opened backends handed to every module
type Deps struct {
	Cfg    config.Conf
	PG     repokit.TxRunner // nil when no run ledger is configured
	CH     store.Clickhouse
	Bucket *objstore.Bucket
}

// HasLedger reports whether a Postgres run ledger is wired
func (d Deps) HasLedger() bool { return d.PG != nil }
