// Package repo provides the ClickHouse warehouse implementation
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"commitflow/internal/adapters/columnar"
	"commitflow/internal/platform/day"
	"commitflow/internal/platform/logger"
	"commitflow/internal/platform/store"
	"commitflow/internal/services/load/domain"

	"github.com/google/uuid"
)

// dropTimeout bounds scratch cleanup, which runs even after the caller gave up
const dropTimeout = 30 * time.Second

type chWarehouse struct {
	db       store.Clickhouse
	database string
	table    string
	newID    func() string
}

// NewCH returns a Warehouse writing to database.table. Names must already be
// validated identifiers.
func NewCH(db store.Clickhouse, database, table string) domain.Warehouse {
	if db == nil {
		panic("load.repo requires a non nil Clickhouse")
	}
	return &chWarehouse{
		db:       db,
		database: database,
		table:    table,
		newID:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] },
	}
}

func (w *chWarehouse) Table() string { return w.database + "." + w.table }

func (w *chWarehouse) qualified(table string) string {
	return fmt.Sprintf("`%s`.`%s`", w.database, table)
}

// EnsureTable implements domain.Warehouse
func (w *chWarehouse) EnsureTable(ctx context.Context) error {
	if err := w.db.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", w.database)); err != nil {
		return err
	}
	cols := make([]string, len(domain.Schema))
	for i, c := range domain.Schema {
		cols[i] = c.Name + " " + c.Type
	}
	return w.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s
	) ENGINE = MergeTree
	PARTITION BY created_date
	ORDER BY (created_date, commit_sha)`, w.qualified(w.table), strings.Join(cols, ",\n\t\t")))
}

// Columns implements domain.Warehouse
func (w *chWarehouse) Columns(ctx context.Context) ([]domain.Column, error) {
	rows, err := w.db.Query(ctx, `
		SELECT name, type
		FROM system.columns
		WHERE database = ? AND table = ?
		ORDER BY position`, w.database, w.table)
	if err != nil {
		return nil, err
	}
	return store.Collect(rows, func(r store.Row) (domain.Column, error) {
		var c domain.Column
		err := r.Scan(&c.Name, &c.Type)
		return c, err
	})
}

// ReplacePartition implements domain.Warehouse.
// Rows go to a scratch copy of the table first; a single REPLACE PARTITION then
// swaps them in. Anything failing before that statement leaves the partition as it was.
func (w *chWarehouse) ReplacePartition(ctx context.Context, d day.Date, rows []columnar.StagedCommit) error {
	log := logger.C(ctx)
	if len(rows) == 0 {
		log.Info().Str("table", w.Table()).Str("partition", d.PartitionID()).Msg("load: empty input, dropping partition")
		return w.db.Exec(ctx, fmt.Sprintf("ALTER TABLE %s DROP PARTITION ID '%s'", w.qualified(w.table), d.PartitionID()))
	}

	scratch := fmt.Sprintf("%s__load_%s_%s", w.table, d.PartitionID(), w.newID())
	if err := w.db.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", w.qualified(scratch), w.qualified(w.table))); err != nil {
		return fmt.Errorf("create scratch %s: %w", scratch, err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dropTimeout)
		defer cancel()
		if err := w.db.Exec(dctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", w.qualified(scratch))); err != nil {
			log.Warn().Err(err).Str("scratch", scratch).Msg("load: scratch table not dropped")
		}
	}()

	batch := make([][]any, len(rows))
	for i, r := range rows {
		batch[i] = []any{r.CommitSHA, r.AuthorName, r.AuthorEmail, r.CommitMessage, r.CommittedAt(), r.Created().Start()}
	}
	if err := w.db.Insert(ctx, w.qualified(scratch), batch); err != nil {
		return fmt.Errorf("insert scratch %s: %w", scratch, err)
	}

	if err := w.db.Exec(ctx, fmt.Sprintf("ALTER TABLE %s REPLACE PARTITION ID '%s' FROM %s",
		w.qualified(w.table), d.PartitionID(), w.qualified(scratch))); err != nil {
		return fmt.Errorf("replace partition %s: %w", d.PartitionID(), err)
	}
	return nil
}

// PartitionCount implements domain.Warehouse
func (w *chWarehouse) PartitionCount(ctx context.Context, d day.Date) (int64, error) {
	n, err := store.ScalarCH[uint64](ctx, w.db,
		fmt.Sprintf("SELECT count() FROM %s WHERE created_date = toDate(?)", w.qualified(w.table)), d.String())
	return int64(n), err
}
