//go:build integration_ch
// +build integration_ch

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"commitflow/internal/adapters/columnar"
	"commitflow/internal/platform/day"
	"commitflow/internal/platform/store"
	"commitflow/internal/services/load/domain"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startClickhouse(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.8-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		Env: map[string]string{
			"CLICKHOUSE_USER":     "test",
			"CLICKHOUSE_PASSWORD": "test",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("9000/tcp"),
			wait.ForHTTP("/ping").WithPort("8123/tcp"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start clickhouse container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "9000/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("clickhouse://test:test@%s:%s/default", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func TestWarehouse_Integration(t *testing.T) {
	dsn, stop := startClickhouse(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{CH: store.CHConfig{ClientTag: "integration", URL: dsn}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = st.Close(context.Background()) }()

	wh := NewCH(st.CH, "analytics", "github_commits")
	if err := wh.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if err := wh.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable twice: %v", err)
	}

	cols, err := wh.Columns(ctx)
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if diff := columnar.SameColumns(cols, domain.Schema); diff != "" {
		t.Fatalf("schema: %s", diff)
	}

	jan15, jan16 := d, d.Next()
	at := func(dd day.Date, h int) time.Time { return dd.Start().Add(time.Duration(h) * time.Hour) }
	mk := func(sha string, t time.Time) columnar.StagedCommit {
		return columnar.NewStagedCommit(sha, "Ada", "ada@example.com", "multi\nline", t)
	}
	count := func(dd day.Date) int64 {
		t.Helper()
		n, err := wh.PartitionCount(ctx, dd)
		if err != nil {
			t.Fatalf("PartitionCount %s: %v", dd, err)
		}
		return n
	}

	if err := wh.ReplacePartition(ctx, jan16, []columnar.StagedCommit{mk("x", at(jan16, 1))}); err != nil {
		t.Fatalf("load 16th: %v", err)
	}
	day15 := []columnar.StagedCommit{mk("sha1", at(jan15, 1)), mk("sha2", at(jan15, 2)), mk("sha3", at(jan15, 3))}
	for i := 0; i < 2; i++ {
		if err := wh.ReplacePartition(ctx, jan15, day15); err != nil {
			t.Fatalf("load 15th #%d: %v", i, err)
		}
		if n := count(jan15); n != 3 {
			t.Fatalf("run %d: 15th has %d rows, want 3", i, n)
		}
	}
	if n := count(jan16); n != 1 {
		t.Fatalf("16th has %d rows, want 1 (untouched)", n)
	}

	// empty input clears only its own partition
	if err := wh.ReplacePartition(ctx, jan15, nil); err != nil {
		t.Fatalf("clear 15th: %v", err)
	}
	if n := count(jan15); n != 0 {
		t.Fatalf("15th has %d rows after clear", n)
	}
	if n := count(jan16); n != 1 {
		t.Fatalf("16th has %d rows, want 1", n)
	}

	// no scratch tables left behind
	left, err := store.ScalarCH[uint64](ctx, st.CH,
		"SELECT count() FROM system.tables WHERE database = 'analytics' AND name LIKE 'github_commits__load_%'")
	if err != nil {
		t.Fatalf("scratch count: %v", err)
	}
	if left != 0 {
		t.Fatalf("%d scratch tables left", left)
	}
}
