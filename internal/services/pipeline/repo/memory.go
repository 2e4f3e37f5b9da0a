package repo

import (
	"context"
	"slices"
	"sync"

	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/services/pipeline/domain"
)

// Memory is a process local ledger used when no Postgres DSN is configured
type Memory struct {
	mu   sync.RWMutex
	runs map[string]domain.Run
	seq  map[string]int // insertion order breaks StartedAt ties
	n    int
}

// NewMemory returns an empty in-process ledger
func NewMemory() *Memory {
	return &Memory{runs: map[string]domain.Run{}, seq: map[string]int{}}
}

var _ domain.Ledger = (*Memory)(nil)

// StartRun records run
func (m *Memory) StartRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seq[run.ID]; !ok {
		m.n++
		m.seq[run.ID] = m.n
	}
	m.runs[run.ID] = run
	return nil
}

// UpdateRun replaces the stored copy of run
func (m *Memory) UpdateRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return perr.NotFoundf("run %s", run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

// GetRun returns the run with id
func (m *Memory) GetRun(_ context.Context, id string) (domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.Run{}, perr.NotFoundf("run %s", id)
	}
	return run, nil
}

// LatestRun returns the newest run for d
func (m *Memory) LatestRun(_ context.Context, d day.Date) (domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, run := range m.sorted() {
		if run.LogicalDate.Equal(d) {
			return run, nil
		}
	}
	return domain.Run{}, perr.NotFoundf("no run for %s", d)
}

// ListRuns returns up to limit runs, newest first
func (m *Memory) ListRuns(_ context.Context, limit int) ([]domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.sorted()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sorted returns every run newest first; caller holds the lock
func (m *Memory) sorted() []domain.Run {
	out := make([]domain.Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Run) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return m.seq[b.ID] - m.seq[a.ID]
	})
	return out
}
