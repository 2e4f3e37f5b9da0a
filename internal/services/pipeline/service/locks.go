package service

import (
	"sync"

	"commitflow/internal/platform/day"
)

// dateLocks is a non blocking mutex per logical date
type dateLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newDateLocks() *dateLocks { return &dateLocks{held: map[string]struct{}{}} }

// TryLock claims d and returns its release, or false when d is already held
func (l *dateLocks) TryLock(d day.Date) (func(), bool) {
	k := d.String()
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[k]; busy {
		return nil, false
	}
	l.held[k] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, k)
			l.mu.Unlock()
		})
	}, true
}

// Held reports whether d is claimed
func (l *dateLocks) Held(d day.Date) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[d.String()]
	return ok
}
