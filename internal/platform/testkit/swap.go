// Package testkit holds helpers shared by tests across packages
package testkit

import "testing"

// Swap sets *target to v until the test ends. Tests using it must not run in parallel.
func Swap[T any](t testing.TB, target *T, v T) {
	t.Helper()
	prev := *target
	*target = v
	t.Cleanup(func() { *target = prev })
}
