// Package repokit holds the seams SQL repos are written against
package repokit

import "commitflow/internal/platform/store"

type (
	// Queryer is the read and write surface a bound repo issues SQL on
	Queryer = store.RowQuerier

	// TxRunner runs a function inside one transaction
	TxRunner = store.TxRunner

	// Rows is a result set
	Rows = store.Rows

	// Row is a single row result
	Row = store.Row

	// CommandTag is the outcome of an Exec
	CommandTag = store.CommandTag
)

// Binder binds a repo to a Queryer: the pool for plain calls or a tx inside Tx
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a function to a Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// MustBind binds q and panics on a nil Queryer
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return b.Bind(q)
}
