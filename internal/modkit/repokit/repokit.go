// Package repokit provides the seams repositories bind against
package repokit

import "cancioneiro/internal/platform/store"

type (
	// Queryer is the read and write surface for SQL repos
	Queryer = store.RowQuerier

	// TxRunner can execute a function inside a transaction
	TxRunner = store.TxRunner

	// Row is a single row result from a query
	Row = store.Row
)

// Binder binds a domain repo to a Queryer
// memory binders ignore the Queryer, so it may be nil
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc lets you create a Binder from a function
type BindFunc[T any] func(Queryer) T

// Bind calls the underlying function
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }
