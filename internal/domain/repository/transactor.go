package repository

import "context"

// Transactor runs a function inside one storage transaction. Repositories
// called with the ctx handed to fn take part in that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// IsRetryable reports whether err is a transient concurrency failure
	// (optimistic conflict, serialization failure, deadlock, busy database)
	IsRetryable(err error) bool
}
