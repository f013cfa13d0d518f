package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	domainRepo "github.com/sangkips/pos-engine/internal/domain/repository"
	"gorm.io/gorm"
)

type ctxKey string

// txKey is the context key for the transaction opened by WithinTransaction
const txKey ctxKey = "gorm_tx"

type transactor struct {
	db *gorm.DB
}

// NewTransactor creates a new gorm backed transactor
func NewTransactor(db *gorm.DB) domainRepo.Transactor {
	return &transactor{db: db}
}

// WithinTransaction runs fn in a transaction. A call made with a ctx that
// already carries a transaction joins it instead of opening a new one.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

func (t *transactor) IsRetryable(err error) bool {
	return IsRetryable(err)
}

// IsRetryable reports whether err is a transient failure worth retrying:
// an optimistic version conflict, a postgres serialization failure or
// deadlock, or a busy sqlite database
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errs.ErrConcurrencyConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// conn returns the transaction carried by ctx, or db when there is none.
// Repositories must use it for every statement so they join the caller's
// transaction.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// isPostgres reports whether db talks to postgres
func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// isUniqueViolation reports whether err is a unique constraint violation
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
