package service

import (
	"context"
	"time"

	"github.com/sangkips/pos-engine/internal/domain/repository"
	"go.uber.org/zap"
)

// maxTxAttempts is the number of times a transactional operation runs before
// a transient conflict is surfaced to the caller
const maxTxAttempts = 2

// runInTx runs fn in a transaction and runs it once more when the failure is
// a transient concurrency conflict. It returns the number of attempts made.
func runInTx(ctx context.Context, tx repository.Transactor, log *zap.Logger, op string, fn func(ctx context.Context) error) (int, error) {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = tx.WithinTransaction(ctx, fn)
		if err == nil {
			return attempt, nil
		}
		if !tx.IsRetryable(err) || attempt == maxTxAttempts {
			return attempt, err
		}
		log.Warn("transient conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return maxTxAttempts, err
}

// now returns the current instant at the precision kept by storage
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
