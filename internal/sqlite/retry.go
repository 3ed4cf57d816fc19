package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/licycle/sessionwatch/internal/repository"
)

// Producers are one-shot processes with no supervisor to retry at a higher
// level, so lock contention is absorbed here with a bounded backoff.
const (
	busyAttempts  = 5
	busyBaseDelay = 50 * time.Millisecond
)

// execRetry runs a write statement, retrying transient lock contention.
func (db *DB) execRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return retryBusy(ctx, func() (sql.Result, error) {
		return db.ExecContext(ctx, query, args...)
	})
}

// retryBusy runs exec up to busyAttempts times, backing off before each retry.
// There is no sleep after the final failure: once the budget is spent the
// caller gets ErrBusy immediately.
func retryBusy(ctx context.Context, exec func() (sql.Result, error)) (sql.Result, error) {
	var lastErr error
	delay := busyBaseDelay
	for attempt := 0; attempt < busyAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		result, err := exec()
		if err == nil {
			return result, nil
		}
		if !isBusy(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", repository.ErrBusy, lastErr)
}
