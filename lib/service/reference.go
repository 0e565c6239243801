package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// FormatReference renders a human readable reference, e.g. TRANS-00042.
func FormatReference(prefix string, n int64) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}

// sequences created by the reference_sequences migration on PostgreSQL
const (
	entryReferenceSequence   = "ledger_entry_reference_seq"
	accountReferenceSequence = "account_reference_seq"
)

// nextReference returns the next reference number of a table.
// PostgreSQL draws it from a sequence, so writers of different accounts never
// share a number. SQLite has a single writer and derives it from the highest id,
// attempt then skips numbers already found taken by a previous try.
func nextReference(ctx context.Context, tx bun.Tx, model interface{}, sequence, prefix string, attempt int) (string, error) {
	if tx.Dialect().Name() == dialect.PG {
		var n int64
		if err := tx.QueryRowContext(ctx, "SELECT nextval(?)", sequence).Scan(&n); err != nil {
			return "", err
		}
		return FormatReference(prefix, n), nil
	}

	var maxID int64
	err := tx.NewSelect().
		Model(model).
		ColumnExpr("COALESCE(MAX(id), 0)").
		Scan(ctx, &maxID)
	if err != nil {
		return "", err
	}
	return FormatReference(prefix, maxID+1+int64(attempt)), nil
}

func (svc *TreasuryService) retryBackoff(ctx context.Context) backoff.BackOff {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 10 * time.Millisecond
	exponentialBackoff.MaxInterval = 250 * time.Millisecond
	exponentialBackoff.MaxElapsedTime = 5 * time.Second

	retries := svc.Config.ReferenceMaxRetries
	if retries == 0 {
		retries = 5
	}
	return backoff.WithContext(backoff.WithMaxRetries(exponentialBackoff, retries), ctx)
}

// runInTxWithRetry runs fn in a fresh transaction until it commits.
// Only reference collisions are retried, every other error aborts at once.
func (svc *TreasuryService) runInTxWithRetry(ctx context.Context, fn func(ctx context.Context, tx bun.Tx, attempt int) error) error {
	attempt := 0
	operation := func() error {
		err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, tx, attempt)
		})
		attempt++
		if err == nil {
			return nil
		}
		if errors.Is(err, errReferenceTaken) {
			svc.Logger.Debugf("reference collision, retrying transaction (attempt %d)", attempt)
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(operation, svc.retryBackoff(ctx))
}
