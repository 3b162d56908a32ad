package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/pkg/database"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// runInTx executes fn inside a read-committed transaction, committing on success and rolling back on any error.
func runInTx(ctx context.Context, provider txProvider, fn func(tx *sqlx.Tx) error) (err error) {
	if provider == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
	}
	tx, err := provider.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return storageError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return storageError(err, "failed to commit transaction")
	}
	return nil
}

// storageError maps a write-path error. Typed errors pass through; a version-checked write that matched
// no row, a serialization failure and a deadlock all mean another writer won the race.
func storageError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, sql.ErrNoRows) || database.IsRetryable(err) {
		return appErrors.WrapAs(err, appErrors.ErrConcurrentModification, "")
	}
	return appErrors.Persistence(err, message)
}
