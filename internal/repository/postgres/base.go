package postgres

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/slotbook/booking-api/pkg/errors"
)

// Postgres error codes the booking path cares about.
const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
	pgSerializationFail  = "40001"
	pgDeadlockDetected   = "40P01"
	pgQueryCanceled      = "57014"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// pqCode extracts the Postgres error code, if any.
func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isRetryableSerialization reports whether the transaction lost a
// serialization or deadlock race and can safely be re-run.
func isRetryableSerialization(err error) bool {
	code := pqCode(err)
	return code == pgSerializationFail || code == pgDeadlockDetected
}

// translateWriteError maps a store failure on the booking path to the error
// taxonomy. Raw driver errors never leak past the repository boundary.
func translateWriteError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	switch pqCode(err) {
	case pgExclusionViolation, pgUniqueViolation:
		return apperrors.NewConflict("time slot is no longer available", err)
	case pgQueryCanceled:
		return apperrors.NewIndeterminate("booking outcome unknown: statement timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return apperrors.NewIndeterminate("booking outcome unknown: request timed out", err)
	}
	return apperrors.NewInternal(err)
}
