package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SerializableTxOptions is used for every balance-mutating transaction.
// Serializable isolation is what makes concurrent submissions against the
// same players conflict instead of silently interleaving.
var SerializableTxOptions = pgx.TxOptions{IsoLevel: pgx.Serializable}

// BeginSerializable starts a serializable transaction on the pool.
func (db *DB) BeginSerializable(ctx context.Context) (pgx.Tx, error) {
	tx, err := db.BeginTx(ctx, SerializableTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin serializable transaction: %w", err)
	}
	return tx, nil
}

// WithTransaction executes a function within a serializable transaction.
// If the function returns an error, the transaction is rolled back;
// otherwise it is committed.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginSerializable(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("rollback failed: %v, original error: %w", rbErr, err)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsSerializationFailure reports whether err is a Postgres serialization
// failure or deadlock, the two SQLSTATEs that are safe to retry as a whole
// new transaction.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
