package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bizflow/database"
	"bizflow/models"
)

// TransactionLogRepository implements the service.TransactionLogRepository
// interface. The log is append-only; appends happen through the unit of work
// after commit, so this type only exposes reads plus an internal insert.
type TransactionLogRepository struct {
	q queryable
}

// NewTransactionLogRepository creates a new transaction log repository
func NewTransactionLogRepository(db *database.DB) *TransactionLogRepository {
	return &TransactionLogRepository{q: db.Pool}
}

const entryColumns = `id, game_id, player_id, from_id, to_id, amount, memo, type, round, closing_balance, original_transaction_id, created_at`

func scanEntry(row pgx.Row) (*models.TransactionEntry, error) {
	var e models.TransactionEntry
	var originalID *string
	err := row.Scan(
		&e.ID,
		&e.GameID,
		&e.PlayerID,
		&e.FromID,
		&e.ToID,
		&e.Amount,
		&e.Memo,
		&e.Type,
		&e.Round,
		&e.ClosingBalance,
		&originalID,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if originalID != nil {
		e.OriginalTransactionID = *originalID
	}
	return &e, nil
}

// GetByID retrieves a single log entry scoped to a game. Returns nil when no
// entry exists.
func (r *TransactionLogRepository) GetByID(ctx context.Context, gameID, entryID string) (*models.TransactionEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM transaction_log WHERE game_id = $1 AND id = $2`

	entry, err := scanEntry(r.q.QueryRow(ctx, query, gameID, entryID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get log entry %s: %w", entryID, err)
	}

	return entry, nil
}

// GetByPlayer retrieves a player's entries, newest first
func (r *TransactionLogRepository) GetByPlayer(ctx context.Context, gameID, playerID string, limit int) ([]*models.TransactionEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM transaction_log
		WHERE game_id = $1 AND player_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	return r.queryEntries(ctx, query, gameID, playerID, normalizeLimit(limit))
}

// GetByGame retrieves a game's entries, newest first
func (r *TransactionLogRepository) GetByGame(ctx context.Context, gameID string, limit int) ([]*models.TransactionEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM transaction_log
		WHERE game_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.queryEntries(ctx, query, gameID, normalizeLimit(limit))
}

const defaultHistoryLimit = 100

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}

func (r *TransactionLogRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*models.TransactionEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.TransactionEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate log entries: %w", err)
	}

	return entries, nil
}

// insertEntry appends one entry to the log. Used by the unit of work's
// post-commit flush.
func insertEntry(ctx context.Context, q queryable, e *models.TransactionEntry) error {
	query := `
		INSERT INTO transaction_log (id, game_id, player_id, from_id, to_id, amount, memo, type, round, closing_balance, original_transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var originalID *string
	if e.OriginalTransactionID != "" {
		originalID = &e.OriginalTransactionID
	}

	_, err := q.Exec(ctx, query,
		e.ID,
		e.GameID,
		e.PlayerID,
		e.FromID,
		e.ToID,
		e.Amount,
		e.Memo,
		e.Type,
		e.Round,
		e.ClosingBalance,
		originalID,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert log entry %s: %w", e.ID, err)
	}

	return nil
}
