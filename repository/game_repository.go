package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bizflow/database"
	"bizflow/models"
)

// GameRepository implements the service.GameRepository interface
type GameRepository struct {
	q queryable
}

// NewGameRepository creates a new game repository backed by the pool
func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{q: db.Pool}
}

// newGameRepositoryWithTx creates a new game repository bound to a transaction
func newGameRepositoryWithTx(tx queryable) *GameRepository {
	return &GameRepository{q: tx}
}

// GetByID retrieves a game by its ID. Returns nil when no game exists.
func (r *GameRepository) GetByID(ctx context.Context, id string) (*models.Game, error) {
	query := `
		SELECT id, initial_capital, start_bonus_amount, loan_interest_rate, created_at
		FROM games
		WHERE id = $1
	`

	var game models.Game
	err := r.q.QueryRow(ctx, query, id).Scan(
		&game.ID,
		&game.InitialCapital,
		&game.StartBonusAmount,
		&game.LoanInterestRate,
		&game.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapConflict(fmt.Errorf("failed to get game %s: %w", id, err))
	}

	return &game, nil
}

// Create inserts a new game
func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (id, initial_capital, start_bonus_amount, loan_interest_rate, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.Exec(ctx, query,
		game.ID,
		game.InitialCapital,
		game.StartBonusAmount,
		game.LoanInterestRate,
		game.CreatedAt,
	)
	if err != nil {
		return wrapConflict(fmt.Errorf("failed to create game %s: %w", game.ID, err))
	}

	return nil
}

// UpdateSettings changes the bonus amount and interest rate of a game
func (r *GameRepository) UpdateSettings(ctx context.Context, gameID string, startBonus int64, interestRate float64) error {
	query := `
		UPDATE games
		SET start_bonus_amount = $1, loan_interest_rate = $2
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, startBonus, interestRate, gameID)
	if err != nil {
		return wrapConflict(fmt.Errorf("failed to update settings for game %s: %w", gameID, err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("game %s not found", gameID)
	}

	return nil
}
