package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bizflow/database"
	"bizflow/models"
)

// PlayerRepository implements the service.PlayerRepository interface
type PlayerRepository struct {
	q queryable
}

// NewPlayerRepository creates a new player repository backed by the pool
func NewPlayerRepository(db *database.DB) *PlayerRepository {
	return &PlayerRepository{q: db.Pool}
}

// newPlayerRepositoryWithTx creates a new player repository bound to a transaction
func newPlayerRepositoryWithTx(tx queryable) *PlayerRepository {
	return &PlayerRepository{q: tx}
}

const playerColumns = `id, game_id, name, balance, loan, round, avatar_url, created_at, updated_at`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(
		&p.ID,
		&p.GameID,
		&p.Name,
		&p.Balance,
		&p.Loan,
		&p.Round,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a player by ID. Returns nil when no player exists.
func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapConflict(fmt.Errorf("failed to get player %s: %w", id, err))
	}

	return player, nil
}

// GetByGame retrieves all players of a game ordered by creation
func (r *PlayerRepository) GetByGame(ctx context.Context, gameID string) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE game_id = $1 ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query, gameID)
	if err != nil {
		return nil, wrapConflict(fmt.Errorf("failed to get players for game %s: %w", gameID, err))
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapConflict(fmt.Errorf("failed to iterate players: %w", err))
	}

	return players, nil
}

// Create inserts a new player
func (r *PlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (id, game_id, name, balance, loan, round, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		player.ID,
		player.GameID,
		player.Name,
		player.Balance,
		player.Loan,
		player.Round,
		player.AvatarURL,
		player.CreatedAt,
		player.UpdatedAt,
	)
	if err != nil {
		return wrapConflict(fmt.Errorf("failed to create player %s: %w", player.ID, err))
	}

	return nil
}

// Update writes a player's balance, loan and round
func (r *PlayerRepository) Update(ctx context.Context, player *models.Player) error {
	query := `
		UPDATE players
		SET balance = $1, loan = $2, round = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.q.Exec(ctx, query,
		player.Balance,
		player.Loan,
		player.Round,
		time.Now().UTC(),
		player.ID,
	)
	if err != nil {
		return wrapConflict(fmt.Errorf("failed to update player %s: %w", player.ID, err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("player %s not found", player.ID)
	}

	return nil
}
