package service

import (
	"context"
	"errors"

	"bizflow/events"
	"bizflow/ledger"
	"bizflow/models"
)

// ErrStoreConflict marks a transient serialization conflict from the backing
// store. The whole read-compute-write cycle is safe to retry because the
// ledger core is stateless; everything else is surfaced to the caller.
var ErrStoreConflict = errors.New("store conflict")

// ErrNotBanker rejects a settings change from a non-privileged role.
var ErrNotBanker = errors.New("only the banker may change game settings")

// ErrGameNotFound rejects an operation against an unknown game session.
var ErrGameNotFound = errors.New("game not found")

// ErrInvalidInput rejects malformed game setup or settings values.
var ErrInvalidInput = errors.New("invalid input")

// PlayerRepository defines the interface for player data access
type PlayerRepository interface {
	// GetByID retrieves a player by id, nil when not found
	GetByID(ctx context.Context, id string) (*models.Player, error)

	// GetByGame returns all players in a game, in join order
	GetByGame(ctx context.Context, gameID string) ([]*models.Player, error)

	// Create inserts a new player
	Create(ctx context.Context, player *models.Player) error

	// Update persists a player's balance, loan and round
	Update(ctx context.Context, player *models.Player) error
}

// GameRepository defines the interface for game configuration access
type GameRepository interface {
	// GetByID retrieves a game by id, nil when not found
	GetByID(ctx context.Context, id string) (*models.Game, error)

	// Create inserts a new game
	Create(ctx context.Context, game *models.Game) error

	// UpdateSettings changes the start bonus and loan interest rate
	UpdateSettings(ctx context.Context, gameID string, startBonus int64, interestRate float64) error
}

// TransactionLogRepository defines the interface for reading the immutable
// audit log. Appending goes through the unit of work's staged entries so the
// write ordering guarantees hold.
type TransactionLogRepository interface {
	// GetByID retrieves a single entry, nil when not found
	GetByID(ctx context.Context, gameID, entryID string) (*models.TransactionEntry, error)

	// GetByPlayer returns a player's history, most recent first
	GetByPlayer(ctx context.Context, gameID, playerID string, limit int) ([]*models.TransactionEntry, error)

	// GetByGame returns a game's full feed, most recent first
	GetByGame(ctx context.Context, gameID string, limit int) ([]*models.TransactionEntry, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for one atomic ledger mutation. Player
// and game writes are all-or-nothing; staged log entries are appended after
// a successful commit as a best-effort batch and never roll back the
// balance mutation.
type UnitOfWork interface {
	// Begin starts the atomic unit
	Begin(ctx context.Context) error

	// Commit applies the unit atomically, then flushes staged entries and
	// pending events
	Commit() error

	// Rollback discards the unit; no-op if already committed
	Rollback() error

	// PlayerRepository returns the player repository bound to this unit
	PlayerRepository() PlayerRepository

	// GameRepository returns the game repository bound to this unit
	GameRepository() GameRepository

	// StageEntries queues audit entries for the post-commit append
	StageEntries(entries []*models.TransactionEntry)

	// EventBus returns the transactional event publisher for this unit
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// LedgerService is the caller interface for submitting ledger operations.
type LedgerService interface {
	// Submit validates and applies a caller-constructed operation. Returns
	// the resulting player states and appended entries, or a typed rejection
	// with no effect.
	Submit(ctx context.Context, gameID string, op ledger.Operation) (*models.SubmitResult, error)

	// PassStart applies the START bonus and, when the player carries a loan,
	// interest accrual, as one atomic unit. Amounts come from the game
	// configuration read at call time.
	PassStart(ctx context.Context, gameID, playerID string) (*models.SubmitResult, error)

	// Undo applies the inverse of a committed entry as a new compensating
	// transaction referencing the original.
	Undo(ctx context.Context, gameID, entryID string) (*models.SubmitResult, error)
}

// GameService manages game sessions and their configuration.
type GameService interface {
	// CreateGame creates a game and its player batch, each starting with the
	// initial capital, no loan, round 1.
	CreateGame(ctx context.Context, playerNames []string, initialCapital, startBonus int64, interestRate float64) (*models.Game, []*models.Player, error)

	// GetGame retrieves a game's configuration
	GetGame(ctx context.Context, gameID string) (*models.Game, error)

	// UpdateSettings changes the per-game rates; banker only
	UpdateSettings(ctx context.Context, gameID string, role models.Role, startBonus int64, interestRate float64) (*models.Game, error)

	// Players returns the current player states for a game
	Players(ctx context.Context, gameID string) ([]*models.Player, error)

	// PlayerHistory returns one player's ledger entries, most recent first
	PlayerHistory(ctx context.Context, gameID, playerID string, limit int) ([]*models.TransactionEntry, error)

	// GameHistory returns the game's ledger feed, most recent first
	GameHistory(ctx context.Context, gameID string, limit int) ([]*models.TransactionEntry, error)
}
