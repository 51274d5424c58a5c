package memory

import (
	"context"

	"bizflow/models"
)

const defaultHistoryLimit = 100

// PlayerRepository is the direct (non-transactional) player view of a Store
type PlayerRepository struct {
	store *Store
}

// NewPlayerRepository creates a player repository over the store
func NewPlayerRepository(store *Store) *PlayerRepository {
	return &PlayerRepository{store: store}
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.players[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r *PlayerRepository) GetByGame(ctx context.Context, gameID string) ([]*models.Player, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var players []*models.Player
	for _, p := range r.store.players {
		if p.GameID == gameID {
			players = append(players, p.Clone())
		}
	}
	sortPlayers(players)
	return players, nil
}

func (r *PlayerRepository) Create(ctx context.Context, player *models.Player) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.players[player.ID] = player.Clone()
	return nil
}

func (r *PlayerRepository) Update(ctx context.Context, player *models.Player) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return updatePlayerLocked(r.store, player)
}

// GameRepository is the direct (non-transactional) game view of a Store
type GameRepository struct {
	store *Store
}

// NewGameRepository creates a game repository over the store
func NewGameRepository(store *Store) *GameRepository {
	return &GameRepository{store: store}
}

func (r *GameRepository) GetByID(ctx context.Context, id string) (*models.Game, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	g, ok := r.store.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cp := *game
	r.store.games[game.ID] = &cp
	return nil
}

func (r *GameRepository) UpdateSettings(ctx context.Context, gameID string, startBonus int64, interestRate float64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return updateSettingsLocked(r.store, gameID, startBonus, interestRate)
}

// TransactionLogRepository is the read view over the store's append-only log
type TransactionLogRepository struct {
	store *Store
}

// NewTransactionLogRepository creates a log repository over the store
func NewTransactionLogRepository(store *Store) *TransactionLogRepository {
	return &TransactionLogRepository{store: store}
}

func (r *TransactionLogRepository) GetByID(ctx context.Context, gameID, entryID string) (*models.TransactionEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.entries[entryID]
	if !ok || e.GameID != gameID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *TransactionLogRepository) GetByPlayer(ctx context.Context, gameID, playerID string, limit int) ([]*models.TransactionEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.gameEntriesLocked(gameID, normalizeLimit(limit), func(e *models.TransactionEntry) bool {
		return e.PlayerID == playerID
	}), nil
}

func (r *TransactionLogRepository) GetByGame(ctx context.Context, gameID string, limit int) ([]*models.TransactionEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.gameEntriesLocked(gameID, normalizeLimit(limit), nil), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}
