package memory

import (
	"context"
	"fmt"
	"sort"

	"bizflow/events"
	"bizflow/models"
	"bizflow/service"
)

// unitOfWork implements service.UnitOfWork over the in-memory store. Begin
// takes the store's write lock and holds it until Commit or Rollback, so
// units run one at a time and always see the latest committed state. Writes
// are buffered and applied on Commit.
type unitOfWork struct {
	store            *Store
	active           bool
	transactionalBus *events.TransactionalBus

	pendingPlayers  map[string]*models.Player
	pendingGames    map[string]*models.Game
	pendingSettings map[string]settingsChange
	staged          []*models.TransactionEntry
}

type settingsChange struct {
	startBonus   int64
	interestRate float64
}

type unitOfWorkFactory struct {
	store    *Store
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a unit-of-work factory over the store
func NewUnitOfWorkFactory(store *Store, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		store:    store,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		store:            f.store,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}

	u.store.mu.Lock()
	u.active = true
	u.pendingPlayers = make(map[string]*models.Player)
	u.pendingGames = make(map[string]*models.Game)
	u.pendingSettings = make(map[string]settingsChange)
	return nil
}

func (u *unitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}

	for id, g := range u.pendingGames {
		cp := *g
		u.store.games[id] = &cp
	}
	for id, change := range u.pendingSettings {
		if err := updateSettingsLocked(u.store, id, change.startBonus, change.interestRate); err != nil {
			u.release()
			return err
		}
	}
	for id, p := range u.pendingPlayers {
		if _, ok := u.store.players[id]; ok {
			if err := updatePlayerLocked(u.store, p); err != nil {
				u.release()
				return err
			}
		} else {
			u.store.players[id] = p.Clone()
		}
	}
	for _, e := range u.staged {
		u.store.appendEntryLocked(e)
	}

	u.release()

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(context.Background())
	}
	return nil
}

func (u *unitOfWork) Rollback() error {
	if !u.active {
		return nil
	}
	u.release()

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}
	return nil
}

func (u *unitOfWork) release() {
	u.active = false
	u.pendingPlayers = nil
	u.pendingGames = nil
	u.pendingSettings = nil
	u.staged = nil
	u.store.mu.Unlock()
}

func (u *unitOfWork) PlayerRepository() service.PlayerRepository {
	if !u.active {
		panic("unit of work not started - call Begin() first")
	}
	return &txPlayerRepository{u: u}
}

func (u *unitOfWork) GameRepository() service.GameRepository {
	if !u.active {
		panic("unit of work not started - call Begin() first")
	}
	return &txGameRepository{u: u}
}

func (u *unitOfWork) StageEntries(entries []*models.TransactionEntry) {
	for _, e := range entries {
		cp := *e
		u.staged = append(u.staged, &cp)
	}
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}

// txPlayerRepository reads buffered writes first, then committed state. The
// store lock is already held by the unit of work.
type txPlayerRepository struct {
	u *unitOfWork
}

func (r *txPlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	if p, ok := r.u.pendingPlayers[id]; ok {
		return p.Clone(), nil
	}
	if p, ok := r.u.store.players[id]; ok {
		return p.Clone(), nil
	}
	return nil, nil
}

func (r *txPlayerRepository) GetByGame(ctx context.Context, gameID string) ([]*models.Player, error) {
	seen := make(map[string]bool)
	var players []*models.Player
	for id, p := range r.u.pendingPlayers {
		if p.GameID == gameID {
			players = append(players, p.Clone())
			seen[id] = true
		}
	}
	for id, p := range r.u.store.players {
		if p.GameID == gameID && !seen[id] {
			players = append(players, p.Clone())
		}
	}
	sortPlayers(players)
	return players, nil
}

func (r *txPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	if _, ok := r.u.pendingPlayers[player.ID]; ok {
		return fmt.Errorf("player %s already exists", player.ID)
	}
	if _, ok := r.u.store.players[player.ID]; ok {
		return fmt.Errorf("player %s already exists", player.ID)
	}
	r.u.pendingPlayers[player.ID] = player.Clone()
	return nil
}

func (r *txPlayerRepository) Update(ctx context.Context, player *models.Player) error {
	_, pending := r.u.pendingPlayers[player.ID]
	_, committed := r.u.store.players[player.ID]
	if !pending && !committed {
		return fmt.Errorf("player %s not found", player.ID)
	}
	r.u.pendingPlayers[player.ID] = player.Clone()
	return nil
}

type txGameRepository struct {
	u *unitOfWork
}

func (r *txGameRepository) GetByID(ctx context.Context, id string) (*models.Game, error) {
	if g, ok := r.u.pendingGames[id]; ok {
		cp := *g
		return &cp, nil
	}
	if g, ok := r.u.store.games[id]; ok {
		cp := *g
		if change, ok := r.u.pendingSettings[id]; ok {
			cp.StartBonusAmount = change.startBonus
			cp.LoanInterestRate = change.interestRate
		}
		return &cp, nil
	}
	return nil, nil
}

func (r *txGameRepository) Create(ctx context.Context, game *models.Game) error {
	if _, ok := r.u.store.games[game.ID]; ok {
		return fmt.Errorf("game %s already exists", game.ID)
	}
	cp := *game
	r.u.pendingGames[game.ID] = &cp
	return nil
}

func (r *txGameRepository) UpdateSettings(ctx context.Context, gameID string, startBonus int64, interestRate float64) error {
	if g, ok := r.u.pendingGames[gameID]; ok {
		g.StartBonusAmount = startBonus
		g.LoanInterestRate = interestRate
		return nil
	}
	if _, ok := r.u.store.games[gameID]; !ok {
		return fmt.Errorf("game %s not found", gameID)
	}
	r.u.pendingSettings[gameID] = settingsChange{startBonus: startBonus, interestRate: interestRate}
	return nil
}

func updatePlayerLocked(s *Store, player *models.Player) error {
	if _, ok := s.players[player.ID]; !ok {
		return fmt.Errorf("player %s not found", player.ID)
	}
	s.players[player.ID] = player.Clone()
	return nil
}

func updateSettingsLocked(s *Store, gameID string, startBonus int64, interestRate float64) error {
	g, ok := s.games[gameID]
	if !ok {
		return fmt.Errorf("game %s not found", gameID)
	}
	g.StartBonusAmount = startBonus
	g.LoanInterestRate = interestRate
	return nil
}

func sortPlayers(players []*models.Player) {
	sort.Slice(players, func(i, j int) bool {
		if players[i].CreatedAt.Equal(players[j].CreatedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].CreatedAt.Before(players[j].CreatedAt)
	})
}
