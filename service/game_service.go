package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bizflow/events"
	"bizflow/models"
)

const maxPlayers = 8

type gameService struct {
	uowFactory UnitOfWorkFactory
	games      GameRepository
	players    PlayerRepository
	logRepo    TransactionLogRepository
}

// NewGameService creates a new game service. The repositories are the
// store's direct (non-transactional) handles, used for reads; mutations go
// through the unit of work factory.
func NewGameService(uowFactory UnitOfWorkFactory, games GameRepository, players PlayerRepository, logRepo TransactionLogRepository) GameService {
	return &gameService{
		uowFactory: uowFactory,
		games:      games,
		players:    players,
		logRepo:    logRepo,
	}
}

func (s *gameService) CreateGame(ctx context.Context, playerNames []string, initialCapital, startBonus int64, interestRate float64) (*models.Game, []*models.Player, error) {
	if len(playerNames) == 0 {
		return nil, nil, fmt.Errorf("%w: a game needs at least one player", ErrInvalidInput)
	}
	if len(playerNames) > maxPlayers {
		return nil, nil, fmt.Errorf("%w: a game supports at most %d players, got %d", ErrInvalidInput, maxPlayers, len(playerNames))
	}
	for _, name := range playerNames {
		if strings.TrimSpace(name) == "" {
			return nil, nil, fmt.Errorf("%w: player names must not be blank", ErrInvalidInput)
		}
	}
	if initialCapital <= 0 {
		return nil, nil, fmt.Errorf("%w: initial capital must be positive, got %d", ErrInvalidInput, initialCapital)
	}
	if startBonus <= 0 {
		return nil, nil, fmt.Errorf("%w: start bonus must be positive, got %d", ErrInvalidInput, startBonus)
	}
	if interestRate < 0 || interestRate > 1 {
		return nil, nil, fmt.Errorf("%w: loan interest rate must be between 0 and 1, got %g", ErrInvalidInput, interestRate)
	}

	now := time.Now().UTC()
	game := &models.Game{
		ID:               uuid.NewString(),
		InitialCapital:   initialCapital,
		StartBonusAmount: startBonus,
		LoanInterestRate: interestRate,
		CreatedAt:        now,
	}

	players := make([]*models.Player, 0, len(playerNames))
	for i, name := range playerNames {
		players = append(players, &models.Player{
			ID:        uuid.NewString(),
			GameID:    game.ID,
			Name:      strings.TrimSpace(name),
			Balance:   initialCapital,
			Loan:      0,
			Round:     1,
			AvatarURL: fmt.Sprintf("/avatars/%02d.png", i%maxPlayers+1),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	if err := uow.GameRepository().Create(ctx, game); err != nil {
		return nil, nil, fmt.Errorf("failed to create game: %w", err)
	}
	for _, p := range players {
		if err := uow.PlayerRepository().Create(ctx, p); err != nil {
			return nil, nil, fmt.Errorf("failed to create player %s: %w", p.Name, err)
		}
	}

	uow.EventBus().Publish(events.GameCreatedEvent{
		GameID:         game.ID,
		PlayerCount:    len(players),
		InitialCapital: initialCapital,
	})

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit game creation: %w", err)
	}

	return game, players, nil
}

func (s *gameService) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
	}
	return game, nil
}

func (s *gameService) UpdateSettings(ctx context.Context, gameID string, role models.Role, startBonus int64, interestRate float64) (*models.Game, error) {
	if role != models.RoleBanker {
		return nil, ErrNotBanker
	}
	if startBonus <= 0 {
		return nil, fmt.Errorf("%w: start bonus must be positive, got %d", ErrInvalidInput, startBonus)
	}
	if interestRate < 0 || interestRate > 1 {
		return nil, fmt.Errorf("%w: loan interest rate must be between 0 and 1, got %g", ErrInvalidInput, interestRate)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
	}

	if err := uow.GameRepository().UpdateSettings(ctx, gameID, startBonus, interestRate); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	uow.EventBus().Publish(events.SettingsUpdatedEvent{
		GameID:           gameID,
		StartBonusAmount: startBonus,
		LoanInterestRate: interestRate,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settings update: %w", err)
	}

	game.StartBonusAmount = startBonus
	game.LoanInterestRate = interestRate
	return game, nil
}

func (s *gameService) Players(ctx context.Context, gameID string) ([]*models.Player, error) {
	players, err := s.players.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	return players, nil
}

func (s *gameService) PlayerHistory(ctx context.Context, gameID, playerID string, limit int) ([]*models.TransactionEntry, error) {
	entries, err := s.logRepo.GetByPlayer(ctx, gameID, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get player history: %w", err)
	}
	return entries, nil
}

func (s *gameService) GameHistory(ctx context.Context, gameID string, limit int) ([]*models.TransactionEntry, error) {
	entries, err := s.logRepo.GetByGame(ctx, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get game history: %w", err)
	}
	return entries, nil
}
