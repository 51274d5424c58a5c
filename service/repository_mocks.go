package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"bizflow/events"
	"bizflow/models"
)

// MockPlayerRepository is a mock implementation of PlayerRepository
type MockPlayerRepository struct {
	mock.Mock
}

func (m *MockPlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

func (m *MockPlayerRepository) GetByGame(ctx context.Context, gameID string) ([]*models.Player, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Player), args.Error(1)
}

func (m *MockPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	args := m.Called(ctx, player)
	return args.Error(0)
}

func (m *MockPlayerRepository) Update(ctx context.Context, player *models.Player) error {
	args := m.Called(ctx, player)
	return args.Error(0)
}

// MockGameRepository is a mock implementation of GameRepository
type MockGameRepository struct {
	mock.Mock
}

func (m *MockGameRepository) GetByID(ctx context.Context, id string) (*models.Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameRepository) Create(ctx context.Context, game *models.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *MockGameRepository) UpdateSettings(ctx context.Context, gameID string, startBonus int64, interestRate float64) error {
	args := m.Called(ctx, gameID, startBonus, interestRate)
	return args.Error(0)
}

// MockTransactionLogRepository is a mock implementation of TransactionLogRepository
type MockTransactionLogRepository struct {
	mock.Mock
}

func (m *MockTransactionLogRepository) GetByID(ctx context.Context, gameID, entryID string) (*models.TransactionEntry, error) {
	args := m.Called(ctx, gameID, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransactionEntry), args.Error(1)
}

func (m *MockTransactionLogRepository) GetByPlayer(ctx context.Context, gameID, playerID string, limit int) ([]*models.TransactionEntry, error) {
	args := m.Called(ctx, gameID, playerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TransactionEntry), args.Error(1)
}

func (m *MockTransactionLogRepository) GetByGame(ctx context.Context, gameID string, limit int) ([]*models.TransactionEntry, error) {
	args := m.Called(ctx, gameID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TransactionEntry), args.Error(1)
}

// RecordingPublisher collects published events for assertions.
type RecordingPublisher struct {
	Events []events.Event
}

func (p *RecordingPublisher) Publish(e events.Event) {
	p.Events = append(p.Events, e)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	playerRepo PlayerRepository
	gameRepo   GameRepository
	Published  *RecordingPublisher
	Staged     []*models.TransactionEntry
}

// SetRepositories configures the repositories this unit of work exposes
func (m *MockUnitOfWork) SetRepositories(players PlayerRepository, games GameRepository) {
	m.playerRepo = players
	m.gameRepo = games
	m.Published = &RecordingPublisher{}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) PlayerRepository() PlayerRepository {
	return m.playerRepo
}

func (m *MockUnitOfWork) GameRepository() GameRepository {
	return m.gameRepo
}

func (m *MockUnitOfWork) StageEntries(entries []*models.TransactionEntry) {
	m.Staged = append(m.Staged, entries...)
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.Published
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
