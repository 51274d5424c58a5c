package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizflow/events"
	"bizflow/models"
	"bizflow/repository/testutil"
)

func TestUnitOfWork_CommitPersistsAndFlushes(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		received <- e
	})

	gameRepo := NewGameRepository(testDB.DB)
	playerRepo := NewPlayerRepository(testDB.DB)
	logRepo := NewTransactionLogRepository(testDB.DB)

	game := testutil.CreateTestGame()
	require.NoError(t, gameRepo.Create(ctx, game))
	alice := testutil.CreateTestPlayer(game.ID, "Alice")
	require.NoError(t, playerRepo.Create(ctx, alice))

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	alice.Balance = 14800
	require.NoError(t, uow.PlayerRepository().Update(ctx, alice))

	entry := testutil.CreateTestEntry(game.ID, alice.ID, models.TransactionTypePayBank, 200, 14800)
	uow.StageEntries([]*models.TransactionEntry{entry})
	uow.EventBus().Publish(events.BalanceChangeEvent{
		GameID:     game.ID,
		PlayerID:   alice.ID,
		OldBalance: 15000,
		NewBalance: 14800,
	})

	require.NoError(t, uow.Commit())

	reloaded, err := playerRepo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(14800), reloaded.Balance)

	// Staged entries land in the log after commit
	logged, err := logRepo.GetByID(ctx, game.ID, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, logged)
	assert.Equal(t, int64(14800), logged.ClosingBalance)

	select {
	case e := <-received:
		change := e.(events.BalanceChangeEvent)
		assert.Equal(t, alice.ID, change.PlayerID)
		assert.Equal(t, int64(14800), change.NewBalance)
	case <-time.After(2 * time.Second):
		t.Fatal("expected balance change event after commit")
	}
}

func TestUnitOfWork_RollbackDiscardsEverything(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		received <- e
	})

	gameRepo := NewGameRepository(testDB.DB)
	playerRepo := NewPlayerRepository(testDB.DB)
	logRepo := NewTransactionLogRepository(testDB.DB)

	game := testutil.CreateTestGame()
	require.NoError(t, gameRepo.Create(ctx, game))
	alice := testutil.CreateTestPlayer(game.ID, "Alice")
	require.NoError(t, playerRepo.Create(ctx, alice))

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	update := alice.Clone()
	update.Balance = 1
	require.NoError(t, uow.PlayerRepository().Update(ctx, update))

	entry := testutil.CreateTestEntry(game.ID, alice.ID, models.TransactionTypePayBank, 14999, 1)
	uow.StageEntries([]*models.TransactionEntry{entry})
	uow.EventBus().Publish(events.BalanceChangeEvent{GameID: game.ID, PlayerID: alice.ID})

	require.NoError(t, uow.Rollback())

	reloaded, err := playerRepo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), reloaded.Balance)

	logged, err := logRepo.GetByID(ctx, game.ID, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, logged)

	select {
	case <-received:
		t.Fatal("no event expected after rollback")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestUnitOfWork_DoubleBegin(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	assert.Error(t, uow.Begin(ctx))
}
