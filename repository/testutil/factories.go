package testutil

import (
	"time"

	"github.com/google/uuid"

	"bizflow/models"
)

// CreateTestGame creates a game with the default board settings
func CreateTestGame() *models.Game {
	return &models.Game{
		ID:               uuid.NewString(),
		InitialCapital:   15000,
		StartBonusAmount: 2000,
		LoanInterestRate: 0.10,
		CreatedAt:        time.Now().UTC(),
	}
}

// CreateTestPlayer creates a player in the given game with default values
func CreateTestPlayer(gameID, name string) *models.Player {
	now := time.Now().UTC()
	return &models.Player{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Name:      name,
		Balance:   15000,
		Loan:      0,
		Round:     1,
		AvatarURL: "/avatars/01.png",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestPlayerWithBalance creates a player with a specific balance
func CreateTestPlayerWithBalance(gameID, name string, balance int64) *models.Player {
	player := CreateTestPlayer(gameID, name)
	player.Balance = balance
	return player
}

// CreateTestEntry creates a log entry for the given player
func CreateTestEntry(gameID, playerID string, entryType models.TransactionType, amount, closing int64) *models.TransactionEntry {
	return &models.TransactionEntry{
		ID:             uuid.NewString(),
		GameID:         gameID,
		PlayerID:       playerID,
		FromID:         playerID,
		ToID:           models.BankID,
		Amount:         amount,
		Memo:           "test entry",
		Type:           entryType,
		Round:          1,
		ClosingBalance: closing,
		CreatedAt:      time.Now().UTC(),
	}
}
