package models

import (
	"time"
)

// TransactionType represents the kind of economic event an entry records.
type TransactionType string

const (
	TransactionTypePayBank         TransactionType = "pay-bank"
	TransactionTypeRepayLoan       TransactionType = "repay-loan"
	TransactionTypeReceiveFromBank TransactionType = "receive-from-bank"
	TransactionTypeTakeLoan        TransactionType = "take-loan"
	TransactionTypePlayerToPlayer  TransactionType = "player-to-player"
	TransactionTypePassStart       TransactionType = "pass-start"
	TransactionTypeInterestAdded   TransactionType = "interest-added"
	TransactionTypeUndo            TransactionType = "undo"
)

// TransactionEntry is one immutable audit record of a balance-affecting
// event, scoped to a single player's history. One economic event produces one
// entry per affected player; a player-to-player payment produces two entries,
// each carrying that player's own closing balance and round.
type TransactionEntry struct {
	ID             string          `db:"id" json:"id"`
	GameID         string          `db:"game_id" json:"gameId"`
	PlayerID       string          `db:"player_id" json:"playerId"`
	FromID         string          `db:"from_id" json:"fromId"`
	ToID           string          `db:"to_id" json:"toId"`
	Amount         int64           `db:"amount" json:"amount"`
	Memo           string          `db:"memo" json:"memo,omitempty"`
	Type           TransactionType `db:"type" json:"type"`
	Round          int             `db:"round" json:"round"`
	ClosingBalance int64           `db:"closing_balance" json:"closingBalance"`

	// OriginalTransactionID references the entry a compensating undo entry
	// reverses. Empty for regular entries.
	OriginalTransactionID string `db:"original_transaction_id" json:"originalTransactionId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
