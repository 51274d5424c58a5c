// Package ledger is the pure decision core of the game ledger. Given player
// snapshots and a requested operation it computes the resulting player states
// and audit entries, or rejects with a typed error. It holds no state and
// performs no I/O, so the persistence layer can safely re-run it against
// fresh snapshots when a transactional store reports a conflict.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"bizflow/models"
)

// SnapshotProvider resolves an id to the current player record, or nil when
// the id is the bank sentinel or unknown. How the snapshot was obtained (an
// in-memory map or a point read inside a serializable transaction) is the
// caller's concern.
type SnapshotProvider interface {
	Resolve(id string) *models.Player
}

// SnapshotFunc adapts a plain function to a SnapshotProvider.
type SnapshotFunc func(id string) *models.Player

func (f SnapshotFunc) Resolve(id string) *models.Player { return f(id) }

// Operation is a requested ledger mutation. FromID and ToID are player ids or
// models.BankID. UndoOf carries the original entry id when the operation is
// the computed inverse of a committed entry; its entries are then typed
// models.TransactionTypeUndo and reference the original.
type Operation struct {
	Type   models.TransactionType
	FromID string
	ToID   string
	Amount int64
	Memo   string
	UndoOf string
}

// Result is the computed effect of one or more accepted operations: new
// player copies (input snapshots are never mutated) and the audit entries to
// append. Nothing in a Result has been persisted.
type Result struct {
	Players []*models.Player
	Entries []*models.TransactionEntry
}

// Apply validates op against the provided snapshots and computes the
// mutation. On any error no partial effect is returned.
func Apply(op Operation, snapshots SnapshotProvider) (*Result, error) {
	if op.Amount <= 0 {
		return nil, &InvalidAmountError{Amount: op.Amount}
	}
	if op.FromID == op.ToID {
		return nil, &SamePartyError{ID: op.FromID}
	}

	switch op.Type {
	case models.TransactionTypePlayerToPlayer:
		return applyPlayerToPlayer(op, snapshots)
	case models.TransactionTypePayBank:
		return applyPayBank(op, snapshots)
	case models.TransactionTypeRepayLoan:
		return applyRepayLoan(op, snapshots)
	case models.TransactionTypeReceiveFromBank:
		return applyReceiveFromBank(op, snapshots)
	case models.TransactionTypeTakeLoan:
		return applyTakeLoan(op, snapshots)
	case models.TransactionTypePassStart:
		return applyPassStart(op, snapshots)
	case models.TransactionTypeInterestAdded:
		return applyInterestAdded(op, snapshots)
	default:
		// undo never reaches the engine directly; the undo policy rewrites
		// it into the inverse concrete operation first.
		return nil, &UnsupportedTypeError{Type: op.Type}
	}
}

// ApplyAll applies ops in order, each seeing the players as left by its
// predecessors, and merges the effects into a single Result with one final
// state per touched player. All-or-nothing: the first rejection discards
// everything.
func ApplyAll(ops []Operation, snapshots SnapshotProvider) (*Result, error) {
	updated := make(map[string]*models.Player)
	var order []string
	var entries []*models.TransactionEntry

	overlay := SnapshotFunc(func(id string) *models.Player {
		if p, ok := updated[id]; ok {
			return p
		}
		return snapshots.Resolve(id)
	})

	for _, op := range ops {
		res, err := Apply(op, overlay)
		if err != nil {
			return nil, err
		}
		for _, p := range res.Players {
			if _, seen := updated[p.ID]; !seen {
				order = append(order, p.ID)
			}
			updated[p.ID] = p
		}
		entries = append(entries, res.Entries...)
	}

	result := &Result{Entries: entries}
	for _, id := range order {
		result.Players = append(result.Players, updated[id])
	}
	return result, nil
}

func applyPlayerToPlayer(op Operation, snapshots SnapshotProvider) (*Result, error) {
	from := snapshots.Resolve(op.FromID)
	if from == nil {
		return nil, &PlayerNotFoundError{ID: op.FromID}
	}
	to := snapshots.Resolve(op.ToID)
	if to == nil {
		return nil, &PlayerNotFoundError{ID: op.ToID}
	}
	if from.Balance < op.Amount {
		return nil, &InsufficientFundsError{Name: from.Name, Need: op.Amount, Have: from.Balance}
	}

	newFrom := from.Clone()
	newTo := to.Clone()
	newFrom.Balance -= op.Amount
	newTo.Balance += op.Amount

	return &Result{
		Players: []*models.Player{newFrom, newTo},
		Entries: []*models.TransactionEntry{
			newEntry(op, newFrom, op.Amount),
			newEntry(op, newTo, op.Amount),
		},
	}, nil
}

func applyPayBank(op Operation, snapshots SnapshotProvider) (*Result, error) {
	from := snapshots.Resolve(op.FromID)
	if from == nil {
		return nil, &PlayerNotFoundError{ID: op.FromID}
	}
	if from.Balance < op.Amount {
		return nil, &InsufficientFundsError{Name: from.Name, Need: op.Amount, Have: from.Balance}
	}

	newFrom := from.Clone()
	newFrom.Balance -= op.Amount

	return &Result{
		Players: []*models.Player{newFrom},
		Entries: []*models.TransactionEntry{newEntry(op, newFrom, op.Amount)},
	}, nil
}

func applyRepayLoan(op Operation, snapshots SnapshotProvider) (*Result, error) {
	from := snapshots.Resolve(op.FromID)
	if from == nil {
		return nil, &PlayerNotFoundError{ID: op.FromID}
	}

	// The applied amount is clamped to the outstanding loan; the entry
	// records the clamped value, not the request.
	repay := op.Amount
	if repay > from.Loan {
		repay = from.Loan
	}
	if from.Balance < repay {
		return nil, &InsufficientFundsError{Name: from.Name, Need: repay, Have: from.Balance}
	}

	newFrom := from.Clone()
	newFrom.Balance -= repay
	newFrom.Loan -= repay

	return &Result{
		Players: []*models.Player{newFrom},
		Entries: []*models.TransactionEntry{newEntry(op, newFrom, repay)},
	}, nil
}

func applyReceiveFromBank(op Operation, snapshots SnapshotProvider) (*Result, error) {
	to := snapshots.Resolve(op.ToID)
	if to == nil {
		return nil, &PlayerNotFoundError{ID: op.ToID}
	}

	newTo := to.Clone()
	newTo.Balance += op.Amount

	return &Result{
		Players: []*models.Player{newTo},
		Entries: []*models.TransactionEntry{newEntry(op, newTo, op.Amount)},
	}, nil
}

func applyTakeLoan(op Operation, snapshots SnapshotProvider) (*Result, error) {
	to := snapshots.Resolve(op.ToID)
	if to == nil {
		return nil, &PlayerNotFoundError{ID: op.ToID}
	}

	newTo := to.Clone()
	newTo.Balance += op.Amount
	newTo.Loan += op.Amount

	return &Result{
		Players: []*models.Player{newTo},
		Entries: []*models.TransactionEntry{newEntry(op, newTo, op.Amount)},
	}, nil
}

func applyPassStart(op Operation, snapshots SnapshotProvider) (*Result, error) {
	to := snapshots.Resolve(op.ToID)
	if to == nil {
		return nil, &PlayerNotFoundError{ID: op.ToID}
	}

	newTo := to.Clone()
	newTo.Round++
	newTo.Balance += op.Amount

	// The entry carries the new round, so a reconstructed history groups the
	// bonus with the round it opened.
	return &Result{
		Players: []*models.Player{newTo},
		Entries: []*models.TransactionEntry{newEntry(op, newTo, op.Amount)},
	}, nil
}

func applyInterestAdded(op Operation, snapshots SnapshotProvider) (*Result, error) {
	to := snapshots.Resolve(op.ToID)
	if to == nil {
		return nil, &PlayerNotFoundError{ID: op.ToID}
	}

	newTo := to.Clone()
	newTo.Loan += op.Amount

	return &Result{
		Players: []*models.Player{newTo},
		Entries: []*models.TransactionEntry{newEntry(op, newTo, op.Amount)},
	}, nil
}

// newEntry builds the audit entry for one affected player. It is called
// after the mutation, so the player carries the closing balance and the round
// the entry is tagged with. Inverse operations produce undo-typed entries
// referencing the original.
func newEntry(op Operation, p *models.Player, amount int64) *models.TransactionEntry {
	entryType := op.Type
	if op.UndoOf != "" {
		entryType = models.TransactionTypeUndo
	}
	return &models.TransactionEntry{
		ID:                    uuid.NewString(),
		GameID:                p.GameID,
		PlayerID:              p.ID,
		FromID:                op.FromID,
		ToID:                  op.ToID,
		Amount:                amount,
		Memo:                  op.Memo,
		Type:                  entryType,
		Round:                 p.Round,
		ClosingBalance:        p.Balance,
		OriginalTransactionID: op.UndoOf,
		CreatedAt:             time.Now().UTC(),
	}
}
