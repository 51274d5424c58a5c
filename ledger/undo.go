package ledger

import (
	"fmt"

	"bizflow/models"
)

// InverseOperation computes the operation that reverses a committed entry.
// The inverse is resubmitted through Apply like any other operation, so it is
// validated against current balances; an undo can legitimately fail if the
// money has since been spent. The original entry is never edited or deleted.
//
// pass-start and interest-added are compound derived transitions, not simple
// transfers, and cannot be undone. Neither can an undo entry itself.
func InverseOperation(entry *models.TransactionEntry) (Operation, error) {
	memo := fmt.Sprintf("Undo: %s", entry.Memo)

	switch entry.Type {
	case models.TransactionTypePlayerToPlayer:
		return Operation{
			Type:   models.TransactionTypePlayerToPlayer,
			FromID: entry.ToID,
			ToID:   entry.FromID,
			Amount: entry.Amount,
			Memo:   memo,
			UndoOf: entry.ID,
		}, nil

	case models.TransactionTypePayBank:
		return Operation{
			Type:   models.TransactionTypeReceiveFromBank,
			FromID: models.BankID,
			ToID:   entry.FromID,
			Amount: entry.Amount,
			Memo:   memo,
			UndoOf: entry.ID,
		}, nil

	case models.TransactionTypeReceiveFromBank:
		return Operation{
			Type:   models.TransactionTypePayBank,
			FromID: entry.ToID,
			ToID:   models.BankID,
			Amount: entry.Amount,
			Memo:   memo,
			UndoOf: entry.ID,
		}, nil

	case models.TransactionTypeTakeLoan:
		// Returning the principal: balance and loan both drop by the loaned
		// amount, with the usual funds check against the current balance.
		return Operation{
			Type:   models.TransactionTypeRepayLoan,
			FromID: entry.ToID,
			ToID:   models.BankID,
			Amount: entry.Amount,
			Memo:   memo,
			UndoOf: entry.ID,
		}, nil

	case models.TransactionTypeRepayLoan:
		// The entry's amount is the applied (possibly clamped) repayment, so
		// the inverse restores exactly what was taken.
		return Operation{
			Type:   models.TransactionTypeTakeLoan,
			FromID: models.BankID,
			ToID:   entry.FromID,
			Amount: entry.Amount,
			Memo:   memo,
			UndoOf: entry.ID,
		}, nil

	default:
		return Operation{}, &NotUndoableError{Type: entry.Type}
	}
}
