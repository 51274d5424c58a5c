package ledger

import (
	"errors"
	"fmt"

	"bizflow/models"
)

// Rejection errors are pure values. The persistence layer must never retry
// them; callers render them directly to the user.

// InvalidAmountError rejects a non-positive requested amount.
type InvalidAmountError struct {
	Amount int64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("amount must be a positive whole number, got %d", e.Amount)
}

// SamePartyError rejects an operation whose payer and payee are the same id.
type SamePartyError struct {
	ID string
}

func (e *SamePartyError) Error() string {
	return fmt.Sprintf("payer and payee are the same party: %s", e.ID)
}

// PlayerNotFoundError rejects an operation referencing an id that is neither
// a known player nor the bank sentinel.
type PlayerNotFoundError struct {
	ID string
}

func (e *PlayerNotFoundError) Error() string {
	return fmt.Sprintf("player %s not found", e.ID)
}

// InsufficientFundsError rejects a debit exceeding the player's balance.
type InsufficientFundsError struct {
	Name string
	Need int64
	Have int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s has insufficient funds: needs $%d, has $%d", e.Name, e.Need, e.Have)
}

// UnsupportedTypeError rejects an operation type the engine does not accept
// from this entry point.
type UnsupportedTypeError struct {
	Type models.TransactionType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported transaction type %q", e.Type)
}

// NotUndoableError rejects an undo of a derived, compound entry.
type NotUndoableError struct {
	Type models.TransactionType
}

func (e *NotUndoableError) Error() string {
	return fmt.Sprintf("transactions of type %q cannot be undone", e.Type)
}

// EntryNotFoundError rejects an undo referencing an unknown entry id.
type EntryNotFoundError struct {
	ID string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("transaction %s not found", e.ID)
}

// IsRejection reports whether err is a ledger validation rejection, as
// opposed to an infrastructure failure. Rejections mean "nothing happened"
// and are safe to surface to the user verbatim.
func IsRejection(err error) bool {
	var (
		invalidAmount *InvalidAmountError
		sameParty     *SamePartyError
		notFound      *PlayerNotFoundError
		insufficient  *InsufficientFundsError
		unsupported   *UnsupportedTypeError
		notUndoable   *NotUndoableError
		entryMissing  *EntryNotFoundError
	)
	return errors.As(err, &invalidAmount) ||
		errors.As(err, &sameParty) ||
		errors.As(err, &notFound) ||
		errors.As(err, &insufficient) ||
		errors.As(err, &unsupported) ||
		errors.As(err, &notUndoable) ||
		errors.As(err, &entryMissing)
}

// Reason returns a short stable label for a rejection, used as a metrics
// dimension. Non-rejection errors map to "error".
func Reason(err error) string {
	var (
		invalidAmount *InvalidAmountError
		sameParty     *SamePartyError
		notFound      *PlayerNotFoundError
		insufficient  *InsufficientFundsError
		unsupported   *UnsupportedTypeError
		notUndoable   *NotUndoableError
		entryMissing  *EntryNotFoundError
	)
	switch {
	case errors.As(err, &invalidAmount):
		return "invalid_amount"
	case errors.As(err, &sameParty):
		return "same_party"
	case errors.As(err, &notFound):
		return "player_not_found"
	case errors.As(err, &insufficient):
		return "insufficient_funds"
	case errors.As(err, &unsupported):
		return "unsupported_type"
	case errors.As(err, &notUndoable):
		return "not_undoable"
	case errors.As(err, &entryMissing):
		return "entry_not_found"
	default:
		return "error"
	}
}
