package ledger

import (
	"fmt"
	"math"

	"bizflow/models"
)

// InterestOn computes the loan interest accrued on a pass of START:
// round-half-up of loan * rate, in whole currency units.
func InterestOn(loan int64, rate float64) int64 {
	if loan <= 0 || rate <= 0 {
		return 0
	}
	return int64(math.Floor(float64(loan)*rate + 0.5))
}

// PassStartOperations builds the operation pair for a player passing START:
// the bank bonus, and interest accrual on the pre-bonus loan when the player
// is carrying one. The pair must be applied in a single atomic unit; the
// bonus is never credited without evaluating interest in the same pass.
//
// Amounts come from the game configuration read at invocation time, never
// from the caller.
func PassStartOperations(player *models.Player, game *models.Game) []Operation {
	ops := []Operation{{
		Type:   models.TransactionTypePassStart,
		FromID: models.BankID,
		ToID:   player.ID,
		Amount: game.StartBonusAmount,
		Memo:   "Passed START",
	}}

	if interest := InterestOn(player.Loan, game.LoanInterestRate); interest > 0 {
		ops = append(ops, Operation{
			Type:   models.TransactionTypeInterestAdded,
			FromID: models.BankID,
			ToID:   player.ID,
			Amount: interest,
			Memo:   fmt.Sprintf("%g%% interest on loan", game.LoanInterestRate*100),
		})
	}

	return ops
}
