package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizflow/models"
)

func snapshotOf(players ...*models.Player) SnapshotProvider {
	byID := make(map[string]*models.Player)
	for _, p := range players {
		byID[p.ID] = p
	}
	return SnapshotFunc(func(id string) *models.Player {
		return byID[id]
	})
}

func testPlayer(id, name string, balance int64) *models.Player {
	return &models.Player{
		ID:      id,
		GameID:  "game-1",
		Name:    name,
		Balance: balance,
		Loan:    0,
		Round:   1,
	}
}

func TestApply_PlayerToPlayer(t *testing.T) {
	alice := testPlayer("alice", "Alice", 15000)
	bob := testPlayer("bob", "Bob", 15000)

	res, err := Apply(Operation{
		Type:   models.TransactionTypePlayerToPlayer,
		FromID: "bob",
		ToID:   "alice",
		Amount: 500,
		Memo:   "chance card",
	}, snapshotOf(alice, bob))
	require.NoError(t, err)

	require.Len(t, res.Players, 2)
	assert.Equal(t, int64(14500), res.Players[0].Balance)
	assert.Equal(t, int64(15500), res.Players[1].Balance)

	// One entry per affected player, each with its own closing balance.
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "bob", res.Entries[0].PlayerID)
	assert.Equal(t, int64(14500), res.Entries[0].ClosingBalance)
	assert.Equal(t, "alice", res.Entries[1].PlayerID)
	assert.Equal(t, int64(15500), res.Entries[1].ClosingBalance)
	for _, e := range res.Entries {
		assert.Equal(t, models.TransactionTypePlayerToPlayer, e.Type)
		assert.Equal(t, int64(500), e.Amount)
		assert.Equal(t, "chance card", e.Memo)
		assert.Equal(t, 1, e.Round)
		assert.NotEmpty(t, e.ID)
		assert.Empty(t, e.OriginalTransactionID)
	}

	// Input snapshots are never mutated.
	assert.Equal(t, int64(15000), alice.Balance)
	assert.Equal(t, int64(15000), bob.Balance)
}

func TestApply_PlayerToPlayer_Conservation(t *testing.T) {
	alice := testPlayer("alice", "Alice", 1200)
	bob := testPlayer("bob", "Bob", 300)

	res, err := Apply(Operation{
		Type:   models.TransactionTypePlayerToPlayer,
		FromID: "alice",
		ToID:   "bob",
		Amount: 1200,
		Memo:   "everything",
	}, snapshotOf(alice, bob))
	require.NoError(t, err)

	var before, after int64
	before = alice.Balance + bob.Balance
	for _, p := range res.Players {
		after += p.Balance
	}
	assert.Equal(t, before, after)
}

func TestApply_PlayerToPlayer_InsufficientFunds(t *testing.T) {
	alice := testPlayer("alice", "Alice", 100)
	bob := testPlayer("bob", "Bob", 15000)

	res, err := Apply(Operation{
		Type:   models.TransactionTypePlayerToPlayer,
		FromID: "alice",
		ToID:   "bob",
		Amount: 150,
	}, snapshotOf(alice, bob))

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsRejection(err))

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Alice", insufficient.Name)
	assert.Equal(t, int64(150), insufficient.Need)
	assert.Equal(t, int64(100), insufficient.Have)
	assert.Equal(t, "Alice has insufficient funds: needs $150, has $100", err.Error())
}

func TestApply_InvalidAmount(t *testing.T) {
	alice := testPlayer("alice", "Alice", 15000)

	for _, amount := range []int64{0, -1, -500} {
		res, err := Apply(Operation{
			Type:   models.TransactionTypePayBank,
			FromID: "alice",
			ToID:   models.BankID,
			Amount: amount,
		}, snapshotOf(alice))

		require.Error(t, err)
		assert.Nil(t, res)

		var invalid *InvalidAmountError
		assert.ErrorAs(t, err, &invalid)
	}
}

func TestApply_SameParty(t *testing.T) {
	// Rejected before any lookup: the snapshot provider must not be hit.
	snapshots := SnapshotFunc(func(id string) *models.Player {
		t.Fatalf("snapshot resolved for %s; same-party must be rejected first", id)
		return nil
	})

	res, err := Apply(Operation{
		Type:   models.TransactionTypePlayerToPlayer,
		FromID: "alice",
		ToID:   "alice",
		Amount: 100,
	}, snapshots)

	require.Error(t, err)
	assert.Nil(t, res)

	var sameParty *SamePartyError
	assert.ErrorAs(t, err, &sameParty)
}

func TestApply_PlayerNotFound(t *testing.T) {
	alice := testPlayer("alice", "Alice", 15000)

	res, err := Apply(Operation{
		Type:   models.TransactionTypePlayerToPlayer,
		FromID: "alice",
		ToID:   "ghost",
		Amount: 100,
	}, snapshotOf(alice))

	require.Error(t, err)
	assert.Nil(t, res)

	var notFound *PlayerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.ID)
}

func TestApply_PayBank(t *testing.T) {
	alice := testPlayer("alice", "Alice", 15000)

	res, err := Apply(Operation{
		Type:   models.TransactionTypePayBank,
		FromID: "alice",
		ToID:   models.BankID,
		Amount: 200,
		Memo:   "rent",
	}, snapshotOf(alice))
	require.NoError(t, err)

	require.Len(t, res.Players, 1)
	assert.Equal(t, int64(14800), res.Players[0].Balance)

	require.Len(t, res.Entries, 1)
	entry := res.Entries[0]
	assert.Equal(t, models.TransactionTypePayBank, entry.Type)
	assert.Equal(t, int64(200), entry.Amount)
	assert.Equal(t, int64(14800), entry.ClosingBalance)
	assert.Equal(t, "rent", entry.Memo)
}

func TestApply_ReceiveFromBank(t *testing.T) {
	alice := testPlayer("alice", "Alice", 1000)

	res, err := Apply(Operation{
		Type:   models.TransactionTypeReceiveFromBank,
		FromID: models.BankID,
		ToID:   "alice",
		Amount: 400,
	}, snapshotOf(alice))
	require.NoError(t, err)

	assert.Equal(t, int64(1400), res.Players[0].Balance)
	assert.Equal(t, int64(0), res.Players[0].Loan)
}

func TestApply_TakeLoan(t *testing.T) {
	alice := testPlayer("alice", "Alice", 1000)

	res, err := Apply(Operation{
		Type:   models.TransactionTypeTakeLoan,
		FromID: models.BankID,
		ToID:   "alice",
		Amount: 2000,
	}, snapshotOf(alice))
	require.NoError(t, err)

	assert.Equal(t, int64(3000), res.Players[0].Balance)
	assert.Equal(t, int64(2000), res.Players[0].Loan)
	assert.Equal(t, int64(2000), res.Entries[0].Amount)
}

func TestApply_RepayLoan_ClampsToOutstandingLoan(t *testing.T) {
	alice := testPlayer("alice", "Alice", 5000)
	alice.Loan = 800

	res, err := Apply(Operation{
		Type:   models.TransactionTypeRepayLoan,
		FromID: "alice",
		ToID:   models.BankID,
		Amount: 2000,
	}, snapshotOf(alice))
	require.NoError(t, err)

	// Applied amount equals the loan exactly; the entry records the clamped
	// value, not the requested 2000.
	assert.Equal(t, int64(4200), res.Players[0].Balance)
	assert.Equal(t, int64(0), res.Players[0].Loan)
	assert.Equal(t, int64(800), res.Entries[0].Amount)
}

func TestApply_RepayLoan_InsufficientFundsForClampedAmount(t *testing.T) {
	alice := testPlayer("alice", "Alice", 500)
	alice.Loan = 800

	res, err := Apply(Operation{
		Type:   models.TransactionTypeRepayLoan,
		FromID: "alice",
		ToID:   models.BankID,
		Amount: 2000,
	}, snapshotOf(alice))

	require.Error(t, err)
	assert.Nil(t, res)

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(800), insufficient.Need)
}

func TestApply_RepayLoan_NoLoanIsANoOp(t *testing.T) {
	alice := testPlayer("alice", "Alice", 5000)

	res, err := Apply(Operation{
		Type:   models.TransactionTypeRepayLoan,
		FromID: "alice",
		ToID:   models.BankID,
		Amount: 2000,
	}, snapshotOf(alice))
	require.NoError(t, err)

	assert.Equal(t, int64(5000), res.Players[0].Balance)
	assert.Equal(t, int64(0), res.Entries[0].Amount)
}

func TestApply_UnsupportedType(t *testing.T) {
	alice := testPlayer("alice", "Alice", 5000)

	for _, typ := range []models.TransactionType{models.TransactionTypeUndo, "confetti"} {
		res, err := Apply(Operation{
			Type:   typ,
			FromID: "alice",
			ToID:   models.BankID,
			Amount: 100,
		}, snapshotOf(alice))

		require.Error(t, err)
		assert.Nil(t, res)

		var unsupported *UnsupportedTypeError
		assert.ErrorAs(t, err, &unsupported)
	}
}

func TestApplyAll_LaterOperationsSeeEarlierEffects(t *testing.T) {
	alice := testPlayer("alice", "Alice", 1000)
	bob := testPlayer("bob", "Bob", 0)

	// Bob can only afford the second payment with the money from the first.
	ops := []Operation{
		{Type: models.TransactionTypePlayerToPlayer, FromID: "alice", ToID: "bob", Amount: 600},
		{Type: models.TransactionTypePlayerToPlayer, FromID: "bob", ToID: "alice", Amount: 400},
	}

	res, err := ApplyAll(ops, snapshotOf(alice, bob))
	require.NoError(t, err)

	require.Len(t, res.Players, 2)
	byID := make(map[string]*models.Player)
	for _, p := range res.Players {
		byID[p.ID] = p
	}
	assert.Equal(t, int64(800), byID["alice"].Balance)
	assert.Equal(t, int64(200), byID["bob"].Balance)
	assert.Len(t, res.Entries, 4)
}

func TestApplyAll_AllOrNothing(t *testing.T) {
	alice := testPlayer("alice", "Alice", 1000)
	bob := testPlayer("bob", "Bob", 0)

	ops := []Operation{
		{Type: models.TransactionTypePlayerToPlayer, FromID: "alice", ToID: "bob", Amount: 600},
		{Type: models.TransactionTypePlayerToPlayer, FromID: "bob", ToID: "alice", Amount: 5000},
	}

	res, err := ApplyAll(ops, snapshotOf(alice, bob))
	require.Error(t, err)
	assert.Nil(t, res)

	// Inputs untouched.
	assert.Equal(t, int64(1000), alice.Balance)
	assert.Equal(t, int64(0), bob.Balance)
}

// The worked scenario from the design discussion: rent, a payout, and a
// START pass with an outstanding loan.
func TestLedger_FullScenario(t *testing.T) {
	alice := testPlayer("alice", "Alice", 15000)
	bob := testPlayer("bob", "Bob", 15000)

	res, err := Apply(Operation{
		Type:   models.TransactionTypePayBank,
		FromID: "alice",
		ToID:   models.BankID,
		Amount: 200,
		Memo:   "rent",
	}, snapshotOf(alice, bob))
	require.NoError(t, err)
	alice = res.Players[0]
	assert.Equal(t, int64(14800), alice.Balance)

	res, err = Apply(Operation{
		Type:   models.TransactionTypePlayerToPlayer,
		FromID: "bob",
		ToID:   "alice",
		Amount: 500,
	}, snapshotOf(alice, bob))
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	bob, alice = res.Players[0], res.Players[1]
	assert.Equal(t, int64(14500), bob.Balance)
	assert.Equal(t, int64(15300), alice.Balance)

	alice.Loan = 1000
	game := &models.Game{StartBonusAmount: 2000, LoanInterestRate: 0.10}

	res, err = ApplyAll(PassStartOperations(alice, game), snapshotOf(alice, bob))
	require.NoError(t, err)

	require.Len(t, res.Players, 1)
	final := res.Players[0]
	assert.Equal(t, int64(17300), final.Balance)
	assert.Equal(t, int64(1100), final.Loan)
	assert.Equal(t, 2, final.Round)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, models.TransactionTypePassStart, res.Entries[0].Type)
	assert.Equal(t, int64(2000), res.Entries[0].Amount)
	assert.Equal(t, models.TransactionTypeInterestAdded, res.Entries[1].Type)
	assert.Equal(t, int64(100), res.Entries[1].Amount)
	for _, e := range res.Entries {
		assert.Equal(t, models.BankID, e.FromID)
		assert.Equal(t, 2, e.Round)
	}
}
