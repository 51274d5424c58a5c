package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizflow/events"
	"bizflow/memory"
	"bizflow/models"
	"bizflow/service"
)

func newTestHandler() http.Handler {
	store := memory.NewStore()
	bus := events.NewBus()
	factory := memory.NewUnitOfWorkFactory(store, bus)
	players := memory.NewPlayerRepository(store)
	games := memory.NewGameRepository(store)
	logRepo := memory.NewTransactionLogRepository(store)

	ledgerSvc := service.NewLedgerService(factory, logRepo, 5)
	gameSvc := service.NewGameService(factory, games, players, logRepo)

	return NewServer(ledgerSvc, gameSvc).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec
}

func createGame(t *testing.T, handler http.Handler, names ...string) createGameResponse {
	t.Helper()

	var created createGameResponse
	rec := doJSON(t, handler, http.MethodPost, "/api/games", map[string]any{
		"playerNames": names,
	}, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, created.Game)
	require.Len(t, created.Players, len(names))
	return created
}

func TestCreateGame(t *testing.T) {
	handler := newTestHandler()

	created := createGame(t, handler, "Alice", "Bob")
	assert.Equal(t, int64(15000), created.Game.InitialCapital)
	assert.Equal(t, int64(2000), created.Game.StartBonusAmount)
	assert.Equal(t, 0.10, created.Game.LoanInterestRate)
	for _, p := range created.Players {
		assert.Equal(t, int64(15000), p.Balance)
		assert.Equal(t, 1, p.Round)
	}

	t.Run("custom settings", func(t *testing.T) {
		var custom createGameResponse
		rec := doJSON(t, handler, http.MethodPost, "/api/games", map[string]any{
			"playerNames":      []string{"Solo"},
			"initialCapital":   20000,
			"startBonusAmount": 1000,
			"loanInterestRate": 0.25,
		}, &custom)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, int64(20000), custom.Players[0].Balance)
		assert.Equal(t, 0.25, custom.Game.LoanInterestRate)
	})

	t.Run("no players is rejected", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/games", map[string]any{
			"playerNames": []string{},
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown game", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/api/games/nope", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubmitTransaction(t *testing.T) {
	handler := newTestHandler()
	created := createGame(t, handler, "Alice", "Bob")
	gameID := created.Game.ID
	alice := created.Players[0]
	bob := created.Players[1]

	t.Run("pay bank", func(t *testing.T) {
		var result models.SubmitResult
		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions", gameID), map[string]any{
			"type":   "pay-bank",
			"fromId": alice.ID,
			"toId":   "bank",
			"amount": 200,
			"memo":   "Rent",
		}, &result)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, result.Players, 1)
		assert.Equal(t, int64(14800), result.Players[0].Balance)
		require.Len(t, result.Entries, 1)
		assert.Equal(t, int64(14800), result.Entries[0].ClosingBalance)
		assert.Equal(t, "Rent", result.Entries[0].Memo)
	})

	t.Run("player to player", func(t *testing.T) {
		var result models.SubmitResult
		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions", gameID), map[string]any{
			"type":   "player-to-player",
			"fromId": bob.ID,
			"toId":   alice.ID,
			"amount": 500,
		}, &result)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, result.Players, 2)
		assert.Len(t, result.Entries, 2)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions", gameID), map[string]any{
			"type":   "pay-bank",
			"fromId": alice.ID,
			"toId":   "bank",
			"amount": 10_000_000,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown player", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions", gameID), map[string]any{
			"type":   "pay-bank",
			"fromId": "ghost",
			"toId":   "bank",
			"amount": 100,
		}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("policy types rejected from callers", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions", gameID), map[string]any{
			"type":   "pass-start",
			"fromId": "bank",
			"toId":   alice.ID,
			"amount": 99999,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPassStartAndUndo(t *testing.T) {
	handler := newTestHandler()
	created := createGame(t, handler, "Alice")
	gameID := created.Game.ID
	alice := created.Players[0]

	// Take a loan so pass-start accrues interest
	var loan models.SubmitResult
	rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions", gameID), map[string]any{
		"type":   "take-loan",
		"fromId": "bank",
		"toId":   alice.ID,
		"amount": 1000,
	}, &loan)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(16000), loan.Players[0].Balance)
	assert.Equal(t, int64(1000), loan.Players[0].Loan)

	var pass models.SubmitResult
	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/players/%s/pass-start", gameID, alice.ID), nil, &pass)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, pass.Players, 1)
	assert.Equal(t, int64(18000), pass.Players[0].Balance)
	assert.Equal(t, int64(1100), pass.Players[0].Loan)
	assert.Equal(t, 2, pass.Players[0].Round)
	require.Len(t, pass.Entries, 2)
	assert.Equal(t, models.TransactionTypePassStart, pass.Entries[0].Type)
	assert.Equal(t, 2, pass.Entries[0].Round)
	assert.Equal(t, models.TransactionTypeInterestAdded, pass.Entries[1].Type)

	t.Run("pass-start is not undoable", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions/%s/undo", gameID, pass.Entries[0].ID), nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("undo a loan", func(t *testing.T) {
		var undone models.SubmitResult
		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions/%s/undo", gameID, loan.Entries[0].ID), nil, &undone)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, undone.Players, 1)
		assert.Equal(t, int64(17000), undone.Players[0].Balance)
		assert.Equal(t, int64(100), undone.Players[0].Loan)
		require.Len(t, undone.Entries, 1)
		assert.Equal(t, models.TransactionTypeUndo, undone.Entries[0].Type)
		assert.Equal(t, loan.Entries[0].ID, undone.Entries[0].OriginalTransactionID)
	})

	t.Run("unknown entry", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions/nope/undo", gameID), nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSettingsAndHistory(t *testing.T) {
	handler := newTestHandler()
	created := createGame(t, handler, "Alice", "Bob")
	gameID := created.Game.ID
	alice := created.Players[0]

	t.Run("viewer cannot change settings", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPut, fmt.Sprintf("/api/games/%s/settings", gameID), map[string]any{
			"role":             "viewer",
			"startBonusAmount": 3000,
			"loanInterestRate": 0.05,
		}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("banker changes settings", func(t *testing.T) {
		var game models.Game
		rec := doJSON(t, handler, http.MethodPut, fmt.Sprintf("/api/games/%s/settings", gameID), map[string]any{
			"role":             "banker",
			"startBonusAmount": 3000,
			"loanInterestRate": 0.05,
		}, &game)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(3000), game.StartBonusAmount)

		// The new bonus applies to the next pass-start
		var pass models.SubmitResult
		rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/players/%s/pass-start", gameID, alice.ID), nil, &pass)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(18000), pass.Players[0].Balance)
	})

	t.Run("histories", func(t *testing.T) {
		doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/games/%s/transactions", gameID), map[string]any{
			"type":   "pay-bank",
			"fromId": alice.ID,
			"toId":   "bank",
			"amount": 100,
		}, nil)

		var feed []*models.TransactionEntry
		rec := doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/games/%s/transactions", gameID), nil, &feed)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, feed)
		// Newest first
		assert.Equal(t, models.TransactionTypePayBank, feed[0].Type)

		var mine []*models.TransactionEntry
		rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/games/%s/players/%s/transactions?limit=1", gameID, alice.ID), nil, &mine)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, mine, 1)
		assert.Equal(t, alice.ID, mine[0].PlayerID)
	})

	t.Run("health", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
