package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bizflow/ledger"
	"bizflow/models"
)

type createGameRequest struct {
	PlayerNames    []string `json:"playerNames"`
	InitialCapital *int64   `json:"initialCapital"`
	StartBonus     *int64   `json:"startBonusAmount"`
	InterestRate   *float64 `json:"loanInterestRate"`
}

type createGameResponse struct {
	Game    *models.Game     `json:"game"`
	Players []*models.Player `json:"players"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	capital := s.defaults.InitialCapital
	if req.InitialCapital != nil {
		capital = *req.InitialCapital
	}
	bonus := s.defaults.StartBonus
	if req.StartBonus != nil {
		bonus = *req.StartBonus
	}
	rate := s.defaults.InterestRate
	if req.InterestRate != nil {
		rate = *req.InterestRate
	}

	game, players, err := s.gameSvc.CreateGame(r.Context(), req.PlayerNames, capital, bonus, rate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createGameResponse{Game: game, Players: players})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.gameSvc.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

type updateSettingsRequest struct {
	Role         models.Role `json:"role"`
	StartBonus   int64       `json:"startBonusAmount"`
	InterestRate float64     `json:"loanInterestRate"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := s.gameSvc.UpdateSettings(r.Context(), chi.URLParam(r, "gameID"), req.Role, req.StartBonus, req.InterestRate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.gameSvc.Players(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if players == nil {
		players = []*models.Player{}
	}
	writeJSON(w, http.StatusOK, players)
}

type submitTransactionRequest struct {
	Type   models.TransactionType `json:"type"`
	FromID string                 `json:"fromId"`
	ToID   string                 `json:"toId"`
	Amount int64                  `json:"amount"`
	Memo   string                 `json:"memo"`
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req submitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.ledgerSvc.Submit(r.Context(), chi.URLParam(r, "gameID"), ledger.Operation{
		Type:   req.Type,
		FromID: req.FromID,
		ToID:   req.ToID,
		Amount: req.Amount,
		Memo:   req.Memo,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePassStart(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledgerSvc.PassStart(r.Context(), chi.URLParam(r, "gameID"), chi.URLParam(r, "playerID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledgerSvc.Undo(r.Context(), chi.URLParam(r, "gameID"), chi.URLParam(r, "entryID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGameHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.gameSvc.GameHistory(r.Context(), chi.URLParam(r, "gameID"), queryLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.TransactionEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.gameSvc.PlayerHistory(r.Context(), chi.URLParam(r, "gameID"), chi.URLParam(r, "playerID"), queryLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.TransactionEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}
