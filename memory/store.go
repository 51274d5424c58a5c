// Package memory provides an in-process store backend with the same
// unit-of-work surface as the Postgres repositories. It backs local,
// single-node deployments and the API tests.
package memory

import (
	"sync"

	"bizflow/models"
)

// Store holds all game state in memory. A unit of work takes the write lock
// for its whole lifetime, so commits are strictly serialized and conflict
// retries never trigger on this backend.
type Store struct {
	mu      sync.RWMutex
	games   map[string]*models.Game
	players map[string]*models.Player
	entries map[string]*models.TransactionEntry
	// order preserves append order for history reads
	order []string
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		games:   make(map[string]*models.Game),
		players: make(map[string]*models.Player),
		entries: make(map[string]*models.TransactionEntry),
	}
}

func (s *Store) appendEntryLocked(e *models.TransactionEntry) {
	cp := *e
	s.entries[e.ID] = &cp
	s.order = append(s.order, e.ID)
}

// gameEntriesLocked returns matching entries newest first, matching the SQL
// backend's ordering.
func (s *Store) gameEntriesLocked(gameID string, limit int, filter func(*models.TransactionEntry) bool) []*models.TransactionEntry {
	var out []*models.TransactionEntry
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[s.order[i]]
		if e.GameID != gameID {
			continue
		}
		if filter != nil && !filter(e) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out
}
