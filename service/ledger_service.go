package service

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"bizflow/events"
	"bizflow/ledger"
	"bizflow/metrics"
	"bizflow/models"
)

type ledgerService struct {
	uowFactory         UnitOfWorkFactory
	logRepo            TransactionLogRepository
	maxConflictRetries int
}

// NewLedgerService creates a new ledger service. maxConflictRetries bounds
// how many times a submission is re-run after a serialization conflict.
func NewLedgerService(uowFactory UnitOfWorkFactory, logRepo TransactionLogRepository, maxConflictRetries int) LedgerService {
	return &ledgerService{
		uowFactory:         uowFactory,
		logRepo:            logRepo,
		maxConflictRetries: maxConflictRetries,
	}
}

// callerSubmittable are the operation types accepted from callers. The
// policy-derived types (pass-start, interest-added) and undo are constructed
// internally and rejected here so callers cannot pick their own amounts.
var callerSubmittable = map[models.TransactionType]bool{
	models.TransactionTypePlayerToPlayer:  true,
	models.TransactionTypePayBank:         true,
	models.TransactionTypeRepayLoan:       true,
	models.TransactionTypeReceiveFromBank: true,
	models.TransactionTypeTakeLoan:        true,
}

func (s *ledgerService) Submit(ctx context.Context, gameID string, op ledger.Operation) (*models.SubmitResult, error) {
	if !callerSubmittable[op.Type] {
		err := &ledger.UnsupportedTypeError{Type: op.Type}
		metrics.TransactionsRejected.WithLabelValues(ledger.Reason(err)).Inc()
		return nil, err
	}
	op.UndoOf = ""

	return s.run(ctx, gameID, func(ctx context.Context, uow UnitOfWork) ([]ledger.Operation, error) {
		return []ledger.Operation{op}, nil
	})
}

func (s *ledgerService) PassStart(ctx context.Context, gameID, playerID string) (*models.SubmitResult, error) {
	return s.run(ctx, gameID, func(ctx context.Context, uow UnitOfWork) ([]ledger.Operation, error) {
		// Settings are read inside the atomic unit, at invocation time, so a
		// mid-game rate change by the banker applies immediately.
		game, err := uow.GameRepository().GetByID(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("failed to get game: %w", err)
		}
		if game == nil {
			return nil, fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
		}

		player, err := uow.PlayerRepository().GetByID(ctx, playerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get player: %w", err)
		}
		if player == nil || player.GameID != gameID {
			return nil, &ledger.PlayerNotFoundError{ID: playerID}
		}

		return ledger.PassStartOperations(player, game), nil
	})
}

func (s *ledgerService) Undo(ctx context.Context, gameID, entryID string) (*models.SubmitResult, error) {
	// Entries are immutable once appended, so the original can be read
	// outside the retried unit.
	entry, err := s.logRepo.GetByID(ctx, gameID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get original transaction: %w", err)
	}
	if entry == nil {
		reject := &ledger.EntryNotFoundError{ID: entryID}
		metrics.TransactionsRejected.WithLabelValues(ledger.Reason(reject)).Inc()
		return nil, reject
	}

	inverse, err := ledger.InverseOperation(entry)
	if err != nil {
		metrics.TransactionsRejected.WithLabelValues(ledger.Reason(err)).Inc()
		return nil, err
	}

	return s.run(ctx, gameID, func(ctx context.Context, uow UnitOfWork) ([]ledger.Operation, error) {
		return []ledger.Operation{inverse}, nil
	})
}

// run executes one read-compute-write cycle against a fresh unit of work,
// retrying the whole cycle on serialization conflicts up to the configured
// cap. Retrying is safe because the ledger core is deterministic given the
// snapshots read inside each attempt.
func (s *ledgerService) run(ctx context.Context, gameID string, prepare func(ctx context.Context, uow UnitOfWork) ([]ledger.Operation, error)) (*models.SubmitResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := s.runOnce(ctx, gameID, prepare)
		if err == nil {
			return result, nil
		}

		if errors.Is(err, ErrStoreConflict) && attempt < s.maxConflictRetries {
			metrics.StoreConflictRetries.Inc()
			log.WithFields(log.Fields{
				"gameId":  gameID,
				"attempt": attempt + 1,
			}).Warn("Serialization conflict, retrying submission")
			continue
		}

		if ledger.IsRejection(err) {
			metrics.TransactionsRejected.WithLabelValues(ledger.Reason(err)).Inc()
		}
		return nil, err
	}
}

func (s *ledgerService) runOnce(ctx context.Context, gameID string, prepare func(ctx context.Context, uow UnitOfWork) ([]ledger.Operation, error)) (*models.SubmitResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	ops, err := prepare(ctx, uow)
	if err != nil {
		return nil, err
	}

	snap := newRepoSnapshot(ctx, gameID, uow.PlayerRepository())
	res, applyErr := ledger.ApplyAll(ops, snap)
	// A snapshot read failure surfaces as a missing player to the core, so
	// the store error takes precedence over the rejection.
	if snap.err != nil {
		return nil, fmt.Errorf("failed to read player snapshot: %w", snap.err)
	}
	if applyErr != nil {
		return nil, applyErr
	}

	for _, p := range res.Players {
		if err := uow.PlayerRepository().Update(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to write player %s: %w", p.ID, err)
		}
	}

	uow.StageEntries(res.Entries)
	s.publishBalanceChanges(uow, gameID, snap, res.Entries)

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit unit of work: %w", err)
	}

	for _, e := range res.Entries {
		metrics.TransactionsApplied.WithLabelValues(string(e.Type)).Inc()
	}

	return &models.SubmitResult{Players: res.Players, Entries: res.Entries}, nil
}

// publishBalanceChanges queues one balance-change event per entry; the
// transactional bus releases them only after the commit succeeds.
func (s *ledgerService) publishBalanceChanges(uow UnitOfWork, gameID string, snap *repoSnapshot, entries []*models.TransactionEntry) {
	previous := make(map[string]int64)
	for id, p := range snap.cache {
		previous[id] = p.Balance
	}

	for _, e := range entries {
		old := previous[e.PlayerID]
		uow.EventBus().Publish(events.BalanceChangeEvent{
			GameID:          gameID,
			PlayerID:        e.PlayerID,
			OldBalance:      old,
			NewBalance:      e.ClosingBalance,
			TransactionType: e.Type,
			ChangeAmount:    e.ClosingBalance - old,
		})
		previous[e.PlayerID] = e.ClosingBalance
	}
}

// repoSnapshot adapts the unit of work's player reads to the ledger core's
// snapshot interface. Read errors are captured rather than conflated with
// "not found".
type repoSnapshot struct {
	ctx     context.Context
	gameID  string
	players PlayerRepository
	cache   map[string]*models.Player
	err     error
}

func newRepoSnapshot(ctx context.Context, gameID string, players PlayerRepository) *repoSnapshot {
	return &repoSnapshot{
		ctx:     ctx,
		gameID:  gameID,
		players: players,
		cache:   make(map[string]*models.Player),
	}
}

func (s *repoSnapshot) Resolve(id string) *models.Player {
	if id == models.BankID || s.err != nil {
		return nil
	}
	if p, ok := s.cache[id]; ok {
		return p
	}

	p, err := s.players.GetByID(s.ctx, id)
	if err != nil {
		s.err = err
		return nil
	}
	if p == nil || p.GameID != s.gameID {
		return nil
	}

	s.cache[id] = p
	return p
}
