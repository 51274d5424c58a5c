package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"bizflow/database"
	"bizflow/events"
	"bizflow/models"
	"bizflow/service"
)

// wrapConflict tags Postgres serialization failures with the sentinel the
// service layer retries on, keeping the retry loop store-agnostic.
func wrapConflict(err error) error {
	if database.IsSerializationFailure(err) {
		return errors.Join(service.ErrStoreConflict, err)
	}
	return err
}

// unitOfWork implements the service.UnitOfWork interface over a serializable
// Postgres transaction. Log entries staged during the unit are appended only
// after the transaction commits; player and game writes are the source of
// truth, the log is best-effort.
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	playerRepo       service.PlayerRepository
	gameRepo         service.GameRepository
	staged           []*models.TransactionEntry
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new serializable transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginSerializable(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.playerRepo = newPlayerRepositoryWithTx(tx)
	u.gameRepo = newGameRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction, then appends the staged log entries and
// flushes pending events. A failed log append is logged but does not undo
// the committed balances; the entry ids are reported for manual replay.
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		u.tx = nil
		return wrapConflict(fmt.Errorf("failed to commit transaction: %w", err))
	}
	u.tx = nil

	u.flushStagedEntries()

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards staged entries and events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.staged = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// PlayerRepository returns the player repository for this unit of work
func (u *unitOfWork) PlayerRepository() service.PlayerRepository {
	if u.playerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.playerRepo
}

// GameRepository returns the game repository for this unit of work
func (u *unitOfWork) GameRepository() service.GameRepository {
	if u.gameRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.gameRepo
}

// StageEntries queues log entries for the post-commit append
func (u *unitOfWork) StageEntries(entries []*models.TransactionEntry) {
	u.staged = append(u.staged, entries...)
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}

func (u *unitOfWork) flushStagedEntries() {
	if len(u.staged) == 0 {
		return
	}

	// Appends run outside the committed transaction, on the pool, with a
	// bounded context in case the caller's was cancelled after commit.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(u.ctx), 10*time.Second)
	defer cancel()

	for _, e := range u.staged {
		if err := insertEntry(ctx, u.db.Pool, e); err != nil {
			log.WithFields(log.Fields{
				"entryId": e.ID,
				"gameId":  e.GameID,
				"type":    e.Type,
				"error":   err,
			}).Warn("Failed to append committed entry to transaction log")
		}
	}
	u.staged = nil
}
