package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bizflow/api"
	"bizflow/config"
	"bizflow/database"
	"bizflow/events"
	"bizflow/memory"
	"bizflow/repository"
	"bizflow/service"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// backend bundles the store-specific pieces the services need.
type backend struct {
	uowFactory service.UnitOfWorkFactory
	players    service.PlayerRepository
	games      service.GameRepository
	logRepo    service.TransactionLogRepository
	close      func()
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	subscribeLogging(bus)

	be, err := buildBackend(ctx, cfg, bus)
	if err != nil {
		return err
	}
	defer be.close()

	ledgerSvc := service.NewLedgerService(be.uowFactory, be.logRepo, cfg.MaxConflictRetries)
	gameSvc := service.NewGameService(be.uowFactory, be.games, be.players, be.logRepo)

	server := api.NewServer(ledgerSvc, gameSvc)
	server.SetDefaults(api.Defaults{
		InitialCapital: cfg.InitialCapital,
		StartBonus:     cfg.StartBonusAmount,
		InterestRate:   cfg.LoanInterestRate,
	})
	if cfg.MetricsEnabled {
		server.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":    cfg.ListenAddr,
			"backend": cfg.StoreBackend,
		}).Info("Ledger server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

func buildBackend(ctx context.Context, cfg *config.Config, bus *events.Bus) (*backend, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &backend{
			uowFactory: repository.NewUnitOfWorkFactory(db, bus),
			players:    repository.NewPlayerRepository(db),
			games:      repository.NewGameRepository(db),
			logRepo:    repository.NewTransactionLogRepository(db),
			close:      db.Close,
		}, nil

	case config.BackendMemory:
		store := memory.NewStore()
		return &backend{
			uowFactory: memory.NewUnitOfWorkFactory(store, bus),
			players:    memory.NewPlayerRepository(store),
			games:      memory.NewGameRepository(store),
			logRepo:    memory.NewTransactionLogRepository(store),
			close:      func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// subscribeLogging attaches audit-style log lines to committed events.
func subscribeLogging(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		change := e.(events.BalanceChangeEvent)
		log.WithFields(log.Fields{
			"gameId":   change.GameID,
			"playerId": change.PlayerID,
			"type":     change.TransactionType,
			"old":      change.OldBalance,
			"new":      change.NewBalance,
		}).Info("Balance changed")
	})
	bus.Subscribe(events.EventTypeGameCreated, func(ctx context.Context, e events.Event) {
		created := e.(events.GameCreatedEvent)
		log.WithFields(log.Fields{
			"gameId":  created.GameID,
			"players": created.PlayerCount,
		}).Info("Game created")
	})
	bus.Subscribe(events.EventTypeSettingsUpdated, func(ctx context.Context, e events.Event) {
		updated := e.(events.SettingsUpdatedEvent)
		log.WithFields(log.Fields{
			"gameId":     updated.GameID,
			"startBonus": updated.StartBonusAmount,
			"rate":       updated.LoanInterestRate,
		}).Info("Game settings updated")
	})
}
