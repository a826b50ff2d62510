package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/rmtavares/splitbook/internal/book"
	"github.com/rmtavares/splitbook/internal/config"
	"github.com/rmtavares/splitbook/internal/domain"
	"github.com/rmtavares/splitbook/internal/handler"
	"github.com/rmtavares/splitbook/internal/logging"
	"github.com/rmtavares/splitbook/internal/middleware"
	"github.com/rmtavares/splitbook/internal/persist"
	"github.com/rmtavares/splitbook/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("splitbook-api", cfg.LogLevel, cfg.AppEnv)

	ctx := context.Background()

	store, db, err := openSnapshotStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	ledger, err := loadLedger(ctx, store)
	if err != nil {
		slog.Error("failed to load ledger", "error", err)
		os.Exit(1)
	}

	books := book.New(ledger)

	writer := persist.NewWriter(store)
	books.Subscribe(writer.LedgerChanged)
	writer.Start()

	var manager *syncer.Manager
	if cfg.SyncBaseURL != "" {
		client := syncer.NewClient(cfg.SyncBaseURL, time.Duration(cfg.SyncTimeoutS)*time.Second)
		manager = syncer.NewManager(client, books, store, syncer.LogNotifier{}, time.Duration(cfg.SyncDebounceMS)*time.Millisecond)
		books.Subscribe(manager.LedgerChanged)
		resumeSyncSession(ctx, store, manager)
	}

	syncHandler := handler.NewSyncHandler(nil)
	if manager != nil {
		syncHandler = handler.NewSyncHandler(manager)
	}

	router := handler.NewRouter(
		handler.NewLedgerHandler(books),
		syncHandler,
		handler.NewHealthHandler(db),
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Tracing(middleware.Logging(middleware.Recovery(router))),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "storage", cfg.StorageDriver, "sync_enabled", cfg.SyncBaseURL != "")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if manager != nil {
		manager.Close()
	}
	writer.Shutdown()
	slog.Info("server stopped")
}

func openSnapshotStore(ctx context.Context, cfg *config.Config) (persist.SnapshotStore, *sql.DB, error) {
	switch cfg.StorageDriver {
	case "postgres":
		db, err := persist.NewPostgresDB(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
		if err != nil {
			return nil, nil, fmt.Errorf("openSnapshotStore: %w", err)
		}
		return persist.NewPostgresStore(db), db, nil
	default:
		fs, err := persist.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("openSnapshotStore: %w", err)
		}
		return fs, nil, nil
	}
}

func loadLedger(ctx context.Context, store persist.SnapshotStore) (domain.Ledger, error) {
	ledger, err := store.LoadLedger(ctx)
	if errors.Is(err, persist.ErrNoSnapshot) {
		slog.Info("no saved ledger, starting empty")
		return domain.NewLedger(), nil
	}
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("loadLedger: %w", err)
	}
	slog.Info("ledger loaded", "principals", len(ledger.Principals))
	return ledger, nil
}

// resumeSyncSession re-activates a session whose key survived a restart.
// A failed pull leaves the manager in the activating state and the
// session retries on the next explicit pull.
func resumeSyncSession(ctx context.Context, store persist.SnapshotStore, manager *syncer.Manager) {
	key, err := store.LoadSyncKey(ctx)
	if err != nil {
		slog.Warn("failed to load sync key", "error", err)
		return
	}
	if key == "" {
		return
	}
	if err := manager.Activate(ctx, key); err != nil {
		slog.Warn("sync session not resumed", "error", err)
	}
}
