package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ethforwarder/internal/api"
	"ethforwarder/internal/config"
	"ethforwarder/internal/retry"
	"ethforwarder/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load configuration
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"store_backend", cfg.StoreBackend,
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
	)

	// 3. Initialize the record store
	ctx := context.Background()
	repository, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer repository.Close()
	slog.Info("Record store ready", "backend", cfg.StoreBackend)

	// 4. Start the ledger API server
	server := api.NewServer(cfg.Port, repository)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	// 5. Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Warn("Interrupt received, shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down API server", "error", err)
	}

	slog.Info("Ledger daemon stopped")
}

// openRepository connects the configured store backend. Transient connection
// failures against Postgres are retried with backoff so the daemon survives a
// database that comes up slightly later.
func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	if cfg.StoreBackend == config.StoreMemory {
		return storage.NewMemoryRepository(), nil
	}

	strategy := retry.NewStrategy(retry.LoadConfig())

	var repository *storage.PostgresRepository
	err := strategy.Execute(ctx, func() error {
		var err error
		repository, err = storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := repository.EnsureSchema(ctx); err != nil {
		repository.Close()
		return nil, err
	}
	return repository, nil
}
