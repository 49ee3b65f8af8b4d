package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reelist/config"
	"reelist/handlers"
	"reelist/internal/database"
	"reelist/services/catalog"
	"reelist/services/recommend"
	"reelist/services/session"
	"reelist/services/watchlist"
	"reelist/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFile)
	logger.Info("Starting Reelist")

	db, err := database.NewDB(database.Config{DatabasePath: cfg.DatabaseFile})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.WithField("path", cfg.DatabaseFile).Info("Database initialized")

	catalogClient := catalog.NewClient(cfg, logger)
	if !catalogClient.Configured() {
		logger.Warn("No TMDB credential configured, catalog features disabled")
	}

	watchlistSvc := watchlist.NewService(db, catalogClient, logger)
	recommendSvc := recommend.NewService(db, catalogClient, logger)
	sessionSvc := session.NewService(db, time.Duration(cfg.SessionTTLHours)*time.Hour, logger)

	api := handlers.NewAPI(watchlistSvc, recommendSvc, sessionSvc, catalogClient, cfg.APIToken, logger)
	web, err := handlers.NewWeb(watchlistSvc, recommendSvc, sessionSvc, catalogClient, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize web handlers: %w", err)
	}

	server := handlers.NewServer(cfg.ServerPort, api, web, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go purgeSessions(ctx, sessionSvc)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Reelist is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Reelist stopped")
	return nil
}

// purgeSessions deletes expired sessions once an hour until ctx is cancelled.
func purgeSessions(ctx context.Context, sessions *session.Service) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = sessions.PurgeExpired(ctx)
		}
	}
}
