// Package main is the entry point for donorsync, which keeps a local
// donation ledger in sync with DonorTools.
//
// Startup order:
// 1. Load configuration from the environment (.env supported)
// 2. Initialize logging
// 3. Wire the database, DonorTools client, services and jobs
// 4. Start the HTTP server and scheduler
// 5. Wait for SIGINT/SIGTERM and shut down gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/donorsync/internal/config"
	"github.com/aristath/donorsync/internal/di"
	donationhandlers "github.com/aristath/donorsync/internal/modules/donations/handlers"
	"github.com/aristath/donorsync/internal/server"
	"github.com/aristath/donorsync/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Fallback logger so the configuration error is still visible
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("endpoint", cfg.DonorTools.Endpoint).
		Str("import_mode", string(cfg.ImportMode)).
		Bool("backups", cfg.Backup != nil).
		Msg("Starting donorsync")

	if cfg.DonorTools.InsecureSkipVerify {
		log.Warn().Msg("TLS certificate verification is disabled for DonorTools")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DB:        container.DonationsDB,
		Donations: donationhandlers.NewHandler(container.DonationService, cfg.DonorTools, log),
		Backups:   container.BackupService,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	container.Scheduler.Start()

	// Run one import right away instead of waiting for the first tick
	if jobs.ImportDonations != nil {
		go func() {
			if err := container.Scheduler.RunNow(jobs.ImportDonations); err != nil {
				log.Error().Err(err).Msg("Initial donation import failed")
			}
		}()
	}

	log.Info().Int("port", cfg.Port).Msg("donorsync started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()

	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("donorsync stopped")
}
