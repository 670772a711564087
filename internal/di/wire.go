// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/aristath/donorsync/internal/config"
	"github.com/aristath/donorsync/internal/database"
	"github.com/aristath/donorsync/internal/modules/donations"
	"github.com/aristath/donorsync/internal/reliability"
	"github.com/aristath/donorsync/internal/scheduler"
	"github.com/rs/zerolog"
)

// Maintenance runs daily at 02:30
const maintenanceSchedule = "0 30 2 * * *"

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Initialize database
// 2. Initialize clients, repositories and services
// 3. Register jobs (the scheduler is returned stopped)
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := initializeDatabase(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := initializeServices(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs, err := registerJobs(container, cfg, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	return container, jobs, nil
}

func initializeDatabase(cfg *config.Config) (*Container, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "donations.db"),
		Profile: database.ProfileLedger, // Donations are financial records
		Name:    "donations",
	})
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return &Container{DonationsDB: db}, nil
}

func initializeServices(ctx context.Context, c *Container, cfg *config.Config, log zerolog.Logger) error {
	c.DonorTools = donortools.NewClient(log)

	c.DonationRepo = donations.NewRepository(c.DonationsDB.Conn(), log)
	c.DonorRepo = donations.NewDonorRepository(c.DonationsDB.Conn(), log)
	c.DonationService = donations.NewService(c.DonorTools, c.DonationRepo, c.DonorRepo, cfg.RememberPersonas, log)

	if b := cfg.Backup; b != nil {
		r2, err := reliability.NewR2Client(ctx, b.AccountID, b.AccessKeyID, b.SecretAccessKey, b.Bucket, log)
		if err != nil {
			return err
		}
		c.R2Client = r2
		c.BackupService = reliability.NewBackupService(r2, c.DonationsDB, cfg.DataDir, b.Retention, log)
	}

	c.Scheduler = scheduler.New(log)
	return nil
}

func registerJobs(c *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{
		DatabaseMaintenance: scheduler.NewDatabaseMaintenanceJob(c.DonationsDB, log),
	}
	if err := c.Scheduler.AddJob(maintenanceSchedule, jobs.DatabaseMaintenance); err != nil {
		return nil, err
	}

	if cfg.ImportSchedule != "" {
		jobs.ImportDonations = scheduler.NewImportDonationsJob(c.DonationService, cfg.DonorTools, cfg.ImportMode, log)
		if err := c.Scheduler.AddJob(cfg.ImportSchedule, jobs.ImportDonations); err != nil {
			return nil, err
		}
	}

	if c.BackupService != nil {
		jobs.Backup = scheduler.NewBackupJob(c.BackupService, log)
		if err := c.Scheduler.AddJob(cfg.Backup.Schedule, jobs.Backup); err != nil {
			return nil, err
		}
	}

	return jobs, nil
}
