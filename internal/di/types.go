package di

import (
	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/aristath/donorsync/internal/database"
	"github.com/aristath/donorsync/internal/modules/donations"
	"github.com/aristath/donorsync/internal/reliability"
	"github.com/aristath/donorsync/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	DonationsDB *database.DB

	// Clients
	DonorTools *donortools.Client
	R2Client   *reliability.R2Client // nil when backups are disabled

	// Repositories
	DonationRepo *donations.Repository
	DonorRepo    *donations.DonorRepository

	// Services
	DonationService *donations.Service
	BackupService   *reliability.BackupService // nil when backups are disabled

	// Background work
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	ImportDonations     *scheduler.ImportDonationsJob // nil when the import schedule is empty
	DatabaseMaintenance *scheduler.DatabaseMaintenanceJob
	Backup              *scheduler.BackupJob // nil when backups are disabled
}

// Close releases the container's resources
func (c *Container) Close() error {
	if c.DonationsDB == nil {
		return nil
	}
	return c.DonationsDB.Close()
}
