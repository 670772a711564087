package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aristath/donorsync/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Below this much free space on the data volume the job fails
const minFreeDiskBytes = 500 << 20

// DatabaseMaintenanceJob checks integrity, truncates the WAL and watches disk space
type DatabaseMaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDatabaseMaintenanceJob creates a new DatabaseMaintenanceJob
func NewDatabaseMaintenanceJob(db *database.DB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		db:  db,
		log: log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance pass
func (j *DatabaseMaintenanceJob) Run() error {
	if j.db == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return err
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	stats, err := j.db.GetStats()
	if err != nil {
		return err
	}
	j.log.Info().
		Str("database", j.db.Name()).
		Int64("size_bytes", stats.SizeBytes).
		Int64("wal_size_bytes", stats.WALSizeBytes).
		Int64("freelist_count", stats.FreelistCount).
		Msg("Database maintenance complete")

	return nil
}

func (j *DatabaseMaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(filepath.Dir(j.db.Path()))
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	if usage.Free < minFreeDiskBytes {
		return fmt.Errorf("only %d MB free on %s", usage.Free>>20, usage.Path)
	}
	if usage.UsedPercent > 90 {
		j.log.Warn().
			Float64("used_percent", usage.UsedPercent).
			Uint64("free_mb", usage.Free>>20).
			Msg("Disk space running low")
	}
	return nil
}
