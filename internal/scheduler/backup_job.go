package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Backuper is implemented by reliability.BackupService
type Backuper interface {
	CreateAndUploadBackup(ctx context.Context) (string, error)
	RotateOldBackups(ctx context.Context) error
}

// BackupJob uploads a database snapshot to R2 and prunes old ones
type BackupJob struct {
	backups Backuper
	log     zerolog.Logger
}

// NewBackupJob creates a new BackupJob
func NewBackupJob(backups Backuper, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		log:     log.With().Str("job", "r2_backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "r2_backup"
}

// Run executes the backup, then rotation. A rotation failure does not fail the job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	key, err := j.backups.CreateAndUploadBackup(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Str("key", key).Msg("Backup uploaded")

	if err := j.backups.RotateOldBackups(ctx); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
