package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/aristath/donorsync/internal/config"
	"github.com/aristath/donorsync/internal/modules/donations"
	testingpkg "github.com/aristath/donorsync/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("every tuesday", &countingJob{})
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("ignored")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())
}

type fakeImporter struct {
	imports int
	lists   int
	err     error
}

func (f *fakeImporter) Import(ctx context.Context, cfg donortools.Config) (*donations.ImportSummary, error) {
	f.imports++
	if f.err != nil {
		return nil, f.err
	}
	return &donations.ImportSummary{Imported: 2}, nil
}

func (f *fakeImporter) ListRemote(ctx context.Context, cfg donortools.Config) (*donortools.ImportResult, error) {
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	return &donortools.ImportResult{Donations: testingpkg.NewRemoteDonationFixtures()}, nil
}

func TestImportDonationsJob_Modes(t *testing.T) {
	store := &fakeImporter{}
	job := NewImportDonationsJob(store, donortools.Config{}, config.ImportModeStore, zerolog.Nop())
	assert.Equal(t, "import_donations", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, store.imports)
	assert.Zero(t, store.lists)

	list := &fakeImporter{}
	require.NoError(t, NewImportDonationsJob(list, donortools.Config{}, config.ImportModeList, zerolog.Nop()).Run())
	assert.Zero(t, list.imports)
	assert.Equal(t, 1, list.lists)
}

func TestImportDonationsJob_PropagatesErrors(t *testing.T) {
	importer := &fakeImporter{err: donortools.ErrTransport}
	err := NewImportDonationsJob(importer, donortools.Config{}, config.ImportModeStore, zerolog.Nop()).Run()
	assert.ErrorIs(t, err, donortools.ErrTransport)
}

func TestDatabaseMaintenanceJob(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "donations")
	defer cleanup()

	job := NewDatabaseMaintenanceJob(db, zerolog.Nop())
	assert.Equal(t, "database_maintenance", job.Name())
	assert.NoError(t, job.Run())

	assert.NoError(t, NewDatabaseMaintenanceJob(nil, zerolog.Nop()).Run())
}

type fakeBackuper struct {
	backupErr error
	rotateErr error
	rotated   bool
}

func (f *fakeBackuper) CreateAndUploadBackup(ctx context.Context) (string, error) {
	if f.backupErr != nil {
		return "", f.backupErr
	}
	return "backups/donations-backup-2026-01-01-030000.db.gz", nil
}

func (f *fakeBackuper) RotateOldBackups(ctx context.Context) error {
	f.rotated = true
	return f.rotateErr
}

func TestBackupJob(t *testing.T) {
	ok := &fakeBackuper{rotateErr: errors.New("list failed")}
	assert.NoError(t, NewBackupJob(ok, zerolog.Nop()).Run(), "rotation failure is only logged")
	assert.True(t, ok.rotated)

	failing := &fakeBackuper{backupErr: errors.New("upload failed")}
	assert.Error(t, NewBackupJob(failing, zerolog.Nop()).Run())
	assert.False(t, failing.rotated)
}
