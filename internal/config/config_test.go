package config

import (
	"testing"

	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("DONORTOOLS_ENDPOINT", "https://api.test")
	t.Setenv("DONORTOOLS_USERNAME", "user")
	t.Setenv("DONORTOOLS_PASSWORD", "secret")
	t.Setenv("DONORTOOLS_FUND_ID", "13860")
	t.Setenv("DONORTOOLS_SOURCE_ID", "24165")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ImportModeStore, cfg.ImportMode)
	assert.Equal(t, "@every 1h", cfg.ImportSchedule)
	assert.True(t, cfg.RememberPersonas)
	assert.Nil(t, cfg.Backup)

	dt := cfg.DonorTools
	assert.Equal(t, "https://api.test", dt.Endpoint)
	assert.Equal(t, int64(13860), dt.FundID)
	assert.Equal(t, int64(24165), dt.SourceID)
	assert.False(t, dt.InsecureSkipVerify)
	assert.False(t, dt.LogAndContinue)
	assert.Equal(t, donortools.SchemaNested, dt.Schema)
	assert.Equal(t, donortools.BodyRaw, dt.BodyEncoding)
	assert.Equal(t, donortools.DefaultTimeout, dt.Timeout)
}

func TestLoad_CompatibilityFlags(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DONORTOOLS_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("DONORTOOLS_SCHEMA", "attributes")
	t.Setenv("DONORTOOLS_BODY_ENCODING", "form")
	t.Setenv("DONORTOOLS_LOG_AND_CONTINUE", "1")
	t.Setenv("DONORTOOLS_IMPORT_MODE", "list")
	t.Setenv("DONORTOOLS_IMPORT_SCHEDULE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.DonorTools.InsecureSkipVerify)
	assert.True(t, cfg.DonorTools.LogAndContinue)
	assert.Equal(t, donortools.SchemaAttributes, cfg.DonorTools.Schema)
	assert.Equal(t, donortools.BodyForm, cfg.DonorTools.BodyEncoding)
	assert.Equal(t, ImportModeList, cfg.ImportMode)
	assert.Empty(t, cfg.ImportSchedule)
}

func TestLoad_MissingFundID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DONORTOOLS_FUND_ID", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidSourceID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DONORTOOLS_SOURCE_ID", "abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidImportMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DONORTOOLS_IMPORT_MODE", "sync")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BackupConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("R2_ACCOUNT_ID", "acct")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_BUCKET", "donations")
	t.Setenv("BACKUP_RETENTION", "5")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Backup)
	assert.Equal(t, "donations", cfg.Backup.Bucket)
	assert.Equal(t, 5, cfg.Backup.Retention)
	assert.Equal(t, "0 0 3 * * *", cfg.Backup.Schedule)
}
