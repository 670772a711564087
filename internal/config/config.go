// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aristath/donorsync/internal/clients/donortools"
	"github.com/joho/godotenv"
)

// ImportMode selects what the scheduled import does with remote donations.
type ImportMode string

const (
	ImportModeStore ImportMode = "store" // Persist new donations locally, report a count
	ImportModeList  ImportMode = "list"  // Fetch and log the parsed donations only
)

// Config holds application configuration
type Config struct {
	DataDir   string // Directory holding donations.db (always absolute)
	Port      int
	LogLevel  string
	LogPretty bool
	DevMode   bool

	DonorTools       donortools.Config
	ImportMode       ImportMode
	ImportSchedule   string // cron spec; empty disables the scheduled import
	RememberPersonas bool   // Reuse stored persona ids when saving by email

	Backup *BackupConfig // nil when R2 credentials are not configured
}

// BackupConfig holds Cloudflare R2 backup settings
type BackupConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Schedule        string
	Retention       int // Number of newest backups kept
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dt, err := loadDonorTools()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:          dataDir,
		Port:             getEnvAsInt("PORT", 8080),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOG_PRETTY", true),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		DonorTools:       dt,
		ImportMode:       ImportMode(strings.ToLower(getEnv("DONORTOOLS_IMPORT_MODE", string(ImportModeStore)))),
		ImportSchedule:   lookupEnv("DONORTOOLS_IMPORT_SCHEDULE", "@every 1h"),
		RememberPersonas: getEnvAsBool("DONORTOOLS_REMEMBER_PERSONAS", true),
		Backup:           loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDonorTools() (donortools.Config, error) {
	schema, err := donortools.ParseSchema(getEnv("DONORTOOLS_SCHEMA", ""))
	if err != nil {
		return donortools.Config{}, err
	}
	encoding, err := donortools.ParseBodyEncoding(getEnv("DONORTOOLS_BODY_ENCODING", ""))
	if err != nil {
		return donortools.Config{}, err
	}
	fundID, err := requireEnvAsInt64("DONORTOOLS_FUND_ID")
	if err != nil {
		return donortools.Config{}, err
	}
	sourceID, err := requireEnvAsInt64("DONORTOOLS_SOURCE_ID")
	if err != nil {
		return donortools.Config{}, err
	}

	return donortools.Config{
		Endpoint:           getEnv("DONORTOOLS_ENDPOINT", ""),
		Username:           getEnv("DONORTOOLS_USERNAME", ""),
		Password:           getEnv("DONORTOOLS_PASSWORD", ""),
		FundID:             fundID,
		SourceID:           sourceID,
		InsecureSkipVerify: getEnvAsBool("DONORTOOLS_INSECURE_SKIP_VERIFY", false),
		Schema:             schema,
		BodyEncoding:       encoding,
		LogAndContinue:     getEnvAsBool("DONORTOOLS_LOG_AND_CONTINUE", false),
		Timeout:            donortools.DefaultTimeout,
	}, nil
}

// loadBackupConfig returns nil unless all R2 credentials are present
func loadBackupConfig() *BackupConfig {
	b := &BackupConfig{
		AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		Bucket:          getEnv("R2_BUCKET", ""),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
		Retention:       getEnvAsInt("BACKUP_RETENTION", 14),
	}
	if b.AccountID == "" || b.AccessKeyID == "" || b.SecretAccessKey == "" || b.Bucket == "" {
		return nil
	}
	return b
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if err := c.DonorTools.Validate(); err != nil {
		return err
	}
	if c.DonorTools.Username == "" || c.DonorTools.Password == "" {
		return fmt.Errorf("DONORTOOLS_USERNAME and DONORTOOLS_PASSWORD are required")
	}
	switch c.ImportMode {
	case ImportModeStore, ImportModeList:
	default:
		return fmt.Errorf("invalid DONORTOOLS_IMPORT_MODE %q (want store or list)", c.ImportMode)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv is like getEnv but keeps an explicitly empty value.
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func requireEnvAsInt64(key string) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}
