package ledgerarchive

import (
	"errors"
	"fmt"
	"time"

	"github.com/tipmasterapp/tipmaster/internal/pkg/env"
)

// Config holds S3 ledger archive configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("S3_LEDGER_ARCHIVE_ENABLED", "false") == "true",
	}

	// Validate required fields if the archive is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the ledger archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the ledger archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the ledger archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if the ledger archive is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// SnapshotKey generates the S3 object key for a ledger snapshot taken at ts.
// Format: billing/ledger/YYYY/MM/snapshot-YYYYMMDD-HHMMSS.json
func (c *Config) SnapshotKey(ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("billing/ledger/%04d/%02d/snapshot-%s.json",
		ts.Year(), int(ts.Month()), ts.Format("20060102-150405"))
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}

// GetBucketName returns the bucket name as configured (no automatic prefixing)
func (c *Config) GetBucketName() string {
	return c.BucketName
}
