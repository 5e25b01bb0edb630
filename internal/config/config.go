package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	BackendREST   = "rest"
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP server
	Port               string
	CORSAllowedOrigins []string
	MutationRateLimit  int
	LogLevel           string

	// Record source
	DataBackend   string
	DataDirectory string

	// Upstream REST API
	APIBaseURL        string
	BillingItemsPath  string
	BeneficiariesPath string
	VikasKhandPath    string
	APITimeout        time.Duration
	APIRetryMax       int

	// Snapshot and report caches
	SnapshotTTL     time.Duration
	ReportCacheSize int
	ReportCacheTTL  time.Duration

	// Beneficiary outbox
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncBatchSize  int
	SyncSchedule   string
	SyncMaxRetries int

	// Google Sheets record source
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MutationRateLimit:  getEnvInt("MUTATION_RATE_LIMIT", 60),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		DataBackend:   getEnv("DATA_BACKEND", BackendREST),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),

		APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8000"),
		BillingItemsPath:  getEnv("BILLING_ITEMS_PATH", "/api/billing-items"),
		BeneficiariesPath: getEnv("BENEFICIARIES_PATH", "/api/beneficiaries"),
		VikasKhandPath:    getEnv("VIKAS_KHAND_PATH", "/api/vikas-khand-by-center"),
		APITimeout:        getEnvDuration("API_TIMEOUT", 15*time.Second),
		APIRetryMax:       getEnvInt("API_RETRY_MAX", 0),

		SnapshotTTL:     getEnvDuration("SNAPSHOT_TTL", 5*time.Minute),
		ReportCacheSize: getEnvInt("REPORT_CACHE_SIZE", 256),
		ReportCacheTTL:  getEnvDuration("REPORT_CACHE_TTL", 10*time.Minute),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/billview.db"),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "billview"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "beneficiary_sync"),

		SyncBatchSize:  getEnvInt("SYNC_BATCH_SIZE", 20),
		SyncSchedule:   getEnv("SYNC_SCHEDULE", "@every 30s"),
		SyncMaxRetries: getEnvInt("SYNC_MAX_RETRIES", 5),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Billing"),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
	}
}

// OutboxEnabled reports whether beneficiary mutations are queued locally.
func (c *Config) OutboxEnabled() bool {
	return c.SQLiteDBPath != ""
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendREST:
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "GOOGLE_SPREADSHEET_ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errs = append(errs, "GOOGLE_SHEET_NAME is required when using sheets backend")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
		}
	case BackendMemory:
		if c.DataDirectory == "" {
			errs = append(errs, "DATA_DIRECTORY cannot be empty when using memory backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s %s]", c.DataBackend, BackendREST, BackendSheets, BackendMemory))
	}

	// beneficiaries and the vikas-khand lookup always go through the REST API
	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid API base URL '%s': must be an absolute http(s) URL", c.APIBaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}
	for name, p := range map[string]string{
		"BILLING_ITEMS_PATH": c.BillingItemsPath,
		"BENEFICIARIES_PATH": c.BeneficiariesPath,
		"VIKAS_KHAND_PATH":   c.VikasKhandPath,
	} {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Sprintf("invalid %s '%s': must start with '/'", name, p))
		}
	}
	if c.APITimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid API timeout %v: must be at least 1 second", c.APITimeout))
	}
	if c.APIRetryMax < 0 || c.APIRetryMax > 10 {
		errs = append(errs, fmt.Sprintf("invalid API retry max %d: must be between 0 and 10", c.APIRetryMax))
	}

	if c.SnapshotTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid snapshot TTL %v: must be at least 1 second", c.SnapshotTTL))
	}
	if c.ReportCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}
	if c.MutationRateLimit < 1 {
		errs = append(errs, fmt.Sprintf("invalid mutation rate limit %d: must be at least 1", c.MutationRateLimit))
	}

	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 || c.SyncBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be between 1 and 1000", c.SyncBatchSize))
	}
	if c.SyncMaxRetries < 1 {
		errs = append(errs, fmt.Sprintf("invalid sync max retries %d: must be at least 1", c.SyncMaxRetries))
	}
	if _, err := cron.ParseStandard(c.SyncSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("invalid sync schedule '%s': %v", c.SyncSchedule, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
