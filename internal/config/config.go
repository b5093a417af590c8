package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port           string
	SessionTTL     time.Duration
	SecureCookies  bool
	TrustedProxies []string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Workers
	MirrorBatchSize   int
	MirrorInterval    time.Duration
	RecurringInterval time.Duration

	// Report
	ReportFontDir    string
	ReportFilePrefix string
	ReportProductURL string
	ReportWatermark  bool

	// Observability
	LogLevel          string
	SentryDSN         string
	SentryEnvironment string
}

func Load() *Config {
	cfg := &Config{
		Port:       getEnv("PORT", "8081"),
		SessionTTL: getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		// Secure cookies need TLS; leave off for local http development.
		SecureCookies:  getEnvBool("SECURE_COOKIES", false),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/roadrich.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "roadrich"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_expenses"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		MirrorBatchSize:   getEnvInt("MIRROR_BATCH_SIZE", 50),
		MirrorInterval:    getEnvDuration("MIRROR_INTERVAL", time.Minute),
		RecurringInterval: getEnvDuration("RECURRING_INTERVAL", time.Hour),

		ReportFontDir:    getEnv("REPORT_FONT_DIR", ""),
		ReportFilePrefix: getEnv("REPORT_FILE_PREFIX", "rapport"),
		ReportProductURL: getEnv("REPORT_PRODUCT_URL", "roadrich.app"),
		ReportWatermark:  getEnvBool("REPORT_WATERMARK", false),

		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "development"),
	}

	return cfg
}

// MirrorEnabled reports whether a spreadsheet is configured.
func (c *Config) MirrorEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Service account key is required once a spreadsheet is configured
	if c.MirrorEnabled() {
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided with GOOGLE_SPREADSHEET_ID")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate worker configuration
	if c.MirrorBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid mirror batch size %d: must be at least 1", c.MirrorBatchSize))
	} else if c.MirrorBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid mirror batch size %d: must be at most 1000", c.MirrorBatchSize))
	}

	if c.MirrorInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at least 1 second", c.MirrorInterval))
	} else if c.MirrorInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at most 24 hours", c.MirrorInterval))
	}

	if c.RecurringInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 minute", c.RecurringInterval))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	// Report fonts are optional; when set the directory must exist
	if c.ReportFontDir != "" {
		if info, err := os.Stat(c.ReportFontDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("report font directory does not exist: %s", c.ReportFontDir))
		}
	}

	if strings.ContainsAny(c.ReportFilePrefix, `/\ `) {
		errors = append(errors, fmt.Sprintf("invalid report file prefix '%s': must not contain spaces or path separators", c.ReportFilePrefix))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
