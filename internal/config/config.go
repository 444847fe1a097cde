package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environments decide the application folder name used by the diff
// transport, so development devices never pollute a production sync tree.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	// Environment
	Environment string

	// Database
	SQLiteDBPath string

	// Diff transport folder roots. CloudDir is the cloud-provider-synced
	// folder; DataDir holds diffs of budgets not opted into cloud sync.
	DataDir  string
	CloudDir string

	// AMQP (optional; empty URL disables the diff notification publisher)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Recurring-transaction projector
	ProjectionCount int
	LeadDays        int

	// Worker
	ScheduleInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Environment:  getEnv("ENVELOPE_ENV", EnvDevelopment),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/envelope.db"),

		DataDir:  getEnv("ENVELOPE_DATA_DIR", "./data"),
		CloudDir: getEnv("ENVELOPE_CLOUD_DIR", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "envelope"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "diff_notifications"),

		ProjectionCount: getEnvInt("PROJECTION_COUNT", 5),
		LeadDays:        getEnvInt("PROJECTION_LEAD_DAYS", 7),

		ScheduleInterval: getEnvDuration("SCHEDULE_INTERVAL", 1*time.Hour),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		errors = append(errors, fmt.Sprintf("invalid environment '%s': must be '%s' or '%s'",
			c.Environment, EnvDevelopment, EnvProduction))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty")
	}

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

	if c.ProjectionCount < 1 {
		errors = append(errors, fmt.Sprintf("invalid projection count %d: must be at least 1", c.ProjectionCount))
	} else if c.ProjectionCount > 100 {
		errors = append(errors, fmt.Sprintf("invalid projection count %d: must be at most 100", c.ProjectionCount))
	}

	if c.LeadDays < 0 {
		errors = append(errors, fmt.Sprintf("invalid projection lead days %d: must not be negative", c.LeadDays))
	} else if c.LeadDays > 365 {
		errors = append(errors, fmt.Sprintf("invalid projection lead days %d: must be at most 365", c.LeadDays))
	}

	if c.ScheduleInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid schedule interval %v: must be at least 1 second", c.ScheduleInterval))
	} else if c.ScheduleInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid schedule interval %v: must be at most 24 hours", c.ScheduleInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DiffRoot returns the folder root the diff transport should use for a
// budget. Cloud-synced budgets use the cloud folder when one is configured.
func (c *Config) DiffRoot(cloudSynced bool) string {
	if cloudSynced && c.CloudDir != "" {
		return c.CloudDir
	}
	return c.DataDir
}

// AppFolder returns the per-environment application folder name inside the
// diff root.
func (c *Config) AppFolder() string {
	if c.Environment == EnvProduction {
		return "Envelope"
	}
	return "EnvelopeDev"
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
