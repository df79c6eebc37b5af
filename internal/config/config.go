// Package config loads process configuration from the environment (and a .env file when present).
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// gRPC Server
	GRPCPort string
	APIToken string

	// Database
	DBDriver     string
	DBConnStr    string
	SQLiteDBPath string

	// AMQP (optional: the notifier is disabled when the URL is empty)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Scheduling
	LookaheadDays     int
	MaxDaysOverdue    int
	ExecutionWorkers  int
	SchedulerInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads .env (if any) and then the environment
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only
func FromEnv() *Config {
	return &Config{
		GRPCPort: getEnv("GRPC_PORT", "8080"),
		APIToken: getEnv("API_TOKEN", "dev-token"),

		DBDriver:     getEnv("DB_DRIVER", DriverMemory),
		DBConnStr:    postgresConnStr(),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/recurring.db"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "recurring"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "series.executed"),

		LookaheadDays:     getEnvInt("LOOKAHEAD_DAYS", 7),
		MaxDaysOverdue:    getEnvInt("MAX_DAYS_OVERDUE", 30),
		ExecutionWorkers:  getEnvInt("EXECUTION_WORKERS", 4),
		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// postgresConnStr prefers DB_CONN_STR and otherwise builds one from the individual vars (Docker friendly)
func postgresConnStr() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "recurring"),
	)
}

// DSN returns the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLiteDBPath
	}
	return c.DBConnStr
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.GRPCPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.GRPCPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.APIToken == "" {
		errors = append(errors, "API token cannot be empty")
	}

	switch c.DBDriver {
	case DriverMemory, DriverPostgres:
	case DriverSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite driver")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be one of [%s %s %s]",
			c.DBDriver, DriverMemory, DriverPostgres, DriverSQLite))
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
	}

	if c.LookaheadDays < 0 {
		errors = append(errors, fmt.Sprintf("invalid lookahead %d: must not be negative", c.LookaheadDays))
	}
	if c.MaxDaysOverdue < 0 {
		errors = append(errors, fmt.Sprintf("invalid max days overdue %d: must not be negative", c.MaxDaysOverdue))
	}
	if c.ExecutionWorkers < 1 || c.ExecutionWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid execution workers %d: must be between 1 and 64", c.ExecutionWorkers))
	}
	if c.SchedulerInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at least 1 second", c.SchedulerInterval))
	}

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
