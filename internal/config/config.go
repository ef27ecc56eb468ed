package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database drivers accepted in DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Forwarding providers accepted in FORWARD_PROVIDER.
const (
	ProviderNone    = "none"
	ProviderWebhook = "webhook"
	ProviderFCM     = "fcm"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only the database location is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // 0 by default: SSE streams stay open
	ShutdownTimeout time.Duration
	LogLevel        string

	// Database
	DBDriver    string
	DatabaseURL string
	SQLitePath  string
	DBMaxConns  int32
	DBMinConns  int32

	// Notification queue: lifetime applied to every toast.
	NotificationTTL time.Duration
	// SSE keep-alive comment interval.
	StreamHeartbeat time.Duration

	// Contract creation throttling per client IP.
	CreateRatePerSec int
	CreateBurst      int

	// Forwarding to an external push transport
	ForwardProvider   string
	WebhookURL        string
	WebhookTimeout    time.Duration
	FCMCredentials    string
	FCMTopic          string
	ForwardWorkers    int
	OutboxSize        int
	ForwardRatePerSec int
	MaxRetries        int

	// Retry backoff durations: index 0 = first retry delay, etc.
	RetryBackoff []time.Duration

	// Relay of contracts whose notification was never published.
	RelayInterval time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 0),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/hs-notify.db"),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		NotificationTTL: getDuration("NOTIFICATION_TTL", 3*time.Minute),
		StreamHeartbeat: getDuration("STREAM_HEARTBEAT", 25*time.Second),

		CreateRatePerSec: getInt("CREATE_RATE_PER_SEC", 5),
		CreateBurst:      getInt("CREATE_BURST", 10),

		ForwardProvider:   strings.ToLower(getEnv("FORWARD_PROVIDER", ProviderNone)),
		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		WebhookTimeout:    getDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		FCMCredentials:    os.Getenv("FCM_CREDENTIALS_FILE"),
		FCMTopic:          getEnv("FCM_TOPIC", "contratos"),
		ForwardWorkers:    getInt("FORWARD_WORKERS", 2),
		OutboxSize:        getInt("OUTBOX_SIZE", 500),
		ForwardRatePerSec: getInt("FORWARD_RATE_PER_SEC", 20),
		MaxRetries:        getInt("MAX_RETRIES", 3),

		RetryBackoff: []time.Duration{
			getDuration("RETRY_BACKOFF_1", 2*time.Second),
			getDuration("RETRY_BACKOFF_2", 10*time.Second),
			getDuration("RETRY_BACKOFF_3", 30*time.Second),
		},

		RelayInterval: getDuration("RELAY_INTERVAL", 15*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=%s", DriverSQLite)
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}

	switch c.ForwardProvider {
	case ProviderNone:
	case ProviderWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required when FORWARD_PROVIDER=%s", ProviderWebhook)
		}
	case ProviderFCM:
		if c.FCMTopic == "" {
			return fmt.Errorf("FCM_TOPIC is required when FORWARD_PROVIDER=%s", ProviderFCM)
		}
	default:
		return fmt.Errorf("unknown FORWARD_PROVIDER %q", c.ForwardProvider)
	}

	if c.NotificationTTL <= 0 {
		return fmt.Errorf("NOTIFICATION_TTL must be positive")
	}
	if c.RelayInterval <= 0 {
		return fmt.Errorf("RELAY_INTERVAL must be positive")
	}
	if c.ForwardRatePerSec <= 0 {
		return fmt.Errorf("FORWARD_RATE_PER_SEC must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
