package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"opencalc/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Tradier       TradierConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"opencalc"`
	Env         string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TradierConfig configures the market-data provider client. Credentials and
// base URL are injected into the adapter at construction time; nothing in the
// analytics code reads the environment directly.
type TradierConfig struct {
	BaseURL           string        `envconfig:"TRADIER_BASE_URL" default:"https://sandbox.tradier.com/v1"`
	Token             string        `envconfig:"TRADIER_TOKEN" required:"true"`
	Timeout           time.Duration `envconfig:"TRADIER_TIMEOUT" default:"10s"`
	RequestsPerMinute int           `envconfig:"TRADIER_REQUESTS_PER_MINUTE" default:"60"`
	QuoteCacheTTL     time.Duration `envconfig:"TRADIER_QUOTE_CACHE_TTL" default:"30s"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for the background refresh workers.
// Defaults balance data freshness against provider rate limits.
type WorkerConfig struct {
	SnapshotRefreshInterval time.Duration `envconfig:"WORKER_SNAPSHOT_REFRESH_INTERVAL" default:"15m"`
	SnapshotRefreshEnabled  bool          `envconfig:"WORKER_SNAPSHOT_REFRESH_ENABLED" default:"true"`

	TradeMonitorInterval time.Duration `envconfig:"WORKER_TRADE_MONITOR_INTERVAL" default:"30m"`
	TradeMonitorEnabled  bool          `envconfig:"WORKER_TRADE_MONITOR_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
