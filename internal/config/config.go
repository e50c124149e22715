package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Log    LogConfig
	Coupon CouponConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable and set
// DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host          string `envconfig:"DB_HOST" default:"localhost"`
	Port          int    `envconfig:"DB_PORT" default:"5432"`
	User          string `envconfig:"DB_USER" default:"postgres"`
	Password      string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name          string `envconfig:"DB_NAME" default:"coupon_engine"`
	SSLMode       string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns      int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns      int    `envconfig:"DB_MIN_CONNS" default:"5"`
	ConnectRetries int   `envconfig:"DB_CONNECT_RETRIES" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// CouponConfig holds the engine policy knobs.
type CouponConfig struct {
	CodeLength          int `envconfig:"COUPON_CODE_LENGTH" default:"4"`
	CodeMaxAttempts     int `envconfig:"COUPON_CODE_MAX_ATTEMPTS" default:"10"`
	MinWindowGapMinutes int `envconfig:"COUPON_MIN_WINDOW_GAP_MINUTES" default:"60"`
	StartGraceMinutes   int `envconfig:"COUPON_START_GRACE_MINUTES" default:"5"`
	DefaultLimitPerUser int `envconfig:"COUPON_DEFAULT_LIMIT_PER_USER" default:"1"`
}

// MinWindowGap returns the minimum issuance window length.
func (c CouponConfig) MinWindowGap() time.Duration {
	return time.Duration(c.MinWindowGapMinutes) * time.Minute
}

// StartGrace returns the tolerance for issue starts slightly in the past.
func (c CouponConfig) StartGrace() time.Duration {
	return time.Duration(c.StartGraceMinutes) * time.Minute
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
