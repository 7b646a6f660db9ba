package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" default:"168h"` // 7 days

	// Trusted-header auth: when enabled, requests carrying the configured
	// header are authenticated as the named principal without a password.
	// Only safe behind a proxy that strips the header from client traffic.
	TrustedHeaderAuth bool   `env:"TRUSTED_HEADER_AUTH" default:"false"`
	TrustedHeaderName string `env:"TRUSTED_HEADER_NAME" default:"X-Forwarded-Email"`

	LoginRatePerSecond float64 `env:"LOGIN_RATE_PER_SECOND" default:"1"`
	LoginRateBurst     int     `env:"LOGIN_RATE_BURST" default:"5"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":   cfg.DatabaseURL,
		"REDIS_URL":      cfg.RedisURL,
		"SESSION_SECRET": cfg.SessionSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters, got %d", len(cfg.SessionSecret))
	}

	if cfg.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1 minute, got %s", cfg.SessionTTL)
	}

	if cfg.TrustedHeaderAuth && strings.TrimSpace(cfg.TrustedHeaderName) == "" {
		return fmt.Errorf("TRUSTED_HEADER_NAME is required when TRUSTED_HEADER_AUTH is enabled")
	}

	if cfg.AppEnv == "production" && strings.Contains(cfg.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("DATABASE_URL must not disable SSL in production")
	}

	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
