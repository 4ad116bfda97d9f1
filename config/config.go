package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// PlaceholderJWTSecret is the value shipped in .env.example. It passes the
// length check but must never reach production.
const PlaceholderJWTSecret = "your-super-secret-jwt-key-change-this-in-production"

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"168h" validate:"min=1m"`

	RegistrationEnabled bool   `env:"REGISTRATION_ENABLED" envDefault:"true"`
	RegistrationSecret  string `env:"REGISTRATION_SECRET" validate:"required_if=RegistrationEnabled true"`

	CacheBackend   string        `env:"CACHE_BACKEND" envDefault:"memory" validate:"oneof=memory redis"`
	CacheNamespace string        `env:"CACHE_NAMESPACE" envDefault:"blog:"`
	PostsCacheTTL  time.Duration `env:"POSTS_CACHE_TTL" envDefault:"60s" validate:"min=1s"`
	CacheSweepSpec string        `env:"CACHE_SWEEP_SPEC" envDefault:"@every 10m"`
	RedisURL       string        `env:"REDIS_URL" validate:"required_if=CacheBackend redis"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2Endpoint        string `env:"R2_ENDPOINT"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2Bucket          string `env:"R2_BUCKET"`
	R2PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// UsesPlaceholderSecret reports whether JWT_SECRET is still the example value.
func (c *Config) UsesPlaceholderSecret() bool {
	return c.JWTSecret == PlaceholderJWTSecret
}

// StorageConfigured reports whether every R2 setting needed for presigned uploads is present.
func (c *Config) StorageConfigured() bool {
	return (c.R2AccountID != "" || c.R2Endpoint != "") &&
		c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2Bucket != "" && c.R2PublicBaseURL != ""
}
