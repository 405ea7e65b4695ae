package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
	App    AppConfig
}

type ServerConfig struct {
	Port               string   `env:"PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
}

type StoreConfig struct {
	Backend       string `env:"STORE_BACKEND" envDefault:"redis"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	DSN           string `env:"DB_DSN"`
	MaxConns      int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns      int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"garden.db"`
}

type AuthConfig struct {
	Mode             string        `env:"AUTH_MODE" envDefault:"signature"`
	SignatureMaxAge  time.Duration `env:"SIGNATURE_MAX_AGE" envDefault:"5m"`
	RateLimitEnabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
}

type AppConfig struct {
	Environment    string `env:"APP_ENV" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	Version        string `env:"APP_VERSION" envDefault:"1.0.0"`
	AirdropEnabled bool   `env:"AIRDROP_ENABLED" envDefault:"false"`
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the process environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	case BackendPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the postgres store")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of redis, postgres, sqlite (got %q)", c.Store.Backend)
	}

	switch c.Auth.Mode {
	case "signature", "header":
	default:
		return fmt.Errorf("AUTH_MODE must be signature or header (got %q)", c.Auth.Mode)
	}
	if c.Auth.Mode == "header" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=header is not allowed in production")
	}
	if c.App.AirdropEnabled && c.IsProduction() {
		return fmt.Errorf("AIRDROP_ENABLED is not allowed in production")
	}
	if c.Auth.SignatureMaxAge <= 0 {
		return fmt.Errorf("SIGNATURE_MAX_AGE must be positive")
	}

	return nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}
