package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for appforge-engine.
// Values come from config.yaml with environment variable overrides.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Auth configuration for the owner-identity middleware.
	Auth AuthConfig `yaml:"auth"`

	// Metadata store (PostgreSQL) holding the data source records.
	Database DatabaseConfig `yaml:"database"`

	// Per-call behavior of backend drivers.
	Datasource DatasourceConfig `yaml:"datasource"`

	// Key for AES-256-GCM encryption of connection configs at rest.
	// Base64-encoded 32 bytes (openssl rand -base64 32) or any passphrase.
	// The server refuses to start without it.
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"` // Secret - not in YAML
}

// AuthConfig holds owner-identity middleware configuration.
type AuthConfig struct {
	// EnableVerification controls whether bearer tokens are verified
	// against the JWKS endpoint. Set to false for local development.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSURL is the JWKS endpoint of the external auth service.
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL" env-default:""`
}

// DatabaseConfig holds metadata store connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"appforge"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"appforge_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
}

// DatasourceConfig bounds backend driver calls.
type DatasourceConfig struct {
	// QueryTimeoutSeconds is the deadline applied to every test/query/schema
	// call. Deadline exhaustion surfaces as a timeout failure result.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"DATASOURCE_QUERY_TIMEOUT_SECONDS" env-default:"30"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	if cfg.CredentialsKey == "" {
		return nil, fmt.Errorf("CREDENTIALS_KEY is required for connection config encryption")
	}

	if cfg.Auth.EnableVerification && cfg.Auth.JWKSURL == "" {
		return nil, fmt.Errorf("AUTH_JWKS_URL is required when auth verification is enabled")
	}

	return cfg, nil
}
