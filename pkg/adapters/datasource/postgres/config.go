package postgres

import (
	"fmt"
	"net/url"

	"github.com/appforge-io/appforge-engine/pkg/apperrors"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	SSLMode  string
}

// FromMap builds a Config from the decoded connection config. The
// required fields were already validated at create/update time, but the
// driver re-checks them so a hand-edited record fails cleanly.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:    5432,
		SSLMode: "prefer",
	}

	if host, ok := config["host"].(string); ok && host != "" {
		cfg.Host = host
	} else {
		return nil, apperrors.NewValidationError("host")
	}

	if port, ok := config["port"].(float64); ok { // JSON numbers are float64
		cfg.Port = int(port)
	} else if port, ok := config["port"].(int); ok {
		cfg.Port = port
	}

	if username, ok := config["username"].(string); ok && username != "" {
		cfg.Username = username
	} else {
		return nil, apperrors.NewValidationError("username")
	}

	if password, ok := config["password"].(string); ok {
		cfg.Password = password
	}

	if database, ok := config["database"].(string); ok && database != "" {
		cfg.Database = database
	} else {
		return nil, apperrors.NewValidationError("database")
	}

	if sslMode, ok := config["ssl_mode"].(string); ok && sslMode != "" {
		cfg.SSLMode = sslMode
	}

	return cfg, nil
}

// connectionString builds a PostgreSQL URL with user-provided fields
// escaped so special characters in passwords survive URL parsing.
func (c *Config) connectionString() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
		c.SSLMode,
	)
}
