package mysql

import (
	"fmt"

	"github.com/appforge-io/appforge-engine/pkg/apperrors"
)

// Config contains MySQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// FromMap builds a Config from the decoded connection config.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Port: 3306}

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

	return cfg, nil
}

// dsn builds a go-sql-driver DSN. The driver handles escaping of the
// password internally; parseTime maps temporal columns onto time.Time.
func (c *Config) dsn() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}
