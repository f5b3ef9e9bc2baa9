package mongodb

import (
	"fmt"
	"net/url"
)

// Config contains MongoDB-specific connection options. All fields are
// optional; host and port default to a local instance and the database
// may instead be named per query.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// FromMap builds a Config from the decoded connection config.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Host: "localhost", Port: 27017}

	if host, ok := config["host"].(string); ok && host != "" {
		cfg.Host = host
	}

	if port, ok := config["port"].(float64); ok { // JSON numbers are float64
		cfg.Port = int(port)
	} else if port, ok := config["port"].(int); ok {
		cfg.Port = port
	}

	if username, ok := config["username"].(string); ok {
		cfg.Username = username
	}
	if password, ok := config["password"].(string); ok {
		cfg.Password = password
	}
	if database, ok := config["database"].(string); ok {
		cfg.Database = database
	}

	return cfg, nil
}

// uri builds a mongodb:// connection string. Credentials are URL-escaped
// via net/url so special characters survive the round trip.
func (c *Config) uri() string {
	if c.Username != "" {
		userinfo := url.UserPassword(c.Username, c.Password)
		return fmt.Sprintf("mongodb://%s@%s:%d", userinfo.String(), c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", c.Host, c.Port)
}
