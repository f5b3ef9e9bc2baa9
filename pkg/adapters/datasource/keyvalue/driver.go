// Package keyvalue implements the key-value store backend driver on
// the Redis protocol.
package keyvalue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

// Config contains Redis-specific connection options.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// FromMap builds a Config from the decoded connection config.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Port: 6379}

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

	if password, ok := config["password"].(string); ok {
		cfg.Password = password
	}

	if db, ok := config["db"].(float64); ok {
		cfg.DB = int(db)
	} else if db, ok := config["db"].(int); ok {
		cfg.DB = db
	}

	return cfg, nil
}

// Driver holds a single short-lived Redis client. One driver serves
// exactly one test/query call.
type Driver struct {
	client *redis.Client
	cfg    *Config
}

// New dials Redis and pings it so auth and network failures surface at
// dial time.
func New(ctx context.Context, config map[string]any) (*Driver, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Driver{client: client, cfg: cfg}, nil
}

// Test pings the server. The configured test query is ignored for
// key-value stores.
func (d *Driver) Test(ctx context.Context, _ string) (*datasource.RawResult, error) {
	pong, err := d.client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &datasource.RawResult{
		Rows:      []map[string]any{{"ping": pong}},
		Columns:   []string{"ping"},
		HasRowSet: true,
		Message:   "Redis connection successful",
	}, nil
}

// Query decodes the structured key-value payload and issues the command
// verbatim. Array replies become one row per element; scalar replies
// become a single result row.
func (d *Driver) Query(ctx context.Context, req *models.QueryRequest) (*datasource.RawResult, error) {
	q, err := datasource.ParseKeyValueQuery(req.Query)
	if err != nil {
		return nil, err
	}

	cmd := make([]any, 0, len(q.Args)+1)
	cmd = append(cmd, q.Command)
	cmd = append(cmd, q.Args...)

	reply, err := d.client.Do(ctx, cmd...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute command: %w", err)
	}

	return &datasource.RawResult{
		Rows:      replyRows(reply),
		HasRowSet: true,
	}, nil
}

// replyRows flattens a Redis reply into the shared tabular shape.
func replyRows(reply any) []map[string]any {
	if reply == nil {
		return []map[string]any{}
	}

	if items, ok := reply.([]any); ok {
		rows := make([]map[string]any, 0, len(items))
		for i, item := range items {
			rows = append(rows, map[string]any{
				"index": i,
				"value": printable(item),
			})
		}
		return rows
	}

	return []map[string]any{{"result": printable(reply)}}
}

// printable keeps numeric replies intact and renders everything else as
// a string.
func printable(v any) any {
	switch v.(type) {
	case int64, float64, bool, nil:
		return v
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Schema is not supported for key-value stores.
func (d *Driver) Schema(ctx context.Context) (*models.SchemaResult, error) {
	return models.UnsupportedSchema(), nil
}

// Close releases the client.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Ensure Driver implements the datasource contract at compile time.
var _ datasource.Driver = (*Driver)(nil)
