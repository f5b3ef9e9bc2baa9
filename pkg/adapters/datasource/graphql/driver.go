// Package graphql implements the GraphQL API backend driver.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

// introspectionProbe is the minimal document used for connectivity
// tests.
const introspectionProbe = "{ __schema { types { name } } }"

// Config contains GraphQL-specific connection options.
type Config struct {
	Endpoint string
	Headers  map[string]string
}

// FromMap builds a Config from the decoded connection config.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Headers: map[string]string{}}

	if endpoint, ok := config["endpoint"].(string); ok && endpoint != "" {
		cfg.Endpoint = endpoint
	} else {
		return nil, apperrors.NewValidationError("endpoint")
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				cfg.Headers[k] = s
			}
		}
	}

	return cfg, nil
}

// Driver posts GraphQL documents to the configured endpoint. The
// per-call context deadline governs every request.
type Driver struct {
	client *http.Client
	cfg    *Config
}

// New builds a driver. No network I/O happens until Test or Query.
func New(_ context.Context, config map[string]any) (*Driver, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}
	return &Driver{client: &http.Client{}, cfg: cfg}, nil
}

// Test posts a minimal introspection query. A transport failure or
// non-2xx status is a failure; the success payload is the raw response
// body. The configured test query is ignored for GraphQL sources.
func (d *Driver) Test(ctx context.Context, _ string) (*datasource.RawResult, error) {
	body, err := d.post(ctx, introspectionProbe, nil)
	if err != nil {
		return nil, err
	}

	return &datasource.RawResult{
		Rows:      []map[string]any{{"response": string(body)}},
		Columns:   []string{"response"},
		HasRowSet: true,
		Message:   "GraphQL endpoint reachable",
	}, nil
}

// Query executes the GraphQL document with the request parameters as
// variables and flattens the response data object into rows. The
// caller applies the request limit during normalization.
func (d *Driver) Query(ctx context.Context, req *models.QueryRequest) (*datasource.RawResult, error) {
	body, err := d.post(ctx, req.Query, req.Parameters)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data   map[string]any `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}

	return &datasource.RawResult{
		Rows:      flattenData(envelope.Data),
		HasRowSet: true,
	}, nil
}

// post sends one GraphQL request and returns the raw response body.
func (d *Driver) post(ctx context.Context, query string, variables map[string]any) ([]byte, error) {
	payload := map[string]any{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range d.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	return body, nil
}

// flattenData turns the response data object into rows: list fields
// contribute their elements as rows, non-list fields become single
// field/value rows. Top-level fields are visited in sorted order so
// row order is deterministic.
func flattenData(data map[string]any) []map[string]any {
	fields := make([]string, 0, len(data))
	for field := range data {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	rows := make([]map[string]any, 0)
	for _, field := range fields {
		switch v := data[field].(type) {
		case []any:
			for _, item := range v {
				if obj, ok := item.(map[string]any); ok {
					rows = append(rows, obj)
				} else {
					rows = append(rows, map[string]any{field: item})
				}
			}
		default:
			rows = append(rows, map[string]any{field: v})
		}
	}
	return rows
}

// Schema is not supported for GraphQL sources.
func (d *Driver) Schema(ctx context.Context) (*models.SchemaResult, error) {
	return models.UnsupportedSchema(), nil
}

// Close is a no-op beyond releasing idle connections.
func (d *Driver) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// Ensure Driver implements the datasource contract at compile time.
var _ datasource.Driver = (*Driver)(nil)
