// Package restapi implements the REST API backend driver.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

// Config contains REST-specific connection options. AuthType selects
// how credentials are attached: "bearer" uses Token, "basic" uses
// Username/Password, anything else sends no auth header.
type Config struct {
	BaseURL  string
	AuthType string
	Token    string
	Username string
	Password string
	Headers  map[string]string
}

// FromMap builds a Config from the decoded connection config.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Headers: map[string]string{}}

	if baseURL, ok := config["base_url"].(string); ok && baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	} else {
		return nil, apperrors.NewValidationError("base_url")
	}

	if authType, ok := config["auth_type"].(string); ok {
		cfg.AuthType = authType
	}
	if token, ok := config["token"].(string); ok {
		cfg.Token = token
	}
	if username, ok := config["username"].(string); ok {
		cfg.Username = username
	}
	if password, ok := config["password"].(string); ok {
		cfg.Password = password
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

// Driver issues HTTP requests against the configured base URL. The
// client carries no timeout of its own; the per-call context deadline
// governs every request.
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

// Test issues a single GET to the base URL. A non-2xx status is a
// failure; the success payload is the status code. The configured test
// query is ignored for REST sources.
func (d *Driver) Test(ctx context.Context, _ string) (*datasource.RawResult, error) {
	resp, err := d.do(ctx, http.MethodGet, d.cfg.BaseURL, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	return &datasource.RawResult{
		Rows:      []map[string]any{{"status_code": resp.StatusCode}},
		Columns:   []string{"status_code"},
		HasRowSet: true,
		Message:   "REST API connection successful",
	}, nil
}

// Query decodes the structured REST payload and issues the request.
// The JSON response is coerced into rows; the caller applies the
// request limit during normalization.
func (d *Driver) Query(ctx context.Context, req *models.QueryRequest) (*datasource.RawResult, error) {
	q, err := datasource.ParseRESTQuery(req.Query)
	if err != nil {
		return nil, err
	}

	target := d.cfg.BaseURL + "/" + strings.TrimLeft(q.Endpoint, "/")

	var body io.Reader
	if q.Method != http.MethodGet && q.Body != nil {
		encoded, err := json.Marshal(q.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", datasource.ErrMalformedPayload, err)
		}
		body = bytes.NewReader(encoded)
	}

	resp, err := d.do(ctx, q.Method, target, q.Params, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	rows, err := responseRows(payload)
	if err != nil {
		return nil, err
	}

	return &datasource.RawResult{
		Rows:      rows,
		HasRowSet: true,
	}, nil
}

// do builds and sends one request with auth and configured headers.
func (d *Driver) do(ctx context.Context, method, target string, params map[string]any, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if len(params) > 0 {
		query := url.Values{}
		for k, v := range params {
			query.Set(k, fmt.Sprint(v))
		}
		req.URL.RawQuery = query.Encode()
	}

	for k, v := range d.cfg.Headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch d.cfg.AuthType {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	case "basic":
		req.SetBasicAuth(d.cfg.Username, d.cfg.Password)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// responseRows coerces a JSON response into the shared tabular shape:
// an object becomes one row, an array is used as-is with non-object
// elements wrapped, any other scalar becomes a single result row.
func responseRows(payload []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return []map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch v := decoded.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				rows = append(rows, obj)
			} else {
				rows = append(rows, map[string]any{"value": item})
			}
		}
		return rows, nil
	default:
		return []map[string]any{{"result": v}}, nil
	}
}

// Schema is not supported for REST sources.
func (d *Driver) Schema(ctx context.Context) (*models.SchemaResult, error) {
	return models.UnsupportedSchema(), nil
}

// Close is a no-op; the HTTP client holds no persistent connections
// worth reclaiming for a single call.
func (d *Driver) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// Ensure Driver implements the datasource contract at compile time.
var _ datasource.Driver = (*Driver)(nil)
