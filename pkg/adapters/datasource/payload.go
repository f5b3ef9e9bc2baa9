package datasource

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload marks a structured query payload that failed to
// decode or validate. It is detected before any backend I/O so malformed
// queries never reach a dial.
var ErrMalformedPayload = errors.New("malformed query payload")

// DocumentQuery is the structured payload for document-store queries.
type DocumentQuery struct {
	Database   string         `json:"database"`
	Collection string         `json:"collection"`
	Operation  string         `json:"operation"`
	Filter     map[string]any `json:"filter"`
}

// ParseDocumentQuery decodes and validates a document-store payload.
// Operation defaults to "find"; the database may be omitted and falls
// back to the connection config at execution time.
func ParseDocumentQuery(raw string) (*DocumentQuery, error) {
	var q DocumentQuery
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if q.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrMalformedPayload)
	}
	if q.Operation == "" {
		q.Operation = "find"
	}
	if q.Filter == nil {
		q.Filter = map[string]any{}
	}
	return &q, nil
}

// RESTQuery is the structured payload for REST API queries.
type RESTQuery struct {
	Endpoint string         `json:"endpoint"`
	Method   string         `json:"method"`
	Params   map[string]any `json:"params"`
	Body     map[string]any `json:"body"`
}

// ParseRESTQuery decodes and validates a REST payload. Method defaults
// to GET.
func ParseRESTQuery(raw string) (*RESTQuery, error) {
	var q RESTQuery
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if q.Method == "" {
		q.Method = "GET"
	}
	q.Method = strings.ToUpper(q.Method)
	return &q, nil
}

// KeyValueQuery is the structured payload for key-value store commands.
type KeyValueQuery struct {
	Command string `json:"command"`
	Args    []any  `json:"args"`
}

// ParseKeyValueQuery decodes and validates a key-value payload.
func ParseKeyValueQuery(raw string) (*KeyValueQuery, error) {
	var q KeyValueQuery
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if q.Command == "" {
		return nil, fmt.Errorf("%w: command is required", ErrMalformedPayload)
	}
	return &q, nil
}
