package models

// DefaultQueryLimit is applied when a QueryRequest does not specify one.
const DefaultQueryLimit = 100

// MaxQueryLimit is the hard cap on rows returned by any query, no matter
// what the caller asks for.
const MaxQueryLimit = 1000

// QueryRequest carries a backend-native query. The semantics of Query
// depend on the data source type: SQL text for relational sources, a
// GraphQL document for GraphQL sources, and a JSON command payload for
// document, key-value and REST sources.
type QueryRequest struct {
	Query      string         `json:"query"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// EffectiveLimit resolves the request limit against the default and the
// hard cap.
func (r *QueryRequest) EffectiveLimit() int {
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	return limit
}

// Error kinds attached to failed results so callers can distinguish a
// hung backend from a refused one.
const (
	ErrorKindTimeout    = "timeout"
	ErrorKindConnection = "connection"
	ErrorKindProtocol   = "protocol"
)

// QueryResult is the normalized tabular result shape shared by all
// backend kinds. On failure Error is set and no data is returned.
type QueryResult struct {
	Success         bool             `json:"success"`
	Data            []map[string]any `json:"data,omitempty"`
	Columns         []string         `json:"columns,omitempty"`
	RowCount        int              `json:"row_count"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
	Error           string           `json:"error,omitempty"`
	ErrorKind       string           `json:"error_kind,omitempty"`
}

// TestResult is the outcome of a connectivity probe.
type TestResult struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message"`
	Data            []map[string]any `json:"data,omitempty"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
	Error           string           `json:"error,omitempty"`
	ErrorKind       string           `json:"error_kind,omitempty"`
}
