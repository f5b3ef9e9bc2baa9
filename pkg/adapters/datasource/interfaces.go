// Package datasource defines the backend driver contract, the registry
// that dispatches on data source type, and the result normalizer.
package datasource

import (
	"context"

	"github.com/appforge-io/appforge-engine/pkg/models"
)

// Driver is the protocol-specific implementation of test/query/schema
// for one backend kind. A driver is dialed for a single call and must be
// closed when done; nothing is pooled or cached between calls.
type Driver interface {
	// Test probes connectivity. When testQuery is non-empty it is
	// executed instead of the driver's default probe, with the sample
	// payload capped at a handful of rows.
	Test(ctx context.Context, testQuery string) (*RawResult, error)

	// Query executes a backend-native query and returns the raw rows.
	Query(ctx context.Context, req *models.QueryRequest) (*RawResult, error)

	// Schema introspects the backend. Kinds without introspection
	// support return the explicit not-supported marker, never an empty
	// successful schema.
	Schema(ctx context.Context) (*models.SchemaResult, error)

	// Close releases the driver's connection.
	Close() error
}

// RawResult is a driver's native result before normalization.
type RawResult struct {
	Rows    []map[string]any
	Columns []string

	// HasRowSet is false for non-row-returning relational statements
	// (DDL/DML); RowsAffected then carries the driver-reported count.
	HasRowSet    bool
	RowsAffected int64

	// LimitApplied marks results already truncated at the cursor by a
	// relational driver. The normalizer must not truncate twice.
	LimitApplied bool

	// Message is an optional human-readable probe outcome.
	Message string
}
