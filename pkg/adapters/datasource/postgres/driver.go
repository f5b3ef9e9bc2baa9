// Package postgres implements the PostgreSQL backend driver.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

// testSampleRows caps the sample returned by a custom test query.
const testSampleRows = 5

// Driver holds a single short-lived PostgreSQL connection. One driver
// serves exactly one test/query/schema call.
type Driver struct {
	conn *pgx.Conn
	cfg  *Config
}

// New dials PostgreSQL with the decoded connection config.
func New(ctx context.Context, config map[string]any) (*Driver, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	conn, err := pgx.Connect(ctx, cfg.connectionString())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &Driver{conn: conn, cfg: cfg}, nil
}

// Test executes the given test query (sampling a few rows) or a trivial
// probe when none is configured.
func (d *Driver) Test(ctx context.Context, testQuery string) (*datasource.RawResult, error) {
	probe := testQuery
	limit := 0
	if probe == "" {
		probe = "SELECT 1 AS test"
	} else {
		limit = testSampleRows
	}

	rows, columns, err := d.collectRows(ctx, probe, nil, limit)
	if err != nil {
		return nil, err
	}

	return &datasource.RawResult{
		Rows:         rows,
		Columns:      columns,
		HasRowSet:    true,
		LimitApplied: true,
		Message:      "PostgreSQL connection successful",
	}, nil
}

// Query executes SQL with named parameters bound as @name. Row-returning
// statements are fetched up to the request limit at the cursor;
// DDL/DML statements report the affected-row count instead.
func (d *Driver) Query(ctx context.Context, req *models.QueryRequest) (*datasource.RawResult, error) {
	var args []any
	if len(req.Parameters) > 0 {
		args = append(args, pgx.NamedArgs(req.Parameters))
	}

	rows, err := d.conn.Query(ctx, req.Query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	if len(fieldDescs) == 0 {
		// DDL/DML: consume to trigger execution and read the command tag
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to execute statement: %w", err)
		}
		return &datasource.RawResult{
			HasRowSet:    false,
			RowsAffected: rows.CommandTag().RowsAffected(),
			LimitApplied: true,
		}, nil
	}

	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	limit := req.EffectiveLimit()
	resultRows := make([]map[string]any, 0)
	for rows.Next() && len(resultRows) < limit {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &datasource.RawResult{
		Rows:         resultRows,
		Columns:      columns,
		HasRowSet:    true,
		LimitApplied: true,
	}, nil
}

// collectRows runs a row-returning query and fetches at most limit rows
// (0 means all).
func (d *Driver) collectRows(ctx context.Context, sqlQuery string, args []any, limit int) ([]map[string]any, []string, error) {
	rows, err := d.conn.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		if limit > 0 && len(resultRows) >= limit {
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row values: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return resultRows, columns, nil
}

// Close releases the connection. The context is already detached from
// the call that created the driver, so closing uses the background
// context.
func (d *Driver) Close() error {
	return d.conn.Close(context.Background())
}

// Ensure Driver implements the datasource contract at compile time.
var _ datasource.Driver = (*Driver)(nil)
