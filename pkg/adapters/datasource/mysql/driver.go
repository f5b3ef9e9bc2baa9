// Package mysql implements the MySQL backend driver over database/sql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver registration

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

// testSampleRows caps the sample returned by a custom test query.
const testSampleRows = 5

// Driver holds a single short-lived MySQL connection. One driver serves
// exactly one test/query/schema call.
type Driver struct {
	db  *sql.DB
	cfg *Config
}

// New dials MySQL with the decoded connection config and verifies the
// connection immediately so auth failures surface at dial time.
func New(ctx context.Context, config map[string]any) (*Driver, error) {
	cfg, err := FromMap(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	return &Driver{db: db, cfg: cfg}, nil
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
		Message:      "MySQL connection successful",
	}, nil
}

// Query executes SQL with :name parameters rewritten to ordinal
// placeholders. Row-returning statements fetch up to the request limit
// at the cursor; DML/DDL statements report the affected-row count.
func (d *Driver) Query(ctx context.Context, req *models.QueryRequest) (*datasource.RawResult, error) {
	query, args, err := bindNamedParams(req.Query, req.Parameters)
	if err != nil {
		return nil, err
	}

	if !isRowReturning(query) {
		result, err := d.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to execute statement: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			affected = 0
		}
		return &datasource.RawResult{
			HasRowSet:    false,
			RowsAffected: affected,
			LimitApplied: true,
		}, nil
	}

	rows, columns, err := d.collectRows(ctx, query, args, req.EffectiveLimit())
	if err != nil {
		return nil, err
	}

	return &datasource.RawResult{
		Rows:         rows,
		Columns:      columns,
		HasRowSet:    true,
		LimitApplied: true,
	}, nil
}

// collectRows runs a row-returning query and fetches at most limit rows
// (0 means all). Byte slices are converted to strings so raw column
// values stay printable.
func (d *Driver) collectRows(ctx context.Context, query string, args []any, limit int) ([]map[string]any, []string, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		if limit > 0 && len(resultRows) >= limit {
			break
		}

		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return resultRows, columns, nil
}

// Close releases the database handle.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements the datasource contract at compile time.
var _ datasource.Driver = (*Driver)(nil)
