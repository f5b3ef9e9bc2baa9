package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/appforge-io/appforge-engine/pkg/models"
)

// quoteIdentifier wraps a MySQL identifier in backticks, escaping any
// embedded backticks.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Schema enumerates tables via SHOW TABLES and describes each with
// DESCRIBE, keeping the dialect's key/default/extra metadata.
func (d *Driver) Schema(ctx context.Context) (*models.SchemaResult, error) {
	rows, err := d.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	result := &models.SchemaResult{
		Success:   true,
		Supported: true,
		Tables:    make(map[string]*models.TableSchema, len(tables)),
	}

	for _, table := range tables {
		columns, err := d.tableColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		result.Tables[table] = &models.TableSchema{
			DisplayName: inflection.Singular(table),
			Columns:     columns,
		}
	}

	return result, nil
}

func (d *Driver) tableColumns(ctx context.Context, table string) ([]models.ColumnSchema, error) {
	rows, err := d.db.QueryContext(ctx, "DESCRIBE "+quoteIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	defer rows.Close()

	var columns []models.ColumnSchema
	for rows.Next() {
		var field, colType, null, key, extra string
		var def *string
		if err := rows.Scan(&field, &colType, &null, &key, &def, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan column for %s: %w", table, err)
		}
		col := models.ColumnSchema{
			Name:     field,
			Type:     colType,
			Nullable: null == "YES",
			Key:      key,
			Extra:    extra,
		}
		if def != nil {
			col.Default = *def
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns for %s: %w", table, err)
	}

	return columns, nil
}
