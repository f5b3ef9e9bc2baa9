package postgres

import (
	"context"
	"fmt"

	"github.com/jinzhu/inflection"

	"github.com/appforge-io/appforge-engine/pkg/models"
)

// Schema enumerates public tables and their columns from
// information_schema.
func (d *Driver) Schema(ctx context.Context) (*models.SchemaResult, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name`)
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
	rows, err := d.conn.Query(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_name = $1 AND table_schema = 'public'
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []models.ColumnSchema
	for rows.Next() {
		var name, dataType, isNullable string
		var columnDefault *string
		if err := rows.Scan(&name, &dataType, &isNullable, &columnDefault); err != nil {
			return nil, fmt.Errorf("failed to scan column for %s: %w", table, err)
		}
		col := models.ColumnSchema{
			Name:     name,
			Type:     dataType,
			Nullable: isNullable == "YES",
		}
		if columnDefault != nil {
			col.Default = *columnDefault
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns for %s: %w", table, err)
	}

	return columns, nil
}
