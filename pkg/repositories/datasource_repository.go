package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/database"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

// DatasourceRepository defines data access for DataSource records. The
// connection config travels as encrypted TEXT; encryption and decryption
// belong to the service layer.
type DatasourceRepository interface {
	// Create inserts a new data source. Returns apperrors.ErrConflict if
	// the owner already has a data source with the same name.
	Create(ctx context.Context, ds *models.DataSource, encryptedConfig string) error

	// GetByID retrieves a data source and its encrypted config.
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, string, error)

	// ListByOwner retrieves all data sources for an owner, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.DataSource, []string, error)

	// Update persists every mutable field of ds and stamps updated_at.
	Update(ctx context.Context, ds *models.DataSource, encryptedConfig string) error

	// Delete removes a data source. Deletion is unconditional.
	Delete(ctx context.Context, id uuid.UUID) error
}

// datasourceRepository implements DatasourceRepository over the metadata
// store pool.
type datasourceRepository struct {
	db *database.DB
}

// NewDatasourceRepository creates a new datasource repository.
func NewDatasourceRepository(db *database.DB) DatasourceRepository {
	return &datasourceRepository{db: db}
}

func (r *datasourceRepository) Create(ctx context.Context, ds *models.DataSource, encryptedConfig string) error {
	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now

	query := `
		INSERT INTO engine_datasources
			(owner_id, name, description, datasource_type, connection_config, test_query, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		ds.OwnerID,
		ds.Name,
		ds.Description,
		ds.Type,
		encryptedConfig,
		ds.TestQuery,
		ds.IsActive,
		ds.CreatedAt,
		ds.UpdatedAt,
	).Scan(&ds.ID)
	if err != nil {
		// 23505: unique constraint violation on (owner_id, name)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create datasource: %w", err)
	}

	return nil
}

func (r *datasourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, string, error) {
	query := `
		SELECT id, owner_id, name, description, datasource_type, connection_config, test_query, is_active, created_at, updated_at
		FROM engine_datasources
		WHERE id = $1`

	var ds models.DataSource
	var encryptedConfig string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ds.ID,
		&ds.OwnerID,
		&ds.Name,
		&ds.Description,
		&ds.Type,
		&encryptedConfig,
		&ds.TestQuery,
		&ds.IsActive,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to get datasource: %w", err)
	}

	return &ds, encryptedConfig, nil
}

func (r *datasourceRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.DataSource, []string, error) {
	query := `
		SELECT id, owner_id, name, description, datasource_type, connection_config, test_query, is_active, created_at, updated_at
		FROM engine_datasources
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list datasources: %w", err)
	}
	defer rows.Close()

	var datasources []*models.DataSource
	var encryptedConfigs []string
	for rows.Next() {
		var ds models.DataSource
		var encryptedConfig string
		err := rows.Scan(
			&ds.ID,
			&ds.OwnerID,
			&ds.Name,
			&ds.Description,
			&ds.Type,
			&encryptedConfig,
			&ds.TestQuery,
			&ds.IsActive,
			&ds.CreatedAt,
			&ds.UpdatedAt,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan datasource: %w", err)
		}
		datasources = append(datasources, &ds)
		encryptedConfigs = append(encryptedConfigs, encryptedConfig)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating datasources: %w", err)
	}

	return datasources, encryptedConfigs, nil
}

func (r *datasourceRepository) Update(ctx context.Context, ds *models.DataSource, encryptedConfig string) error {
	ds.UpdatedAt = time.Now()

	query := `
		UPDATE engine_datasources
		SET name = $2, description = $3, connection_config = $4, test_query = $5, is_active = $6, updated_at = $7
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query,
		ds.ID,
		ds.Name,
		ds.Description,
		encryptedConfig,
		ds.TestQuery,
		ds.IsActive,
		ds.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to update datasource: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *datasourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM engine_datasources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete datasource: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Ensure datasourceRepository implements DatasourceRepository at compile time.
var _ DatasourceRepository = (*datasourceRepository)(nil)
