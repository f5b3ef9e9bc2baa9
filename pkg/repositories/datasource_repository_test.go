package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/models"
	"github.com/appforge-io/appforge-engine/pkg/testhelpers"
)

func newSource(ownerID uuid.UUID, name string) *models.DataSource {
	return &models.DataSource{
		OwnerID:     ownerID,
		Name:        name,
		Description: "integration test source",
		Type:        models.TypePostgres,
		TestQuery:   "SELECT 1",
		IsActive:    true,
	}
}

func TestDatasourceRepositoryCRUD(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewDatasourceRepository(testDB.DB)
	ctx := context.Background()
	owner := uuid.New()

	ds := newSource(owner, "crud-db")
	require.NoError(t, repo.Create(ctx, ds, "encrypted-blob"))
	require.NotEqual(t, uuid.Nil, ds.ID)

	loaded, encrypted, err := repo.GetByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.Name, loaded.Name)
	assert.Equal(t, owner, loaded.OwnerID)
	assert.Equal(t, "encrypted-blob", encrypted)
	assert.True(t, loaded.IsActive)

	loaded.Description = "updated description"
	loaded.IsActive = false
	require.NoError(t, repo.Update(ctx, loaded, "new-blob"))

	reloaded, encrypted, err := repo.GetByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated description", reloaded.Description)
	assert.False(t, reloaded.IsActive)
	assert.Equal(t, "new-blob", encrypted)
	assert.True(t, reloaded.UpdatedAt.After(reloaded.CreatedAt))

	require.NoError(t, repo.Delete(ctx, ds.ID))
	_, _, err = repo.GetByID(ctx, ds.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDatasourceRepositoryDuplicateNamePerOwner(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewDatasourceRepository(testDB.DB)
	ctx := context.Background()
	owner := uuid.New()

	require.NoError(t, repo.Create(ctx, newSource(owner, "dup-db"), "blob"))

	err := repo.Create(ctx, newSource(owner, "dup-db"), "blob")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// Same name under a different owner is fine.
	require.NoError(t, repo.Create(ctx, newSource(uuid.New(), "dup-db"), "blob"))
}

func TestDatasourceRepositoryListByOwnerNewestFirst(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewDatasourceRepository(testDB.DB)
	ctx := context.Background()
	owner := uuid.New()

	require.NoError(t, repo.Create(ctx, newSource(owner, "first"), "blob-1"))
	require.NoError(t, repo.Create(ctx, newSource(owner, "second"), "blob-2"))
	require.NoError(t, repo.Create(ctx, newSource(uuid.New(), "other-owner"), "blob-3"))

	records, configs, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, configs, 2)
	assert.Equal(t, "second", records[0].Name)
	assert.Equal(t, "first", records[1].Name)
}

func TestDatasourceRepositoryUpdateMissingRecord(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewDatasourceRepository(testDB.DB)

	ds := newSource(uuid.New(), "ghost")
	ds.ID = uuid.New()

	err := repo.Update(context.Background(), ds, "blob")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
