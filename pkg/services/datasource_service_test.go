package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/crypto"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

// mockRepo is an in-memory DatasourceRepository.
type mockRepo struct {
	records map[uuid.UUID]*models.DataSource
	configs map[uuid.UUID]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		records: map[uuid.UUID]*models.DataSource{},
		configs: map[uuid.UUID]string{},
	}
}

func (m *mockRepo) Create(_ context.Context, ds *models.DataSource, encryptedConfig string) error {
	for _, existing := range m.records {
		if existing.OwnerID == ds.OwnerID && existing.Name == ds.Name {
			return apperrors.ErrConflict
		}
	}
	ds.ID = uuid.New()
	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now
	stored := *ds
	m.records[ds.ID] = &stored
	m.configs[ds.ID] = encryptedConfig
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*models.DataSource, string, error) {
	ds, ok := m.records[id]
	if !ok {
		return nil, "", apperrors.ErrNotFound
	}
	copied := *ds
	return &copied, m.configs[id], nil
}

func (m *mockRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.DataSource, []string, error) {
	var records []*models.DataSource
	var configs []string
	for id, ds := range m.records {
		if ds.OwnerID == ownerID {
			copied := *ds
			records = append(records, &copied)
			configs = append(configs, m.configs[id])
		}
	}
	return records, configs, nil
}

func (m *mockRepo) Update(_ context.Context, ds *models.DataSource, encryptedConfig string) error {
	if _, ok := m.records[ds.ID]; !ok {
		return apperrors.ErrNotFound
	}
	ds.UpdatedAt = time.Now()
	stored := *ds
	m.records[ds.ID] = &stored
	m.configs[ds.ID] = encryptedConfig
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.records[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.records, id)
	delete(m.configs, id)
	return nil
}

// stubDriver returns canned results and records that it was closed.
type stubDriver struct {
	testRaw  *datasource.RawResult
	queryRaw *datasource.RawResult
	schema   *models.SchemaResult
	err      error
	closed   bool
}

func (d *stubDriver) Test(_ context.Context, _ string) (*datasource.RawResult, error) {
	return d.testRaw, d.err
}

func (d *stubDriver) Query(_ context.Context, _ *models.QueryRequest) (*datasource.RawResult, error) {
	return d.queryRaw, d.err
}

func (d *stubDriver) Schema(_ context.Context) (*models.SchemaResult, error) {
	return d.schema, d.err
}

func (d *stubDriver) Close() error {
	d.closed = true
	return nil
}

// stubFactory dispenses a single stub driver and counts dials.
type stubFactory struct {
	driver  *stubDriver
	dialErr error
	dials   int
}

func (f *stubFactory) NewDriver(_ context.Context, _ string, _ map[string]any) (datasource.Driver, error) {
	f.dials++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return f.driver, nil
}

func (f *stubFactory) SupportsSchema(dsType string) bool {
	return dsType == models.TypePostgres || dsType == models.TypeMySQL || dsType == models.TypeDocument
}

func (f *stubFactory) ListTypes() []datasource.DriverInfo {
	return []datasource.DriverInfo{{Type: models.TypePostgres}}
}

func newTestService(t *testing.T, repo *mockRepo, factory *stubFactory) DatasourceService {
	t.Helper()
	encryptor, err := crypto.NewCredentialEncryptor("unit-test-key")
	require.NoError(t, err)
	return NewDatasourceService(repo, factory, encryptor, 5*time.Second, zaptest.NewLogger(t))
}

func validPostgresSource(owner uuid.UUID) *models.DataSource {
	return &models.DataSource{
		OwnerID: owner,
		Name:    "orders-db",
		Type:    models.TypePostgres,
		Config: map[string]any{
			"host": "db", "port": 5432, "database": "orders",
			"username": "svc", "password": "secret",
		},
		IsActive: true,
	}
}

func TestCreateEncryptsConfigAtRest(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, &stubFactory{})
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))

	stored := repo.configs[ds.ID]
	assert.NotEmpty(t, stored)
	assert.NotContains(t, stored, "secret")
	assert.NotContains(t, stored, "host")

	loaded, err := svc.Get(context.Background(), owner, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.Config["password"])
}

func TestCreateValidationBlocksPersistence(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo, &stubFactory{})

	ds := validPostgresSource(uuid.New())
	delete(ds.Config, "host")

	err := svc.Create(context.Background(), ds)
	require.Error(t, err)
	var ve *apperrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "host", ve.Field)
	assert.Empty(t, repo.records)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := newTestService(t, newMockRepo(), &stubFactory{})

	ds := validPostgresSource(uuid.New())
	ds.Type = "oracle"

	err := svc.Create(context.Background(), ds)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedType)
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	svc := newTestService(t, newMockRepo(), &stubFactory{})
	owner := uuid.New()

	require.NoError(t, svc.Create(context.Background(), validPostgresSource(owner)))
	err := svc.Create(context.Background(), validPostgresSource(owner))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestGetCrossOwnerReadsAsNotFound(t *testing.T) {
	svc := newTestService(t, newMockRepo(), &stubFactory{})
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))

	_, err := svc.Get(context.Background(), uuid.New(), ds.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQueryRefusesInactiveSource(t *testing.T) {
	factory := &stubFactory{driver: &stubDriver{}}
	svc := newTestService(t, newMockRepo(), factory)
	owner := uuid.New()

	ds := validPostgresSource(owner)
	ds.IsActive = false
	require.NoError(t, svc.Create(context.Background(), ds))

	_, err := svc.Query(context.Background(), owner, ds.ID, &models.QueryRequest{Query: "SELECT 1"})
	assert.ErrorIs(t, err, apperrors.ErrInactiveSource)
	assert.Zero(t, factory.dials)
}

func TestTestRunsAgainstInactiveSource(t *testing.T) {
	driver := &stubDriver{testRaw: &datasource.RawResult{
		Rows:      []map[string]any{{"test": 1}},
		HasRowSet: true,
		Message:   "PostgreSQL connection successful",
	}}
	factory := &stubFactory{driver: driver}
	svc := newTestService(t, newMockRepo(), factory)
	owner := uuid.New()

	ds := validPostgresSource(owner)
	ds.IsActive = false
	require.NoError(t, svc.Create(context.Background(), ds))

	result, err := svc.Test(context.Background(), owner, ds.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "PostgreSQL connection successful", result.Message)
	assert.Equal(t, []map[string]any{{"test": 1}}, result.Data)
	assert.True(t, driver.closed)
}

func TestQueryNormalizesAndTruncates(t *testing.T) {
	rows := make([]map[string]any, 5)
	for i := range rows {
		rows[i] = map[string]any{"id": i, "name": "row"}
	}
	driver := &stubDriver{queryRaw: &datasource.RawResult{Rows: rows, HasRowSet: true}}
	factory := &stubFactory{driver: driver}
	svc := newTestService(t, newMockRepo(), factory)
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))

	result, err := svc.Query(context.Background(), owner, ds.ID, &models.QueryRequest{
		Query: "SELECT * FROM t", Limit: 2,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.True(t, driver.closed)
}

func TestQueryDriverFailureBecomesResult(t *testing.T) {
	driver := &stubDriver{err: errors.New("connection refused by postgres://svc:secret@db:5432/orders")}
	svc := newTestService(t, newMockRepo(), &stubFactory{driver: driver})
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))

	result, err := svc.Query(context.Background(), owner, ds.ID, &models.QueryRequest{Query: "SELECT 1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindConnection, result.ErrorKind)
	assert.NotContains(t, result.Error, "secret")
	assert.True(t, driver.closed)
}

func TestQueryDeadlineBecomesTimeoutKind(t *testing.T) {
	driver := &stubDriver{err: context.DeadlineExceeded}
	svc := newTestService(t, newMockRepo(), &stubFactory{driver: driver})
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))

	result, err := svc.Query(context.Background(), owner, ds.ID, &models.QueryRequest{Query: "SELECT pg_sleep(60)"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindTimeout, result.ErrorKind)
}

func TestQueryMalformedPayloadIsProtocolKind(t *testing.T) {
	driver := &stubDriver{err: datasource.ErrMalformedPayload}
	svc := newTestService(t, newMockRepo(), &stubFactory{driver: driver})
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))

	result, err := svc.Query(context.Background(), owner, ds.ID, &models.QueryRequest{Query: "{broken"})
	require.NoError(t, err)
	assert.Equal(t, models.ErrorKindProtocol, result.ErrorKind)
}

func TestQueryInjectionParameterNeverDials(t *testing.T) {
	factory := &stubFactory{driver: &stubDriver{}}
	svc := newTestService(t, newMockRepo(), factory)
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))

	result, err := svc.Query(context.Background(), owner, ds.ID, &models.QueryRequest{
		Query:      "SELECT * FROM users WHERE name = @name",
		Parameters: map[string]any{"name": "' OR 1=1 --"},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindProtocol, result.ErrorKind)
	assert.Zero(t, factory.dials)
}

func TestGetSchemaUnsupportedKind(t *testing.T) {
	svc := newTestService(t, newMockRepo(), &stubFactory{})
	owner := uuid.New()

	ds := &models.DataSource{
		OwnerID:  owner,
		Name:     "partner-api",
		Type:     models.TypeRESTAPI,
		Config:   map[string]any{"base_url": "https://api.example.com"},
		IsActive: true,
	}
	require.NoError(t, svc.Create(context.Background(), ds))

	schema, err := svc.GetSchema(context.Background(), owner, ds.ID)
	require.NoError(t, err)
	assert.True(t, schema.Success)
	assert.False(t, schema.Supported)
}

func TestUpdateRevalidatesConfig(t *testing.T) {
	svc := newTestService(t, newMockRepo(), &stubFactory{})
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))

	_, err := svc.Update(context.Background(), owner, ds.ID, &DatasourceUpdate{
		Config: map[string]any{"host": "db"},
	})
	require.Error(t, err)
	require.True(t, apperrors.IsValidation(err))
}

func TestUpdateTogglesActivation(t *testing.T) {
	svc := newTestService(t, newMockRepo(), &stubFactory{})
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))

	inactive := false
	updated, err := svc.Update(context.Background(), owner, ds.ID, &DatasourceUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = svc.Query(context.Background(), owner, ds.ID, &models.QueryRequest{Query: "SELECT 1"})
	assert.ErrorIs(t, err, apperrors.ErrInactiveSource)
}

func TestDeleteRemovesRecord(t *testing.T) {
	svc := newTestService(t, newMockRepo(), &stubFactory{})
	owner := uuid.New()

	ds := validPostgresSource(owner)
	require.NoError(t, svc.Create(context.Background(), ds))
	require.NoError(t, svc.Delete(context.Background(), owner, ds.ID))

	_, err := svc.Get(context.Background(), owner, ds.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
