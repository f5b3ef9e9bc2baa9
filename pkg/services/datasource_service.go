// Package services contains the business logic between the HTTP
// boundary and the repositories/drivers.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/crypto"
	"github.com/appforge-io/appforge-engine/pkg/logging"
	"github.com/appforge-io/appforge-engine/pkg/models"
	"github.com/appforge-io/appforge-engine/pkg/repositories"
	"github.com/appforge-io/appforge-engine/pkg/sqlcheck"
)

// DatasourceUpdate carries the mutable fields of a data source. Nil
// pointers leave the stored value untouched; a non-nil Config replaces
// the connection config wholesale and is re-validated and re-encrypted.
type DatasourceUpdate struct {
	Name        *string
	Description *string
	Config      map[string]any
	TestQuery   *string
	IsActive    *bool
}

// DatasourceService manages data source records and executes operations
// against their backends. All record access is owner-scoped: an ID that
// exists but belongs to someone else reads as not found.
type DatasourceService interface {
	// Create validates the connection config, encrypts it and persists
	// the record. Returns apperrors.ErrConflict on a duplicate name.
	Create(ctx context.Context, ds *models.DataSource) error

	// Get returns the record with its decrypted connection config.
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.DataSource, error)

	// ListByOwner returns all records for an owner, newest first, with
	// decrypted connection configs.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.DataSource, error)

	// Update applies the given field changes and persists the record.
	Update(ctx context.Context, ownerID, id uuid.UUID, update *DatasourceUpdate) (*models.DataSource, error)

	// Delete removes the record.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// Test probes connectivity. It runs even against inactive sources so
	// owners can verify credentials before activating.
	Test(ctx context.Context, ownerID, id uuid.UUID) (*models.TestResult, error)

	// Query executes a backend-native query. Inactive sources are
	// refused with apperrors.ErrInactiveSource.
	Query(ctx context.Context, ownerID, id uuid.UUID, req *models.QueryRequest) (*models.QueryResult, error)

	// GetSchema introspects the backend schema. Inactive sources are
	// refused with apperrors.ErrInactiveSource.
	GetSchema(ctx context.Context, ownerID, id uuid.UUID) (*models.SchemaResult, error)

	// ListTypes returns info for every registered driver type.
	ListTypes() []datasource.DriverInfo
}

type datasourceService struct {
	repo      repositories.DatasourceRepository
	factory   datasource.DriverFactory
	encryptor *crypto.CredentialEncryptor
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDatasourceService creates a new DatasourceService. queryTimeout
// bounds every driver call.
func NewDatasourceService(
	repo repositories.DatasourceRepository,
	factory datasource.DriverFactory,
	encryptor *crypto.CredentialEncryptor,
	queryTimeout time.Duration,
	logger *zap.Logger,
) DatasourceService {
	return &datasourceService{
		repo:      repo,
		factory:   factory,
		encryptor: encryptor,
		timeout:   queryTimeout,
		logger:    logger.Named("datasource-service"),
	}
}

var _ DatasourceService = (*datasourceService)(nil)

func (s *datasourceService) Create(ctx context.Context, ds *models.DataSource) error {
	if ds.Name == "" {
		return &apperrors.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if !models.IsValidType(ds.Type) {
		return apperrors.ErrUnsupportedType
	}
	if err := models.ValidateConnectionConfig(ds.Type, ds.Config); err != nil {
		return err
	}

	encrypted, err := s.encryptConfig(ds.Config)
	if err != nil {
		return err
	}

	if err := s.repo.Create(ctx, ds, encrypted); err != nil {
		return err
	}

	s.logger.Info("Created data source",
		zap.String("datasource_id", ds.ID.String()),
		zap.String("type", ds.Type))
	return nil
}

func (s *datasourceService) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.DataSource, error) {
	ds, encrypted, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ds.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}

	ds.Config, err = s.decryptConfig(encrypted)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *datasourceService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.DataSource, error) {
	records, encryptedConfigs, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for i, ds := range records {
		ds.Config, err = s.decryptConfig(encryptedConfigs[i])
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *datasourceService) Update(ctx context.Context, ownerID, id uuid.UUID, update *DatasourceUpdate) (*models.DataSource, error) {
	ds, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		if *update.Name == "" {
			return nil, &apperrors.ValidationError{Field: "name", Message: "must not be empty"}
		}
		ds.Name = *update.Name
	}
	if update.Description != nil {
		ds.Description = *update.Description
	}
	if update.TestQuery != nil {
		ds.TestQuery = *update.TestQuery
	}
	if update.IsActive != nil {
		ds.IsActive = *update.IsActive
	}
	if update.Config != nil {
		if err := models.ValidateConnectionConfig(ds.Type, update.Config); err != nil {
			return nil, err
		}
		ds.Config = update.Config
	}

	encrypted, err := s.encryptConfig(ds.Config)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, ds, encrypted); err != nil {
		return nil, err
	}

	s.logger.Info("Updated data source", zap.String("datasource_id", ds.ID.String()))
	return ds, nil
}

func (s *datasourceService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Deleted data source", zap.String("datasource_id", id.String()))
	return nil
}

func (s *datasourceService) Test(ctx context.Context, ownerID, id uuid.UUID) (*models.TestResult, error) {
	ds, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := s.drive(ctx, ds, func(ctx context.Context, driver datasource.Driver) (*datasource.RawResult, error) {
		return driver.Test(ctx, ds.TestQuery)
	})
	elapsed := elapsedMs(start)

	if err != nil {
		message, kind := s.classify(err, ds)
		return &models.TestResult{
			Message:         "Connection test failed",
			Error:           message,
			ErrorKind:       kind,
			ExecutionTimeMs: elapsed,
		}, nil
	}

	normalized := datasource.Normalize(raw, 0)
	return &models.TestResult{
		Success:         true,
		Message:         raw.Message,
		Data:            normalized.Data,
		ExecutionTimeMs: elapsed,
	}, nil
}

func (s *datasourceService) Query(ctx context.Context, ownerID, id uuid.UUID, req *models.QueryRequest) (*models.QueryResult, error) {
	ds, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !ds.IsActive {
		return nil, apperrors.ErrInactiveSource
	}

	start := time.Now()

	if isRelational(ds.Type) {
		if hits := sqlcheck.CheckParameters(req.Parameters); len(hits) > 0 {
			s.logger.Warn("Rejected query parameters",
				zap.String("datasource_id", ds.ID.String()),
				zap.String("parameter", hits[0].ParamName),
				zap.String("fingerprint", hits[0].Fingerprint))
			return &models.QueryResult{
				Error:           fmt.Sprintf("parameter %q contains a disallowed SQL pattern", hits[0].ParamName),
				ErrorKind:       models.ErrorKindProtocol,
				ExecutionTimeMs: elapsedMs(start),
			}, nil
		}
	}

	raw, err := s.drive(ctx, ds, func(ctx context.Context, driver datasource.Driver) (*datasource.RawResult, error) {
		return driver.Query(ctx, req)
	})
	elapsed := elapsedMs(start)

	if err != nil {
		message, kind := s.classify(err, ds)
		return &models.QueryResult{
			Error:           message,
			ErrorKind:       kind,
			ExecutionTimeMs: elapsed,
		}, nil
	}

	normalized := datasource.Normalize(raw, req.EffectiveLimit())
	return &models.QueryResult{
		Success:         true,
		Data:            normalized.Data,
		Columns:         normalized.Columns,
		RowCount:        normalized.RowCount,
		ExecutionTimeMs: elapsed,
	}, nil
}

func (s *datasourceService) GetSchema(ctx context.Context, ownerID, id uuid.UUID) (*models.SchemaResult, error) {
	ds, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !ds.IsActive {
		return nil, apperrors.ErrInactiveSource
	}

	if !s.factory.SupportsSchema(ds.Type) {
		return models.UnsupportedSchema(), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	driver, err := s.factory.NewDriver(callCtx, ds.Type, ds.Config)
	if err != nil {
		message, kind := s.classify(err, ds)
		return &models.SchemaResult{
			Supported: true,
			Error:     message,
			ErrorKind: kind,
		}, nil
	}
	defer driver.Close()

	schema, err := driver.Schema(callCtx)
	if err != nil {
		message, kind := s.classify(err, ds)
		return &models.SchemaResult{
			Supported: true,
			Error:     message,
			ErrorKind: kind,
		}, nil
	}

	return schema, nil
}

func (s *datasourceService) ListTypes() []datasource.DriverInfo {
	return s.factory.ListTypes()
}

// drive dials a driver under the call deadline, runs op and guarantees
// the driver is closed on every path.
func (s *datasourceService) drive(ctx context.Context, ds *models.DataSource, op func(context.Context, datasource.Driver) (*datasource.RawResult, error)) (*datasource.RawResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	driver, err := s.factory.NewDriver(callCtx, ds.Type, ds.Config)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer driver.Close()

	return op(callCtx, driver)
}

// classify maps a driver error to a sanitized message and error kind.
// Deadline exhaustion is a timeout; malformed payloads, validation
// failures and unsupported types are protocol errors; everything else
// is treated as a backend connection failure.
func (s *datasourceService) classify(err error, ds *models.DataSource) (string, string) {
	sanitized := logging.SanitizeError(err)

	var kind string
	switch {
	case errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "context deadline exceeded"):
		kind = models.ErrorKindTimeout
		sanitized = fmt.Sprintf("operation timed out after %s", s.timeout)
	case errors.Is(err, datasource.ErrMalformedPayload),
		errors.Is(err, apperrors.ErrUnsupportedType),
		apperrors.IsValidation(err):
		kind = models.ErrorKindProtocol
	default:
		kind = models.ErrorKindConnection
	}

	s.logger.Warn("Backend operation failed",
		zap.String("datasource_id", ds.ID.String()),
		zap.String("type", ds.Type),
		zap.String("error_kind", kind),
		zap.String("error", sanitized))
	return sanitized, kind
}

func (s *datasourceService) encryptConfig(config map[string]any) (string, error) {
	plaintext, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("encode connection config: %w", err)
	}
	encrypted, err := s.encryptor.Encrypt(string(plaintext))
	if err != nil {
		return "", fmt.Errorf("encrypt connection config: %w", err)
	}
	return encrypted, nil
}

func (s *datasourceService) decryptConfig(encrypted string) (map[string]any, error) {
	plaintext, err := s.encryptor.Decrypt(encrypted)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return nil, apperrors.ErrCredentialsKeyMismatch
		}
		return nil, err
	}
	if plaintext == "" {
		return map[string]any{}, nil
	}

	var config map[string]any
	if err := json.Unmarshal([]byte(plaintext), &config); err != nil {
		return nil, fmt.Errorf("decode connection config: %w", err)
	}
	return config, nil
}

func isRelational(dsType string) bool {
	return dsType == models.TypeMySQL || dsType == models.TypePostgres
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
