package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/appforge-io/appforge-engine/pkg/apperrors"
)

// Data source types form a closed enumeration. Adding a backend kind is
// a compile-time change: a new constant plus a driver registration.
const (
	TypeMySQL    = "relational-mysql"
	TypePostgres = "relational-postgres"
	TypeDocument = "document-store"
	TypeKeyValue = "key-value-store"
	TypeRESTAPI  = "rest-api"
	TypeGraphQL  = "graphql-api"
)

// Types lists every supported data source type.
func Types() []string {
	return []string{TypeMySQL, TypePostgres, TypeDocument, TypeKeyValue, TypeRESTAPI, TypeGraphQL}
}

// IsValidType reports whether t is a member of the type enumeration.
func IsValidType(t string) bool {
	switch t {
	case TypeMySQL, TypePostgres, TypeDocument, TypeKeyValue, TypeRESTAPI, TypeGraphQL:
		return true
	}
	return false
}

// DataSource is a registered external backend. Config holds the
// connection details (host, credentials, URLs) and is encrypted at rest
// by the service layer; the structure of its keys depends on Type.
type DataSource struct {
	ID          uuid.UUID      `json:"id"`
	OwnerID     uuid.UUID      `json:"owner_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type"`
	Config      map[string]any `json:"config"`
	TestQuery   string         `json:"test_query,omitempty"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// secretConfigKeys are redacted from the public projection.
var secretConfigKeys = map[string]bool{
	"password":      true,
	"token":         true,
	"client_secret": true,
	"api_key":       true,
}

// RedactedConfig returns a copy of Config with secret values replaced.
// Used for the create/list projections; owners fetch the full config
// through the single-record GET.
func (d *DataSource) RedactedConfig() map[string]any {
	if d.Config == nil {
		return nil
	}
	redacted := make(map[string]any, len(d.Config))
	for k, v := range d.Config {
		if secretConfigKeys[k] {
			redacted[k] = "[REDACTED]"
			continue
		}
		redacted[k] = v
	}
	return redacted
}

// requiredConfigFields is the exhaustive type-keyed required-field set.
// Document stores enforce nothing at this layer; the driver fails at
// dial time if the target is unreachable.
var requiredConfigFields = map[string][]string{
	TypeMySQL:    {"host", "port", "database", "username", "password"},
	TypePostgres: {"host", "port", "database", "username", "password"},
	TypeDocument: {},
	TypeKeyValue: {"host", "port"},
	TypeRESTAPI:  {"base_url"},
	TypeGraphQL:  {"endpoint"},
}

// ValidateConnectionConfig checks that config carries every field the
// given type requires. It runs at create time and on any update that
// touches the config; a failure blocks persistence entirely.
func ValidateConnectionConfig(dsType string, config map[string]any) error {
	required, ok := requiredConfigFields[dsType]
	if !ok {
		return apperrors.ErrUnsupportedType
	}

	for _, field := range required {
		v, present := config[field]
		if !present || v == nil {
			return apperrors.NewValidationError(field)
		}
		if s, isStr := v.(string); isStr && s == "" {
			return apperrors.NewValidationError(field)
		}
	}
	return nil
}
