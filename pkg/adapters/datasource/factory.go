package datasource

import (
	"context"

	"github.com/appforge-io/appforge-engine/pkg/apperrors"
)

// DriverFactory dispatches a data source type to its registered driver.
// This is the polymorphism seam: a pure lookup over a closed set.
type DriverFactory interface {
	// NewDriver dials a driver for the given type and decoded config.
	// An unregistered type yields apperrors.ErrUnsupportedType.
	NewDriver(ctx context.Context, dsType string, config map[string]any) (Driver, error)

	// SupportsSchema reports whether the type supports introspection.
	SupportsSchema(dsType string) bool

	// ListTypes returns info for all registered driver types.
	ListTypes() []DriverInfo
}

type registryFactory struct{}

// NewDriverFactory returns a factory backed by the package registry.
func NewDriverFactory() DriverFactory {
	return &registryFactory{}
}

func (f *registryFactory) NewDriver(ctx context.Context, dsType string, config map[string]any) (Driver, error) {
	factory := GetFactory(dsType)
	if factory == nil {
		return nil, apperrors.ErrUnsupportedType
	}
	return factory(ctx, config)
}

func (f *registryFactory) SupportsSchema(dsType string) bool {
	return SupportsSchema(dsType)
}

func (f *registryFactory) ListTypes() []DriverInfo {
	return RegisteredDrivers()
}

// Ensure registryFactory implements DriverFactory at compile time.
var _ DriverFactory = (*registryFactory)(nil)
