package datasource

import (
	"context"
	"sync"
)

// DriverInfo describes a registered driver for API discovery.
type DriverInfo struct {
	Type           string `json:"type"`
	DisplayName    string `json:"display_name"`
	Description    string `json:"description"`
	SupportsSchema bool   `json:"supports_schema"`
}

// DriverRegistration pairs driver info with its dial factory. The
// factory receives the decoded connection config and returns a connected
// driver scoped to one call.
type DriverRegistration struct {
	Info    DriverInfo
	Factory func(ctx context.Context, config map[string]any) (Driver, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DriverRegistration)
)

// Register is called by each driver package's init(). The driver set is
// closed: registrations happen at compile time only.
func Register(reg DriverRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredDrivers returns info for all registered drivers.
func RegisteredDrivers() []DriverInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DriverInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// GetFactory returns the dial factory for a data source type, or nil if
// the type is not registered.
func GetFactory(dsType string) func(ctx context.Context, config map[string]any) (Driver, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dsType]; ok {
		return reg.Factory
	}
	return nil
}

// SupportsSchema reports whether the registered driver for dsType can
// introspect schema. Unregistered types report false.
func SupportsSchema(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dsType]; ok {
		return reg.Info.SupportsSchema
	}
	return false
}

// IsRegistered checks if a driver type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}
