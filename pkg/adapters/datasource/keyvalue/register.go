package keyvalue

import (
	"context"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

func init() {
	datasource.Register(datasource.DriverRegistration{
		Info: datasource.DriverInfo{
			Type:        models.TypeKeyValue,
			DisplayName: "Redis",
			Description: "Connect to Redis key-value stores",
		},
		Factory: func(ctx context.Context, config map[string]any) (datasource.Driver, error) {
			return New(ctx, config)
		},
	})
}
