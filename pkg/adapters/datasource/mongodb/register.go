package mongodb

import (
	"context"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

func init() {
	datasource.Register(datasource.DriverRegistration{
		Info: datasource.DriverInfo{
			Type:           models.TypeDocument,
			DisplayName:    "MongoDB",
			Description:    "Connect to MongoDB document stores",
			SupportsSchema: true,
		},
		Factory: func(ctx context.Context, config map[string]any) (datasource.Driver, error) {
			return New(ctx, config)
		},
	})
}
