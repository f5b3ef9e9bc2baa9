package mysql

import (
	"context"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

func init() {
	datasource.Register(datasource.DriverRegistration{
		Info: datasource.DriverInfo{
			Type:           models.TypeMySQL,
			DisplayName:    "MySQL",
			Description:    "Connect to MySQL databases",
			SupportsSchema: true,
		},
		Factory: func(ctx context.Context, config map[string]any) (datasource.Driver, error) {
			return New(ctx, config)
		},
	})
}
