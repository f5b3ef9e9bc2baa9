package graphql

import (
	"context"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

func init() {
	datasource.Register(datasource.DriverRegistration{
		Info: datasource.DriverInfo{
			Type:        models.TypeGraphQL,
			DisplayName: "GraphQL API",
			Description: "Connect to GraphQL APIs",
		},
		Factory: func(ctx context.Context, config map[string]any) (datasource.Driver, error) {
			return New(ctx, config)
		},
	})
}
