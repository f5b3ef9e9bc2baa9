package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the service logger. Local environments get the development
// config (console encoder, DEBUG); everything else gets production JSON.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "local" || env == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
