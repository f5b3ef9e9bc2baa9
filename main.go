package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/appforge-io/appforge-engine/pkg/adapters/datasource"
	_ "github.com/appforge-io/appforge-engine/pkg/adapters/datasource/graphql"  // driver registration
	_ "github.com/appforge-io/appforge-engine/pkg/adapters/datasource/keyvalue" // driver registration
	_ "github.com/appforge-io/appforge-engine/pkg/adapters/datasource/mongodb"  // driver registration
	_ "github.com/appforge-io/appforge-engine/pkg/adapters/datasource/mysql"    // driver registration
	_ "github.com/appforge-io/appforge-engine/pkg/adapters/datasource/postgres" // driver registration
	_ "github.com/appforge-io/appforge-engine/pkg/adapters/datasource/restapi"  // driver registration
	"github.com/appforge-io/appforge-engine/pkg/auth"
	"github.com/appforge-io/appforge-engine/pkg/config"
	"github.com/appforge-io/appforge-engine/pkg/crypto"
	"github.com/appforge-io/appforge-engine/pkg/database"
	"github.com/appforge-io/appforge-engine/pkg/handlers"
	"github.com/appforge-io/appforge-engine/pkg/logging"
	"github.com/appforge-io/appforge-engine/pkg/middleware"
	"github.com/appforge-io/appforge-engine/pkg/repositories"
	"github.com/appforge-io/appforge-engine/pkg/services"
)

// Version is set at build time via ldflags.
var Version = "dev"

const migrationsPath = "migrations"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(database.ConnectionURL(&cfg.Database))),
		zap.Int("query_timeout_seconds", cfg.Datasource.QueryTimeoutSeconds))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to metadata store", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	encryptor, err := crypto.NewCredentialEncryptor(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("Failed to create credential encryptor", zap.Error(err))
	}

	validator, err := auth.NewJWKSValidator(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSURL:            cfg.Auth.JWKSURL,
	})
	if err != nil {
		logger.Fatal("Failed to create token validator", zap.Error(err))
	}

	repo := repositories.NewDatasourceRepository(db)
	factory := datasource.NewDriverFactory()
	queryTimeout := time.Duration(cfg.Datasource.QueryTimeoutSeconds) * time.Second
	datasourceService := services.NewDatasourceService(repo, factory, encryptor, queryTimeout, logger)

	authMiddleware := auth.NewMiddleware(validator, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	datasourcesHandler := handlers.NewDatasourcesHandler(datasourceService, logger)
	datasourcesHandler.RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting appforge-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// runMigrations applies pending metadata store migrations over a
// short-lived database/sql connection.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", database.ConnectionURL(&cfg.Database))
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return database.RunMigrations(sqlDB, migrationsPath, logger)
}
