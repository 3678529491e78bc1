package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/rajapam/broker/config"
	"github.com/rajapam/broker/internal/bootstrap"
	"github.com/rajapam/broker/internal/devseed"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	// Log startup info
	logStartupInfo(ctx, logger, &cfg)

	cfgPtr := &cfg

	// Validate configuration
	if err = bootstrap.ValidateServiceConfig(cfgPtr); err != nil {
		return err
	}

	// Initialize infrastructure
	infra, err := initInfrastructure(&cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close(ctx, logger)

	// Run migrations if enabled
	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, infra.DB, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	if cfg.IsDev {
		if err = devseed.Run(ctx, infra.DB, logger); err != nil {
			logger.WarnContext(ctx, "development seed failed", "error", err)
		}
	}

	// Initialize and run services
	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfgPtr,
		DB:          infra.DB,
		TunnelDB:    infra.TunnelDB,
		RedisClient: infra.Redis,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:   cfgPtr,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	enabledServices := bootstrap.GetEnabledServices(cfg)
	logger.InfoContext(ctx, "starting broker service",
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"enabled_services", enabledServices)
}

// infrastructure bundles the shared connections the service runtime uses.
type infrastructure struct {
	DB       *sql.DB
	TunnelDB *sql.DB
	Redis    redis.UniversalClient
}

func (i *infrastructure) Close(ctx context.Context, logger *slog.Logger) {
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
	if i.TunnelDB != nil {
		if err := i.TunnelDB.Close(); err != nil {
			logger.ErrorContext(ctx, "close tunnel database failed", "error", err)
		}
	}
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			logger.ErrorContext(ctx, "close database failed", "error", err)
		}
	}
}

// initInfrastructure connects shared dependencies used by the service runtime.
func initInfrastructure(cfg *config.AppConfig, logger *slog.Logger) (*infrastructure, error) {
	ctx := context.Background()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	infra := &infrastructure{DB: db}

	tunnelDB, err := bootstrap.ConnectTunnelDB(cfg.TunnelDB, logger)
	if err != nil {
		infra.Close(ctx, logger)
		return nil, fmt.Errorf("connect tunnel db: %w", err)
	}
	infra.TunnelDB = tunnelDB

	redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      logger,
	})
	if err != nil {
		infra.Close(ctx, logger)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	infra.Redis = redisClient

	return infra, nil
}
