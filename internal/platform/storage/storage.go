package storage

import (
	"context"
	"fmt"
	"log/slog"

	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/platform/config"
	"github.com/SscSPs/bank_ledger/internal/platform/database"
	"github.com/SscSPs/bank_ledger/internal/repositories/database/mongodb"
	"github.com/SscSPs/bank_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/bank_ledger/internal/repositories/memory"
)

// Open connects the store selected by cfg.StorageDriver and returns its
// repositories together with a function releasing the connection.
// For postgres, pending migrations are applied first when migrate is set.
func Open(ctx context.Context, cfg *config.Config, migrate bool) (portsrepo.RepositoryProvider, func(), error) {
	logger := slog.Default().With(slog.String("storage_driver", cfg.StorageDriver))

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		if migrate {
			applied, err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
			if err != nil {
				return portsrepo.RepositoryProvider{}, nil, err
			}
			if applied {
				logger.Info("Database migrations applied successfully.")
			} else {
				logger.Info("No new migrations to apply.")
			}
		}
		pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, err
		}
		return pgsql.NewRepositoryProvider(pool), pool.Close, nil

	case config.StorageMongo:
		client, err := database.NewMongoClient(ctx, cfg.MongoURL)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("Error disconnecting from MongoDB", slog.String("error", err.Error()))
			}
		}
		store, err := mongodb.New(ctx, client.Database(cfg.MongoDB))
		if err != nil {
			closeFn()
			return portsrepo.RepositoryProvider{}, nil, err
		}
		return mongodb.NewRepositoryProvider(store), closeFn, nil

	case config.StorageMemory:
		logger.Warn("Using the in-memory store; all data is lost on exit")
		return memory.NewRepositoryProvider(memory.NewStore()), func() {}, nil
	}
	return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
