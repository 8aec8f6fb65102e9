package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"todo-api/internal/config"
	"todo-api/internal/migrations"
	"todo-api/internal/repository"
)

// Stores agrupa los repositorios del backend elegido junto con su chequeo de
// salud y su cierre.
type Stores struct {
	Driver string
	Users  repository.UserRepository
	Tasks  repository.TaskRepository

	ping  func(ctx context.Context) error
	close func()
}

// Ping informa si el backend responde. Lo usa el endpoint de health.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close libera conexiones; es seguro llamarlo más de una vez.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
}

// Open construye los repositorios según STORE_DRIVER y aplica migraciones
// cuando corresponde.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &Stores{
			Driver: cfg.StoreDriver,
			Users:  repository.NewMemoryUserRepository(),
			Tasks:  repository.NewMemoryTaskRepository(),
		}, nil

	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if cfg.RunMigrations {
			sqlDB := stdlib.OpenDBFromPool(pool)
			err := migrations.Up(ctx, sqlDB, migrations.Postgres)
			_ = sqlDB.Close()
			if err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info("migrations applied", zap.String("dialect", migrations.Postgres))
		}
		return &Stores{
			Driver: cfg.StoreDriver,
			Users:  repository.NewPgUserRepository(pool),
			Tasks:  repository.NewPgTaskRepository(pool),
			ping:   func(ctx context.Context) error { return Ping(ctx, pool) },
			close:  pool.Close,
		}, nil

	case config.DriverSQLite:
		sqlDB, err := OpenSQLite(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.RunMigrations {
			if err := migrations.Up(ctx, sqlDB, migrations.SQLite); err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
			logger.Info("migrations applied", zap.String("dialect", migrations.SQLite))
		}
		return &Stores{
			Driver: cfg.StoreDriver,
			Users:  repository.NewSQLiteUserRepository(sqlDB),
			Tasks:  repository.NewSQLiteTaskRepository(sqlDB),
			ping:   sqlDB.PingContext,
			close:  func() { _ = sqlDB.Close() },
		}, nil

	case config.DriverMongo:
		client, err := NewMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.MongoDatabase)
		if err := repository.EnsureMongoIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &Stores{
			Driver: cfg.StoreDriver,
			Users:  repository.NewMongoUserRepository(database),
			Tasks:  repository.NewMongoTaskRepository(database),
			ping:   func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:  func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
