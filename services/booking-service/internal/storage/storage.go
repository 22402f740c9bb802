// Package storage selects and opens the booking ledger and expert directory
// backend named by STORAGE_DRIVER.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/expertbook/libs/db"
	"github.com/md-rashed-zaman/expertbook/libs/runtime"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/reservation"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/storage/mongodb"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/storage/postgres"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/storage/sqlite"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/migrations"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type Config struct {
	Driver        string
	DatabaseURL   string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
	// Migrate applies embedded SQL migrations (postgres) or indexes (mongo).
	Migrate bool
}

// Backend bundles the engine's storage ports. Outbox is only set for
// postgres, where domain events are written in the booking transaction.
type Backend struct {
	Driver  string
	Experts reservation.ExpertDirectory
	Ledger  reservation.Ledger
	Outbox  *outbox.Repository
	Ready   []runtime.ReadyCheck

	closers []func()
}

func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverPostgres
	}

	switch driver {
	case DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case DriverSQLite:
		return openSQLite(ctx, cfg, logger)
	case DriverMongo:
		return openMongo(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the %s driver", DriverPostgres)
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.Migrate {
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}

	ob := outbox.NewRepository(pool)
	return &Backend{
		Driver:  DriverPostgres,
		Experts: postgres.NewExpertRepository(pool),
		Ledger:  postgres.NewBookingRepository(pool, ob),
		Outbox:  ob,
		Ready:   []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}},
		closers: []func(){pool.Close},
	}, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = "data/expertbook.db"
	}
	conn, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	logger.Info("sqlite storage opened", "path", path)
	return &Backend{
		Driver:  DriverSQLite,
		Experts: sqlite.NewExpertRepository(conn),
		Ledger:  sqlite.NewBookingRepository(conn),
		Ready:   []runtime.ReadyCheck{{Name: "db", Check: sqlite.ReadyCheck(conn)}},
		closers: []func(){closeSQL(conn, logger)},
	}, nil
}

func openMongo(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required for the %s driver", DriverMongo)
	}
	name := cfg.MongoDatabase
	if name == "" {
		name = "expertbook"
	}
	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	database := client.Database(name)
	if cfg.Migrate {
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("mongo indexes ensured", "database", name)
	}
	return &Backend{
		Driver:  DriverMongo,
		Experts: mongodb.NewExpertRepository(database),
		Ledger:  mongodb.NewBookingRepository(database),
		Ready:   []runtime.ReadyCheck{{Name: "db", Check: mongodb.ReadyCheck(client)}},
		closers: []func(){disconnectMongo(client, logger)},
	}, nil
}

func closeSQL(conn *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := conn.Close(); err != nil {
			logger.Warn("sqlite close failed", "err", err)
		}
	}
}

func disconnectMongo(client *mongo.Client, logger *slog.Logger) func() {
	return func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect failed", "err", err)
		}
	}
}
