package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pharmanet/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the Postgres pool behind every repository
type Database struct {
	DB *gorm.DB
}

// ConnectOptions tune how Connect waits for Postgres to come up
type ConnectOptions struct {
	Logger   logger.Interface
	Attempts int
	Backoff  time.Duration
}

// Connect opens the pool, applies the configured limits and pings until the
// server answers or the attempts run out. Containers routinely start before
// their database is ready.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, opts ConnectOptions) (*Database, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Default.LogMode(logger.Silent)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 opts.Logger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	database := &Database{DB: db}
	if err := database.configurePool(cfg); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err = database.Ping(ctx)
		if err == nil {
			return database, nil
		}
		if attempt == opts.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = database.Close()
			return nil, ctx.Err()
		case <-time.After(opts.Backoff * time.Duration(attempt)):
		}
	}
	_ = database.Close()
	return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", opts.Attempts, err)
}

func (d *Database) configurePool(cfg *config.DatabaseConfig) error {
	pool, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("sql pool: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	return nil
}

// Ping backs the database health check
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("sql pool: %w", err)
	}
	return pool.PingContext(ctx)
}

// PoolStats reports the connection pool counters
func (d *Database) PoolStats() (sql.DBStats, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return sql.DBStats{}, fmt.Errorf("sql pool: %w", err)
	}
	return pool.Stats(), nil
}

func (d *Database) Close() error {
	pool, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("sql pool: %w", err)
	}
	return pool.Close()
}
