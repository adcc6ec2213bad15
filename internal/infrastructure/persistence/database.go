package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/erp/finance/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database wraps the GORM handle shared by every repository.
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// DatabaseOption customizes the GORM configuration
type DatabaseOption func(*gorm.Config)

// WithGormLogger routes GORM logging through l
func WithGormLogger(l gormlogger.Interface) DatabaseOption {
	return func(c *gorm.Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// NewDatabase opens cfg.Driver, sizes the pool and pings once. Timestamps
// written by GORM are UTC.
func NewDatabase(cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	dialector, err := openDialector(cfg, gormCfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	handle, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sizePool(handle, cfg)

	if err := handle.Ping(); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}
	return &Database{DB: db, sql: handle}, nil
}

func openDialector(cfg *config.DatabaseConfig, gormCfg *gorm.Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	case "postgres":
		gormCfg.PrepareStmt = true
		return postgres.Open(cfg.DSN()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func sizePool(handle *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.Driver == "sqlite" {
		// one writer, and each ":memory:" connection is its own database
		handle.SetMaxOpenConns(1)
		return
	}
	handle.SetMaxOpenConns(cfg.MaxOpenConns)
	handle.SetMaxIdleConns(cfg.MaxIdleConns)
	handle.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	handle.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// AutoMigrate creates the finance tables from the models. Postgres deployments
// use the SQL migrations instead.
func (d *Database) AutoMigrate(ctx context.Context) error {
	return d.DB.WithContext(ctx).AutoMigrate(models.FinanceModels()...)
}

// Ping checks the connection; the health endpoint calls it.
func (d *Database) Ping(ctx context.Context) error {
	return d.handle().PingContext(ctx)
}

// PoolStats reports connection pool usage for the health endpoint.
func (d *Database) PoolStats() sql.DBStats {
	return d.handle().Stats()
}

// Close closes the pool.
func (d *Database) Close() error {
	return d.handle().Close()
}

func (d *Database) handle() *sql.DB {
	if d.sql == nil {
		// built around an existing *gorm.DB, as the tests do
		d.sql, _ = d.DB.DB()
	}
	return d.sql
}
