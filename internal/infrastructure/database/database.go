package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/sangkips/pos-engine/internal/config"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// Open connects to the configured database. SQLite is the default embedded
// store; postgres serves installations with several registers.
func Open(cfg *config.DatabaseConfig, log *zap.Logger, debug bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         newGormLogger(cfg, log, debug),
		TranslateError: true,
	}

	switch cfg.Driver {
	case "postgres":
		return openPostgres(cfg, gormCfg, log)
	case "", "sqlite":
		return openSQLite(cfg, gormCfg, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(cfg *config.DatabaseConfig, gormCfg *gorm.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB to set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	sqlDB.SetMaxIdleConns(maxOpen / 2)
	sqlDB.SetMaxOpenConns(maxOpen)

	log.Info("connected to database", zap.String("driver", "postgres"), zap.String("host", cfg.Host), zap.String("name", cfg.Name))
	return db, nil
}

// openSQLite opens the embedded database. SQLite allows a single writer, so
// the pool is limited to one connection and every transaction runs serially.
func openSQLite(cfg *config.DatabaseConfig, gormCfg *gorm.Config, log *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn += sqlitePragmas
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if cfg.Path == ":memory:" || cfg.Path == "" {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	log.Info("connected to database", zap.String("driver", "sqlite"), zap.String("path", cfg.Path))
	return db, nil
}

func newGormLogger(cfg *config.DatabaseConfig, log *zap.Logger, debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(logger.NewPrintfAdapter(log.Named("gorm")), gormlogger.Config{
		SlowThreshold:             cfg.SlowThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		// Catalog
		&entity.Product{},
		&entity.StockMovement{},

		// Sales
		&entity.Sale{},
		&entity.SaleLine{},

		// Cash cuts
		&entity.CashCut{},
		&entity.CashCutPayment{},
		&entity.CashCutCategory{},
		&entity.CashCutProduct{},
		&entity.CashCutSale{},

		// System entities
		&entity.IdempotencyKey{},
		&entity.StoreSettings{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SeedDefaultData stores the default settings row when none exists
func SeedDefaultData(ctx context.Context, db *gorm.DB, store *config.StoreConfig) error {
	var count int64
	if err := db.WithContext(ctx).Model(&entity.StoreSettings{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count settings: %w", err)
	}
	if count > 0 {
		return nil
	}
	settings := DefaultSettings(store)
	if err := db.WithContext(ctx).Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}

// DefaultSettings returns the settings row used until the store edits it
func DefaultSettings(store *config.StoreConfig) entity.StoreSettings {
	return entity.StoreSettings{
		CompanyName:    "My Store",
		TicketFooter:   "Thank you for your purchase",
		CurrencySymbol: store.CurrencySymbol,
		CurrencyCode:   store.CurrencyCode,
	}
}
