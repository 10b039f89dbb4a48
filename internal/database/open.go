package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/user-center/internal/config"
	"github.com/sandeepkv93/user-center/internal/database/sqlitefold"
	"github.com/sandeepkv93/user-center/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to DATABASE_URL with the driver its scheme selects and
// applies the pool limits from cfg.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "connect", time.Since(start))
	}()

	dialector, err := dialectorFor(cfg)
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.DBLogLevel)),
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDialect(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("database handle: %w", err)
	}
	maxOpen, maxIdle := cfg.DBMaxOpenConns, cfg.DBMaxIdleConns
	if cfg.DatabaseDialect() == config.DialectSQLite && isInMemorySQLite(sqliteDSN(cfg.DatabaseURL)) {
		// Each connection to a private in-memory database gets its own empty
		// schema, so the pool must never grow past one.
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("ping database: %w", err)
	}

	observability.RecordDatabaseStartupEvent(ctx, "connect", "success")
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DatabaseDialect() {
	case config.DialectPostgres:
		return postgres.Open(cfg.DatabaseURL), nil
	case config.DialectSQLite:
		return sqlitefold.Open(sqliteDSN(cfg.DatabaseURL)), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme")
	}
}

// sqliteDSN turns sqlite://path into a driver DSN. file: URIs pass through.
func sqliteDSN(url string) string {
	dsn := strings.TrimSpace(url)
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = dsn[len("sqlite://"):]
	}
	return dsn
}

// isInMemorySQLite reports a DSN whose database lives only inside the
// connection that opened it. cache=shared databases are visible pool-wide.
func isInMemorySQLite(dsn string) bool {
	dsn = strings.ToLower(dsn)
	if strings.Contains(dsn, "cache=shared") {
		return false
	}
	return strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory")
}

func gormLogLevel(v string) logger.LogLevel {
	switch v {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
