package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib" // Register the pgx database/sql driver.
	"github.com/rs/zerolog"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nurpe/freight-contracts/internal/config"
)

// New opens the configured database through otelsql, runs migrations and
// wraps the pool in gorm.
func New(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	sqlDB, err := Open(cfg.DB)
	if err != nil {
		return nil, err
	}

	if err := Migrate(sqlDB, cfg.DB.Driver); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.New(sqlite.Config{Conn: sqlDB})
	default:
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	}

	logLevel := gormlogger.Warn
	if cfg.Environment == "development" {
		logLevel = gormlogger.Info
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("opening gorm: %w", err)
	}

	log.Info().Str("driver", cfg.DB.Driver).Msg("database ready")
	return gdb, nil
}

// Open returns an instrumented connection pool without migrating it.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	var (
		driverName string
		system     = semconv.DBSystemPostgreSQL
	)
	switch cfg.Driver {
	case "sqlite":
		driverName = "sqlite3"
		system = semconv.DBSystemSqlite
	case "postgres", "":
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	sqlDB, err := otelsql.Open(driverName, cfg.DSN, otelsql.WithAttributes(system))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := configurePool(sqlDB, cfg); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	if _, err := otelsql.RegisterDBStatsMetrics(sqlDB, otelsql.WithAttributes(system)); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("registering db stats metrics: %w", err)
	}

	return sqlDB, nil
}

func configurePool(sqlDB *sql.DB, cfg config.DBConfig) error {
	if cfg.Driver == "sqlite" {
		// Each sqlite connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != "" && cfg.Driver != "sqlite" {
		lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
		}
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	return nil
}
