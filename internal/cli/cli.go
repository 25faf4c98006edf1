// Package cli holds the contractsctl operator commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/config"
	"github.com/nurpe/freight-contracts/internal/db"
	"github.com/nurpe/freight-contracts/internal/logger"
)

// openDatabase loads the database settings and returns a migrated connection.
func openDatabase() (*gorm.DB, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Diagnostics go to stderr so command output stays clean.
	log := logger.New(cfg.Environment, cfg.LogLevel).Output(zerolog.ConsoleWriter{Out: os.Stderr})
	database, err := db.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return database, nil
}

func closeDatabase(database *gorm.DB) {
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
