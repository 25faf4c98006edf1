package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nurpe/freight-contracts/internal/config"
	"github.com/nurpe/freight-contracts/internal/db"
)

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabase()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			sqlDB, err := db.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			// A fresh database has no version table yet.
			before, _ := db.MigrationVersion(sqlDB, cfg.DB.Driver)
			if err := db.Migrate(sqlDB, cfg.DB.Driver); err != nil {
				return err
			}
			after, err := db.MigrationVersion(sqlDB, cfg.DB.Driver)
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}

			if after == before {
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n",
					color.New(color.FgBlue).Sprint("UP TO DATE"), after)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema %d -> %d\n",
				color.New(color.FgGreen).Sprint("MIGRATED"), before, after)
			return nil
		},
	}
}
