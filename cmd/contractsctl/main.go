package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nurpe/freight-contracts/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "contractsctl",
		Short: "Operator tools for the freight contracts service",
		Long: `contractsctl talks to the contracts database directly. It reads DB_DRIVER
and DB_DSN from app.env or the environment.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.LookupCmd())
	rootCmd.AddCommand(cli.PendingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
