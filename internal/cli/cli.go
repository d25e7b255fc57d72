// Package cli builds the catalog-service command tree.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

// BuildCLI returns the root command.
func BuildCLI() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "catalog-service",
		Short: "Job catalog service with a local fallback cache",
		Long: `catalog-service keeps the job catalog in PostgreSQL and mirrors it
into a local cache (Redis or SQLite) that answers when PostgreSQL does not.
Postings written while PostgreSQL is unreachable are pushed back by the
synchronizer; postings older than 90 days are deactivated by the sweeper.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildSweepCommand())
	rootCmd.AddCommand(buildSyncCommand())
	rootCmd.AddCommand(buildImportCommand())
	rootCmd.AddCommand(buildHashTokenCommand())
	rootCmd.AddCommand(buildGrantAdminCommand())

	return rootCmd
}
