// Package cli implements the download-stats command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/nextest-rs/download-stats/internal/database"
	"github.com/nextest-rs/download-stats/internal/migrations"
)

var (
	databasePath string
	configPath   string
	debugSQL     bool
)

var rootCmd = &cobra.Command{
	Use:   "download-stats",
	Short: "Collect and report download statistics for nextest",
	Long: `download-stats polls the GitHub releases API and the crates.io downloads
API, persists the raw observations into a local SQLite database, derives
weekly aggregates, and reports over them.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&databasePath, "database", "d", "download-stats.db", "path to the SQLite database file")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugSQL, "debug", false, "log SQL queries")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDB opens the database and brings the schema up to date.
func openDB(ctx context.Context) (*bun.DB, error) {
	db, err := database.NewDB(databasePath, debugSQL)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", databasePath, err)
	}
	if err := migrations.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
