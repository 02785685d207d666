package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nextest-rs/download-stats/internal/query"
)

var (
	queryLimit  int
	querySource string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query download statistics",
}

var queryWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Show weekly download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		source, err := query.ParseSource(querySource)
		if err != nil {
			return err
		}

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		return query.Weekly(ctx, db, os.Stdout, source, queryLimit)
	},
}

var queryTotalCmd = &cobra.Command{
	Use:   "total",
	Short: "Show total downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		source, err := query.ParseSource(querySource)
		if err != nil {
			return err
		}

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		return query.Total(ctx, db, os.Stdout, source)
	},
}

var queryLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show latest statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		return query.Latest(ctx, db, os.Stdout)
	},
}

func init() {
	queryWeeklyCmd.Flags().IntVarP(&queryLimit, "limit", "n", 12, "number of weeks to show")
	queryWeeklyCmd.Flags().StringVarP(&querySource, "source", "s", "all", "source to query: 'github', 'crates', or 'all'")
	queryTotalCmd.Flags().StringVarP(&querySource, "source", "s", "all", "source to query: 'github', 'crates', or 'all'")

	queryCmd.AddCommand(queryWeeklyCmd)
	queryCmd.AddCommand(queryTotalCmd)
	queryCmd.AddCommand(queryLatestCmd)
	rootCmd.AddCommand(queryCmd)
}
