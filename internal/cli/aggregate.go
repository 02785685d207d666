package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextest-rs/download-stats/internal/aggregate"
	"github.com/nextest-rs/download-stats/internal/repositories"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Recompute weekly aggregates from raw observations",
	Long: `Recomputes every weekly aggregate from the raw tables without collecting.
Aggregation is idempotent: every weekly row is derived from the full raw
history and overwritten by key, so re-running is always safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		if err := aggregate.Run(ctx, &repositories.StatsStore{DB: db}); err != nil {
			return err
		}

		fmt.Println("✓ Weekly aggregates recomputed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
}
