package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextest-rs/download-stats/internal/charts"
)

var chartsOutput string

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Generate charts from collected statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		fmt.Println("\nGenerating charts...")
		if err := charts.GenerateAll(ctx, db, chartsOutput); err != nil {
			return err
		}
		fmt.Printf("  ✓ Charts saved to %s\n", chartsOutput)
		return nil
	},
}

func init() {
	chartsCmd.Flags().StringVarP(&chartsOutput, "output", "o", "charts", "output directory for charts")
	rootCmd.AddCommand(chartsCmd)
}
