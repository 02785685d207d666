package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextest-rs/download-stats/internal/export"
)

var (
	exportOutput string
	exportTable  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export statistics to various formats",
}

var exportCsvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Export to CSV format",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		table, err := export.ParseTable(exportTable)
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

		if err := export.CSV(ctx, db, table, exportOutput); err != nil {
			return err
		}
		fmt.Printf("Exported to %s.\n", exportOutput)
		return nil
	},
}

var exportJsonCmd = &cobra.Command{
	Use:   "json",
	Short: "Export to JSON format",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		table, err := export.ParseTable(exportTable)
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

		if err := export.JSON(ctx, db, table, exportOutput); err != nil {
			return err
		}
		fmt.Printf("Exported to %s.\n", exportOutput)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{exportCsvCmd, exportJsonCmd} {
		cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path")
		cmd.Flags().StringVarP(&exportTable, "table", "t", "weekly", "what to export: 'weekly', 'daily', or 'github'")
		_ = cmd.MarkFlagRequired("output")
		exportCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(exportCmd)
}
