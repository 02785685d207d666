package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextest-rs/download-stats/internal/aggregate"
	"github.com/nextest-rs/download-stats/internal/config"
	"github.com/nextest-rs/download-stats/internal/repositories"
	"github.com/nextest-rs/download-stats/internal/sources/cratesio"
	"github.com/nextest-rs/download-stats/internal/sources/github"
)

var (
	skipGithub      bool
	skipCrates      bool
	skipAggregation bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect download statistics from GitHub and crates.io",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		fmt.Printf("Initializing database at %s\n", databasePath)
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		today := time.Now().UTC()

		if !skipGithub {
			fmt.Println("\nCollecting GitHub release statistics...")
			token := os.Getenv("GITHUB_TOKEN")
			if token == "" {
				token = cfg.GithubToken
			}
			client := github.NewClient(token)
			fetcher := github.NewFetcher(client, db)

			for _, src := range cfg.GithubSources() {
				fmt.Printf("  %s/%s\n", src.Owner, src.Repo)
				res, err := fetcher.Collect(ctx, today, src.Owner, src.Repo, src.TagPrefix)
				if err != nil {
					return err
				}
				fmt.Printf("  Recorded %d assets with %d total downloads\n",
					res.Assets, res.TotalDownloads)
			}
		}

		if !skipCrates {
			fmt.Println("\nCollecting crates.io statistics...")
			fetcher := cratesio.NewFetcher(cratesio.NewClient(), db)

			for _, src := range cfg.CrateSources() {
				fmt.Printf("  %s\n", src.Name)
				res, err := fetcher.Collect(ctx, today, src.Name)
				if err != nil {
					return err
				}
				fmt.Printf("    Inserted %d records\n", res.Records)
			}
		}

		if !skipAggregation {
			fmt.Println("\nComputing weekly aggregates...")
			if err := aggregate.Run(ctx, &repositories.StatsStore{DB: db}); err != nil {
				return err
			}
		}

		fmt.Println("\n✓ Collection complete!")
		return nil
	},
}

func init() {
	collectCmd.Flags().BoolVar(&skipGithub, "skip-github", false, "skip GitHub release statistics collection")
	collectCmd.Flags().BoolVar(&skipCrates, "skip-crates", false, "skip crates.io statistics collection")
	collectCmd.Flags().BoolVar(&skipAggregation, "skip-aggregation", false, "skip weekly aggregation computation")
	rootCmd.AddCommand(collectCmd)
}
