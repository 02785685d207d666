package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	// The composite primary keys already index by date, so only the
	// query-side lookups need extra indexes.
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_crates_crate ON crates_downloads(crate_name, date)",
			"CREATE INDEX IF NOT EXISTS idx_weekly_source ON weekly_stats(source, week_start)",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_crates_crate",
			"DROP INDEX IF EXISTS idx_weekly_source",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	})
}
