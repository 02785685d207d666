package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/nextest-rs/download-stats/internal/models"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.GithubSnapshot)(nil),
			(*models.CrateDownload)(nil),
			(*models.CrateMetadata)(nil),
			(*models.WeeklyStat)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.WeeklyStat)(nil),
			(*models.CrateMetadata)(nil),
			(*models.CrateDownload)(nil),
			(*models.GithubSnapshot)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
