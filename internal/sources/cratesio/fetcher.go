package cratesio

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	"github.com/nextest-rs/download-stats/internal/models"
	"github.com/nextest-rs/download-stats/internal/repositories"
)

// Fetcher orchestrates crates.io statistics collection.
type Fetcher struct {
	client *Client
	db     *bun.DB
}

// NewFetcher creates a new crates.io fetcher.
func NewFetcher(client *Client, db *bun.DB) *Fetcher {
	return &Fetcher{client: client, db: db}
}

// Result summarizes one collection run for one crate.
type Result struct {
	Records int
}

// Collect upserts the last year of per-day downloads for a crate, both the
// version-attributed rows and the untracked-versions bucket (stored with an
// empty version), plus a cumulative metadata snapshot under today's date.
func (f *Fetcher) Collect(ctx context.Context, today time.Time, crateName string) (Result, error) {
	downloads, err := f.client.Downloads(ctx, crateName)
	if err != nil {
		return Result{}, err
	}

	// Rows are validated here so a bad upstream payload is rejected at
	// collection time rather than surfacing during aggregation.
	var rows []*models.CrateDownload
	for _, vd := range downloads.VersionDownloads {
		row := &models.CrateDownload{
			Date:      vd.Date,
			CrateName: crateName,
			Version:   strconv.FormatInt(vd.Version, 10),
			Downloads: vd.Downloads,
		}
		if err := row.Validate(); err != nil {
			return Result{}, fmt.Errorf("invalid download row for crate %q on %q: %w", crateName, vd.Date, err)
		}
		rows = append(rows, row)
	}
	for _, ed := range downloads.Meta.ExtraDownloads {
		row := &models.CrateDownload{
			Date:      ed.Date,
			CrateName: crateName,
			Version:   "",
			Downloads: ed.Downloads,
		}
		if err := row.Validate(); err != nil {
			return Result{}, fmt.Errorf("invalid download row for crate %q on %q: %w", crateName, ed.Date, err)
		}
		rows = append(rows, row)
	}

	if err := repositories.UpsertCrateDownloads(ctx, f.db, rows); err != nil {
		return Result{}, fmt.Errorf("store downloads for crate %q: %w", crateName, err)
	}

	info, err := f.client.Metadata(ctx, crateName)
	if err != nil {
		return Result{}, err
	}
	meta := &models.CrateMetadata{
		Date:            today.Format(models.DateFormat),
		CrateName:       crateName,
		TotalDownloads:  info.Downloads,
		RecentDownloads: info.RecentDownloads,
	}
	if err := repositories.UpsertCrateMetadata(ctx, f.db, meta); err != nil {
		return Result{}, fmt.Errorf("store metadata for crate %q: %w", crateName, err)
	}

	slog.Info("collected crates.io statistics",
		"crate", crateName, "records", len(rows), "total_downloads", info.Downloads)

	return Result{Records: len(rows)}, nil
}
