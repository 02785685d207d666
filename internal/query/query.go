// Package query renders human-readable reports over the weekly aggregates.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/uptrace/bun"

	"github.com/nextest-rs/download-stats/internal/models"
	"github.com/nextest-rs/download-stats/internal/repositories"
)

// ParseSource maps a --source flag value onto a weekly_stats source tag.
// Empty string means all sources.
func ParseSource(s string) (string, error) {
	switch s {
	case "github":
		return models.SourceGithub, nil
	case "crates":
		return models.SourceCrates, nil
	case "all", "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown source %q: use 'github', 'crates', or 'all'", s)
	}
}

// Weekly prints the most recent weekly totals, newest first.
func Weekly(ctx context.Context, db *bun.DB, w io.Writer, source string, limit int) error {
	rows, err := repositories.WeeklyTotals(ctx, db, source, limit)
	if err != nil {
		return fmt.Errorf("query weekly totals: %w", err)
	}

	fmt.Fprintf(w, "\n%-12s %15s\n", "Week", "Downloads")
	fmt.Fprintln(w, "==============================")
	for _, row := range rows {
		fmt.Fprintf(w, "%-12s %15s\n", row.WeekStart, humanize.Comma(row.Downloads))
	}
	return nil
}

// Total prints the grand total for a source (or all sources).
func Total(ctx context.Context, db *bun.DB, w io.Writer, source string) error {
	total, err := repositories.TotalDownloads(ctx, db, source)
	if err != nil {
		return fmt.Errorf("query total downloads: %w", err)
	}

	description := "All sources"
	switch source {
	case models.SourceGithub:
		description = "GitHub releases (tracked period)"
	case models.SourceCrates:
		description = "crates.io (last year)"
	}

	fmt.Fprintf(w, "\nTotal downloads\n")
	fmt.Fprintf(w, "  Source: %s\n", description)
	fmt.Fprintf(w, "  Total:  %s\n", humanize.Comma(total))
	return nil
}

// Latest prints the latest crates.io week, the latest cumulative GitHub
// totals, and the overall data coverage.
func Latest(ctx context.Context, db *bun.DB, w io.Writer) error {
	fmt.Fprintf(w, "\nLatest statistics\n\n")

	latest, err := repositories.LatestCratesWeek(ctx, db)
	switch {
	case errors.Is(err, repositories.ErrNoData):
		fmt.Fprintln(w, "No crates.io data collected yet.")
	case err != nil:
		return fmt.Errorf("query latest crates.io week: %w", err)
	default:
		fmt.Fprintf(w, "Latest week: %s\n", latest.WeekStart)
		fmt.Fprintf(w, "  crates.io: %s\n", humanize.Comma(latest.Downloads))
	}

	githubTotal, err := repositories.LatestGithubCumulative(ctx, db)
	if err != nil {
		return fmt.Errorf("query latest GitHub snapshot: %w", err)
	}
	fmt.Fprintf(w, "  GitHub (cumulative): %s\n", humanize.Comma(githubTotal))

	first, last, err := repositories.WeeklyCoverage(ctx, db)
	switch {
	case errors.Is(err, repositories.ErrNoData):
		// Nothing aggregated yet; the header above already says so.
	case err != nil:
		return fmt.Errorf("query data coverage: %w", err)
	default:
		fmt.Fprintf(w, "\nData coverage: %s to %s\n", first, last)
	}
	return nil
}
