package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/nextest-rs/download-stats/internal/aggregate"
	"github.com/nextest-rs/download-stats/internal/models"
)

// UpsertGithubSnapshots performs a batch upsert of release asset snapshots
// keyed by (date, release_tag, asset_name). Re-collecting the same day
// overwrites.
func UpsertGithubSnapshots(ctx context.Context, db bun.IDB, snaps []*models.GithubSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&snaps).
		On("CONFLICT (date, release_tag, asset_name) DO UPDATE").
		Set("download_count = EXCLUDED.download_count").
		Exec(ctx)
	return err
}

// UpsertCrateDownloads performs a batch upsert of daily crate downloads
// keyed by (date, crate_name, version).
func UpsertCrateDownloads(ctx context.Context, db bun.IDB, rows []*models.CrateDownload) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (date, crate_name, version) DO UPDATE").
		Set("downloads = EXCLUDED.downloads").
		Exec(ctx)
	return err
}

// UpsertCrateMetadata records a daily cumulative metadata snapshot.
func UpsertCrateMetadata(ctx context.Context, db bun.IDB, meta *models.CrateMetadata) error {
	_, err := db.NewInsert().
		Model(meta).
		On("CONFLICT (date, crate_name) DO UPDATE").
		Set("total_downloads = EXCLUDED.total_downloads").
		Set("recent_downloads = EXCLUDED.recent_downloads").
		Exec(ctx)
	return err
}

// StatsStore adapts the database to the aggregation engine's Store
// interface.
type StatsStore struct {
	DB *bun.DB
}

// CrateDailyTotals returns per-day downloads summed across versions for
// every crate, ordered by date.
func (s *StatsStore) CrateDailyTotals(ctx context.Context) ([]aggregate.CrateRow, error) {
	var rows []aggregate.CrateRow
	err := s.DB.NewSelect().
		Model((*models.CrateDownload)(nil)).
		ColumnExpr("date").
		ColumnExpr("crate_name").
		ColumnExpr("SUM(downloads) AS downloads").
		GroupExpr("date, crate_name").
		OrderExpr("date").
		Scan(ctx, &rows)
	return rows, err
}

// GithubSnapshots returns every snapshot ordered by (release_tag,
// asset_name, date), the order the delta reconstruction expects.
func (s *StatsStore) GithubSnapshots(ctx context.Context) ([]aggregate.Snapshot, error) {
	var rows []aggregate.Snapshot
	err := s.DB.NewSelect().
		Model((*models.GithubSnapshot)(nil)).
		Column("date", "release_tag", "asset_name", "download_count").
		OrderExpr("release_tag, asset_name, date").
		Scan(ctx, &rows)
	return rows, err
}

// PutWeeklyStat overwrites the weekly aggregate row for the stat's key.
func (s *StatsStore) PutWeeklyStat(ctx context.Context, stat aggregate.Stat) error {
	row := &models.WeeklyStat{
		WeekStart:  stat.WeekStart.Format(models.DateFormat),
		Source:     stat.Source,
		Identifier: stat.Identifier,
		Downloads:  stat.Downloads,
	}
	_, err := s.DB.NewInsert().
		Model(row).
		On("CONFLICT (week_start, source, identifier) DO UPDATE").
		Set("downloads = EXCLUDED.downloads").
		Exec(ctx)
	return err
}

// WeekTotal is a weekly download total for reporting.
type WeekTotal struct {
	WeekStart string `bun:"week_start"`
	Downloads int64  `bun:"downloads"`
}

// WeeklyTotals returns the most recent weekly totals, newest first. For
// "crates" and "all" the per-crate rows are summed per week; for "github"
// there is a single identifier per week already.
func WeeklyTotals(ctx context.Context, db *bun.DB, source string, limit int) ([]WeekTotal, error) {
	q := db.NewSelect().
		Model((*models.WeeklyStat)(nil)).
		ColumnExpr("week_start").
		ColumnExpr("SUM(downloads) AS downloads").
		GroupExpr("week_start").
		OrderExpr("week_start DESC").
		Limit(limit)
	if source != "" {
		q = q.Where("source = ?", source)
	}

	var rows []WeekTotal
	err := q.Scan(ctx, &rows)
	return rows, err
}

// TotalDownloads sums weekly downloads across the tracked period,
// optionally restricted to one source. An empty table totals to zero.
func TotalDownloads(ctx context.Context, db *bun.DB, source string) (int64, error) {
	q := db.NewSelect().
		Model((*models.WeeklyStat)(nil)).
		ColumnExpr("SUM(downloads)")
	if source != "" {
		q = q.Where("source = ?", source)
	}

	var total sql.NullInt64
	if err := q.Scan(ctx, &total); err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// ErrNoData indicates a query over an empty table.
var ErrNoData = errors.New("no data collected yet")

// LatestCratesWeek returns the most recent crates.io week and its total.
func LatestCratesWeek(ctx context.Context, db *bun.DB) (WeekTotal, error) {
	rows, err := WeeklyTotals(ctx, db, models.SourceCrates, 1)
	if err != nil {
		return WeekTotal{}, err
	}
	if len(rows) == 0 {
		return WeekTotal{}, ErrNoData
	}
	return rows[0], nil
}

// LatestGithubCumulative returns the summed cumulative download counter
// across all assets at the most recent snapshot date.
func LatestGithubCumulative(ctx context.Context, db *bun.DB) (int64, error) {
	var total sql.NullInt64
	err := db.NewSelect().
		Model((*models.GithubSnapshot)(nil)).
		ColumnExpr("SUM(download_count)").
		Where("date = (SELECT MAX(date) FROM github_snapshots)").
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// WeeklyCoverage returns the first and last week present in weekly_stats.
func WeeklyCoverage(ctx context.Context, db *bun.DB) (first, last string, err error) {
	var row struct {
		First sql.NullString `bun:"first"`
		Last  sql.NullString `bun:"last"`
	}
	err = db.NewSelect().
		Model((*models.WeeklyStat)(nil)).
		ColumnExpr("MIN(week_start) AS first").
		ColumnExpr("MAX(week_start) AS last").
		Scan(ctx, &row)
	if err != nil {
		return "", "", err
	}
	if !row.First.Valid {
		return "", "", ErrNoData
	}
	return row.First.String, row.Last.String, nil
}

// AllWeeklyStats returns the full weekly table ordered by natural key.
func AllWeeklyStats(ctx context.Context, db *bun.DB) ([]models.WeeklyStat, error) {
	var rows []models.WeeklyStat
	err := db.NewSelect().
		Model(&rows).
		OrderExpr("week_start, source, identifier").
		Scan(ctx)
	return rows, err
}

// AllCrateDownloads returns the full daily crates table ordered by natural
// key.
func AllCrateDownloads(ctx context.Context, db *bun.DB) ([]models.CrateDownload, error) {
	var rows []models.CrateDownload
	err := db.NewSelect().
		Model(&rows).
		OrderExpr("date, crate_name, version").
		Scan(ctx)
	return rows, err
}

// AllGithubSnapshots returns the full snapshot table ordered by natural key.
func AllGithubSnapshots(ctx context.Context, db *bun.DB) ([]models.GithubSnapshot, error) {
	var rows []models.GithubSnapshot
	err := db.NewSelect().
		Model(&rows).
		OrderExpr("date, release_tag, asset_name").
		Scan(ctx)
	return rows, err
}

// DateTotal is a per-day total used by the chart queries.
type DateTotal struct {
	Date  string `bun:"date"`
	Total int64  `bun:"total"`
}

// GithubDailyTotals returns the summed cumulative counter per snapshot
// date, ascending.
func GithubDailyTotals(ctx context.Context, db *bun.DB) ([]DateTotal, error) {
	var rows []DateTotal
	err := db.NewSelect().
		Model((*models.GithubSnapshot)(nil)).
		ColumnExpr("date").
		ColumnExpr("SUM(download_count) AS total").
		GroupExpr("date").
		OrderExpr("date").
		Scan(ctx, &rows)
	return rows, err
}

// TagTotal is a per-release total at the latest snapshot date.
type TagTotal struct {
	ReleaseTag string `bun:"release_tag"`
	Total      int64  `bun:"total"`
}

// GithubLatestTagTotals returns per-release cumulative totals at the most
// recent snapshot date, largest release tags first.
func GithubLatestTagTotals(ctx context.Context, db *bun.DB) ([]TagTotal, error) {
	var rows []TagTotal
	err := db.NewSelect().
		Model((*models.GithubSnapshot)(nil)).
		ColumnExpr("release_tag").
		ColumnExpr("SUM(download_count) AS total").
		Where("date = (SELECT MAX(date) FROM github_snapshots)").
		GroupExpr("release_tag").
		OrderExpr("release_tag DESC").
		Scan(ctx, &rows)
	return rows, err
}

// DateTagTotal is a per-day, per-release total used by the stacked version
// chart.
type DateTagTotal struct {
	Date       string `bun:"date"`
	ReleaseTag string `bun:"release_tag"`
	Total      int64  `bun:"total"`
}

// GithubDailyTagTotals returns the per-release cumulative counter for every
// snapshot date, ascending.
func GithubDailyTagTotals(ctx context.Context, db *bun.DB) ([]DateTagTotal, error) {
	var rows []DateTagTotal
	err := db.NewSelect().
		Model((*models.GithubSnapshot)(nil)).
		ColumnExpr("date").
		ColumnExpr("release_tag").
		ColumnExpr("SUM(download_count) AS total").
		GroupExpr("date, release_tag").
		OrderExpr("date, release_tag").
		Scan(ctx, &rows)
	return rows, err
}

// SourceWeekTotal is a per-week, per-source total.
type SourceWeekTotal struct {
	WeekStart string `bun:"week_start"`
	Source    string `bun:"source"`
	Downloads int64  `bun:"downloads"`
}

// SourceWeeklyTotals returns weekly totals broken out by source, ascending
// by week.
func SourceWeeklyTotals(ctx context.Context, db *bun.DB) ([]SourceWeekTotal, error) {
	var rows []SourceWeekTotal
	err := db.NewSelect().
		Model((*models.WeeklyStat)(nil)).
		ColumnExpr("week_start").
		ColumnExpr("source").
		ColumnExpr("SUM(downloads) AS downloads").
		GroupExpr("week_start, source").
		OrderExpr("week_start, source").
		Scan(ctx, &rows)
	return rows, err
}

// CratesWeeklySeries returns crates.io weekly totals ascending by week, for
// charting.
func CratesWeeklySeries(ctx context.Context, db *bun.DB) ([]WeekTotal, error) {
	var rows []WeekTotal
	err := db.NewSelect().
		Model((*models.WeeklyStat)(nil)).
		ColumnExpr("week_start").
		ColumnExpr("SUM(downloads) AS downloads").
		Where("source = ?", models.SourceCrates).
		GroupExpr("week_start").
		OrderExpr("week_start").
		Scan(ctx, &rows)
	return rows, err
}

var _ aggregate.Store = (*StatsStore)(nil)
