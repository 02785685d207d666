package repositories

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/nextest-rs/download-stats/internal/aggregate"
	"github.com/nextest-rs/download-stats/internal/database"
	"github.com/nextest-rs/download-stats/internal/migrations"
	"github.com/nextest-rs/download-stats/internal/models"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := migrations.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

func TestUpsertGithubSnapshotsOverwrites(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	snap := &models.GithubSnapshot{
		Date: "2025-11-17", ReleaseTag: "v1", AssetName: "a.tar.gz", DownloadCount: 100,
	}
	if err := UpsertGithubSnapshots(ctx, db, []*models.GithubSnapshot{snap}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Re-collecting the same day replaces the counter, not duplicates it.
	snap.DownloadCount = 150
	if err := UpsertGithubSnapshots(ctx, db, []*models.GithubSnapshot{snap}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := AllGithubSnapshots(ctx, db)
	if err != nil {
		t.Fatalf("read snapshots: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].DownloadCount != 150 {
		t.Fatalf("expected overwritten count 150, got %d", rows[0].DownloadCount)
	}
}

func TestCrateDailyTotalsSumAcrossVersions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	rows := []*models.CrateDownload{
		{Date: "2025-11-17", CrateName: "foo", Version: "100", Downloads: 40},
		{Date: "2025-11-17", CrateName: "foo", Version: "101", Downloads: 50},
		{Date: "2025-11-17", CrateName: "foo", Version: "", Downloads: 10},
		{Date: "2025-11-18", CrateName: "foo", Version: "101", Downloads: 7},
	}
	if err := UpsertCrateDownloads(ctx, db, rows); err != nil {
		t.Fatalf("upsert downloads: %v", err)
	}

	store := &StatsStore{DB: db}
	totals, err := store.CrateDailyTotals(ctx)
	if err != nil {
		t.Fatalf("daily totals: %v", err)
	}

	want := []aggregate.CrateRow{
		{Date: "2025-11-17", CrateName: "foo", Downloads: 100},
		{Date: "2025-11-18", CrateName: "foo", Downloads: 7},
	}
	if !reflect.DeepEqual(totals, want) {
		t.Fatalf("expected %+v, got %+v", want, totals)
	}
}

func TestAggregationRoundtrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	crates := []*models.CrateDownload{
		{Date: "2025-11-17", CrateName: "foo", Version: "100", Downloads: 100},
		{Date: "2025-11-18", CrateName: "foo", Version: "100", Downloads: 50},
		{Date: "2025-11-20", CrateName: "foo", Version: "", Downloads: 200},
	}
	if err := UpsertCrateDownloads(ctx, db, crates); err != nil {
		t.Fatalf("upsert downloads: %v", err)
	}

	snaps := []*models.GithubSnapshot{
		{Date: "2025-11-10", ReleaseTag: "v1", AssetName: "a", DownloadCount: 1000},
		{Date: "2025-11-17", ReleaseTag: "v1", AssetName: "a", DownloadCount: 1500},
	}
	if err := UpsertGithubSnapshots(ctx, db, snaps); err != nil {
		t.Fatalf("upsert snapshots: %v", err)
	}

	store := &StatsStore{DB: db}
	if err := aggregate.Run(ctx, store); err != nil {
		t.Fatalf("run aggregation: %v", err)
	}

	first, err := AllWeeklyStats(ctx, db)
	if err != nil {
		t.Fatalf("read weekly stats: %v", err)
	}
	want := []models.WeeklyStat{
		{WeekStart: "2025-11-17", Source: models.SourceCrates, Identifier: "foo", Downloads: 350},
		{WeekStart: "2025-11-17", Source: models.SourceGithub, Identifier: models.GithubIdentifier, Downloads: 500},
	}
	for i := range first {
		first[i].BaseModel = bun.BaseModel{}
	}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("expected %+v, got %+v", want, first)
	}

	// Aggregation is a pure function of the raw tables; a second run must
	// leave the weekly table byte-identical.
	if err := aggregate.Run(ctx, store); err != nil {
		t.Fatalf("re-run aggregation: %v", err)
	}
	second, err := AllWeeklyStats(ctx, db)
	if err != nil {
		t.Fatalf("re-read weekly stats: %v", err)
	}
	for i := range second {
		second[i].BaseModel = bun.BaseModel{}
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-run changed weekly stats: %+v vs %+v", first, second)
	}
}

func TestWeeklyTotalsAndCoverage(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	store := &StatsStore{DB: db}
	stats := []aggregate.Stat{
		{WeekStart: mustDate(t, "2025-11-10"), Source: models.SourceCrates, Identifier: "foo", Downloads: 100},
		{WeekStart: mustDate(t, "2025-11-10"), Source: models.SourceCrates, Identifier: "bar", Downloads: 30},
		{WeekStart: mustDate(t, "2025-11-17"), Source: models.SourceCrates, Identifier: "foo", Downloads: 50},
		{WeekStart: mustDate(t, "2025-11-17"), Source: models.SourceGithub, Identifier: models.GithubIdentifier, Downloads: 20},
	}
	for _, s := range stats {
		if err := store.PutWeeklyStat(ctx, s); err != nil {
			t.Fatalf("put weekly stat: %v", err)
		}
	}

	crates, err := WeeklyTotals(ctx, db, models.SourceCrates, 10)
	if err != nil {
		t.Fatalf("weekly totals: %v", err)
	}
	want := []WeekTotal{
		{WeekStart: "2025-11-17", Downloads: 50},
		{WeekStart: "2025-11-10", Downloads: 130},
	}
	if !reflect.DeepEqual(crates, want) {
		t.Fatalf("expected %+v, got %+v", want, crates)
	}

	total, err := TotalDownloads(ctx, db, "")
	if err != nil {
		t.Fatalf("total downloads: %v", err)
	}
	if total != 200 {
		t.Fatalf("expected total 200, got %d", total)
	}

	first, last, err := WeeklyCoverage(ctx, db)
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}
	if first != "2025-11-10" || last != "2025-11-17" {
		t.Fatalf("unexpected coverage %s..%s", first, last)
	}
}

func TestEmptyTableQueries(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	total, err := TotalDownloads(ctx, db, "")
	if err != nil {
		t.Fatalf("total on empty table: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0, got %d", total)
	}

	if _, _, err := WeeklyCoverage(ctx, db); err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func mustDate(t *testing.T, s string) (d time.Time) {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}
