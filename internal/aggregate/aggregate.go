// Package aggregate derives weekly download totals from raw observations.
//
// Both aggregators are pure functions over in-memory rows; the surrounding
// Run driver reads everything through a Store, computes, and writes the
// results back as upserts keyed by (week_start, source, identifier).
// Re-running on unchanged raw data is therefore a no-op.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nextest-rs/download-stats/internal/models"
)

// CrateRow is one day of downloads for one crate, already summed across
// versions. crates.io reports per-day deltas directly.
type CrateRow struct {
	Date      string `bun:"date"`
	CrateName string `bun:"crate_name"`
	Downloads int64  `bun:"downloads"`
}

// Snapshot is one observation of a release asset's cumulative download
// counter.
type Snapshot struct {
	Date          string `bun:"date"`
	ReleaseTag    string `bun:"release_tag"`
	AssetName     string `bun:"asset_name"`
	DownloadCount int64  `bun:"download_count"`
}

// Stat is a computed weekly total ready to be upserted.
type Stat struct {
	WeekStart  time.Time
	Source     string
	Identifier string
	Downloads  int64
}

// Store is the engine's only view of persistence. The read side must return
// every raw row; the write side must overwrite by natural key.
type Store interface {
	CrateDailyTotals(ctx context.Context) ([]CrateRow, error)
	GithubSnapshots(ctx context.Context) ([]Snapshot, error)
	PutWeeklyStat(ctx context.Context, stat Stat) error
}

// WeekStart returns the Monday of the week containing d. Dates are naive
// calendar dates; no timezone handling applies.
func WeekStart(d time.Time) time.Time {
	daysFromMonday := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -daysFromMonday)
}

// CratesWeekly buckets per-day crate downloads into calendar weeks and sums
// them per (week, crate). Summation is commutative, so input order does not
// matter. Results are sorted by week then crate for deterministic writes.
func CratesWeekly(rows []CrateRow) ([]Stat, error) {
	type key struct {
		week  time.Time
		crate string
	}
	weekly := make(map[key]int64)

	for _, row := range rows {
		date, err := models.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q in crates_downloads: %w", row.Date, err)
		}
		weekly[key{WeekStart(date), row.CrateName}] += row.Downloads
	}

	stats := make([]Stat, 0, len(weekly))
	for k, downloads := range weekly {
		stats = append(stats, Stat{
			WeekStart:  k.week,
			Source:     models.SourceCrates,
			Identifier: k.crate,
			Downloads:  downloads,
		})
	}
	sortStats(stats)
	return stats, nil
}

// GithubWeekly reconstructs weekly download deltas from cumulative per-asset
// snapshots. For each (release_tag, asset_name) key the rows are walked in
// date order; every snapshot after the first contributes
// max(0, count-previous) to the week of its own date. The first snapshot of
// a key only seeds the baseline, so a key observed once contributes nothing.
// Per-asset identity is discarded: totals land under the single "releases"
// identifier.
func GithubWeekly(rows []Snapshot) ([]Stat, error) {
	// Within-key chronological order is the only order that matters; sort
	// up front so callers do not have to.
	sorted := make([]Snapshot, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ReleaseTag != b.ReleaseTag {
			return a.ReleaseTag < b.ReleaseTag
		}
		if a.AssetName != b.AssetName {
			return a.AssetName < b.AssetName
		}
		return a.Date < b.Date
	})

	type key struct {
		tag   string
		asset string
	}
	prev := make(map[key]int64)
	weekly := make(map[time.Time]int64)

	for _, snap := range sorted {
		date, err := models.ParseDate(snap.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q in github_snapshots: %w", snap.Date, err)
		}

		k := key{snap.ReleaseTag, snap.AssetName}
		if prevCount, ok := prev[k]; ok {
			delta := snap.DownloadCount - prevCount
			if delta < 0 {
				// A regressing cumulative counter means an upstream
				// correction or a replaced asset; it must never subtract
				// from a weekly total.
				slog.Warn("clamping negative download delta",
					"release_tag", snap.ReleaseTag,
					"asset_name", snap.AssetName,
					"date", snap.Date,
					"delta", delta)
				delta = 0
			}
			weekly[WeekStart(date)] += delta
		}
		prev[k] = snap.DownloadCount
	}

	stats := make([]Stat, 0, len(weekly))
	for week, downloads := range weekly {
		stats = append(stats, Stat{
			WeekStart:  week,
			Source:     models.SourceGithub,
			Identifier: models.GithubIdentifier,
			Downloads:  downloads,
		})
	}
	sortStats(stats)
	return stats, nil
}

// Run recomputes all weekly aggregates from the raw store. The two sources
// write disjoint keys; crates.io runs first and a failure short-circuits the
// GitHub stage.
func Run(ctx context.Context, store Store) error {
	if err := runCrates(ctx, store); err != nil {
		return fmt.Errorf("compute crates.io weekly aggregates: %w", err)
	}
	if err := runGithub(ctx, store); err != nil {
		return fmt.Errorf("compute GitHub weekly aggregates: %w", err)
	}
	return nil
}

func runCrates(ctx context.Context, store Store) error {
	rows, err := store.CrateDailyTotals(ctx)
	if err != nil {
		return fmt.Errorf("read crate downloads: %w", err)
	}
	stats, err := CratesWeekly(rows)
	if err != nil {
		return err
	}
	return putAll(ctx, store, stats)
}

func runGithub(ctx context.Context, store Store) error {
	rows, err := store.GithubSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("read GitHub snapshots: %w", err)
	}
	stats, err := GithubWeekly(rows)
	if err != nil {
		return err
	}
	return putAll(ctx, store, stats)
}

func putAll(ctx context.Context, store Store, stats []Stat) error {
	for _, stat := range stats {
		if err := store.PutWeeklyStat(ctx, stat); err != nil {
			return fmt.Errorf("upsert weekly stat for %s/%s week %s: %w",
				stat.Source, stat.Identifier, stat.WeekStart.Format(models.DateFormat), err)
		}
	}
	return nil
}

func sortStats(stats []Stat) {
	sort.Slice(stats, func(i, j int) bool {
		if !stats[i].WeekStart.Equal(stats[j].WeekStart) {
			return stats[i].WeekStart.Before(stats[j].WeekStart)
		}
		return stats[i].Identifier < stats[j].Identifier
	})
}
