// Package charts renders PNG charts from the collected statistics.
package charts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/uptrace/bun"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/mod/semver"

	"github.com/nextest-rs/download-stats/internal/models"
	"github.com/nextest-rs/download-stats/internal/repositories"
)

const (
	chartWidth  = 1600
	chartHeight = 900
)

var (
	background    = drawing.Color{R: 250, G: 250, B: 252, A: 255}
	textSecondary = drawing.Color{R: 100, G: 116, B: 139, A: 255}
	gridColor     = drawing.Color{R: 226, G: 232, B: 240, A: 255}
	accentBlue    = drawing.Color{R: 59, G: 130, B: 246, A: 255}
	accentGreen   = drawing.Color{R: 34, G: 197, B: 94, A: 255}

	// Per-version palette; the last entry is the "Other" bucket.
	versionColors = []drawing.Color{
		{R: 99, G: 102, B: 241, A: 255},
		{R: 59, G: 130, B: 246, A: 255},
		{R: 34, G: 197, B: 94, A: 255},
		{R: 251, G: 146, B: 60, A: 255},
		{R: 236, G: 72, B: 153, A: 255},
		{R: 156, G: 163, B: 175, A: 255},
	}
)

// GenerateAll renders every chart into outputDir, creating it if needed.
// Charts whose underlying dataset is empty are skipped without error.
func GenerateAll(ctx context.Context, db *bun.DB, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	steps := []struct {
		name   string
		render func(context.Context, *bun.DB, string) error
	}{
		{"weekly-trends.png", weeklyTrends},
		{"github-cumulative.png", cumulativeGithub},
		{"github-by-version.png", githubByVersion},
		{"source-comparison.png", sourceComparison},
	}

	for _, step := range steps {
		path := filepath.Join(outputDir, step.name)
		if err := step.render(ctx, db, path); err != nil {
			return fmt.Errorf("render %s: %w", step.name, err)
		}
	}
	return nil
}

// series converts (date string, value) pairs to chart inputs.
func series(dates []string, values []int64) ([]time.Time, []float64, error) {
	xs := make([]time.Time, len(dates))
	ys := make([]float64, len(values))
	for i, d := range dates {
		t, err := models.ParseDate(d)
		if err != nil {
			return nil, nil, fmt.Errorf("parse date %q: %w", d, err)
		}
		xs[i] = t
		ys[i] = float64(values[i])
	}
	return xs, ys, nil
}

func formatCount(v interface{}) string {
	if f, ok := v.(float64); ok {
		return humanize.Comma(int64(f))
	}
	return ""
}

func baseChart(title string) chart.Chart {
	return chart.Chart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{FillColor: background},
		Canvas:     chart.Style{FillColor: background},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
			Style:          chart.Style{FontColor: textSecondary},
			GridMajorStyle: chart.Style{Hidden: true},
			GridMinorStyle: chart.Style{Hidden: true},
		},
		YAxis: chart.YAxis{
			ValueFormatter: formatCount,
			Style:          chart.Style{FontColor: textSecondary},
			GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		},
	}
}

func render(graph chart.Chart, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// skippable reports whether a dataset is too small to chart. go-chart needs
// at least two points to establish a range.
func skippable(n int, name string) bool {
	if n < 2 {
		slog.Info("skipping chart, not enough data", "chart", name, "points", n)
		return true
	}
	return false
}

func weeklyTrends(ctx context.Context, db *bun.DB, path string) error {
	rows, err := repositories.CratesWeeklySeries(ctx, db)
	if err != nil {
		return fmt.Errorf("read crates.io weekly series: %w", err)
	}
	if skippable(len(rows), "weekly-trends") {
		return nil
	}

	dates := make([]string, len(rows))
	values := make([]int64, len(rows))
	for i, r := range rows {
		dates[i], values[i] = r.WeekStart, r.Downloads
	}
	xs, ys, err := series(dates, values)
	if err != nil {
		return err
	}

	graph := baseChart("Weekly Downloads - crates.io")
	graph.Series = []chart.Series{
		chart.TimeSeries{
			Name:    "crates.io",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: accentBlue, StrokeWidth: 3},
		},
	}
	return render(graph, path)
}

func cumulativeGithub(ctx context.Context, db *bun.DB, path string) error {
	rows, err := repositories.GithubDailyTotals(ctx, db)
	if err != nil {
		return fmt.Errorf("read GitHub daily totals: %w", err)
	}
	if skippable(len(rows), "github-cumulative") {
		return nil
	}

	dates := make([]string, len(rows))
	values := make([]int64, len(rows))
	for i, r := range rows {
		dates[i], values[i] = r.Date, r.Total
	}
	xs, ys, err := series(dates, values)
	if err != nil {
		return err
	}

	graph := baseChart("Cumulative Downloads - GitHub Releases")
	graph.Series = []chart.Series{
		chart.TimeSeries{
			Name:    "GitHub",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: accentGreen,
				StrokeWidth: 2,
				FillColor:   accentGreen.WithAlpha(38),
			},
		},
	}
	return render(graph, path)
}

// topReleaseTags picks the most recent releases by semantic version, keeping
// only those above a downloads threshold of max(10000, 0.5% of the largest
// release), capped at five.
func topReleaseTags(totals []repositories.TagTotal, tagPrefix string) []string {
	type tagged struct {
		tag     string
		version string
		total   int64
	}

	var versions []tagged
	var maxTotal int64
	for _, t := range totals {
		v := "v" + strings.TrimPrefix(t.ReleaseTag, tagPrefix)
		if !semver.IsValid(v) {
			continue
		}
		versions = append(versions, tagged{tag: t.ReleaseTag, version: v, total: t.Total})
		if t.Total > maxTotal {
			maxTotal = t.Total
		}
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return semver.Compare(versions[i].version, versions[j].version) > 0
	})

	threshold := maxTotal / 200
	if threshold < 10_000 {
		threshold = 10_000
	}

	var top []string
	for _, v := range versions {
		if v.total < threshold {
			continue
		}
		top = append(top, v.tag)
		if len(top) == 5 {
			break
		}
	}
	return top
}

// releaseTagPrefix extracts the non-numeric prefix of a release tag, e.g.
// "cargo-nextest-" from "cargo-nextest-0.9.52".
func releaseTagPrefix(tag string) string {
	idx := strings.IndexFunc(tag, func(r rune) bool { return r >= '0' && r <= '9' })
	if idx <= 0 {
		return ""
	}
	return tag[:idx]
}

func githubByVersion(ctx context.Context, db *bun.DB, path string) error {
	latest, err := repositories.GithubLatestTagTotals(ctx, db)
	if err != nil {
		return fmt.Errorf("read latest release totals: %w", err)
	}
	if len(latest) == 0 {
		slog.Info("skipping chart, not enough data", "chart", "github-by-version")
		return nil
	}

	prefix := releaseTagPrefix(latest[0].ReleaseTag)
	top := topReleaseTags(latest, prefix)
	topSet := make(map[string]bool, len(top))
	for _, tag := range top {
		topSet[tag] = true
	}

	rows, err := repositories.GithubDailyTagTotals(ctx, db)
	if err != nil {
		return fmt.Errorf("read per-release daily totals: %w", err)
	}

	// Bucket every non-top release under "Other", keyed per date.
	const other = "Other"
	perDate := make(map[string]map[string]int64)
	var dateList []string
	for _, r := range rows {
		category := other
		if topSet[r.ReleaseTag] {
			category = r.ReleaseTag
		}
		if perDate[r.Date] == nil {
			perDate[r.Date] = make(map[string]int64)
			dateList = append(dateList, r.Date)
		}
		perDate[r.Date][category] += r.Total
	}
	sort.Strings(dateList)
	if skippable(len(dateList), "github-by-version") {
		return nil
	}

	categories := append(append([]string{}, top...), other)

	graph := baseChart("Cumulative Downloads by Version - GitHub Releases")
	for i, category := range categories {
		dates := make([]string, len(dateList))
		values := make([]int64, len(dateList))
		for j, d := range dateList {
			dates[j], values[j] = d, perDate[d][category]
		}
		xs, ys, err := series(dates, values)
		if err != nil {
			return err
		}

		color := versionColors[i%len(versionColors)]
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    category,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				FillColor:   color.WithAlpha(76),
			},
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return render(graph, path)
}

func sourceComparison(ctx context.Context, db *bun.DB, path string) error {
	rows, err := repositories.SourceWeeklyTotals(ctx, db)
	if err != nil {
		return fmt.Errorf("read weekly totals by source: %w", err)
	}

	var cratesDates, githubDates []string
	var cratesValues, githubValues []int64
	for _, r := range rows {
		switch r.Source {
		case models.SourceCrates:
			cratesDates = append(cratesDates, r.WeekStart)
			cratesValues = append(cratesValues, r.Downloads)
		case models.SourceGithub:
			githubDates = append(githubDates, r.WeekStart)
			githubValues = append(githubValues, r.Downloads)
		}
	}
	if skippable(len(cratesDates)+len(githubDates), "source-comparison") {
		return nil
	}

	graph := baseChart("Weekly Downloads by Source")
	if len(cratesDates) >= 2 {
		xs, ys, err := series(cratesDates, cratesValues)
		if err != nil {
			return err
		}
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "crates.io",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: accentBlue, StrokeWidth: 3},
		})
	}
	if len(githubDates) >= 2 {
		xs, ys, err := series(githubDates, githubValues)
		if err != nil {
			return err
		}
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "GitHub",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: accentGreen, StrokeWidth: 3},
		})
	}
	if len(graph.Series) == 0 {
		return nil
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return render(graph, path)
}
