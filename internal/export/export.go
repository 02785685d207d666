// Package export dumps raw and aggregated tables to CSV or JSON files.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/uptrace/bun"

	"github.com/nextest-rs/download-stats/internal/repositories"
)

// Table selects which table to export.
type Table string

const (
	TableWeekly Table = "weekly"
	TableDaily  Table = "daily"
	TableGithub Table = "github"
)

// ParseTable validates a table name from the command line.
func ParseTable(s string) (Table, error) {
	switch Table(s) {
	case TableWeekly, TableDaily, TableGithub:
		return Table(s), nil
	default:
		return "", fmt.Errorf("unknown table %q: use 'weekly', 'daily', or 'github'", s)
	}
}

// tableDump is a column-ordered snapshot of one table, ready for
// serialization. Rows are ordered by the table's natural key so repeated
// exports of unchanged data are byte-identical.
type tableDump struct {
	columns []string
	rows    [][]string
	objects []map[string]interface{}
}

func dump(ctx context.Context, db *bun.DB, table Table) (*tableDump, error) {
	switch table {
	case TableWeekly:
		stats, err := repositories.AllWeeklyStats(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("read weekly_stats: %w", err)
		}
		d := &tableDump{columns: []string{"week_start", "source", "identifier", "downloads"}}
		for _, s := range stats {
			d.rows = append(d.rows, []string{
				s.WeekStart, s.Source, s.Identifier, strconv.FormatInt(s.Downloads, 10),
			})
			d.objects = append(d.objects, map[string]interface{}{
				"week_start": s.WeekStart,
				"source":     s.Source,
				"identifier": s.Identifier,
				"downloads":  s.Downloads,
			})
		}
		return d, nil

	case TableDaily:
		rows, err := repositories.AllCrateDownloads(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("read crates_downloads: %w", err)
		}
		d := &tableDump{columns: []string{"date", "crate_name", "version", "downloads"}}
		for _, r := range rows {
			d.rows = append(d.rows, []string{
				r.Date, r.CrateName, r.Version, strconv.FormatInt(r.Downloads, 10),
			})
			d.objects = append(d.objects, map[string]interface{}{
				"date":       r.Date,
				"crate_name": r.CrateName,
				"version":    r.Version,
				"downloads":  r.Downloads,
			})
		}
		return d, nil

	case TableGithub:
		rows, err := repositories.AllGithubSnapshots(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("read github_snapshots: %w", err)
		}
		d := &tableDump{columns: []string{"date", "release_tag", "asset_name", "download_count"}}
		for _, r := range rows {
			d.rows = append(d.rows, []string{
				r.Date, r.ReleaseTag, r.AssetName, strconv.FormatInt(r.DownloadCount, 10),
			})
			d.objects = append(d.objects, map[string]interface{}{
				"date":           r.Date,
				"release_tag":    r.ReleaseTag,
				"asset_name":     r.AssetName,
				"download_count": r.DownloadCount,
			})
		}
		return d, nil

	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
}

// CSV writes the table to path as CSV with a header row.
func CSV(ctx context.Context, db *bun.DB, table Table, path string) error {
	d, err := dump(ctx, db, table)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)
	if err := w.Write(d.columns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, row := range d.rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return f.Close()
}

// JSON writes the table to path as a pretty-printed array of row objects.
func JSON(ctx context.Context, db *bun.DB, table Table, path string) error {
	d, err := dump(ctx, db, table)
	if err != nil {
		return err
	}

	// An empty table exports as [], not null.
	objects := d.objects
	if objects == nil {
		objects = []map[string]interface{}{}
	}

	data, err := json.MarshalIndent(objects, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write file %s: %w", path, err)
	}
	return nil
}
