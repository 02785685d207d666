package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// DateFormat is the textual date layout used everywhere in the database.
const DateFormat = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

// GithubSnapshot records the cumulative download counter of one release
// asset as observed on one date. Re-collecting the same key on the same day
// overwrites the row.
type GithubSnapshot struct {
	bun.BaseModel `bun:"table:github_snapshots,alias:gs"`

	Date          string `bun:"date,pk" json:"date"`
	ReleaseTag    string `bun:"release_tag,pk" json:"release_tag"`
	AssetName     string `bun:"asset_name,pk" json:"asset_name"`
	DownloadCount int64  `bun:"download_count,notnull" json:"download_count"`
}

// Validate checks that required snapshot fields are present.
func (s *GithubSnapshot) Validate() error {
	if _, err := ParseDate(s.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if s.ReleaseTag == "" {
		return errors.New("release tag is required")
	}
	if s.AssetName == "" {
		return errors.New("asset name is required")
	}
	if s.DownloadCount < 0 {
		return errors.New("download count must be non-negative")
	}
	return nil
}

// CrateDownload records downloads of one crate version on one day. crates.io
// reports these as per-day deltas already; no differencing is needed.
// Version is the numeric crates.io version ID as text, or "" for the
// aggregate bucket of versions not individually tracked.
type CrateDownload struct {
	bun.BaseModel `bun:"table:crates_downloads,alias:cd"`

	Date      string `bun:"date,pk" json:"date"`
	CrateName string `bun:"crate_name,pk" json:"crate_name"`
	Version   string `bun:"version,pk,default:''" json:"version"`
	Downloads int64  `bun:"downloads,notnull" json:"downloads"`
}

// Validate checks that required download fields are present.
func (d *CrateDownload) Validate() error {
	if _, err := ParseDate(d.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if d.CrateName == "" {
		return errors.New("crate name is required")
	}
	if d.Downloads < 0 {
		return errors.New("downloads must be non-negative")
	}
	return nil
}

// CrateMetadata is a daily snapshot of the cumulative download totals
// reported by the crates.io crate endpoint.
type CrateMetadata struct {
	bun.BaseModel `bun:"table:crates_metadata,alias:cm"`

	Date            string `bun:"date,pk" json:"date"`
	CrateName       string `bun:"crate_name,pk" json:"crate_name"`
	TotalDownloads  int64  `bun:"total_downloads,notnull" json:"total_downloads"`
	RecentDownloads int64  `bun:"recent_downloads,notnull" json:"recent_downloads"`
}

// Weekly aggregate source tags and the fixed GitHub identifier. The values
// are part of the database contents, so they never change.
const (
	SourceGithub = "github"
	SourceCrates = "crates"

	GithubIdentifier = "releases"
)

// WeeklyStat is a derived weekly download total. WeekStart is always a
// Monday. Rows are recomputed from the raw tables on every aggregation run
// and overwritten by key, never accumulated.
type WeeklyStat struct {
	bun.BaseModel `bun:"table:weekly_stats,alias:ws"`

	WeekStart  string `bun:"week_start,pk" json:"week_start"`
	Source     string `bun:"source,pk" json:"source"`
	Identifier string `bun:"identifier,pk" json:"identifier"`
	Downloads  int64  `bun:"downloads,notnull" json:"downloads"`
}
