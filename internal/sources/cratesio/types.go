package cratesio

// CrateResponse wraps the crate metadata endpoint payload.
type CrateResponse struct {
	Crate CrateInfo `json:"crate"`
}

// CrateInfo carries the cumulative download totals for a crate.
type CrateInfo struct {
	Downloads       int64 `json:"downloads"`
	RecentDownloads int64 `json:"recent_downloads"`
}

// DownloadsResponse is the downloads endpoint payload. crates.io reports
// roughly the last year of per-day figures.
type DownloadsResponse struct {
	VersionDownloads []VersionDownload `json:"version_downloads"`
	Meta             DownloadsMeta     `json:"meta"`
}

// VersionDownload is one day of downloads attributed to one version.
// Version is the numeric crates.io version ID, not a semver string.
type VersionDownload struct {
	Version   int64  `json:"version"`
	Downloads int64  `json:"downloads"`
	Date      string `json:"date"`
}

// DownloadsMeta holds the extra downloads not attributed to any tracked
// version.
type DownloadsMeta struct {
	ExtraDownloads []ExtraDownload `json:"extra_downloads"`
}

// ExtraDownload is one day of downloads for the untracked-versions bucket.
type ExtraDownload struct {
	Date      string `json:"date"`
	Downloads int64  `json:"downloads"`
}
