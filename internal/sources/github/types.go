package github

// Release is a GitHub release as returned by the releases API.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable release artifact. DownloadCount is cumulative
// over the asset's lifetime; the API never exposes per-day figures.
type Asset struct {
	Name          string `json:"name"`
	DownloadCount int64  `json:"download_count"`
}
