package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/nextest-rs/download-stats/internal/models"
	"github.com/nextest-rs/download-stats/internal/repositories"
)

// Fetcher orchestrates GitHub release snapshot collection.
type Fetcher struct {
	client *Client
	db     *bun.DB
}

// NewFetcher creates a new GitHub fetcher.
func NewFetcher(client *Client, db *bun.DB) *Fetcher {
	return &Fetcher{client: client, db: db}
}

// Result summarizes one collection run against one repository.
type Result struct {
	Releases       int
	Assets         int
	TotalDownloads int64
}

// Collect snapshots the cumulative download counter of every release asset
// under today's date. tagPrefix, when non-empty, restricts collection to
// releases whose tag carries that prefix.
func (f *Fetcher) Collect(ctx context.Context, today time.Time, owner, repo, tagPrefix string) (Result, error) {
	releases, err := f.client.ListReleases(ctx, owner, repo)
	if err != nil {
		return Result{}, fmt.Errorf("fetch GitHub releases for %s/%s: %w", owner, repo, err)
	}

	slog.Info("fetched GitHub releases", "owner", owner, "repo", repo, "releases", len(releases))

	date := today.Format(models.DateFormat)
	var snaps []*models.GithubSnapshot
	res := Result{}

	for _, release := range releases {
		if tagPrefix != "" && !strings.HasPrefix(release.TagName, tagPrefix) {
			continue
		}
		res.Releases++

		for _, asset := range release.Assets {
			snap := &models.GithubSnapshot{
				Date:          date,
				ReleaseTag:    release.TagName,
				AssetName:     asset.Name,
				DownloadCount: asset.DownloadCount,
			}
			if err := snap.Validate(); err != nil {
				return Result{}, fmt.Errorf("invalid snapshot for release %q asset %q: %w",
					release.TagName, asset.Name, err)
			}
			snaps = append(snaps, snap)
			res.Assets++
			res.TotalDownloads += asset.DownloadCount
		}
	}

	if err := repositories.UpsertGithubSnapshots(ctx, f.db, snaps); err != nil {
		return Result{}, fmt.Errorf("store GitHub snapshots for %s/%s: %w", owner, repo, err)
	}

	return res, nil
}
