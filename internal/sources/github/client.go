package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.github.com"

const userAgent = "nextest-download-stats-collector"

// perPage is the GitHub maximum; fewer pages means fewer requests against
// the rate limit.
const perPage = 100

// Client handles GitHub API requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a new GitHub client. token may be empty for anonymous
// access, at a much lower rate limit.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// ListReleases fetches ALL releases for a repository, following pagination.
// Old releases keep accumulating downloads, so every page matters, not just
// the recent ones.
func (c *Client) ListReleases(ctx context.Context, owner, repo string) ([]Release, error) {
	var all []Release

	for page := 1; ; page++ {
		releases, err := c.listReleasesPage(ctx, owner, repo, page)
		if err != nil {
			return nil, fmt.Errorf("fetch releases page %d: %w", page, err)
		}

		all = append(all, releases...)
		if len(releases) < perPage {
			return all, nil
		}
	}
}

func (c *Client) listReleasesPage(ctx context.Context, owner, repo string, page int) ([]Release, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d&page=%d",
		c.baseURL, owner, repo, perPage, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return releases, nil
}
