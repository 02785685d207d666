package cratesio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://crates.io/api/v1"

// crates.io crawler policy requires a user agent with contact information.
const userAgent = "nextest-download-stats-collector (contact: opensource@nexte.st)"

// Client handles crates.io API requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new crates.io client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
	}
}

// Downloads fetches the per-day download statistics for a crate.
func (c *Client) Downloads(ctx context.Context, crateName string) (*DownloadsResponse, error) {
	u := fmt.Sprintf("%s/crates/%s/downloads", c.baseURL, crateName)

	var downloads DownloadsResponse
	if err := c.getJSON(ctx, u, &downloads); err != nil {
		return nil, fmt.Errorf("fetch downloads for crate %q: %w", crateName, err)
	}
	return &downloads, nil
}

// Metadata fetches the cumulative download totals for a crate.
func (c *Client) Metadata(ctx context.Context, crateName string) (*CrateInfo, error) {
	u := fmt.Sprintf("%s/crates/%s", c.baseURL, crateName)

	var resp CrateResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch metadata for crate %q: %w", crateName, err)
	}
	return &resp.Crate, nil
}

func (c *Client) getJSON(ctx context.Context, u string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
