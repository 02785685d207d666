package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectRejectsNegativeCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Release{
			{
				TagName: "cargo-nextest-0.9.52",
				Assets:  []Asset{{Name: "asset.tar.gz", DownloadCount: -5}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("")
	client.baseURL = srv.URL

	// Validation fails before any write, so no database is needed.
	fetcher := NewFetcher(client, nil)

	today := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	_, err := fetcher.Collect(context.Background(), today, "nextest-rs", "nextest", "")
	if err == nil {
		t.Fatalf("expected error for negative download count")
	}
	if !strings.Contains(err.Error(), "non-negative") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
