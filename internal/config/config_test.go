package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesSources(t *testing.T) {
	path := writeConfig(t, `
[[source]]
kind = "github"
owner = "nextest-rs"
repo = "nextest"
tag_prefix = "cargo-nextest-"

[[source]]
kind = "crates"
name = "cargo-nextest"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	github := cfg.GithubSources()
	if len(github) != 1 {
		t.Fatalf("expected 1 github source, got %d", len(github))
	}
	if github[0].Owner != "nextest-rs" || github[0].Repo != "nextest" {
		t.Fatalf("unexpected github source: %+v", github[0])
	}
	if github[0].TagPrefix != "cargo-nextest-" {
		t.Fatalf("unexpected tag prefix: %q", github[0].TagPrefix)
	}

	crates := cfg.CrateSources()
	if len(crates) != 1 || crates[0].Name != "cargo-nextest" {
		t.Fatalf("unexpected crates sources: %+v", crates)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.GithubSources()) != 1 || len(cfg.CrateSources()) != 1 {
		t.Fatalf("expected default sources, got %+v", cfg.Sources)
	}
}

func TestLoadReadsGithubTokenFromFile(t *testing.T) {
	path := writeConfig(t, `
github_token = "from-file"

[[source]]
kind = "crates"
name = "cargo-nextest"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GithubToken != "from-file" {
		t.Fatalf("expected token from file, got %q", cfg.GithubToken)
	}
}

func TestLoadEnvOverridesGithubToken(t *testing.T) {
	path := writeConfig(t, `
github_token = "from-file"

[[source]]
kind = "crates"
name = "cargo-nextest"
`)
	t.Setenv("DOWNLOAD_STATS_GITHUB_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GithubToken != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.GithubToken)
	}

	// The override applies even without a config file.
	cfg, err = Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GithubToken != "from-env" {
		t.Fatalf("expected env override without file, got %q", cfg.GithubToken)
	}
	if len(cfg.Sources) == 0 {
		t.Fatalf("expected default sources alongside the override")
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	path := writeConfig(t, `
[[source]]
kind = "npm"
name = "whatever"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown source kind")
	}
}

func TestLoadRejectsIncompleteGithubSource(t *testing.T) {
	path := writeConfig(t, `
[[source]]
kind = "github"
owner = "nextest-rs"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for github source without repo")
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	path := writeConfig(t, `[[source`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed toml")
	}
}
