// Package config loads the collection source list from a TOML file.
//
// Precedence (low -> high): built-in defaults, config file, environment
// variables under the DOWNLOAD_STATS_ prefix.
package config

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Source kinds understood by the collector.
const (
	KindGithub = "github"
	KindCrates = "crates"
)

// Source is one data source to collect from.
type Source struct {
	Kind string `koanf:"kind"`

	// GitHub sources.
	Owner string `koanf:"owner"`
	Repo  string `koanf:"repo"`
	// TagPrefix restricts collection to releases whose tag starts with the
	// prefix. Empty collects everything.
	TagPrefix string `koanf:"tag_prefix"`

	// crates.io sources.
	Name string `koanf:"name"`
}

// Config is the collector configuration.
type Config struct {
	// GithubToken authenticates GitHub API requests. The GITHUB_TOKEN
	// environment variable, when set, takes precedence.
	GithubToken string `koanf:"github_token"`

	Sources []Source `koanf:"source"`
}

// Default returns the built-in source list, used when no config file
// exists.
func Default() *Config {
	return &Config{
		Sources: []Source{
			{Kind: KindGithub, Owner: "nextest-rs", Repo: "nextest", TagPrefix: "cargo-nextest-"},
			{Kind: KindCrates, Name: "cargo-nextest"},
		},
	}
}

// Load reads configuration from the given TOML file. A missing file falls
// back to Default. DOWNLOAD_STATS_* environment variables override file
// values either way.
func Load(path string) (*Config, error) {
	fileExists := true
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fileExists = false
	} else if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	k := koanf.New(".")
	if fileExists {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Environment variables: DOWNLOAD_STATS_GITHUB_TOKEN maps to the
	// top-level github_token key.
	envProvider := env.Provider("DOWNLOAD_STATS_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DOWNLOAD_STATS_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if !fileExists {
		cfg.Sources = Default().Sources
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every source for a known kind and its required fields.
func (c *Config) Validate() error {
	for i, s := range c.Sources {
		switch s.Kind {
		case KindGithub:
			if s.Owner == "" || s.Repo == "" {
				return fmt.Errorf("source %d: github sources require owner and repo", i)
			}
		case KindCrates:
			if s.Name == "" {
				return fmt.Errorf("source %d: crates sources require name", i)
			}
		default:
			return fmt.Errorf("source %d: unknown kind %q", i, s.Kind)
		}
	}
	return nil
}

// GithubSources returns the GitHub sources in declaration order.
func (c *Config) GithubSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Kind == KindGithub {
			out = append(out, s)
		}
	}
	return out
}

// CrateSources returns the crates.io sources in declaration order.
func (c *Config) CrateSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Kind == KindCrates {
			out = append(out, s)
		}
	}
	return out
}
