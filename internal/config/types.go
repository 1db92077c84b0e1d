// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config types define the configuration structures used throughout
// prsweep. These types represent settings that can be loaded from YAML
// configuration files, .env files, environment variables, or command-line
// flags.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete configuration for prsweep. It consolidates
// settings from various sources and provides a unified interface for
// accessing configuration values throughout the application.
type Config struct {
	GitHub    GitHubConfig    `yaml:"github"`
	Scan      ScanConfig      `yaml:"scan"`
	Output    OutputConfig    `yaml:"output"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// GitHubConfig contains GitHub-specific settings including the GraphQL
// endpoint and the name of the environment variable carrying the bearer
// token. Custom endpoints support GitHub Enterprise deployments.
type GitHubConfig struct {
	GraphQLEndpoint string `yaml:"graphql_endpoint"`
	TokenEnv        string `yaml:"token_env"`
}

// ScanConfig fixes the scope of a scan: which repository, the inclusive
// start of the overall creation-date range, and the page size used while
// paginating safe windows.
type ScanConfig struct {
	Owner     string `yaml:"owner"`
	Repo      string `yaml:"repo"`
	StartDate string `yaml:"start_date"`
	PageSize  int    `yaml:"page_size"`
}

// OutputConfig controls where results and diagnostics land.
type OutputConfig struct {
	CSVPath        string `yaml:"csv_path"`
	DiagnosticsDir string `yaml:"diagnostics_dir"`
}

// RateLimitConfig tunes how the executor reacts to quota exhaustion
// reported by the API.
type RateLimitConfig struct {
	// LowQuotaThreshold is the remaining-quota level below which a warning is logged.
	LowQuotaThreshold int `yaml:"low_quota_threshold"`
	// MaxWaits bounds rate-limit sleeps per call.
	MaxWaits int `yaml:"max_waits"`
}

// DefaultConfig returns a Config with sensible defaults suitable for most
// use cases. The default scan target mirrors the tool's original use case;
// any repository can be configured.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			GraphQLEndpoint: "https://api.github.com/graphql",
			TokenEnv:        "GITHUB_TOKEN",
		},
		Scan: ScanConfig{
			Owner:     "microsoft",
			Repo:      "vscode",
			StartDate: "2020-01-01T00:00:00Z",
			PageSize:  100,
		},
		Output: OutputConfig{
			CSVPath:        "prs.csv",
			DiagnosticsDir: ".",
		},
		RateLimit: RateLimitConfig{
			LowQuotaThreshold: 100,
			MaxWaits:          3,
		},
	}
}

// StartTime parses the configured scan start date. Both full RFC3339
// timestamps and bare dates are accepted.
func (c *Config) StartTime() (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, c.Scan.StartDate); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", c.Scan.StartDate); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid start date %q: expected RFC3339 or YYYY-MM-DD", c.Scan.StartDate)
}

// Validate checks if the configuration contains valid values. This should
// be called after loading configuration to catch invalid settings early,
// before any request is made.
func (c *Config) Validate() error {
	if c.Scan.Owner == "" || c.Scan.Repo == "" {
		return fmt.Errorf("scan owner and repo must be set")
	}
	if c.Scan.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got: %d", c.Scan.PageSize)
	}
	if c.Scan.PageSize > 100 {
		return fmt.Errorf("page size %d exceeds GitHub API limit of 100", c.Scan.PageSize)
	}
	if _, err := c.StartTime(); err != nil {
		return err
	}
	if c.GitHub.GraphQLEndpoint == "" {
		return fmt.Errorf("GitHub GraphQL endpoint cannot be empty")
	}
	if c.Output.CSVPath == "" {
		return fmt.Errorf("output csv path cannot be empty")
	}
	return nil
}
