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

// Package config provides configuration management for prsweep with support
// for multiple configuration sources and a well-defined precedence order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables (including those loaded from a .env file)
//  3. YAML configuration file
//  4. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .prsweep.yaml (current directory)
//   - .prsweep.yml (current directory)
//   - ~/.prsweep/config.yaml
//
// A .env file in the current directory is loaded first, so token and
// override variables can live next to the checkout. Environment variables
// are applied after the config file, allowing runtime overrides.
//
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		defaultPaths := []string{
			".prsweep.yaml",
			".prsweep.yml",
			filepath.Join(os.Getenv("HOME"), ".prsweep", "config.yaml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Token resolves the bearer token from the configured environment variable.
// The empty string means no token is available.
func (c *Config) Token() string {
	return os.Getenv(c.GitHub.TokenEnv)
}

// loadConfigFile reads and parses a YAML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if endpoint := os.Getenv("GITHUB_GRAPHQL_ENDPOINT"); endpoint != "" {
		cfg.GitHub.GraphQLEndpoint = endpoint
	}

	if owner := os.Getenv("PRSWEEP_OWNER"); owner != "" {
		cfg.Scan.Owner = owner
	}
	if repo := os.Getenv("PRSWEEP_REPO"); repo != "" {
		cfg.Scan.Repo = repo
	}
	if start := os.Getenv("PRSWEEP_START_DATE"); start != "" {
		cfg.Scan.StartDate = start
	}
	if pageSize := os.Getenv("PRSWEEP_PAGE_SIZE"); pageSize != "" {
		if size, err := strconv.Atoi(pageSize); err == nil && size > 0 {
			cfg.Scan.PageSize = size
		}
	}

	if path := os.Getenv("PRSWEEP_OUTPUT"); path != "" {
		cfg.Output.CSVPath = path
	}
	if dir := os.Getenv("PRSWEEP_DIAGNOSTICS_DIR"); dir != "" {
		cfg.Output.DiagnosticsDir = dir
	}
}
