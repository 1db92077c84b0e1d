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

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirseerhq/prsweep/internal/config"
	sweeperrors "github.com/sirseerhq/prsweep/internal/errors"
	"github.com/sirseerhq/prsweep/internal/github"
	"github.com/spf13/cobra"
)

// newCheckCommand builds the check command: a connectivity and credential
// smoke test that issues no search queries.
func newCheckCommand() *cobra.Command {
	var (
		configPath string
		token      string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify token and repository access",
		Long: `Verify that the configured token authenticates and that the configured
repository is reachable, without issuing any search queries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			return runCheck(ctx, configPath, token)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: standard locations)")
	cmd.Flags().StringVar(&token, "token", "", "GitHub personal access token (overrides the token env var)")

	return cmd
}

func runCheck(ctx context.Context, configPath, tokenFlag string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	token := tokenFlag
	if token == "" {
		token = cfg.Token()
	}
	if token == "" {
		return fmt.Errorf("no GitHub token. Set %s or use --token flag: %w",
			cfg.GitHub.TokenEnv, sweeperrors.ErrMissingToken)
	}

	client := github.NewPreflightClient(token, cfg.GitHub.GraphQLEndpoint)

	login, err := client.Viewer(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Authenticated as %s\n", login)

	info, err := client.RepositoryInfo(ctx, cfg.Scan.Owner, cfg.Scan.Repo)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s/%s is accessible (%d pull requests)\n",
		cfg.Scan.Owner, cfg.Scan.Repo, info.TotalPullRequests)

	return nil
}
