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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirseerhq/prsweep/internal/config"
	"github.com/sirseerhq/prsweep/internal/diagnostics"
	sweeperrors "github.com/sirseerhq/prsweep/internal/errors"
	"github.com/sirseerhq/prsweep/internal/github"
	"github.com/sirseerhq/prsweep/internal/metadata"
	"github.com/sirseerhq/prsweep/internal/output"
	"github.com/sirseerhq/prsweep/internal/scheduler"
	"github.com/sirseerhq/prsweep/internal/window"
	"github.com/spf13/cobra"
)

// newExportCommand builds the export command, the tool's main operation.
func newExportCommand() *cobra.Command {
	var (
		configPath string
		token      string
		repoArg    string
		since      string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export pull request metadata to CSV",
		Long: `Export pull request metadata from a GitHub repository into a CSV file.

The scan covers PRs created between the configured start date and now. The
repository, start date, and output path come from the config file and can
be overridden with flags.

Authentication is required via GitHub token:
  - Use --token flag to provide token directly
  - Or set GITHUB_TOKEN (or the configured token env var)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runExport(ctx, configPath, token, repoArg, since, outputFile)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: standard locations)")
	cmd.Flags().StringVar(&token, "token", "", "GitHub personal access token (overrides the token env var)")
	cmd.Flags().StringVar(&repoArg, "repo", "", "Repository to scan as <org>/<repo> (overrides config)")
	cmd.Flags().StringVar(&since, "since", "", "Inclusive scan start date, RFC3339 or YYYY-MM-DD (overrides config)")
	cmd.Flags().StringVar(&outputFile, "output", "", "Output CSV path (overrides config)")

	return cmd
}

// runExport executes the export command
func runExport(ctx context.Context, configPath, tokenFlag, repoArg, since, outputFile string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// Flag overrides beat both file and environment.
	if repoArg != "" {
		owner, repo, err := parseRepository(repoArg)
		if err != nil {
			return err
		}
		cfg.Scan.Owner = owner
		cfg.Scan.Repo = repo
	}
	if since != "" {
		cfg.Scan.StartDate = since
	}
	if outputFile != "" {
		cfg.Output.CSVPath = outputFile
	}

	if err := cfg.Validate(); err != nil {
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

	startDate, err := cfg.StartTime()
	if err != nil {
		return err
	}
	seed := window.Window{Start: startDate, End: time.Now().UTC()}

	// Preflight: proves the token and repository before the scan starts,
	// and gives the banner a true total.
	preflight := github.NewPreflightClient(token, cfg.GitHub.GraphQLEndpoint)
	info, err := preflight.RepositoryInfo(ctx, cfg.Scan.Owner, cfg.Scan.Repo)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Scanning %s/%s (%d PRs total) from %s\n",
		cfg.Scan.Owner, cfg.Scan.Repo, info.TotalPullRequests, seed)

	diag, err := diagnostics.NewSink(cfg.Output.DiagnosticsDir)
	if err != nil {
		return err
	}

	writer, err := output.NewFileCSVWriter(cfg.Output.CSVPath)
	if err != nil {
		return err
	}
	defer writer.Close()

	execConfig := github.DefaultExecutorConfig()
	execConfig.LowQuotaThreshold = cfg.RateLimit.LowQuotaThreshold
	if cfg.RateLimit.MaxWaits > 0 {
		execConfig.MaxRateLimitWaits = cfg.RateLimit.MaxWaits
	}

	executor := github.NewExecutor(token, cfg.GitHub.GraphQLEndpoint, execConfig)
	client := github.NewSafeClient(executor, diag)

	sched := scheduler.New(client, writer, diag, scheduler.Config{
		Owner:    cfg.Scan.Owner,
		Repo:     cfg.Scan.Repo,
		PageSize: cfg.Scan.PageSize,
	})

	tracker := metadata.NewTracker(metadata.RunParams{
		Organization: cfg.Scan.Owner,
		Repository:   cfg.Scan.Repo,
		WindowStart:  seed.Start,
		WindowEnd:    seed.End,
		PageSize:     cfg.Scan.PageSize,
		OutputPath:   cfg.Output.CSVPath,
	})

	totals, runErr := sched.Run(ctx, seed)
	interrupted := errors.Is(runErr, context.Canceled)

	if err := writer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "[error] closing output file: %v\n", err)
	}

	tracker.Complete(metadata.RunResults{
		RecordsWritten:  totals.RecordsWritten,
		WindowsDone:     totals.WindowsDone,
		WindowsSplit:    totals.WindowsSplit,
		WindowsSkipped:  totals.WindowsSkipped,
		WindowsDropped:  totals.WindowsDropped,
		NodesSkipped:    totals.NodesSkipped,
		APICalls:        totals.APICalls,
		DiagnosticFiles: diag.Count(),
	}, interrupted)

	metaPath := cfg.Output.CSVPath + ".meta.json"
	if err := tracker.Write(metaPath); err != nil {
		fmt.Fprintf(os.Stderr, "[error] writing run metadata: %v\n", err)
	}

	if runErr != nil && !interrupted {
		fmt.Fprintf(os.Stderr, "[summary] wrote %d records to %s before failing\n",
			totals.RecordsWritten, cfg.Output.CSVPath)
		return runErr
	}

	if interrupted {
		fmt.Fprintf(os.Stderr, "\n[interrupted] exiting gracefully...\n")
	}
	fmt.Fprintf(os.Stderr, "[summary] wrote %d records to %s (run %s)\n",
		totals.RecordsWritten, cfg.Output.CSVPath, tracker.RunID())
	return nil
}

// parseRepository parses an org/repo string into owner and repo components
func parseRepository(repoArg string) (owner, repo string, err error) {
	parts := strings.Split(repoArg, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository format. Expected: <org>/<repo>, got: %s", repoArg)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository format. Expected: <org>/<repo>, got: %s", repoArg)
	}

	return owner, repo, nil
}

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, sweeperrors.ErrMissingToken) ||
		errors.Is(err, sweeperrors.ErrInvalidToken) ||
		errors.Is(err, sweeperrors.ErrRepoNotFound) ||
		errors.Is(err, sweeperrors.ErrRateLimit) {
		return 2 // Authentication/authorization errors
	}

	if errors.Is(err, sweeperrors.ErrNetworkFailure) {
		return 3 // Network errors
	}

	return 1 // General error
}
