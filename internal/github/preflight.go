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

package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/graphql"
	sweeperrors "github.com/sirseerhq/prsweep/internal/errors"
	"github.com/sirseerhq/prsweep/internal/gherror"
)

// RepositoryInfo contains basic repository metadata. Used to display the
// repository's true PR total before a scan starts.
type RepositoryInfo struct {
	TotalPullRequests int
}

// PreflightClient runs the small typed queries issued before a scan:
// token validation and repository metadata. These queries have a fixed
// shape, so they go through a typed GraphQL client rather than the raw
// executor.
type PreflightClient struct {
	client    *graphql.Client
	inspector gherror.Inspector
}

// NewPreflightClient creates a preflight client for the given endpoint.
func NewPreflightClient(token, endpoint string) *PreflightClient {
	return &PreflightClient{
		client:    graphql.NewClient(endpoint, newHTTPClient(token)),
		inspector: gherror.NewInspector(),
	}
}

// Viewer returns the login of the authenticated user. A clean way to prove
// the token works before issuing any search.
func (c *PreflightClient) Viewer(ctx context.Context) (string, error) {
	var query struct {
		Viewer struct {
			Login graphql.String
		}
	}

	if err := c.client.Query(ctx, &query, nil); err != nil {
		return "", c.mapError(err, "", "")
	}

	return string(query.Viewer.Login), nil
}

// RepositoryInfo retrieves the total pull request count for a repository.
func (c *PreflightClient) RepositoryInfo(ctx context.Context, owner, repo string) (*RepositoryInfo, error) {
	var query struct {
		Repository struct {
			PullRequests struct {
				TotalCount graphql.Int
			} `graphql:"pullRequests"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]interface{}{
		"owner": graphql.String(owner),
		"repo":  graphql.String(repo),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		return nil, c.mapError(err, owner, repo)
	}

	return &RepositoryInfo{
		TotalPullRequests: int(query.Repository.PullRequests.TotalCount),
	}, nil
}

// mapError maps GraphQL errors to our domain errors with actionable messages
func (c *PreflightClient) mapError(err error, owner, repo string) error {
	if err == nil {
		return nil
	}

	if c.inspector.IsAuthError(err) {
		return fmt.Errorf("GitHub API authentication failed. Please provide a valid token via --token flag or the configured token environment variable: %w", sweeperrors.ErrInvalidToken)
	}

	if owner != "" && c.inspector.IsNotFoundError(err) {
		return fmt.Errorf("repository '%s/%s' not found. Please check the repository name and your access permissions: %w", owner, repo, sweeperrors.ErrRepoNotFound)
	}

	if c.inspector.IsNetworkError(err) {
		return fmt.Errorf("network error connecting to GitHub API. Please check your internet connection and try again: %w", sweeperrors.ErrNetworkFailure)
	}

	return fmt.Errorf("preflight query failed: %w", err)
}
