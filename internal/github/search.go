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
	"fmt"

	"github.com/sirseerhq/prsweep/internal/window"
)

// searchQuery is the one GraphQL document every search call uses. It asks
// for the authoritative match count, quota telemetry, cursor state, and one
// page of PR nodes with the nine exported fields.
const searchQuery = `query($searchQuery: String!, $first: Int!, $after: String) {
  rateLimit {
    limit
    cost
    remaining
    resetAt
  }
  search(query: $searchQuery, type: ISSUE, first: $first, after: $after) {
    issueCount
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      ... on PullRequest {
        number
        title
        createdAt
        mergedAt
        author {
          __typename
        }
        baseRefName
        comments {
          totalCount
        }
        additions
        deletions
      }
    }
  }
}`

// BuildSearchQuery constructs the search query string scoping PRs to one
// repository and one creation window.
func BuildSearchQuery(owner, repo string, w window.Window) string {
	return fmt.Sprintf("repo:%s/%s is:pr created:%s", owner, repo, w)
}

// searchVariables maps a SearchRequest onto the query's variables. A nil
// after cursor fetches the first page.
func searchVariables(req SearchRequest) map[string]interface{} {
	variables := map[string]interface{}{
		"searchQuery": req.Query,
		"first":       req.First,
		"after":       nil,
	}
	if req.After != "" {
		variables["after"] = req.After
	}
	return variables
}
