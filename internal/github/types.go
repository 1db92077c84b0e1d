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

// Package github provides the query executor used to run capped search
// queries against the GitHub GraphQL API: a raw transport with bounded
// retries and rate-limit aware sleeps, plus an outer safety wrapper that
// degrades invalid responses into skippable failures instead of crashes.
package github

import (
	"encoding/json"
	"time"
)

// Response is one parsed GraphQL response body. Application-level errors
// are carried alongside data and are not filtered here; the caller inspects
// them. The raw body is retained so uninterpretable payloads can be
// persisted verbatim for offline inspection.
type Response struct {
	Data   *ResponseData `json:"data"`
	Errors []QueryError  `json:"errors"`

	raw []byte
}

// Raw returns the undecoded response body.
func (r *Response) Raw() []byte {
	if r == nil {
		return nil
	}
	return r.raw
}

// WellFormed reports whether the body could be interpreted as a GraphQL
// response at all. A 200 with a body that decodes to neither data nor
// errors is the signature of a proxy error page or truncated payload.
func (r *Response) WellFormed() bool {
	return r != nil && (r.Data != nil || len(r.Errors) > 0)
}

// ResponseData is the data envelope of a search response.
type ResponseData struct {
	RateLimit *RateLimit `json:"rateLimit"`
	Search    *Search    `json:"search"`
}

// RateLimit carries the quota telemetry returned with every query.
type RateLimit struct {
	Limit     int    `json:"limit"`
	Cost      int    `json:"cost"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"resetAt"`
}

// ResetTime parses the reported reset timestamp. The second return value is
// false when no usable timestamp was reported.
func (r *RateLimit) ResetTime() (time.Time, bool) {
	if r == nil || r.ResetAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, r.ResetAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Search is one page of a paginated search query. Nodes are kept as raw
// JSON so a single malformed node can be skipped and persisted without
// discarding the rest of the page.
type Search struct {
	IssueCount int               `json:"issueCount"`
	PageInfo   PageInfo          `json:"pageInfo"`
	Nodes      []json.RawMessage `json:"nodes"`
}

// PageInfo carries cursor pagination state.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// QueryError is one application-level error reported in the response body.
type QueryError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SearchRequest describes one page request against the search API.
type SearchRequest struct {
	// Query is the search query string, e.g.
	// "repo:owner/name is:pr created:2020-01-01T00:00:00Z..2020-06-01T00:00:00Z".
	Query string

	// First is the page size. Capped at 100 by the API.
	First int

	// After is the opaque pagination cursor. Empty fetches the first page.
	After string
}
