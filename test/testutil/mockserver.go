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

// Package testutil provides common test helpers for prsweep.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// WindowFixture scripts everything the mock API serves for one search query
// string: the authoritative match count and the pages handed out in order.
type WindowFixture struct {
	Count int
	Pages [][]json.RawMessage

	served int
}

// GraphQLServer is a scripted stand-in for the GitHub GraphQL search
// endpoint. It dispatches on the searchQuery variable and distinguishes
// count probes from page requests by their page size.
type GraphQLServer struct {
	*httptest.Server

	mu       sync.Mutex
	fixtures map[string]*WindowFixture
	requests int
}

// NewGraphQLServer starts a mock endpoint. The server shuts down with the
// test.
func NewGraphQLServer(t *testing.T) *GraphQLServer {
	t.Helper()
	s := &GraphQLServer{fixtures: make(map[string]*WindowFixture)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Script registers the fixture served for one search query string.
func (s *GraphQLServer) Script(query string, fixture *WindowFixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures[query] = fixture
}

// Requests returns the total number of requests served.
func (s *GraphQLServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *GraphQLServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	var req struct {
		Variables struct {
			SearchQuery string `json:"searchQuery"`
			First       int    `json:"first"`
			After       string `json:"after"`
		} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	fixture, ok := s.fixtures[req.Variables.SearchQuery]
	if !ok {
		writeGraphQLErrors(w, fmt.Sprintf("unscripted query: %s", req.Variables.SearchQuery))
		return
	}

	if req.Variables.First == 1 {
		writeSearchPage(w, fixture.Count, nil, false, "")
		return
	}

	if fixture.served >= len(fixture.Pages) {
		writeSearchPage(w, fixture.Count, nil, false, "")
		return
	}
	nodes := fixture.Pages[fixture.served]
	fixture.served++

	hasNext := fixture.served < len(fixture.Pages)
	cursor := ""
	if hasNext {
		cursor = fmt.Sprintf("cursor-%d", fixture.served)
	}
	writeSearchPage(w, fixture.Count, nodes, hasNext, cursor)
}

func writeSearchPage(w http.ResponseWriter, count int, nodes []json.RawMessage, hasNext bool, cursor string) {
	if nodes == nil {
		nodes = []json.RawMessage{}
	}
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"rateLimit": map[string]interface{}{
				"limit":     5000,
				"cost":      1,
				"remaining": 4800,
				"resetAt":   "2024-06-01T00:00:00Z",
			},
			"search": map[string]interface{}{
				"issueCount": count,
				"pageInfo": map[string]interface{}{
					"hasNextPage": hasNext,
					"endCursor":   cursor,
				},
				"nodes": nodes,
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeGraphQLErrors(w http.ResponseWriter, msgs ...string) {
	errs := make([]map[string]string, 0, len(msgs))
	for _, m := range msgs {
		errs = append(errs, map[string]string{"message": m})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"errors": errs})
}

// PRNode builds one well-formed pull request node.
func PRNode(number int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"number": %d, "title": "PR %d", "createdAt": "2020-01-01T01:00:00Z", "mergedAt": "2020-01-02T00:00:00Z", "author": {"__typename": "User"}, "baseRefName": "main", "comments": {"totalCount": 2}, "additions": 10, "deletions": 3}`,
		number, number))
}

// PRNodes builds n consecutive well-formed nodes starting at from.
func PRNodes(from, n int) []json.RawMessage {
	nodes := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, PRNode(from+i))
	}
	return nodes
}
