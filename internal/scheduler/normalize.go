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

package scheduler

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// prNode is the wire shape of one pull request search node.
type prNode struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	MergedAt  string `json:"mergedAt"`
	Author    *struct {
		Typename string `json:"__typename"`
	} `json:"author"`
	BaseRefName string `json:"baseRefName"`
	Comments    struct {
		TotalCount int `json:"totalCount"`
	} `json:"comments"`
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// Normalize flattens one raw search node into a Record. It is a pure
// function of its input: missing author becomes the sentinel "null",
// missing counts become 0, timestamps pass through untouched. Nodes that
// are not JSON objects, or whose fields have the wrong types, are rejected
// so the caller can persist and skip them individually.
func Normalize(raw json.RawMessage) (Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Record{}, fmt.Errorf("node is not a JSON object: %s", truncateNode(trimmed))
	}

	var node prNode
	if err := json.Unmarshal(trimmed, &node); err != nil {
		return Record{}, fmt.Errorf("malformed node: %w", err)
	}

	authorKind := "null"
	if node.Author != nil && node.Author.Typename != "" {
		authorKind = node.Author.Typename
	}

	return Record{
		Number:     node.Number,
		Title:      node.Title,
		CreatedAt:  node.CreatedAt,
		MergedAt:   node.MergedAt,
		AuthorKind: authorKind,
		BaseBranch: node.BaseRefName,
		Comments:   node.Comments.TotalCount,
		Additions:  node.Additions,
		Deletions:  node.Deletions,
	}, nil
}

func truncateNode(b []byte) string {
	const limit = 80
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
