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
	"context"

	"github.com/sirseerhq/prsweep/internal/github"
)

// SearchClient is the safety-wrapped search contract the scheduler drives.
// A returned error satisfying errors.Is(err, ErrInvalidResponse) means the
// call was abandoned after the outer retry and its payload persisted; the
// scheduler skips the window and keeps going.
type SearchClient interface {
	Search(ctx context.Context, req github.SearchRequest) (*github.Response, error)
}

// DiagnosticSink persists malformed record nodes for offline inspection.
type DiagnosticSink interface {
	Persist(payload []byte) (string, error)
}

// Record is the flattened nine-field row written to the sink for each
// well-formed pull request node. Timestamps stay in the API's string form;
// a missing mergedAt is an empty string, a missing author is the literal
// "null".
type Record struct {
	Number     int
	Title      string
	CreatedAt  string
	MergedAt   string
	AuthorKind string
	BaseBranch string
	Comments   int
	Additions  int
	Deletions  int
}

// RecordWriter is the output sink. Writes are streamed as pages are
// processed, never buffered to the end of the run.
type RecordWriter interface {
	Write(rec Record) error
}

// Totals accumulates the run-wide counters. A Totals value is threaded
// through one Run and returned to the caller; the scheduler holds no
// global mutable state.
type Totals struct {
	// RecordsWritten counts rows successfully handed to the sink.
	RecordsWritten int
	// WindowsDone counts windows paginated to completion.
	WindowsDone int
	// WindowsSplit counts windows bisected because they hit the result cap.
	WindowsSplit int
	// WindowsSkipped counts windows abandoned after invalid responses.
	WindowsSkipped int
	// WindowsDropped counts degenerate windows (start >= end) discarded unprocessed.
	WindowsDropped int
	// NodesSkipped counts malformed or unwritable nodes persisted and skipped.
	NodesSkipped int
	// APICalls counts search calls issued, including count-only checks.
	APICalls int
}

// Outcome describes how the scheduler resolved one window.
type Outcome int

const (
	// OutcomeDone: the window was paginated to completion.
	OutcomeDone Outcome = iota
	// OutcomeSplit: the window hit the result cap and was bisected; its
	// halves re-entered the queue.
	OutcomeSplit
	// OutcomeSkipped: the window was abandoned after an invalid response.
	// Partial data already written is kept; the window is not retried.
	OutcomeSkipped
)
