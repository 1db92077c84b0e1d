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

// Package scheduler implements the range scheduler: it drains a FIFO queue
// of time windows, obtains an authoritative match count per window, bisects
// windows that hit the search API's 1000-result cap, and paginates safe
// windows to completion while streaming normalized records to the sink.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	sweeperrors "github.com/sirseerhq/prsweep/internal/errors"
	"github.com/sirseerhq/prsweep/internal/github"
	"github.com/sirseerhq/prsweep/internal/window"
)

const (
	// resultCap is the hard maximum number of results the search API will
	// enumerate for a single query, regardless of the true match count.
	resultCap = 1000

	// minSplitWindow is the smallest window worth bisecting. The API's
	// count is an estimate that can be wrong for tiny windows; a window at
	// or under this span that still reports a capped count is paginated
	// as-is, accepting possible residual miscounting.
	minSplitWindow = time.Second

	// countProbeSize is the page size for count-only queries. Only the
	// issueCount field of the response is consumed.
	countProbeSize = 1
)

// Config carries the fixed parameters of one scan.
type Config struct {
	Owner    string
	Repo     string
	PageSize int
}

// Scheduler resolves one window at a time, strictly sequentially. The only
// shared mutable resources, the sink and the totals, are owned exclusively
// by the scheduler for the duration of a Run.
type Scheduler struct {
	client SearchClient
	writer RecordWriter
	diag   DiagnosticSink
	cfg    Config
}

// New creates a scheduler for one scan.
func New(client SearchClient, writer RecordWriter, diag DiagnosticSink, cfg Config) *Scheduler {
	return &Scheduler{
		client: client,
		writer: writer,
		diag:   diag,
		cfg:    cfg,
	}
}

// Run drains windows from the seed until the queue is empty or the context
// is canceled. It returns the accumulated totals in both cases; on
// cancellation the error is the context's, so callers can report partial
// results and exit cleanly.
func (s *Scheduler) Run(ctx context.Context, seed window.Window) (Totals, error) {
	queue := window.NewQueue(seed)
	var totals Totals

	for {
		if err := ctx.Err(); err != nil {
			return totals, err
		}

		w, ok := queue.PopFront()
		if !ok {
			break
		}

		// Clock and timestamp edge cases can produce empty intervals.
		// Drop them unprocessed.
		if !w.Valid() {
			totals.WindowsDropped++
			continue
		}

		fmt.Fprintf(os.Stderr, "[range] processing %s\n", w)

		if _, err := s.processWindow(ctx, w, queue, &totals); err != nil {
			return totals, err
		}
	}

	return totals, nil
}

// processWindow takes one window through the counting decision: split it,
// paginate it, or skip it.
func (s *Scheduler) processWindow(ctx context.Context, w window.Window, queue *window.Queue, totals *Totals) (Outcome, error) {
	count, err := s.countWindow(ctx, w, totals)
	if err != nil {
		if github.IsInvalidResponse(err) {
			fmt.Fprintf(os.Stderr, "[warn] invalid response during count check for %s; skipping this range\n", w)
			totals.WindowsSkipped++
			return OutcomeSkipped, nil
		}
		return 0, err
	}

	fmt.Fprintf(os.Stderr, "[range] %d matching PRs in %s\n", count, w)

	if count >= resultCap {
		if w.Duration() > minSplitWindow {
			first, second := w.Split()
			// Later half first, then the earlier half, so the earlier half
			// is processed next and traversal stays oldest-first.
			queue.PushFront(second)
			queue.PushFront(first)
			totals.WindowsSplit++
			fmt.Fprintf(os.Stderr, "[split] too many results; splitting into %s and %s\n", first, second)
			return OutcomeSplit, nil
		}
		fmt.Fprintf(os.Stderr, "[warn] window %s is <=%s but reports %d results; paginating anyway\n",
			w, minSplitWindow, count)
	}

	return s.paginate(ctx, w, totals)
}

// countWindow issues a count-only probe for the window and returns the
// authoritative match count.
func (s *Scheduler) countWindow(ctx context.Context, w window.Window, totals *Totals) (int, error) {
	totals.APICalls++
	resp, err := s.client.Search(ctx, github.SearchRequest{
		Query: github.BuildSearchQuery(s.cfg.Owner, s.cfg.Repo, w),
		First: countProbeSize,
	})
	if err != nil {
		return 0, err
	}

	if err := rejectQueryErrors(resp); err != nil {
		return 0, err
	}

	if resp.Data == nil || resp.Data.Search == nil {
		return 0, nil
	}
	return resp.Data.Search.IssueCount, nil
}

// paginate streams every page of the window to the sink, advancing the
// cursor until the API reports no further results. An invalid response
// abandons only the remaining pages of this window; rows already written
// are kept.
func (s *Scheduler) paginate(ctx context.Context, w window.Window, totals *Totals) (Outcome, error) {
	query := github.BuildSearchQuery(s.cfg.Owner, s.cfg.Repo, w)

	cursor := ""
	page := 0
	written := 0

	for {
		page++
		totals.APICalls++

		resp, err := s.client.Search(ctx, github.SearchRequest{
			Query: query,
			First: s.cfg.PageSize,
			After: cursor,
		})
		if err != nil {
			if github.IsInvalidResponse(err) {
				fmt.Fprintf(os.Stderr, "[warn] invalid response on page %d of %s; skipping remaining pages (kept %d rows)\n",
					page, w, written)
				totals.WindowsSkipped++
				return OutcomeSkipped, nil
			}
			return 0, err
		}

		if err := rejectQueryErrors(resp); err != nil {
			return 0, err
		}

		search := resp.Data.Search
		if search == nil {
			break
		}

		s.logRateLimit(resp.Data.RateLimit)
		fmt.Fprintf(os.Stderr, "[page %d] fetched %d nodes for %s\n", page, len(search.Nodes), w)

		for _, raw := range search.Nodes {
			rec, err := Normalize(raw)
			if err != nil {
				s.persistNode(raw, fmt.Sprintf("skipping node: %v", err))
				totals.NodesSkipped++
				continue
			}
			if err := s.writer.Write(rec); err != nil {
				// A bad row must never abort the page.
				s.persistNode(raw, fmt.Sprintf("failed to write row: %v", err))
				totals.NodesSkipped++
				continue
			}
			written++
			totals.RecordsWritten++
		}

		if !search.PageInfo.HasNextPage {
			break
		}
		cursor = search.PageInfo.EndCursor
	}

	totals.WindowsDone++
	fmt.Fprintf(os.Stderr, "[done] wrote %d rows for %s\n", written, w)
	return OutcomeDone, nil
}

// rejectQueryErrors turns application-level errors into a fatal run abort.
// They indicate a broken query, not a transient condition; the rate-limit
// case never reaches here because the executor sleeps it out.
func rejectQueryErrors(resp *github.Response) error {
	if len(resp.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(resp.Errors))
	for _, qe := range resp.Errors {
		msgs = append(msgs, qe.Message)
	}
	return fmt.Errorf("graphql errors: %s: %w", strings.Join(msgs, "; "), sweeperrors.ErrQueryRejected)
}

// persistNode saves a problem node to the diagnostic sink, best-effort.
func (s *Scheduler) persistNode(raw []byte, reason string) {
	fmt.Fprintf(os.Stderr, "[warn] %s\n", reason)
	if _, err := s.diag.Persist(raw); err != nil {
		fmt.Fprintf(os.Stderr, "[error] could not save node payload: %v\n", err)
	}
}

// logRateLimit reports per-page quota telemetry. Informational only.
func (s *Scheduler) logRateLimit(rl *github.RateLimit) {
	if rl == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "[rate limit] %d remaining (cost: %d)\n", rl.Remaining, rl.Cost)
}
