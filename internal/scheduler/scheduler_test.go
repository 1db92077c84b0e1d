package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	sweeperrors "github.com/sirseerhq/prsweep/internal/errors"
	"github.com/sirseerhq/prsweep/internal/github"
	"github.com/sirseerhq/prsweep/internal/window"
)

// pageScript describes one page served for a window's pagination.
type pageScript struct {
	nodes []json.RawMessage
	err   error
}

// windowScript describes everything the fake client serves for one query string.
type windowScript struct {
	count    int
	countErr error
	pages    []pageScript
	nextPage int
}

// fakeClient is a scripted SearchClient keyed by query string. Count probes
// are distinguished from page requests by their page size.
type fakeClient struct {
	scripts map[string]*windowScript
	calls   []github.SearchRequest
}

func newFakeClient(t *testing.T) *fakeClient {
	t.Helper()
	return &fakeClient{scripts: make(map[string]*windowScript)}
}

func (f *fakeClient) script(query string) *windowScript {
	s, ok := f.scripts[query]
	if !ok {
		s = &windowScript{}
		f.scripts[query] = s
	}
	return s
}

func (f *fakeClient) Search(ctx context.Context, req github.SearchRequest) (*github.Response, error) {
	f.calls = append(f.calls, req)

	s, ok := f.scripts[req.Query]
	if !ok {
		return nil, fmt.Errorf("unscripted query: %s", req.Query)
	}

	if req.First == countProbeSize {
		if s.countErr != nil {
			return nil, s.countErr
		}
		return searchResponse(s.count, nil, false, ""), nil
	}

	if s.nextPage >= len(s.pages) {
		return nil, fmt.Errorf("no more scripted pages for query: %s", req.Query)
	}
	page := s.pages[s.nextPage]
	s.nextPage++

	if page.err != nil {
		return nil, page.err
	}

	hasNext := s.nextPage < len(s.pages)
	cursor := ""
	if hasNext {
		cursor = fmt.Sprintf("cursor-%d", s.nextPage)
	}
	return searchResponse(s.count, page.nodes, hasNext, cursor), nil
}

func searchResponse(count int, nodes []json.RawMessage, hasNext bool, cursor string) *github.Response {
	return &github.Response{
		Data: &github.ResponseData{
			RateLimit: &github.RateLimit{Remaining: 4800, Cost: 1},
			Search: &github.Search{
				IssueCount: count,
				PageInfo:   github.PageInfo{HasNextPage: hasNext, EndCursor: cursor},
				Nodes:      nodes,
			},
		},
	}
}

// captureWriter records written rows and can fail selected writes.
type captureWriter struct {
	records []Record
	failOn  map[int]bool // 1-based write index
	writes  int
}

func (w *captureWriter) Write(rec Record) error {
	w.writes++
	if w.failOn[w.writes] {
		return fmt.Errorf("simulated write failure")
	}
	w.records = append(w.records, rec)
	return nil
}

// captureSink records persisted payloads.
type captureSink struct {
	payloads [][]byte
}

func (s *captureSink) Persist(payload []byte) (string, error) {
	s.payloads = append(s.payloads, payload)
	return fmt.Sprintf("invalid_response%04d.json", len(s.payloads)), nil
}

func goodNode(number int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"number": %d, "title": "pr %d", "createdAt": "2020-01-01T01:00:00Z", "author": {"__typename": "User"}, "baseRefName": "main", "comments": {"totalCount": 1}, "additions": 5, "deletions": 1}`,
		number, number))
}

func goodNodes(from, n int) []json.RawMessage {
	nodes := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, goodNode(from+i))
	}
	return nodes
}

func testWindow(t *testing.T, start, end string) window.Window {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		t.Fatalf("bad start: %v", err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		t.Fatalf("bad end: %v", err)
	}
	return window.Window{Start: s, End: e}
}

func newTestScheduler(client SearchClient, writer RecordWriter, sink DiagnosticSink) *Scheduler {
	return New(client, writer, sink, Config{Owner: "acme", Repo: "widgets", PageSize: 100})
}

func queryFor(w window.Window) string {
	return github.BuildSearchQuery("acme", "widgets", w)
}

// A window under the cap is never split; pagination runs until the API
// stops reporting further pages, and malformed nodes are persisted and
// skipped without blocking the rest of their page.
func TestScheduler_PaginatesUnderCap(t *testing.T) {
	seed := testWindow(t, "2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z")

	client := newFakeClient(t)
	page1 := goodNodes(1, 100)
	page1 = append(page1, json.RawMessage(`null`), json.RawMessage(`"garbage"`))
	script := client.script(queryFor(seed))
	script.count = 5
	script.pages = []pageScript{
		{nodes: page1},
		{nodes: goodNodes(101, 3)},
	}

	writer := &captureWriter{}
	sink := &captureSink{}
	sched := newTestScheduler(client, writer, sink)

	totals, err := sched.Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if totals.RecordsWritten != 103 {
		t.Errorf("RecordsWritten = %d, want 103", totals.RecordsWritten)
	}
	if len(writer.records) != 103 {
		t.Errorf("sink received %d rows, want 103", len(writer.records))
	}
	if totals.NodesSkipped != 2 {
		t.Errorf("NodesSkipped = %d, want 2", totals.NodesSkipped)
	}
	if len(sink.payloads) != 2 {
		t.Errorf("diagnostic payloads = %d, want 2", len(sink.payloads))
	}
	if totals.WindowsSplit != 0 {
		t.Errorf("WindowsSplit = %d, want 0", totals.WindowsSplit)
	}
	if totals.WindowsDone != 1 {
		t.Errorf("WindowsDone = %d, want 1", totals.WindowsDone)
	}
	// One count probe plus two pages.
	if totals.APICalls != 3 {
		t.Errorf("APICalls = %d, want 3", totals.APICalls)
	}
}

// A capped window is bisected exactly once per visit, and the halves are
// re-counted independently, earlier half first.
func TestScheduler_SplitsAtCap(t *testing.T) {
	seed := testWindow(t, "2020-01-01T00:00:00Z", "2020-01-11T00:00:00Z")
	firstHalf, secondHalf := seed.Split()

	client := newFakeClient(t)
	client.script(queryFor(seed)).count = 1500
	for _, half := range []window.Window{firstHalf, secondHalf} {
		s := client.script(queryFor(half))
		s.count = 5
		s.pages = []pageScript{{nodes: goodNodes(1, 5)}}
	}

	writer := &captureWriter{}
	sched := newTestScheduler(client, writer, &captureSink{})

	totals, err := sched.Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if totals.WindowsSplit != 1 {
		t.Errorf("WindowsSplit = %d, want 1", totals.WindowsSplit)
	}
	if totals.WindowsDone != 2 {
		t.Errorf("WindowsDone = %d, want 2", totals.WindowsDone)
	}
	if totals.RecordsWritten != 10 {
		t.Errorf("RecordsWritten = %d, want 10", totals.RecordsWritten)
	}

	// Count probe order proves oldest-first traversal: seed, then the
	// earlier half before the later half.
	var countQueries []string
	for _, call := range client.calls {
		if call.First == countProbeSize {
			countQueries = append(countQueries, call.Query)
		}
	}
	want := []string{queryFor(seed), queryFor(firstHalf), queryFor(secondHalf)}
	if len(countQueries) != len(want) {
		t.Fatalf("count probes = %d, want %d", len(countQueries), len(want))
	}
	for i := range want {
		if countQueries[i] != want[i] {
			t.Errorf("count probe %d = %q, want %q", i, countQueries[i], want[i])
		}
	}
}

// A window at the minimum span that still reports a capped count is
// paginated as-is instead of being split forever.
func TestScheduler_DegenerateWindowPaginates(t *testing.T) {
	seed := testWindow(t, "2020-01-01T00:00:00Z", "2020-01-01T00:00:01Z")

	client := newFakeClient(t)
	s := client.script(queryFor(seed))
	s.count = 1500
	s.pages = []pageScript{{nodes: goodNodes(1, 3)}}

	writer := &captureWriter{}
	sched := newTestScheduler(client, writer, &captureSink{})

	totals, err := sched.Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if totals.WindowsSplit != 0 {
		t.Errorf("WindowsSplit = %d, want 0", totals.WindowsSplit)
	}
	if totals.RecordsWritten != 3 {
		t.Errorf("RecordsWritten = %d, want 3", totals.RecordsWritten)
	}
}

// An invalid response during the count check skips only that window; the
// run carries on with the rest of the queue.
func TestScheduler_SkipsWindowOnInvalidCount(t *testing.T) {
	seed := testWindow(t, "2020-01-01T00:00:00Z", "2020-01-11T00:00:00Z")
	firstHalf, secondHalf := seed.Split()

	client := newFakeClient(t)
	client.script(queryFor(seed)).count = 1500
	client.script(queryFor(firstHalf)).countErr = fmt.Errorf("still invalid after retry: %w", sweeperrors.ErrInvalidResponse)
	s := client.script(queryFor(secondHalf))
	s.count = 2
	s.pages = []pageScript{{nodes: goodNodes(1, 2)}}

	writer := &captureWriter{}
	sched := newTestScheduler(client, writer, &captureSink{})

	totals, err := sched.Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run() error = %v, want graceful skip", err)
	}

	if totals.WindowsSkipped != 1 {
		t.Errorf("WindowsSkipped = %d, want 1", totals.WindowsSkipped)
	}
	if totals.WindowsDone != 1 {
		t.Errorf("WindowsDone = %d, want 1", totals.WindowsDone)
	}
	if totals.RecordsWritten != 2 {
		t.Errorf("RecordsWritten = %d, want 2", totals.RecordsWritten)
	}
}

// An invalid response mid-pagination abandons the window's remaining pages
// but keeps the rows already written.
func TestScheduler_InvalidPageAbandonsWindow(t *testing.T) {
	seed := testWindow(t, "2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z")

	client := newFakeClient(t)
	s := client.script(queryFor(seed))
	s.count = 200
	s.pages = []pageScript{
		{nodes: goodNodes(1, 2)},
		{err: fmt.Errorf("still invalid after retry: %w", sweeperrors.ErrInvalidResponse)},
	}

	writer := &captureWriter{}
	sched := newTestScheduler(client, writer, &captureSink{})

	totals, err := sched.Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if totals.RecordsWritten != 2 {
		t.Errorf("RecordsWritten = %d, want 2 (partial rows kept)", totals.RecordsWritten)
	}
	if totals.WindowsSkipped != 1 {
		t.Errorf("WindowsSkipped = %d, want 1", totals.WindowsSkipped)
	}
	if totals.WindowsDone != 0 {
		t.Errorf("WindowsDone = %d, want 0", totals.WindowsDone)
	}
}

// Application-level errors other than rate limits indicate a broken query.
// They abort the whole run.
func TestScheduler_FatalOnQueryErrors(t *testing.T) {
	seed := testWindow(t, "2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z")

	client := &queryErrorClient{}
	sched := newTestScheduler(client, &captureWriter{}, &captureSink{})

	_, err := sched.Run(context.Background(), seed)
	if err == nil {
		t.Fatal("Run() succeeded, want fatal error")
	}
	if !errors.Is(err, sweeperrors.ErrQueryRejected) {
		t.Errorf("Run() error = %v, want ErrQueryRejected", err)
	}
}

type queryErrorClient struct{}

func (c *queryErrorClient) Search(ctx context.Context, req github.SearchRequest) (*github.Response, error) {
	return &github.Response{
		Errors: []github.QueryError{{Message: "Field 'bogus' doesn't exist on type 'Query'"}},
	}, nil
}

// Windows with start >= end are dropped without issuing any query.
func TestScheduler_DropsInvalidWindows(t *testing.T) {
	start, _ := time.Parse(time.RFC3339, "2020-01-01T00:00:00Z")
	seed := window.Window{Start: start, End: start}

	client := newFakeClient(t)
	sched := newTestScheduler(client, &captureWriter{}, &captureSink{})

	totals, err := sched.Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if totals.WindowsDropped != 1 {
		t.Errorf("WindowsDropped = %d, want 1", totals.WindowsDropped)
	}
	if len(client.calls) != 0 {
		t.Errorf("issued %d calls for an invalid window, want 0", len(client.calls))
	}
}

// A failing row write is persisted and skipped; the rest of the page still lands.
func TestScheduler_WriterFailureSkipsRecord(t *testing.T) {
	seed := testWindow(t, "2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z")

	client := newFakeClient(t)
	s := client.script(queryFor(seed))
	s.count = 3
	s.pages = []pageScript{{nodes: goodNodes(1, 3)}}

	writer := &captureWriter{failOn: map[int]bool{2: true}}
	sink := &captureSink{}
	sched := newTestScheduler(client, writer, sink)

	totals, err := sched.Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if totals.RecordsWritten != 2 {
		t.Errorf("RecordsWritten = %d, want 2", totals.RecordsWritten)
	}
	if totals.NodesSkipped != 1 {
		t.Errorf("NodesSkipped = %d, want 1", totals.NodesSkipped)
	}
	if len(sink.payloads) != 1 {
		t.Errorf("diagnostic payloads = %d, want 1", len(sink.payloads))
	}
	if totals.WindowsDone != 1 {
		t.Errorf("WindowsDone = %d, want 1", totals.WindowsDone)
	}
}

func TestScheduler_ContextCancellation(t *testing.T) {
	seed := testWindow(t, "2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newFakeClient(t)
	sched := newTestScheduler(client, &captureWriter{}, &captureSink{})

	_, err := sched.Run(ctx, seed)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("issued %d calls after cancellation, want 0", len(client.calls))
	}
}
