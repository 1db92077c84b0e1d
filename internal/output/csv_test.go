package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirseerhq/prsweep/internal/scheduler"
)

func sampleRecord() scheduler.Record {
	return scheduler.Record{
		Number:     1347,
		Title:      "Fix renderer crash on resize",
		CreatedAt:  "2020-03-01T10:00:00Z",
		MergedAt:   "2020-03-02T09:30:00Z",
		AuthorKind: "User",
		BaseBranch: "main",
		Comments:   4,
		Additions:  120,
		Deletions:  35,
	}
}

func TestCSVWriter_HeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	if err != nil {
		t.Fatalf("NewCSVWriter() error = %v", err)
	}

	if err := w.Write(sampleRecord()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one record", len(rows))
	}

	wantHeader := []string{"number", "title", "created_at", "merged_at", "user.type", "base.ref", "comments", "additions", "deletions"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}

	want := []string{"1347", "Fix renderer crash on resize", "2020-03-01T10:00:00Z", "2020-03-02T09:30:00Z", "User", "main", "4", "120", "35"}
	for i, col := range want {
		if rows[1][i] != col {
			t.Errorf("row[%d] = %q, want %q", i, rows[1][i], col)
		}
	}
}

// Unmerged PRs keep an empty merged_at column, not a literal placeholder.
func TestCSVWriter_UnmergedRecord(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	if err != nil {
		t.Fatalf("NewCSVWriter() error = %v", err)
	}

	rec := sampleRecord()
	rec.MergedAt = ""
	rec.AuthorKind = "null"
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if rows[1][3] != "" {
		t.Errorf("merged_at = %q, want empty", rows[1][3])
	}
	if rows[1][4] != "null" {
		t.Errorf("user.type = %q, want null sentinel", rows[1][4])
	}
}

// Rows must land on disk as they are written, not on Close; an interrupted
// run keeps everything fetched so far.
func TestCSVWriter_FlushesPerRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prs.csv")
	w, err := NewFileCSVWriter(path)
	if err != nil {
		t.Fatalf("NewFileCSVWriter() error = %v", err)
	}

	if err := w.Write(sampleRecord()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Read before Close.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output mid-run: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("file has %d lines before Close, want 2", lines)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestCSVWriter_Count(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	if err != nil {
		t.Fatalf("NewCSVWriter() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w.Write(sampleRecord()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if w.Count() != 3 {
		t.Errorf("Count() = %d, want 3", w.Count())
	}
}
