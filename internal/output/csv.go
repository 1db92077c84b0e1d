package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/sirseerhq/prsweep/internal/scheduler"
)

// header is the fixed nine-column CSV header, matching the upstream field
// paths the columns are flattened from.
var header = []string{
	"number",
	"title",
	"created_at",
	"merged_at",
	"user.type",
	"base.ref",
	"comments",
	"additions",
	"deletions",
}

// CSVWriter streams records to a CSV file. Every row is flushed as it is
// written so an interrupted run keeps everything fetched so far.
type CSVWriter struct {
	mu        sync.Mutex
	csv       *csv.Writer
	count     int
	closeFunc func() error
}

// NewCSVWriter creates a CSV writer over an arbitrary io.Writer and writes
// the header row.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{csv: csv.NewWriter(w)}
	if err := cw.csv.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	cw.csv.Flush()
	if err := cw.csv.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	return cw, nil
}

// NewFileCSVWriter creates a CSV writer backed by a file. The caller must
// call Close() when done.
func NewFileCSVWriter(filename string) (*CSVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	cw, err := NewCSVWriter(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	cw.closeFunc = file.Close
	return cw, nil
}

// Write appends one record as a CSV row and flushes it.
func (w *CSVWriter) Write(rec scheduler.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row := []string{
		strconv.Itoa(rec.Number),
		rec.Title,
		rec.CreatedAt,
		rec.MergedAt,
		rec.AuthorKind,
		rec.BaseBranch,
		strconv.Itoa(rec.Comments),
		strconv.Itoa(rec.Additions),
		strconv.Itoa(rec.Deletions),
	}

	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	w.count++
	return nil
}

// Count returns the number of records written.
func (w *CSVWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes any buffered rows and closes the underlying file, if any.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	if w.closeFunc != nil {
		return w.closeFunc()
	}
	return nil
}

var _ OutputWriter = (*CSVWriter)(nil)
