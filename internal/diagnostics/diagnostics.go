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

// Package diagnostics persists raw offending API payloads to
// uniquely-numbered side files so they can be inspected offline. Numbering
// never reuses an index within or across runs: the directory is scanned
// once at startup to seed an in-memory counter, and every Persist call
// after that only increments the counter.
package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

var indexPattern = regexp.MustCompile(`^invalid_response(\d{4})`)

// Sink writes numbered diagnostic files into a single directory.
type Sink struct {
	dir string

	mu      sync.Mutex
	next    int
	written int
}

// NewSink creates the diagnostics directory if needed and seeds the file
// counter from the highest index already present, so earlier runs' files
// are never overwritten.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan diagnostics directory: %w", err)
	}

	maxIndex := 0
	for _, entry := range entries {
		m := indexPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if idx > maxIndex {
			maxIndex = idx
		}
	}

	return &Sink{dir: dir, next: maxIndex + 1}, nil
}

// Persist writes the payload to the next numbered file and returns its
// path.
func (s *Sink) Persist(payload []byte) (string, error) {
	s.mu.Lock()
	index := s.next
	s.next++
	s.mu.Unlock()

	path := filepath.Join(s.dir, fmt.Sprintf("invalid_response%04d.json", index))
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return "", fmt.Errorf("failed to write diagnostic file: %w", err)
	}

	s.mu.Lock()
	s.written++
	s.mu.Unlock()

	return path, nil
}

// Count returns the number of diagnostic files written by this run.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}
