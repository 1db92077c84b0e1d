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

package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirseerhq/prsweep/pkg/version"
)

// Tracker records one run from start to finish and writes the summary file.
type Tracker struct {
	meta      RunMetadata
	startedAt time.Time
}

// NewTracker starts tracking a run with a fresh run ID.
func NewTracker(params RunParams) *Tracker {
	now := time.Now().UTC()
	return &Tracker{
		meta: RunMetadata{
			ToolVersion: version.Version,
			RunID:       uuid.NewString(),
			Parameters:  params,
		},
		startedAt: now,
	}
}

// RunID returns the identifier assigned to this run.
func (t *Tracker) RunID() string {
	return t.meta.RunID
}

// Complete finalizes the summary with the run's counters. Interrupted runs
// are marked as such; their partial counters are still recorded.
func (t *Tracker) Complete(results RunResults, interrupted bool) {
	now := time.Now().UTC()
	results.StartedAt = t.startedAt
	results.CompletedAt = now
	results.Duration = now.Sub(t.startedAt).Round(time.Second).String()

	t.meta.Results = results
	t.meta.Interrupted = interrupted
}

// Write persists the summary using a write-to-temp-and-rename pattern so a
// crash mid-write never leaves a truncated summary behind.
func (t *Tracker) Write(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(t.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary metadata file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary metadata file: %w", err)
	}

	return nil
}
