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

// Package metadata types define the structures persisted as the run
// summary. They capture what was scanned, how, and with what results, so a
// finished or interrupted run leaves an auditable record beside its CSV.
package metadata

import (
	"time"
)

// RunMetadata is the complete summary record for a single export run.
type RunMetadata struct {
	ToolVersion string     `json:"tool_version"`
	RunID       string     `json:"run_id"`
	Parameters  RunParams  `json:"parameters"`
	Results     RunResults `json:"results"`
	Interrupted bool       `json:"interrupted"`
}

// RunParams captures the input parameters of the run: the target
// repository, the overall scan window, and the page size.
type RunParams struct {
	Organization string    `json:"organization"`
	Repository   string    `json:"repository"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	PageSize     int       `json:"page_size"`
	OutputPath   string    `json:"output_path"`
}

// RunResults contains the counters accumulated over the run.
type RunResults struct {
	RecordsWritten  int       `json:"records_written"`
	WindowsDone     int       `json:"windows_done"`
	WindowsSplit    int       `json:"windows_split"`
	WindowsSkipped  int       `json:"windows_skipped"`
	WindowsDropped  int       `json:"windows_dropped"`
	NodesSkipped    int       `json:"nodes_skipped"`
	APICalls        int       `json:"api_calls_made"`
	DiagnosticFiles int       `json:"diagnostic_files"`
	Duration        string    `json:"duration"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}
