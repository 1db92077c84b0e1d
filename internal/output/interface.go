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

// Package output implements the append-only tabular sink records are
// streamed into as pages are processed.
package output

import "github.com/sirseerhq/prsweep/internal/scheduler"

// OutputWriter extends the scheduler's sink contract with lifecycle
// methods. This abstraction keeps the door open for other tabular formats
// without changing the core logic.
type OutputWriter interface {
	scheduler.RecordWriter

	// Count returns the number of records written so far.
	Count() int

	// Close flushes and closes the underlying writer and releases any resources.
	// This should be called when all writing is complete.
	Close() error
}
