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

// Package window provides the half-open time intervals that scope search
// queries, and the FIFO work queue the scheduler drains. Splitting a window
// always produces two halves whose union is exactly the original interval,
// so no creation timestamp is ever queried twice or missed.
package window

import (
	"fmt"
	"time"
)

// Window is a half-open time interval [Start, End) used to scope a single
// search query.
type Window struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the window covers a positive span of time.
// Invalid windows are dropped by the scheduler, never processed.
func (w Window) Valid() bool {
	return w.Start.Before(w.End)
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Split bisects the window at the midpoint of its duration. The two halves
// partition the original exactly: first is [Start, mid), second is [mid, End).
func (w Window) Split() (first, second Window) {
	mid := w.Start.Add(w.End.Sub(w.Start) / 2)
	return Window{Start: w.Start, End: mid}, Window{Start: mid, End: w.End}
}

// String renders the window in the created:<start>..<end> search syntax.
func (w Window) String() string {
	return fmt.Sprintf("%s..%s",
		w.Start.UTC().Format(time.RFC3339),
		w.End.UTC().Format(time.RFC3339))
}
