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

package window

// Queue is an ordered FIFO work list of windows. Split halves are pushed at
// the front (later half first, then the earlier half) so the overall
// traversal stays oldest-first across arbitrary split depth. An explicit
// queue keeps the naturally recursive splitting iterative, so pathological
// inputs cannot grow the call stack.
type Queue struct {
	items []Window
}

// NewQueue creates a queue seeded with the given windows, front to back.
func NewQueue(seed ...Window) *Queue {
	q := &Queue{items: make([]Window, 0, len(seed))}
	q.items = append(q.items, seed...)
	return q
}

// PopFront removes and returns the front window. The second return value is
// false when the queue is empty.
func (q *Queue) PopFront() (Window, bool) {
	if len(q.items) == 0 {
		return Window{}, false
	}
	w := q.items[0]
	q.items = q.items[1:]
	return w, true
}

// PushFront inserts a window at the front of the queue.
func (q *Queue) PushFront(w Window) {
	q.items = append([]Window{w}, q.items...)
}

// Len returns the number of queued windows.
func (q *Queue) Len() int {
	return len(q.items)
}
