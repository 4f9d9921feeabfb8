// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package manifest

// 📦 Queue is the in-memory copy of a manifest owned by a single run.
//
// Items are consumed from the end: the last line of the file is processed
// first. Items that were popped but did not succeed are held, and are still
// part of Remaining so they survive the next rewrite of the file.
type Queue struct {
	pending []string
	// held is kept in file order; items popped later sit earlier in the file
	held []string
}

// NewQueue takes ownership of a copy of items.
func NewQueue(items []string) *Queue {
	pending := make([]string, len(items))
	copy(pending, items)
	return &Queue{pending: pending}
}

// Pop removes and returns the last pending item.
func (q *Queue) Pop() (string, bool) {
	if len(q.pending) == 0 {
		return "", false
	}
	last := len(q.pending) - 1
	item := q.pending[last]
	q.pending = q.pending[:last]
	return item, true
}

// Hold keeps a popped item in the manifest.
func (q *Queue) Hold(item string) {
	q.held = append([]string{item}, q.held...)
}

// Len is the number of items not yet popped.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Held returns the items kept after a failure, in file order.
func (q *Queue) Held() []string {
	out := make([]string, len(q.held))
	copy(out, q.held)
	return out
}

// Remaining returns pending and held items in their original file order.
func (q *Queue) Remaining() []string {
	out := make([]string, 0, len(q.pending)+len(q.held))
	out = append(out, q.pending...)
	return append(out, q.held...)
}
