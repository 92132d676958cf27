/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

// Store is the ordered node list the surface draws from. It is not safe for
// concurrent use; the editor owns it on the UI goroutine.
type Store struct {
	nodes []*Node

	batch    int
	pending  bool
	observer func()
	changes  int
}

// NewStore returns a store holding nodes bottom-to-top.
func NewStore(nodes ...*Node) *Store {
	s := &Store{}
	s.nodes = append(s.nodes, nodes...)
	return s
}

// Observe registers fn to be called once per committed change (once per batch).
func (s *Store) Observe(fn func()) { s.observer = fn }

// Changes returns how many change notifications were emitted so far.
func (s *Store) Changes() int { return s.changes }

func (s *Store) Len() int { return len(s.nodes) }

// At returns the node at index i or nil when out of range.
func (s *Store) At(i int) *Node {
	if i < 0 || i >= len(s.nodes) {
		return nil
	}
	return s.nodes[i]
}

// Nodes returns a copy of the current order.
func (s *Store) Nodes() []*Node {
	out := make([]*Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// IndexOf returns the stacking index of n, or -1.
func (s *Store) IndexOf(n *Node) int {
	if n == nil {
		return -1
	}
	for i, c := range s.nodes {
		if c == n {
			return i
		}
	}
	return -1
}

// ByID returns the first node with the given id.
func (s *Store) ByID(id string) *Node {
	if id == "" {
		return nil
	}
	for _, n := range s.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Contains reports whether n is currently in the store.
func (s *Store) Contains(n *Node) bool { return s.IndexOf(n) >= 0 }

// Add places n on top.
func (s *Store) Add(n *Node) {
	s.nodes = append(s.nodes, n)
	s.Touch()
}

// InsertAt inserts n at index i (clamped).
func (s *Store) InsertAt(i int, n *Node) {
	if i < 0 {
		i = 0
	}
	if i > len(s.nodes) {
		i = len(s.nodes)
	}
	s.nodes = append(s.nodes, nil)
	copy(s.nodes[i+1:], s.nodes[i:])
	s.nodes[i] = n
	s.Touch()
}

// Remove deletes n and reports whether it was present.
func (s *Store) Remove(n *Node) bool {
	i := s.IndexOf(n)
	if i < 0 {
		return false
	}
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
	s.Touch()
	return true
}

// Reset replaces the whole content.
func (s *Store) Reset(nodes []*Node) {
	s.nodes = append(s.nodes[:0:0], nodes...)
	s.Touch()
}

// SetOrder rewrites the stacking order. Nodes of the store missing from order
// are appended on top in their current relative order; unknown or duplicate
// entries in order are ignored. It reports whether anything moved.
func (s *Store) SetOrder(order []*Node) bool {
	present := make(map[*Node]bool, len(s.nodes))
	for _, n := range s.nodes {
		present[n] = true
	}
	seen := make(map[*Node]bool, len(s.nodes))
	next := make([]*Node, 0, len(s.nodes))
	for _, n := range order {
		if !present[n] || seen[n] {
			continue
		}
		seen[n] = true
		next = append(next, n)
	}
	for _, n := range s.nodes {
		if !seen[n] {
			next = append(next, n)
		}
	}
	changed := false
	for i := range next {
		if next[i] != s.nodes[i] {
			changed = true
			break
		}
	}
	if !changed {
		return false
	}
	s.nodes = next
	s.Touch()
	return true
}

// Move relocates n to index i (clamped) keeping everything else in order.
func (s *Store) Move(n *Node, i int) bool {
	from := s.IndexOf(n)
	if from < 0 {
		return false
	}
	rest := make([]*Node, 0, len(s.nodes)-1)
	rest = append(rest, s.nodes[:from]...)
	rest = append(rest, s.nodes[from+1:]...)
	if i < 0 {
		i = 0
	}
	if i > len(rest) {
		i = len(rest)
	}
	order := make([]*Node, 0, len(s.nodes))
	order = append(order, rest[:i]...)
	order = append(order, n)
	order = append(order, rest[i:]...)
	return s.SetOrder(order)
}

// Top returns the top-most node matching pred.
func (s *Store) Top(pred func(*Node) bool) *Node {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if pred(s.nodes[i]) {
			return s.nodes[i]
		}
	}
	return nil
}

// Batch runs fn with change notifications suppressed and emits at most one
// notification afterwards. Batches nest.
func (s *Store) Batch(fn func()) {
	s.batch++
	defer func() {
		s.batch--
		if s.batch == 0 && s.pending {
			s.pending = false
			s.notify()
		}
	}()
	fn()
}

// Touch records a change made to node fields in place.
func (s *Store) Touch() {
	if s.batch > 0 {
		s.pending = true
		return
	}
	s.notify()
}

func (s *Store) notify() {
	s.changes++
	if s.observer != nil {
		s.observer()
	}
}
