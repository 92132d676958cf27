/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot is one history entry: an opaque serialization of the whole design.
// Blob size is estimated as len(Blob). TS is when the snapshot was captured.
type Snapshot struct {
	Blob       []byte
	TS         time.Time
	Structural bool
}

// Config controls depth and memory caps and coalescing behavior.
type Config struct {
	// MaxEntries caps the number of snapshots kept (default 50).
	MaxEntries int
	// MaxBytes is a soft cap; older entries are pruned when exceeded (0 means unlimited).
	MaxBytes int
	// Debounce is the coalescing window for Push. A Push arriving within the
	// window of a previous Push replaces that entry instead of adding one.
	Debounce time.Duration
	// Now is the clock; tests inject their own.
	Now func() time.Time
}

// History is a linear undo/redo history with a current index.
// It is safe for concurrent use.
type History struct {
	cfg Config
	mu  sync.Mutex

	entries []Snapshot
	index   int
	// debounced is true while the top entry came from Push and may still be replaced.
	debounced  bool
	totalBytes int
}

func NewHistory(cfg Config) *History {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 50
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &History{cfg: cfg, index: -1}
}

// Push records a snapshot taken during a continuous edit. Pushes closer than
// the debounce window to the previous Push coalesce into one entry.
func (h *History) Push(blob []byte) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Snapshot{Blob: blob, TS: h.cfg.Now()}
	n := len(h.entries)
	if n > 0 && h.debounced && h.index == n-1 && s.TS.Sub(h.entries[n-1].TS) < h.cfg.Debounce {
		h.totalBytes += len(s.Blob) - len(h.entries[n-1].Blob)
		h.entries[n-1] = s
		h.enforceCapsLocked()
		return s
	}
	h.appendLocked(s)
	h.debounced = true
	return s
}

// PushNow records a snapshot immediately; used for structural changes.
func (h *History) PushNow(blob []byte) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Snapshot{Blob: blob, TS: h.cfg.Now(), Structural: true}
	h.appendLocked(s)
	h.debounced = false
	return s
}

// Reset drops everything and seeds the history with blob.
func (h *History) Reset(blob []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.index = -1
	h.totalBytes = 0
	h.appendLocked(Snapshot{Blob: blob, TS: h.cfg.Now(), Structural: true})
	h.debounced = false
}

// Undo moves the index back one and returns the snapshot to restore.
func (h *History) Undo() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index <= 0 {
		return Snapshot{}, false
	}
	h.index--
	h.debounced = false
	return h.entries[h.index], true
}

// Redo moves the index forward one.
func (h *History) Redo() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return Snapshot{}, false
	}
	h.index++
	h.debounced = false
	return h.entries[h.index], true
}

// Current returns the snapshot at the index.
func (h *History) Current() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index < 0 {
		return Snapshot{}, false
	}
	return h.entries[h.index], true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index < len(h.entries)-1
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes int, entries int, index int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalBytes, len(h.entries), h.index
}

func (h *History) appendLocked(s Snapshot) {
	// Any new entry invalidates the redo tail
	for _, r := range h.entries[h.index+1:] {
		h.totalBytes -= len(r.Blob)
	}
	h.entries = append(h.entries[:h.index+1], s)
	h.totalBytes += len(s.Blob)
	h.index = len(h.entries) - 1
	h.enforceCapsLocked()
}

func (h *History) enforceCapsLocked() {
	drop := 0
	if n := len(h.entries); n > h.cfg.MaxEntries {
		drop = n - h.cfg.MaxEntries
	}
	bytes := h.totalBytes
	for i := 0; i < drop; i++ {
		bytes -= len(h.entries[i].Blob)
	}
	// Memory cap: prune oldest but always keep the current entry
	for h.cfg.MaxBytes > 0 && bytes > h.cfg.MaxBytes && drop < h.index {
		bytes -= len(h.entries[drop].Blob)
		drop++
	}
	if drop == 0 {
		return
	}
	h.entries = append([]Snapshot{}, h.entries[drop:]...)
	h.totalBytes = bytes
	h.index -= drop
	if h.index < 0 {
		h.index = 0
	}
}
