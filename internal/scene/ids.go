/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scheme names how a frame and an image were linked.
type Scheme uint8

const (
	// SchemeNew links frame.ID with image.BoundFrameID (and frame.BoundImageID with image.ID).
	SchemeNew Scheme = iota
	// SchemeLegacy links frame.LegacyID with image.LegacyFrameID.
	SchemeLegacy
	// SchemeAdjacent is the positional fallback used when ID fields are missing.
	SchemeAdjacent
)

func (s Scheme) String() string {
	switch s {
	case SchemeNew:
		return "uid"
	case SchemeLegacy:
		return "legacy"
	default:
		return "adjacent"
	}
}

// idNow is replaced in tests.
var idNow = time.Now

// NewID returns "<prefix>_<base36 millis>_<8 hex>".
func NewID(prefix string) string {
	ts := strconv.FormatInt(idNow().UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if prefix == "" {
		prefix = "node"
	}
	return prefix + "_" + ts + "_" + suffix
}

// EnsureID assigns a fresh id when n has none and returns it.
func EnsureID(n *Node) string {
	if n.ID == "" {
		n.ID = NewID(n.Kind.String())
	}
	return n.ID
}

// Linked reports whether frame f and image img refer to each other under scheme.
func Linked(f, img *Node, scheme Scheme) bool {
	if !f.IsFrame() || !img.IsImage() {
		return false
	}
	switch scheme {
	case SchemeNew:
		if img.Image.BoundFrameID != "" {
			return f.ID != "" && img.Image.BoundFrameID == f.ID
		}
		return img.ID != "" && f.Frame.BoundImageID == img.ID
	case SchemeLegacy:
		return f.Frame.LegacyID != "" && img.Image.LegacyFrameID == f.Frame.LegacyID
	default:
		return false
	}
}

// HasLinkFields reports whether an image or frame carries any id link at all.
func HasLinkFields(n *Node) bool {
	switch {
	case n.IsFrame():
		return n.Frame.BoundImageID != "" || n.Frame.LegacyID != ""
	case n.IsImage():
		return n.Image.BoundFrameID != "" || n.Image.LegacyFrameID != ""
	}
	return false
}

// Mutual reports whether f and img name each other by uid.
func Mutual(f, img *Node) bool {
	return f.IsFrame() && img.IsImage() && f.ID != "" && img.ID != "" &&
		f.Frame.BoundImageID == img.ID && img.Image.BoundFrameID == f.ID
}

// nodeKey orders nodes independently of their store position.
func nodeKey(n *Node) string {
	switch {
	case n.IsFrame():
		return n.ID + "\x00" + n.Frame.BoundImageID + "\x00" + n.Frame.LegacyID
	case n.IsImage():
		return n.ID + "\x00" + n.Image.BoundFrameID + "\x00" + n.Image.LegacyFrameID + "\x00" + n.Image.Src
	}
	return n.ID
}

// preferred picks among several nodes linked to the same partner: a mutual
// uid link first, then the lowest key.
func preferred(best, n *Node, mutual func(*Node) bool) *Node {
	if best == nil {
		return n
	}
	if mb, mn := mutual(best), mutual(n); mb != mn {
		if mn {
			return n
		}
		return best
	}
	if nodeKey(n) < nodeKey(best) {
		return n
	}
	return best
}

// LookupImage finds the image bound to frame f using a single scheme.
func LookupImage(s *Store, f *Node, scheme Scheme) *Node {
	if !f.IsFrame() {
		return nil
	}
	var best *Node
	for _, n := range s.nodes {
		if n.IsFrameImage() && Linked(f, n, scheme) {
			best = preferred(best, n, func(img *Node) bool { return Mutual(f, img) })
		}
	}
	return best
}

// LookupFrame finds the frame that image img is bound to using a single scheme.
func LookupFrame(s *Store, img *Node, scheme Scheme) *Node {
	if !img.IsFrameImage() {
		return nil
	}
	var best *Node
	for _, n := range s.nodes {
		if n.IsFrame() && Linked(n, img, scheme) {
			best = preferred(best, n, func(f *Node) bool { return Mutual(f, img) })
		}
	}
	return best
}

// ImageOf resolves the image of f, trying the uid scheme before the legacy one.
func ImageOf(s *Store, f *Node) *Node {
	if img := LookupImage(s, f, SchemeNew); img != nil {
		return img
	}
	return LookupImage(s, f, SchemeLegacy)
}

// FrameOf resolves the frame of img, trying the uid scheme before the legacy one.
func FrameOf(s *Store, img *Node) *Node {
	if f := LookupFrame(s, img, SchemeNew); f != nil {
		return f
	}
	return LookupFrame(s, img, SchemeLegacy)
}

// Link writes the uid links on both sides and marks the image frame-bound.
// A legacy frame key is mirrored so older readers still resolve the pair.
func Link(f, img *Node) {
	EnsureID(f)
	EnsureID(img)
	f.Frame.BoundImageID = img.ID
	f.Frame.Empty = false
	img.Image.FrameBound = true
	img.Image.BoundFrameID = f.ID
	if f.Frame.LegacyID != "" {
		img.Image.LegacyFrameID = f.Frame.LegacyID
	}
}

// Unlink clears the frame side of a pair and marks the frame empty.
func Unlink(f *Node) {
	if !f.IsFrame() {
		return
	}
	f.Frame.BoundImageID = ""
	f.Frame.Empty = true
}
