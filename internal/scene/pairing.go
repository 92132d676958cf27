/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"log/slog"
	"sort"

	applog "photoframe/internal/log"
)

// Pair is a frame and the image placed inside it. It is computed on demand
// by Resolve and never stored on the nodes.
type Pair struct {
	Frame *Node
	Image *Node
	Match Scheme
}

// ResolveOptions tunes Resolve.
type ResolveOptions struct {
	// AllowAdjacency enables the positional fallback: a non-empty frame
	// without any id link, directly followed by a frame-bound image without
	// any id link, is paired with that image.
	AllowAdjacency bool
	Logger         *slog.Logger
}

// Resolution is the outcome of one Resolve run.
type Resolution struct {
	Pairs           []Pair
	UnmatchedFrames []*Node
	UnmatchedImages []*Node
	// Degraded lists the pairs established by adjacency only.
	Degraded []Pair
	// Changed reports whether the store order was rewritten.
	Changed bool
}

// PairFor returns the pair n belongs to.
func (r Resolution) PairFor(n *Node) (Pair, bool) {
	for _, p := range r.Pairs {
		if p.Frame == n || p.Image == n {
			return p, true
		}
	}
	return Pair{}, false
}

// Resolve rebuilds the frame/image pairs and rewrites the store so that every
// pair is contiguous with the frame directly below its image. The result
// order is: others, pairs, unmatched frames, unmatched images. Running it on
// an already resolved store does not move anything.
func Resolve(s *Store, opts ResolveOptions) Resolution {
	nodes := s.Nodes()
	index := make(map[*Node]int, len(nodes))
	var frames, images, others []*Node
	for i, n := range nodes {
		index[n] = i
		switch {
		case n.IsFrame():
			frames = append(frames, n)
		case n.IsFrameImage():
			images = append(images, n)
		default:
			others = append(others, n)
		}
	}

	matchedF := make(map[*Node]bool, len(frames))
	matchedI := make(map[*Node]bool, len(images))
	var res Resolution

	// Matching must not depend on store positions, since Resolve rewrites
	// them: candidates are scanned in key order and mutual links win.
	byKeyF := append([]*Node(nil), frames...)
	sort.SliceStable(byKeyF, func(i, j int) bool { return nodeKey(byKeyF[i]) < nodeKey(byKeyF[j]) })
	byKeyI := append([]*Node(nil), images...)
	sort.SliceStable(byKeyI, func(i, j int) bool { return nodeKey(byKeyI[i]) < nodeKey(byKeyI[j]) })
	match := func(scheme Scheme, linked func(f, img *Node) bool) {
		for _, f := range byKeyF {
			if matchedF[f] {
				continue
			}
			for _, img := range byKeyI {
				if matchedI[img] || !linked(f, img) {
					continue
				}
				matchedF[f], matchedI[img] = true, true
				res.Pairs = append(res.Pairs, Pair{Frame: f, Image: img, Match: scheme})
				break
			}
		}
	}
	match(SchemeNew, Mutual)
	match(SchemeNew, func(f, img *Node) bool { return Linked(f, img, SchemeNew) })
	match(SchemeLegacy, func(f, img *Node) bool { return Linked(f, img, SchemeLegacy) })

	candidate := func(f, img *Node) bool {
		return f != nil && img != nil && f.IsFrame() && img.IsFrameImage() &&
			!matchedF[f] && !matchedI[img] && !f.Frame.Empty && !HasLinkFields(f) && !HasLinkFields(img)
	}
	adjacent := func(seq []*Node) []Pair {
		var found []Pair
		for i := 0; i+1 < len(seq); i++ {
			if candidate(seq[i], seq[i+1]) {
				p := Pair{Frame: seq[i], Image: seq[i+1], Match: SchemeAdjacent}
				matchedF[p.Frame], matchedI[p.Image] = true, true
				found = append(found, p)
				i++
			}
		}
		return found
	}
	if opts.AllowAdjacency {
		res.Degraded = adjacent(nodes)
		res.Pairs = append(res.Pairs, res.Degraded...)
	}

	lower := func(p Pair) int {
		a, b := index[p.Frame], index[p.Image]
		if a < b {
			return a
		}
		return b
	}
	sort.SliceStable(res.Pairs, func(i, j int) bool { return lower(res.Pairs[i]) < lower(res.Pairs[j]) })

	build := func() []*Node {
		order := make([]*Node, 0, len(nodes))
		order = append(order, others...)
		for _, p := range res.Pairs {
			order = append(order, p.Frame, p.Image)
		}
		for _, f := range frames {
			if !matchedF[f] {
				order = append(order, f)
			}
		}
		for _, img := range images {
			if !matchedI[img] {
				order = append(order, img)
			}
		}
		return order
	}
	order := build()
	// Emitting unmatched frames before unmatched images can make a new
	// adjacent candidate; pair those now so a second run finds nothing new.
	for opts.AllowAdjacency {
		late := adjacent(order)
		if len(late) == 0 {
			break
		}
		res.Degraded = append(res.Degraded, late...)
		res.Pairs = append(res.Pairs, late...)
		order = build()
	}
	for _, f := range frames {
		if !matchedF[f] {
			res.UnmatchedFrames = append(res.UnmatchedFrames, f)
		}
	}
	for _, img := range images {
		if !matchedI[img] {
			res.UnmatchedImages = append(res.UnmatchedImages, img)
		}
	}

	if len(res.Degraded) > 0 {
		l := opts.Logger
		if l == nil {
			l = applog.WithComponent("scene")
		}
		for _, p := range res.Degraded {
			l.Warn("degraded pairing", slog.String("frame", p.Frame.ID), slog.String("image", p.Image.ID),
				slog.Int("frameIndex", index[p.Frame]))
		}
	}

	s.Batch(func() { res.Changed = s.SetOrder(order) })
	return res
}
