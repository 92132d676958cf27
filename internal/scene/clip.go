/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"math"

	"photoframe/internal/vector"
)

// ClipKind is the shape of a derived clip region.
type ClipKind uint8

const (
	ClipEllipse ClipKind = iota
	ClipRect
)

// ClipRegion is the mask applied to a frame-bound image, in surface
// coordinates. RX/RY are radii for ellipses and half extents for rects.
type ClipRegion struct {
	Kind   ClipKind
	CX, CY float64
	RX, RY float64
}

// Contains reports whether p lies inside the region.
func (c ClipRegion) Contains(p vector.Pt) bool {
	if c.Kind == ClipEllipse {
		return vector.Ellipse{C: vector.Pt{X: c.CX, Y: c.CY}, RX: c.RX, RY: c.RY}.Contains(p)
	}
	return c.Bounds().Contains(p)
}

// Bounds returns the bounding box of the region.
func (c ClipRegion) Bounds() vector.Rect {
	return vector.FromCenter(vector.Pt{X: c.CX, Y: c.CY}, 2*c.RX, 2*c.RY)
}

// ClipFor derives the clip region of frame f from its current geometry.
func ClipFor(f *Node) ClipRegion {
	sx, sy := abs(f.ScaleX), abs(f.ScaleY)
	if f.Frame.Shape == ShapeCircle {
		return ClipRegion{Kind: ClipEllipse, CX: f.X, CY: f.Y, RX: f.Frame.Radius * sx, RY: f.Frame.Radius * sy}
	}
	return ClipRegion{Kind: ClipRect, CX: f.X, CY: f.Y, RX: f.Frame.Width * sx / 2, RY: f.Frame.Height * sy / 2}
}

// SyncClip recomputes the clip region of the image bound to f. Only the clip
// changes; the image keeps its own position and scale. It returns the image
// that was updated, or nil.
func SyncClip(s *Store, f *Node) *Node {
	if !f.IsFrame() {
		return nil
	}
	img := ImageOf(s, f)
	if img == nil {
		return nil
	}
	c := ClipFor(f)
	img.Image.Clip = &c
	s.Touch()
	return img
}

// SyncAllClips recomputes the clip of every resolved pair and drops stale
// clips from images that no longer have a frame.
func SyncAllClips(s *Store, res Resolution) {
	s.Batch(func() {
		paired := make(map[*Node]bool, len(res.Pairs))
		for _, p := range res.Pairs {
			c := ClipFor(p.Frame)
			p.Image.Image.Clip = &c
			paired[p.Image] = true
		}
		for _, n := range s.nodes {
			if n.IsImage() && !paired[n] && n.Image.Clip != nil {
				n.Image.Clip = nil
			}
		}
		s.Touch()
	})
}

// TargetSize is the area an image must cover inside f: the scaled diameter
// for circles, the scaled width and height for rects.
func TargetSize(f *Node) vector.Size { return f.Size() }

// CoverFit returns the uniform scale that makes a nativeW x nativeH bitmap
// cover target with no gaps.
func CoverFit(target vector.Size, nativeW, nativeH float64) float64 {
	if nativeW <= 0 || nativeH <= 0 {
		return 1
	}
	return math.Max(target.W/nativeW, target.H/nativeH)
}

// PlaceCovering scales img by the cover-fit rule for f and centers it on f,
// then derives the clip.
func PlaceCovering(f, img *Node) {
	scale := CoverFit(TargetSize(f), img.Image.NativeW, img.Image.NativeH)
	img.ScaleX, img.ScaleY = scale, scale
	img.X, img.Y = f.X, f.Y
	img.Rotation = 0
	c := ClipFor(f)
	img.Image.Clip = &c
}
