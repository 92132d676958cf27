/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"fmt"
	"image"

	"photoframe/internal/domain"
)

// Bitmaps resolves asset keys to decoded bitmaps.
type Bitmaps interface {
	Bitmap(key string) (image.Image, error)
}

// Records converts the store to document records in stacking order.
// Derived state (clips, interactivity, affordances) is not written.
func Records(s *Store) []domain.NodeRecord {
	out := make([]domain.NodeRecord, 0, s.Len())
	for _, n := range s.nodes {
		out = append(out, Record(n))
	}
	return out
}

// Record converts one node.
func Record(n *Node) domain.NodeRecord {
	r := domain.NodeRecord{
		Type: n.Kind.String(), X: n.X, Y: n.Y, ScaleX: n.ScaleX, ScaleY: n.ScaleY,
		Rotation: n.Rotation, Hidden: !n.Visible, UID: n.ID,
	}
	switch {
	case n.IsFrame():
		r.Shape = string(n.Frame.Shape)
		r.Radius, r.Width, r.Height = n.Frame.Radius, n.Frame.Width, n.Frame.Height
		r.Empty = n.Frame.Empty
		r.BoundImageID = n.Frame.BoundImageID
		r.LegacyID = n.Frame.LegacyID
	case n.IsImage():
		r.Src = n.Image.Src
		r.NativeW, r.NativeH = n.Image.NativeW, n.Image.NativeH
		r.FrameBound = n.Image.FrameBound
		r.BoundFrameID = n.Image.BoundFrameID
		r.LegacyFrameID = n.Image.LegacyFrameID
	default:
		r.Label = n.Label
		r.Width, r.Height = n.W, n.H
	}
	return r
}

// FromRecord converts a record back to a node. Nodes without a uid get a
// fresh one. Bitmaps may be nil; a missing bitmap leaves the image without
// pixels but keeps its geometry.
func FromRecord(r domain.NodeRecord, bm Bitmaps) (*Node, error) {
	var n *Node
	switch r.Type {
	case domain.TypeFrame:
		switch Shape(r.Shape) {
		case ShapeCircle:
			n = NewCircleFrame(r.X, r.Y, r.Radius)
		case ShapeRect:
			n = NewRectFrame(r.X, r.Y, r.Width, r.Height)
		default:
			return nil, fmt.Errorf("frame %q: unknown shape %q", r.UID, r.Shape)
		}
		n.Frame.Empty = r.Empty
		n.Frame.BoundImageID = r.BoundImageID
		n.Frame.LegacyID = r.LegacyID
	case domain.TypeImage:
		var bmp image.Image
		if bm != nil && r.Src != "" {
			b, err := bm.Bitmap(r.Src)
			if err != nil {
				return nil, fmt.Errorf("image %q: %w", r.UID, err)
			}
			bmp = b
		}
		n = NewImage(r.Src, bmp, r.NativeW, r.NativeH)
		n.X, n.Y = r.X, r.Y
		n.Image.FrameBound = r.FrameBound
		n.Image.BoundFrameID = r.BoundFrameID
		n.Image.LegacyFrameID = r.LegacyFrameID
	case domain.TypeOther, "":
		n = NewOther(r.Label, r.X, r.Y, r.Width, r.Height)
	default:
		return nil, fmt.Errorf("node %q: unknown type %q", r.UID, r.Type)
	}
	n.ID = r.UID
	n.ScaleX, n.ScaleY = orOne(r.ScaleX), orOne(r.ScaleY)
	n.Rotation = r.Rotation
	n.Visible = !r.Hidden
	EnsureID(n)
	return n, nil
}

// FromRecords converts records in order.
func FromRecords(recs []domain.NodeRecord, bm Bitmaps) ([]*Node, error) {
	out := make([]*Node, 0, len(recs))
	for i, r := range recs {
		n, err := FromRecord(r, bm)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
