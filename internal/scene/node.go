/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene holds the design surface model: the ordered node store, the
// frame/image identity links, the pairing resolver and the derived clip regions.
//
// Stacking order is the store order: index 0 is the bottom-most node.
package scene

import (
	"image"

	"photoframe/internal/vector"
)

// Kind discriminates the node variants.
type Kind uint8

const (
	KindOther Kind = iota
	KindFrame
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindImage:
		return "image"
	default:
		return "other"
	}
}

// Shape is the mask shape of a frame.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeRect   Shape = "rect"
)

// Interaction priorities. Higher wins when several nodes are hit at the same point.
const (
	PriorityNone      = 0
	PrioritySecondary = 1
	PriorityPrimary   = 2
)

// Interactivity mirrors the per-node flags the surface honors for pointer handling.
type Interactivity struct {
	Selectable bool
	Movable    bool
	ResizableX bool
	ResizableY bool
	Rotatable  bool
	Priority   int
}

// Locked returns flags for a node that ignores pointer input entirely.
func Locked() Interactivity { return Interactivity{} }

// Editable returns flags for a node that can be moved and resized on both axes.
func Editable(rotatable bool, priority int) Interactivity {
	return Interactivity{Selectable: true, Movable: true, ResizableX: true, ResizableY: true, Rotatable: rotatable, Priority: priority}
}

// FrameData is the frame variant payload.
type FrameData struct {
	Shape  Shape
	Radius float64 // circle only
	Width  float64 // rect only
	Height float64 // rect only
	Empty  bool

	BoundImageID string
	// LegacyID is the frame key used by documents authored before uid links existed.
	LegacyID string
}

// ImageData is the image variant payload.
type ImageData struct {
	Src     string
	Bitmap  image.Image
	NativeW float64
	NativeH float64

	FrameBound    bool
	BoundFrameID  string
	LegacyFrameID string

	// Clip is derived from the bound frame and never authored.
	Clip *ClipRegion
}

// Node is one item on the design surface. Exactly one of Frame/Image is set
// for frames and images; Other nodes use Label and W/H.
type Node struct {
	Kind     Kind
	ID       string
	X, Y     float64 // center
	Rotation float64
	ScaleX   float64
	ScaleY   float64
	Visible  bool

	Interact   Interactivity
	Affordance Affordance

	Label string
	W, H  float64

	Frame *FrameData
	Image *ImageData
}

// NewCircleFrame returns an empty circle frame centered at (x, y).
func NewCircleFrame(x, y, radius float64) *Node {
	return &Node{
		Kind: KindFrame, X: x, Y: y, ScaleX: 1, ScaleY: 1, Visible: true,
		Interact: Editable(false, PriorityPrimary),
		Frame:    &FrameData{Shape: ShapeCircle, Radius: radius, Empty: true},
	}
}

// NewRectFrame returns an empty rectangular frame centered at (x, y).
func NewRectFrame(x, y, w, h float64) *Node {
	return &Node{
		Kind: KindFrame, X: x, Y: y, ScaleX: 1, ScaleY: 1, Visible: true,
		Interact: Editable(false, PriorityPrimary),
		Frame:    &FrameData{Shape: ShapeRect, Width: w, Height: h, Empty: true},
	}
}

// NewImage returns a free-floating image node. bmp may be nil when only the
// native size is known.
func NewImage(src string, bmp image.Image, nativeW, nativeH float64) *Node {
	if bmp != nil && (nativeW <= 0 || nativeH <= 0) {
		b := bmp.Bounds()
		nativeW, nativeH = float64(b.Dx()), float64(b.Dy())
	}
	return &Node{
		Kind: KindImage, ScaleX: 1, ScaleY: 1, Visible: true,
		Interact: Editable(false, PriorityPrimary),
		Image:    &ImageData{Src: src, Bitmap: bmp, NativeW: nativeW, NativeH: nativeH},
	}
}

// NewOther returns a generic decoration node (text, template art, ...).
func NewOther(label string, x, y, w, h float64) *Node {
	return &Node{
		Kind: KindOther, Label: label, X: x, Y: y, W: w, H: h, ScaleX: 1, ScaleY: 1, Visible: true,
		Interact: Editable(false, PriorityPrimary),
	}
}

func (n *Node) IsFrame() bool { return n != nil && n.Kind == KindFrame && n.Frame != nil }
func (n *Node) IsImage() bool { return n != nil && n.Kind == KindImage && n.Image != nil }

// IsFrameImage reports whether n is an image marked as living inside a frame.
func (n *Node) IsFrameImage() bool { return n.IsImage() && n.Image.FrameBound }

// IsEmptyFrame reports whether n is a frame still waiting for its image.
func (n *Node) IsEmptyFrame() bool { return n.IsFrame() && n.Frame.Empty }

// Center returns the node center on the surface.
func (n *Node) Center() vector.Pt { return vector.Pt{X: n.X, Y: n.Y} }

// BaseSize returns the unscaled width and height.
func (n *Node) BaseSize() vector.Size {
	switch {
	case n.IsFrame():
		if n.Frame.Shape == ShapeCircle {
			return vector.Size{W: 2 * n.Frame.Radius, H: 2 * n.Frame.Radius}
		}
		return vector.Size{W: n.Frame.Width, H: n.Frame.Height}
	case n.IsImage():
		return vector.Size{W: n.Image.NativeW, H: n.Image.NativeH}
	default:
		return vector.Size{W: n.W, H: n.H}
	}
}

// Size returns the scaled width and height.
func (n *Node) Size() vector.Size {
	b := n.BaseSize()
	return vector.Size{W: b.W * abs(n.ScaleX), H: b.H * abs(n.ScaleY)}
}

// Bounds returns the axis-aligned box of the node ignoring any clip.
func (n *Node) Bounds() vector.Rect {
	s := n.Size()
	return vector.FromCenter(n.Center(), s.W, s.H)
}

// Contains is the hit-test used by the surface. Frames test their mask shape,
// clipped images test their box intersected with the clip region.
func (n *Node) Contains(p vector.Pt) bool {
	if n == nil || !n.Visible {
		return false
	}
	switch {
	case n.IsFrame():
		if n.Frame.Shape == ShapeCircle {
			s := n.Size()
			return vector.Ellipse{C: n.Center(), RX: s.W / 2, RY: s.H / 2}.Contains(p)
		}
		return n.Bounds().Contains(p)
	case n.IsImage():
		if !n.Bounds().Contains(p) {
			return false
		}
		if n.Image.Clip != nil {
			return n.Image.Clip.Contains(p)
		}
		return true
	default:
		return n.Bounds().Contains(p)
	}
}

// Clone returns a deep copy; the bitmap is shared because it is immutable.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Frame != nil {
		f := *n.Frame
		c.Frame = &f
	}
	if n.Image != nil {
		im := *n.Image
		if n.Image.Clip != nil {
			cl := *n.Image.Clip
			im.Clip = &cl
		}
		c.Image = &im
	}
	return &c
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
