/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export flattens a design surface into print output.
package export

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"photoframe/internal/domain"
	"photoframe/internal/scene"
	"photoframe/internal/textlayout"
	"photoframe/internal/vector"
)

// Background selects what is painted below the first node.
type Background int

const (
	BackgroundWhite Background = iota
	BackgroundTransparent
)

func (b Background) String() string {
	if b == BackgroundTransparent {
		return "transparent"
	}
	return "white"
}

// ParseBackground maps the document/CLI spelling to a Background. Unknown
// values fall back to white.
func ParseBackground(s string) Background {
	if strings.EqualFold(strings.TrimSpace(s), "transparent") {
		return BackgroundTransparent
	}
	return BackgroundWhite
}

// RenderOptions controls rasterization.
//   - Scale: output pixels per surface unit (0 means 1)
//   - Placeholders: draw empty frames as grey shapes, as the editing surface does
//   - Affordances: draw node affordance strokes and handles
//   - Fonts: label fonts; nil draws labels with the built-in bitmap face
type RenderOptions struct {
	Scale        float64
	Background   Background
	Placeholders bool
	Affordances  bool
	Fonts        *textlayout.Fonts
	LabelFamily  string
}

// labelSize is the label font size in surface units.
const labelSize = 14

var (
	placeholderFill   = vector.Color{R: 0xe0, G: 0xe0, B: 0xe0, A: 255}
	placeholderStroke = vector.Color{R: 0x9e, G: 0x9e, B: 0x9e, A: 255}
	otherFill         = vector.Color{R: 0xf5, G: 0xf5, B: 0xf5, A: 255}
)

// Render draws every visible node of s in store order onto a new image the
// size of surf. Frame-bound images are masked by their derived clip.
func Render(s *scene.Store, surf domain.Surface, opt RenderOptions) (*image.RGBA, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if surf.Width <= 0 || surf.Height <= 0 {
		return nil, fmt.Errorf("invalid surface %gx%g", surf.Width, surf.Height)
	}
	k := opt.Scale
	if k <= 0 {
		k = 1
	}
	pw := int(math.Round(surf.Width * k))
	ph := int(math.Round(surf.Height * k))
	dc := gg.NewContext(pw, ph)
	if opt.Background == BackgroundWhite {
		dc.SetColor(color.White)
		dc.Clear()
	}

	for _, n := range s.Nodes() {
		if !n.Visible {
			continue
		}
		switch {
		case n.IsFrame():
			if opt.Placeholders && n.IsEmptyFrame() {
				drawFramePlaceholder(dc, n, k)
			}
		case n.IsImage():
			drawImage(dc, n, k)
		default:
			drawOther(dc, n, k, opt)
		}
	}
	if opt.Affordances {
		for _, n := range s.Nodes() {
			if n.Visible && n.Affordance != scene.AffordanceNone {
				drawAffordance(dc, n, k)
			}
		}
	}
	rgba, ok := dc.Image().(*image.RGBA)
	if !ok {
		b := dc.Image().Bounds()
		rgba = image.NewRGBA(b)
		xdraw.Draw(rgba, b, dc.Image(), b.Min, xdraw.Src)
	}
	return rgba, nil
}

func shapePath(dc *gg.Context, c scene.ClipRegion, k float64) {
	if c.Kind == scene.ClipEllipse {
		dc.DrawEllipse(c.CX*k, c.CY*k, c.RX*k, c.RY*k)
		return
	}
	dc.DrawRectangle((c.CX-c.RX)*k, (c.CY-c.RY)*k, 2*c.RX*k, 2*c.RY*k)
}

func drawFramePlaceholder(dc *gg.Context, f *scene.Node, k float64) {
	shapePath(dc, scene.ClipFor(f), k)
	dc.SetColor(placeholderFill.RGBA())
	dc.FillPreserve()
	dc.SetColor(placeholderStroke.RGBA())
	dc.SetLineWidth(1)
	dc.Stroke()
}

// scaledBitmap resamples bmp to w x h pixels.
func scaledBitmap(bmp image.Image, w, h int) image.Image {
	b := bmp.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return bmp
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), bmp, b, xdraw.Over, nil)
	return dst
}

func drawImage(dc *gg.Context, n *scene.Node, k float64) {
	size := n.Size()
	w := int(math.Round(size.W * k))
	h := int(math.Round(size.H * k))
	if w <= 0 || h <= 0 {
		return
	}
	cx, cy := n.X*k, n.Y*k
	dc.Push()
	defer func() {
		dc.Pop()
		dc.ResetClip()
	}()
	if c := n.Image.Clip; c != nil {
		shapePath(dc, *c, k)
		dc.Clip()
	}
	if n.Rotation != 0 {
		dc.RotateAbout(gg.Radians(n.Rotation), cx, cy)
	}
	if n.ScaleX < 0 || n.ScaleY < 0 {
		dc.ScaleAbout(sign(n.ScaleX), sign(n.ScaleY), cx, cy)
	}
	if n.Image.Bitmap == nil {
		dc.DrawRectangle(cx-float64(w)/2, cy-float64(h)/2, float64(w), float64(h))
		dc.SetColor(placeholderStroke.RGBA())
		dc.Fill()
		return
	}
	dc.DrawImageAnchored(scaledBitmap(n.Image.Bitmap, w, h), int(math.Round(cx)), int(math.Round(cy)), 0.5, 0.5)
}

func drawOther(dc *gg.Context, n *scene.Node, k float64, opt RenderOptions) {
	r := n.Bounds()
	if r.Empty() {
		return
	}
	cx, cy := n.X*k, n.Y*k
	dc.Push()
	defer dc.Pop()
	if n.Rotation != 0 {
		dc.RotateAbout(gg.Radians(n.Rotation), cx, cy)
	}
	dc.DrawRectangle(r.X*k, r.Y*k, r.W*k, r.H*k)
	dc.SetColor(otherFill.RGBA())
	dc.Fill()
	if n.Label == "" {
		return
	}
	face := opt.Fonts.Face(opt.LabelFamily, labelSize*k)
	pad := 4 * k
	b := textlayout.Layout(face, n.Label, r.W*k-2*pad).Fit(face, r.H*k-2*pad)
	dc.SetFontFace(face)
	dc.SetColor(color.Black)
	top := cy - b.Height/2
	for i, line := range b.Lines {
		dc.DrawStringAnchored(line, cx, top+b.LineHeight*(float64(i)+0.5), 0.5, 0.5)
	}
}

func drawAffordance(dc *gg.Context, n *scene.Node, k float64) {
	st := n.Affordance.Stroke()
	if !st.Enabled {
		return
	}
	dc.Push()
	defer dc.Pop()
	dc.SetColor(st.Color.RGBA())
	dc.SetLineWidth(st.Width)
	if len(st.Dash) > 0 {
		dash := make([]float64, len(st.Dash))
		for i, d := range st.Dash {
			dash[i] = d * k
		}
		dc.SetDash(dash...)
	} else {
		dc.SetDash()
	}
	var box vector.Rect
	if n.IsFrame() {
		c := scene.ClipFor(n)
		shapePath(dc, c, k)
		box = c.Bounds()
	} else {
		if n.Rotation != 0 {
			dc.RotateAbout(gg.Radians(n.Rotation), n.X*k, n.Y*k)
		}
		box = n.Bounds()
		dc.DrawRectangle(box.X*k, box.Y*k, box.W*k, box.H*k)
	}
	dc.Stroke()
	if st.HandleSize <= 0 {
		return
	}
	dc.SetDash()
	hs := st.HandleSize
	for _, p := range []vector.Pt{box.Min(), {X: box.X + box.W, Y: box.Y}, {X: box.X, Y: box.Y + box.H}, box.Max()} {
		dc.DrawRectangle(p.X*k-hs/2, p.Y*k-hs/2, hs, hs)
	}
	dc.Fill()
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
