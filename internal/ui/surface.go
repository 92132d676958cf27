//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"image/color"
	"log/slog"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"photoframe/internal/domain"
	"photoframe/internal/editor"
	"photoframe/internal/export"
	applog "photoframe/internal/log"
	"photoframe/internal/scene"
	"photoframe/internal/telemetry"
	"photoframe/internal/vector"
)

// Pointer and keyboard steps.
const (
	nudgeStep  = 1.0
	rotateStep = 15.0
	wheelScale = 1.05
	snapPx     = 6.0
)

// SurfaceCanvas shows an editor's design fitted into the widget and forwards
// pointer and keyboard input to it.
type SurfaceCanvas struct {
	widget.BaseWidget

	ed         *editor.Editor
	background export.Background
	log        *slog.Logger

	// node being dragged; nil when idle
	dragging *scene.Node

	// OnChange runs after every edit that may alter selection, mode or content.
	OnChange func()
	// OnError receives failures the surface cannot show itself.
	OnError func(error)
}

// NewSurfaceCanvas returns a surface bound to ed.
func NewSurfaceCanvas(ed *editor.Editor) *SurfaceCanvas {
	c := &SurfaceCanvas{ed: ed, log: applog.WithComponent("surface")}
	c.ExtendBaseWidget(c)
	return c
}

// Editor returns the bound editor.
func (c *SurfaceCanvas) Editor() *editor.Editor { return c.ed }

// SetEditor swaps the bound editor, e.g. after opening another design.
func (c *SurfaceCanvas) SetEditor(ed *editor.Editor) {
	c.ed = ed
	c.dragging = nil
	c.Refresh()
}

// SetBackground selects the backdrop drawn behind the design.
func (c *SurfaceCanvas) SetBackground(b export.Background) {
	c.background = b
	c.Refresh()
}

func (c *SurfaceCanvas) surface() domain.Surface {
	s := c.ed.Surface()
	return domain.Surface{Width: s.W, Height: s.H}
}

// fit returns the top-left corner of the design inside the widget and the
// surface-to-screen scale.
func (c *SurfaceCanvas) fit(size fyne.Size) (ox, oy, k float32) {
	s := c.ed.Surface()
	if s.W <= 0 || s.H <= 0 || size.Width <= 0 || size.Height <= 0 {
		return 0, 0, 1
	}
	k = float32(math.Min(float64(size.Width)/s.W, float64(size.Height)/s.H))
	ox = (size.Width - float32(s.W)*k) / 2
	oy = (size.Height - float32(s.H)*k) / 2
	return ox, oy, k
}

func (c *SurfaceCanvas) toSurface(pos fyne.Position) vector.Pt {
	ox, oy, k := c.fit(c.Size())
	return vector.Pt{X: float64((pos.X - ox) / k), Y: float64((pos.Y - oy) / k)}
}

func (c *SurfaceCanvas) changed() {
	c.Refresh()
	if c.OnChange != nil {
		c.OnChange()
	}
}

func (c *SurfaceCanvas) fail(err error) {
	c.log.Error("surface action failed", slog.Any("err", err))
	if c.OnError != nil {
		c.OnError(err)
	}
}

func (c *SurfaceCanvas) focus() {
	if app := fyne.CurrentApp(); app != nil {
		if cv := app.Driver().CanvasForObject(c); cv != nil {
			cv.Focus(c)
		}
	}
}

// Tapped selects or enters edit modes through the editor's click handling.
func (c *SurfaceCanvas) Tapped(e *fyne.PointEvent) {
	c.focus()
	c.ed.Click(c.toSurface(e.Position))
	c.changed()
}

// DoubleTapped opens image editing, or asks for an image on an empty frame.
func (c *SurfaceCanvas) DoubleTapped(e *fyne.PointEvent) {
	if err := c.ed.DoubleClickAt(context.Background(), c.toSurface(e.Position)); err != nil {
		c.fail(err)
	}
	c.changed()
}

// Dragged moves the active target. A drag starting outside it selects the
// node under the pointer first.
func (c *SurfaceCanvas) Dragged(e *fyne.DragEvent) {
	_, _, k := c.fit(c.Size())
	if c.dragging == nil {
		start := c.toSurface(fyne.NewPos(e.Position.X-e.Dragged.DX, e.Position.Y-e.Dragged.DY))
		n := c.ed.Session().Target()
		if n == nil || !n.Contains(start) {
			c.ed.Click(start)
			n = c.ed.Session().Target()
		}
		if n == nil {
			return
		}
		c.dragging = n
	}
	c.ed.MoveBy(c.dragging, float64(e.Dragged.DX/k), float64(e.Dragged.DY/k))
	c.Refresh()
}

// DragEnd snaps the dragged node to nearby guides and commits the move;
// the editor reverts it when out of bounds.
func (c *SurfaceCanvas) DragEnd() {
	if c.dragging == nil {
		return
	}
	_, _, k := c.fit(c.Size())
	c.ed.SnapToGuides(c.dragging, snapPx/float64(k))
	if !c.ed.CommitTransform(c.dragging) {
		c.log.Info("move reverted", slog.String("node", c.dragging.ID))
	}
	c.dragging = nil
	c.changed()
}

// Scrolled scales the active target around its center.
func (c *SurfaceCanvas) Scrolled(e *fyne.ScrollEvent) {
	n := c.ed.Session().Target()
	if n == nil || e.Scrolled.DY == 0 {
		return
	}
	f := wheelScale
	if e.Scrolled.DY < 0 {
		f = 1 / wheelScale
	}
	if c.ed.ScaleBy(n, f, f) {
		c.ed.CommitTransform(n)
	}
	c.changed()
}

func (c *SurfaceCanvas) FocusGained() {}
func (c *SurfaceCanvas) FocusLost()   {}

// TypedRune rotates the target with r and R.
func (c *SurfaceCanvas) TypedRune(r rune) {
	n := c.ed.Session().Target()
	if n == nil {
		return
	}
	var deg float64
	switch r {
	case 'r':
		deg = rotateStep
	case 'R':
		deg = -rotateStep
	default:
		return
	}
	if c.ed.RotateBy(n, deg) {
		c.ed.CommitTransform(n)
	}
	c.changed()
}

// TypedKey maps Escape, Delete, the paging keys and the arrows to editor actions.
func (c *SurfaceCanvas) TypedKey(e *fyne.KeyEvent) {
	switch e.Name {
	case fyne.KeyEscape:
		c.ed.Escape()
	case fyne.KeyDelete, fyne.KeyBackspace:
		c.ed.DeleteActive()
	case fyne.KeyPageUp:
		c.layer(editor.BringForward)
	case fyne.KeyPageDown:
		c.layer(editor.SendBackward)
	case fyne.KeyHome:
		c.layer(editor.BringToFront)
	case fyne.KeyEnd:
		c.layer(editor.SendToBack)
	case fyne.KeyLeft:
		c.nudge(-nudgeStep, 0)
	case fyne.KeyRight:
		c.nudge(nudgeStep, 0)
	case fyne.KeyUp:
		c.nudge(0, -nudgeStep)
	case fyne.KeyDown:
		c.nudge(0, nudgeStep)
	default:
		return
	}
	c.changed()
}

func (c *SurfaceCanvas) layer(op editor.LayerOp) {
	if c.ed.Layer(op) {
		telemetry.Event(telemetry.EventLayer, map[string]any{"op": op.String(), "source": "ui"})
	}
}

func (c *SurfaceCanvas) nudge(dx, dy float64) {
	n := c.ed.Session().Target()
	if n == nil {
		return
	}
	if c.ed.MoveBy(n, dx, dy) {
		c.ed.CommitTransform(n)
	}
}

// MinSize keeps the design visible when the window shrinks.
func (c *SurfaceCanvas) MinSize() fyne.Size { return fyne.NewSize(240, 240) }

// PreferredSize is the initial canvas size.
func (c *SurfaceCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

// CreateRenderer draws a flat backdrop and the rasterized design on top.
func (c *SurfaceCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	design := canvas.NewImageFromImage(nil)
	design.FillMode = canvas.ImageFillStretch
	design.ScaleMode = canvas.ImageScaleFastest
	return &surfaceRenderer{c: c, bg: bg, design: design, objects: []fyne.CanvasObject{bg, design}}
}

type surfaceRenderer struct {
	c       *SurfaceCanvas
	bg      *canvas.Rectangle
	design  *canvas.Image
	objects []fyne.CanvasObject
	size    fyne.Size
}

func (r *surfaceRenderer) Layout(size fyne.Size) {
	r.size = size
	r.bg.Move(fyne.NewPos(0, 0))
	r.bg.Resize(size)
	ox, oy, k := r.c.fit(size)
	s := r.c.ed.Surface()
	r.design.Move(fyne.NewPos(ox, oy))
	r.design.Resize(fyne.NewSize(float32(s.W)*k, float32(s.H)*k))
	if size.IsZero() {
		return
	}
	r.draw(k)
}

func (r *surfaceRenderer) draw(k float32) {
	img, err := export.Render(r.c.ed.Store(), r.c.surface(), export.RenderOptions{
		Scale:        float64(k),
		Background:   r.c.background,
		Placeholders: true,
		Affordances:  true,
	})
	if err != nil {
		r.c.log.Warn("render failed", slog.Any("err", err))
		return
	}
	r.design.Image = img
}

func (r *surfaceRenderer) MinSize() fyne.Size { return r.c.MinSize() }

func (r *surfaceRenderer) Refresh() {
	r.Layout(r.size)
	r.bg.Refresh()
	r.design.Refresh()
}

func (r *surfaceRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *surfaceRenderer) Destroy()                     {}
