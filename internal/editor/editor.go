/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor drives a design surface: selection, the frame/image edit
// modes, transforms with bounds checking, layer ordering and undo/redo.
// An Editor is owned by the UI goroutine and is not safe for concurrent use.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"photoframe/internal/domain"
	applog "photoframe/internal/log"
	"photoframe/internal/scene"
	"photoframe/internal/undo"
	"photoframe/internal/vector"
)

// ErrPickCancelled is returned by an ImagePicker when the user backs out.
var ErrPickCancelled = errors.New("image pick cancelled")

// ErrNotFrame is returned when an operation needs a frame.
var ErrNotFrame = errors.New("not a frame")

// Picked is the result of a successful image pick.
type Picked struct {
	Src    string // asset key
	Bitmap image.Image
	Asset  domain.Asset
}

// ImagePicker asks the user for an image to place in frame.
type ImagePicker interface {
	Pick(ctx context.Context, frame *scene.Node) (Picked, error)
}

// Listener observes selection and mode changes. Calls are informational only.
type Listener interface {
	SelectionChanged(n *scene.Node)
	EditModeChanged(m Mode, target *scene.Node)
}

// ListenerFuncs adapts plain functions to Listener; nil fields are skipped.
type ListenerFuncs struct {
	OnSelection func(*scene.Node)
	OnMode      func(Mode, *scene.Node)
}

func (l ListenerFuncs) SelectionChanged(n *scene.Node) {
	if l.OnSelection != nil {
		l.OnSelection(n)
	}
}

func (l ListenerFuncs) EditModeChanged(m Mode, target *scene.Node) {
	if l.OnMode != nil {
		l.OnMode(m, target)
	}
}

// Config holds editor tunables.
type Config struct {
	// Limits bounds committed transforms; zero means scene.DefaultLimits of the surface.
	Limits scene.Limits
	// DoubleClickDebounce suppresses a repeated double-click transition (default 300ms).
	DoubleClickDebounce time.Duration
	// AllowAdjacency enables the positional pairing fallback for id-less documents.
	AllowAdjacency bool
	History        undo.Config
	// Assets loads bitmaps that are not cached yet.
	Assets scene.Bitmaps
	// OnSnapshot is called after each structural history entry.
	OnSnapshot func(undo.Snapshot)
	Now        func() time.Time
	Logger     *slog.Logger
}

// Editor is the core of the design surface.
type Editor struct {
	cfg    Config
	log    *slog.Logger
	doc    domain.Document
	store  *scene.Store
	hist   *undo.History
	sess   Session
	picker ImagePicker

	listeners []Listener
	bitmaps   map[string]image.Image

	lastDouble time.Time
}

// New returns an editor holding an empty design of the given surface size.
func New(cfg Config, picker ImagePicker) *Editor {
	if cfg.DoubleClickDebounce <= 0 {
		cfg.DoubleClickDebounce = 300 * time.Millisecond
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.History.Now == nil {
		cfg.History.Now = cfg.Now
	}
	l := cfg.Logger
	if l == nil {
		l = applog.WithComponent("editor")
	}
	e := &Editor{
		cfg:     cfg,
		log:     l,
		doc:     domain.NewDocument("untitled", 600, 600),
		store:   scene.NewStore(),
		hist:    undo.NewHistory(cfg.History),
		picker:  picker,
		bitmaps: make(map[string]image.Image),
	}
	e.hist.Reset(e.snapshotBlob())
	return e
}

func (e *Editor) Store() *scene.Store    { return e.store }
func (e *Editor) History() *undo.History { return e.hist }
func (e *Editor) Session() Session       { return e.sess }
func (e *Editor) Mode() Mode             { return e.sess.Mode }

// Surface returns the design surface size.
func (e *Editor) Surface() vector.Size {
	return vector.Size{W: e.doc.Surface.Width, H: e.doc.Surface.Height}
}

// SetPicker replaces the image picker.
func (e *Editor) SetPicker(p ImagePicker) { e.picker = p }

// AddListener registers l for selection and mode events.
func (e *Editor) AddListener(l Listener) { e.listeners = append(e.listeners, l) }

func (e *Editor) limits() scene.Limits {
	if e.cfg.Limits != (scene.Limits{}) {
		return e.cfg.Limits
	}
	return scene.DefaultLimits(e.doc.Surface.Width, e.doc.Surface.Height)
}

func (e *Editor) resolve() scene.Resolution {
	return scene.Resolve(e.store, scene.ResolveOptions{AllowAdjacency: e.cfg.AllowAdjacency, Logger: e.log})
}

// Bitmap implements scene.Bitmaps over the editor cache and the configured
// asset loader. A missing asset is logged and yields no pixels.
func (e *Editor) Bitmap(key string) (image.Image, error) {
	if b, ok := e.bitmaps[key]; ok {
		return b, nil
	}
	if e.cfg.Assets == nil {
		return nil, nil
	}
	b, err := e.cfg.Assets.Bitmap(key)
	if err != nil {
		e.log.Warn("asset unavailable", slog.String("src", key), slog.Any("err", err))
		return nil, nil
	}
	e.bitmaps[key] = b
	return b, nil
}

func (e *Editor) setSession(next Session) {
	prev := e.sess
	e.sess = next
	if prev.Target() != next.Target() {
		for _, l := range e.listeners {
			l.SelectionChanged(next.Target())
		}
	}
	if prev.Mode != next.Mode || prev.Target() != next.Target() {
		for _, l := range e.listeners {
			l.EditModeChanged(next.Mode, next.Target())
		}
	}
}

// idle applies the resting interactivity: frames are primary targets, paired
// images follow their frame, free images can be moved and rotated.
func idle(n *scene.Node, paired bool) {
	n.Affordance = scene.AffordanceNone
	switch {
	case n.IsFrame():
		n.Interact = scene.Editable(false, scene.PriorityPrimary)
	case n.IsImage() && paired:
		n.Interact = scene.Locked()
	case n.IsImage():
		n.Interact = scene.Editable(true, scene.PriorityPrimary)
	}
}

func (e *Editor) idleAll(res scene.Resolution) {
	for _, n := range e.store.Nodes() {
		_, paired := res.PairFor(n)
		idle(n, paired)
	}
}

// raiseAbove places n directly above ref when it is currently below it.
func (e *Editor) raiseAbove(n, ref *scene.Node) {
	ni, ri := e.store.IndexOf(n), e.store.IndexOf(ref)
	if ni < 0 || ri < 0 || ni > ri {
		return
	}
	e.store.Move(n, ri)
}

func (e *Editor) enterFrameEdit(f *scene.Node) {
	img := scene.ImageOf(e.store, f)
	e.store.Batch(func() {
		if a := e.sess.Frame; a != nil && a != f {
			idle(a, false)
			if e.sess.Image != nil {
				idle(e.sess.Image, true)
			}
		}
		f.Interact = scene.Editable(false, scene.PriorityPrimary)
		f.Affordance = scene.AffordanceFrameActive
		if img != nil {
			img.Interact = scene.Locked()
			img.Affordance = scene.AffordanceNone
			e.raiseAbove(f, img)
			scene.SyncClip(e.store, f)
		}
		e.store.Touch()
	})
	e.setSession(Session{Mode: ModeFrameEdit, Frame: f, Image: img})
}

func (e *Editor) enterImageEdit(f, img *scene.Node) {
	e.store.Batch(func() {
		if a := e.sess.Frame; a != nil && a != f {
			idle(a, false)
			if e.sess.Image != nil {
				idle(e.sess.Image, true)
			}
		}
		img.Interact = scene.Editable(true, scene.PriorityPrimary)
		img.Affordance = scene.AffordanceImageActive
		f.Interact = scene.Editable(false, scene.PrioritySecondary)
		f.Affordance = scene.AffordanceFrameSecondary
		e.raiseAbove(img, f)
		scene.SyncClip(e.store, f)
		e.store.Touch()
	})
	e.setSession(Session{Mode: ModeImageEdit, Frame: f, Image: img})
}

func (e *Editor) toNone(selected *scene.Node) {
	if e.sess.Mode != ModeNone {
		e.store.Batch(func() {
			res := e.resolve()
			scene.SyncAllClips(e.store, res)
			e.idleAll(res)
		})
	}
	e.setSession(Session{Mode: ModeNone, Selected: selected})
}

// Select makes n the active node. Frames enter frame editing, frame-bound
// images enter image editing, anything else is a plain selection.
func (e *Editor) Select(n *scene.Node) {
	if n == nil || !e.store.Contains(n) {
		e.Deselect()
		return
	}
	switch {
	case n.IsFrame():
		e.enterFrameEdit(n)
	case n.IsFrameImage():
		if e.sess.Mode == ModeImageEdit && e.sess.Image == n {
			return
		}
		if f := scene.FrameOf(e.store, n); f != nil {
			e.enterImageEdit(f, n)
			return
		}
		e.toNone(n)
	default:
		e.toNone(n)
	}
}

// Exit leaves the current mode one step: image editing falls back to frame
// editing on the same frame, frame editing and plain selections end in none.
func (e *Editor) Exit() {
	switch e.sess.Mode {
	case ModeImageEdit:
		e.enterFrameEdit(e.sess.Frame)
	case ModeFrameEdit:
		e.toNone(nil)
	default:
		e.setSession(Session{})
	}
}

// Escape is the keyboard exit.
func (e *Editor) Escape() { e.Exit() }

// Deselect is the exit triggered by clicking empty surface.
func (e *Editor) Deselect() { e.Exit() }

// HitTest returns the node under p: the highest interaction priority wins,
// ties go to the top-most node. Non-selectable nodes are ignored.
func (e *Editor) HitTest(p vector.Pt) *scene.Node {
	var best *scene.Node
	for i := e.store.Len() - 1; i >= 0; i-- {
		n := e.store.At(i)
		if !n.Interact.Selectable || !n.Contains(p) {
			continue
		}
		if best == nil || n.Interact.Priority > best.Interact.Priority {
			best = n
		}
	}
	return best
}

// Click selects the node under p, or exits the current mode on empty surface.
// The image of the frame being edited is locked, so a click on that frame
// resolves to its image and opens image editing.
func (e *Editor) Click(p vector.Pt) {
	n := e.HitTest(p)
	if n == nil {
		e.Deselect()
		return
	}
	if e.sess.Mode == ModeFrameEdit && n == e.sess.Frame {
		if img := scene.ImageOf(e.store, n); img != nil && img.Contains(p) {
			n = img
		}
	}
	e.Select(n)
}

// DoubleClickAt double-clicks the node under p.
func (e *Editor) DoubleClickAt(ctx context.Context, p vector.Pt) error {
	n := e.HitTest(p)
	if n == nil {
		return nil
	}
	return e.DoubleClick(ctx, n)
}

// DoubleClick opens image editing on a filled frame or asks the picker for
// an image on an empty one. A second double-click inside the debounce
// window is ignored.
func (e *Editor) DoubleClick(ctx context.Context, n *scene.Node) error {
	now := e.cfg.Now()
	if !e.lastDouble.IsZero() && now.Sub(e.lastDouble) < e.cfg.DoubleClickDebounce {
		e.log.Debug("double click suppressed")
		return nil
	}
	f := n
	if n.IsFrameImage() {
		f = scene.FrameOf(e.store, n)
	}
	if !f.IsFrame() {
		return nil
	}
	e.lastDouble = now
	img := scene.ImageOf(e.store, f)
	if img != nil && !f.IsEmptyFrame() {
		e.enterImageEdit(f, img)
		return nil
	}
	return e.pickInto(ctx, f)
}

func (e *Editor) pickInto(ctx context.Context, f *scene.Node) error {
	if e.picker == nil {
		return fmt.Errorf("pick image for %s: no picker configured", f.ID)
	}
	p, err := e.picker.Pick(ctx, f)
	if errors.Is(err, ErrPickCancelled) {
		e.log.Debug("image pick cancelled", slog.String("frame", f.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("pick image for %s: %w", f.ID, err)
	}
	if _, err := e.BindImage(f, p); err != nil {
		return err
	}
	return nil
}

// BindImage places the picked image inside f with a cover fit, directly
// above the frame, and enters frame editing. A previous image of f is replaced.
func (e *Editor) BindImage(f *scene.Node, p Picked) (*scene.Node, error) {
	if !f.IsFrame() || !e.store.Contains(f) {
		return nil, fmt.Errorf("bind image: %w", ErrNotFrame)
	}
	nw, nh := float64(p.Asset.Width), float64(p.Asset.Height)
	if p.Bitmap == nil && (nw <= 0 || nh <= 0) {
		return nil, fmt.Errorf("bind image to %s: no bitmap or size for %q", f.ID, p.Src)
	}
	img := scene.NewImage(p.Src, p.Bitmap, nw, nh)
	img.ID = scene.NewID("image")
	e.store.Batch(func() {
		if old := scene.ImageOf(e.store, f); old != nil {
			e.store.Remove(old)
		}
		scene.Link(f, img)
		scene.PlaceCovering(f, img)
		idle(img, true)
		e.store.InsertAt(e.store.IndexOf(f)+1, img)
	})
	if p.Bitmap != nil {
		e.bitmaps[p.Src] = p.Bitmap
	}
	if p.Asset.Key != "" {
		e.doc.PutAsset(p.Asset)
	}
	e.log.Info("image bound", slog.String("frame", f.ID), slog.String("image", img.ID), slog.Float64("scale", img.ScaleX))
	e.enterFrameEdit(f)
	e.pushNow()
	return img, nil
}

// AddFrame places f on top and enters frame editing on it.
func (e *Editor) AddFrame(f *scene.Node) error {
	if !f.IsFrame() {
		return fmt.Errorf("add frame: %w", ErrNotFrame)
	}
	scene.EnsureID(f)
	e.store.Add(f)
	e.enterFrameEdit(f)
	e.pushNow()
	return nil
}

// AddCircleFrame creates an empty circle frame.
func (e *Editor) AddCircleFrame(x, y, r float64) *scene.Node {
	f := scene.NewCircleFrame(x, y, r)
	_ = e.AddFrame(f)
	return f
}

// AddRectFrame creates an empty rectangular frame.
func (e *Editor) AddRectFrame(x, y, w, h float64) *scene.Node {
	f := scene.NewRectFrame(x, y, w, h)
	_ = e.AddFrame(f)
	return f
}

// AddNode places a decoration or free image on top without selecting it.
func (e *Editor) AddNode(n *scene.Node) {
	scene.EnsureID(n)
	idle(n, false)
	e.store.Add(n)
	e.pushNow()
}

// Delete removes n. A frame takes its image with it; a bound image leaves
// its frame empty and, when it was being edited, returns to frame editing.
func (e *Editor) Delete(n *scene.Node) bool {
	if n == nil || !e.store.Contains(n) {
		return false
	}
	switch {
	case n.IsFrame():
		img := scene.ImageOf(e.store, n)
		e.store.Batch(func() {
			if img != nil {
				e.store.Remove(img)
			}
			e.store.Remove(n)
		})
		if e.sess.Frame == n {
			e.toNone(nil)
		} else if e.sess.Selected == n {
			e.setSession(Session{})
		}
	case n.IsFrameImage():
		f := scene.FrameOf(e.store, n)
		e.store.Batch(func() {
			e.store.Remove(n)
			if f != nil {
				scene.Unlink(f)
			}
		})
		switch {
		case f != nil && e.sess.Frame == f:
			e.enterFrameEdit(f)
		case e.sess.Selected == n:
			e.setSession(Session{})
		}
	default:
		e.store.Remove(n)
		if e.sess.Selected == n {
			e.setSession(Session{})
		}
	}
	e.log.Info("node deleted", slog.String("kind", n.Kind.String()), slog.String("id", n.ID))
	e.pushNow()
	return true
}

// DeleteActive deletes the session target.
func (e *Editor) DeleteActive() bool { return e.Delete(e.sess.Target()) }

// Unbind removes the image of f and leaves f empty.
func (e *Editor) Unbind(f *scene.Node) bool {
	img := scene.ImageOf(e.store, f)
	if img == nil {
		return false
	}
	return e.Delete(img)
}
