/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"log/slog"

	"photoframe/internal/scene"
	"photoframe/internal/vector"
)

func (e *Editor) afterGeometry(n *scene.Node) {
	if n.IsFrame() {
		scene.SyncClip(e.store, n)
	}
	e.store.Touch()
}

// MoveBy translates n during a drag. Moving a frame carries its image along.
func (e *Editor) MoveBy(n *scene.Node, dx, dy float64) bool {
	if n == nil || !n.Interact.Movable {
		return false
	}
	e.store.Batch(func() {
		n.X += dx
		n.Y += dy
		if n.IsFrame() {
			if img := scene.ImageOf(e.store, n); img != nil {
				img.X += dx
				img.Y += dy
			}
		}
		e.afterGeometry(n)
	})
	return true
}

// ScaleBy multiplies the scale of n on the axes it may be resized on. For a
// frame only the clip of its image follows.
func (e *Editor) ScaleBy(n *scene.Node, kx, ky float64) bool {
	if n == nil || (!n.Interact.ResizableX && !n.Interact.ResizableY) {
		return false
	}
	e.store.Batch(func() {
		if n.Interact.ResizableX {
			n.ScaleX *= kx
		}
		if n.Interact.ResizableY {
			n.ScaleY *= ky
		}
		e.afterGeometry(n)
	})
	return true
}

// RotateBy rotates n by deg degrees. Frames never rotate.
func (e *Editor) RotateBy(n *scene.Node, deg float64) bool {
	if n == nil || n.IsFrame() || !n.Interact.Rotatable {
		return false
	}
	n.Rotation += deg
	e.store.Touch()
	return true
}

// SnapToGuides moves n so its bounds line up with the surface or with another
// frame or free node when one is within threshold. Images inside frames
// follow their frame and are never snapped themselves.
func (e *Editor) SnapToGuides(n *scene.Node, threshold float64) []vector.Guide {
	if n == nil || !n.Interact.Movable || n.IsFrameImage() {
		return nil
	}
	s := e.Surface()
	anchors := []vector.Rect{vector.R(0, 0, s.W, s.H)}
	for _, o := range e.store.Nodes() {
		if o == n || !o.Visible || o.IsImage() {
			continue
		}
		anchors = append(anchors, o.Bounds())
	}
	dx, dy, guides := vector.Snap(n.Bounds(), anchors, vector.SnapOptions{Threshold: threshold, Edges: true, Centers: true})
	if dx != 0 || dy != 0 {
		e.MoveBy(n, dx, dy)
	}
	return guides
}

// CommitTransform ends a gesture on n. A result outside the limits is
// reverted to the current history entry without further notice.
func (e *Editor) CommitTransform(n *scene.Node) bool {
	if err := scene.CheckBounds(n, e.limits()); err != nil {
		e.log.Debug("transform rejected", slog.Any("err", err))
		if s, ok := e.hist.Current(); ok {
			if rerr := e.restore(s); rerr != nil {
				e.log.Error("revert failed", slog.Any("err", rerr))
			}
		}
		return false
	}
	e.push()
	return true
}
