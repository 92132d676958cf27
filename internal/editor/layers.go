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
)

// LayerOp is a stacking order change.
type LayerOp uint8

const (
	BringForward LayerOp = iota
	SendBackward
	BringToFront
	SendToBack
)

func (op LayerOp) String() string {
	switch op {
	case BringForward:
		return "forward"
	case SendBackward:
		return "backward"
	case BringToFront:
		return "front"
	default:
		return "back"
	}
}

// ParseLayerOp maps the names used by String back to ops.
func ParseLayerOp(s string) (LayerOp, bool) {
	for _, op := range []LayerOp{BringForward, SendBackward, BringToFront, SendToBack} {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

// Operable returns the node layer operations act on: the session target or,
// without one, the top-most selectable node, else the top-most frame, else
// the top-most visible node.
func (e *Editor) Operable() *scene.Node {
	if t := e.sess.Target(); t != nil && e.store.Contains(t) {
		return t
	}
	for _, pred := range []func(*scene.Node) bool{
		func(n *scene.Node) bool { return n.Interact.Selectable },
		func(n *scene.Node) bool { return n.IsFrame() },
		func(n *scene.Node) bool { return n.Visible },
	} {
		if n := e.store.Top(pred); n != nil {
			return n
		}
	}
	return nil
}

func (e *Editor) BringForward() bool { return e.Layer(BringForward) }
func (e *Editor) SendBackward() bool { return e.Layer(SendBackward) }
func (e *Editor) BringToFront() bool { return e.Layer(BringToFront) }
func (e *Editor) SendToBack() bool   { return e.Layer(SendToBack) }

// Layer applies op to the operable node. A frame and its image move as one
// block. It reports whether the node moved; normalizing the pairs beforehand
// does not count.
func (e *Editor) Layer(op LayerOp) bool {
	return e.LayerNode(e.Operable(), op)
}

// LayerNode applies op to n.
func (e *Editor) LayerNode(n *scene.Node, op LayerOp) bool {
	if n == nil || !e.store.Contains(n) {
		return false
	}
	changed := false
	e.store.Batch(func() {
		res := e.resolve()
		units := stackUnits(e.store, res)
		u := unitOf(units, n)
		if u < 0 {
			return
		}
		moved := moveUnit(units, u, op)
		order := make([]*scene.Node, 0, e.store.Len())
		for _, unit := range moved {
			order = append(order, unit...)
		}
		changed = e.store.SetOrder(order)
	})
	if !changed {
		return false
	}
	e.log.Debug("layer changed", slog.String("op", op.String()), slog.String("id", n.ID))
	e.pushNow()
	return true
}

// stackUnits groups the resolved store into blocks: one per pair, one per
// remaining node.
func stackUnits(s *scene.Store, res scene.Resolution) [][]*scene.Node {
	var units [][]*scene.Node
	for i := 0; i < s.Len(); i++ {
		n := s.At(i)
		if p, ok := res.PairFor(n); ok && p.Frame == n && s.At(i+1) == p.Image {
			units = append(units, []*scene.Node{p.Frame, p.Image})
			i++
			continue
		}
		units = append(units, []*scene.Node{n})
	}
	return units
}

func unitOf(units [][]*scene.Node, n *scene.Node) int {
	for i, u := range units {
		for _, m := range u {
			if m == n {
				return i
			}
		}
	}
	return -1
}

func moveUnit(units [][]*scene.Node, u int, op LayerOp) [][]*scene.Node {
	out := append([][]*scene.Node(nil), units...)
	switch op {
	case BringForward:
		if u+1 < len(out) {
			out[u], out[u+1] = out[u+1], out[u]
		}
	case SendBackward:
		if u > 0 {
			out[u], out[u-1] = out[u-1], out[u]
		}
	case BringToFront:
		g := out[u]
		out = append(out[:u], out[u+1:]...)
		out = append(out, g)
	case SendToBack:
		g := out[u]
		out = append(out[:u], out[u+1:]...)
		out = append([][]*scene.Node{g}, out...)
	}
	return out
}
