/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// SnapOptions selects the alignment features considered by Snap.
type SnapOptions struct {
	// Threshold is the largest distance that still snaps (default 6).
	Threshold float64
	Edges     bool
	Centers   bool
}

// Guide is an alignment found by Snap. Vertical guides sit at X = Pos,
// horizontal ones at Y = Pos.
type Guide struct {
	Vertical bool
	Center   bool
	Pos      float64
}

type snapCandidate struct {
	delta float64
	guide Guide
	found bool
}

// Snap returns the offset that aligns moving with the nearest anchor
// feature on each axis independently, and the guides it aligned to.
// Edges snap left/right (top/bottom) to either edge of an anchor; centers
// snap to anchor centers. Ties keep the earlier anchor.
func Snap(moving Rect, anchors []Rect, opt SnapOptions) (dx, dy float64, guides []Guide) {
	if opt.Threshold <= 0 {
		opt.Threshold = 6
	}
	var bx, by snapCandidate
	for _, a := range anchors {
		if opt.Edges {
			for _, m := range []float64{moving.X, moving.X + moving.W} {
				for _, ax := range []float64{a.X, a.X + a.W} {
					bx.consider(ax-m, Guide{Vertical: true, Pos: ax}, opt.Threshold)
				}
			}
			for _, m := range []float64{moving.Y, moving.Y + moving.H} {
				for _, ay := range []float64{a.Y, a.Y + a.H} {
					by.consider(ay-m, Guide{Pos: ay}, opt.Threshold)
				}
			}
		}
		if opt.Centers {
			mc, ac := moving.Center(), a.Center()
			bx.consider(ac.X-mc.X, Guide{Vertical: true, Center: true, Pos: ac.X}, opt.Threshold)
			by.consider(ac.Y-mc.Y, Guide{Center: true, Pos: ac.Y}, opt.Threshold)
		}
	}
	if bx.found {
		dx = FloatRound(bx.delta, 3)
		guides = append(guides, bx.guide)
	}
	if by.found {
		dy = FloatRound(by.delta, 3)
		guides = append(guides, by.guide)
	}
	return dx, dy, guides
}

func (c *snapCandidate) consider(delta float64, g Guide, threshold float64) {
	d := math.Abs(delta)
	if d > threshold || (c.found && d >= math.Abs(c.delta)) {
		return
	}
	g.Pos = FloatRound(g.Pos, 3)
	*c = snapCandidate{delta: delta, guide: g, found: true}
}
