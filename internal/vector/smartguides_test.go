/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestSnapToEdges(t *testing.T) {
	surface := R(0, 0, 600, 400)
	dx, dy, guides := Snap(R(4, 150, 100, 100), []Rect{surface}, SnapOptions{Edges: true})
	if dx != -4 || dy != 0 {
		t.Fatalf("delta = %v,%v, want -4,0", dx, dy)
	}
	if len(guides) != 1 || !guides[0].Vertical || guides[0].Pos != 0 || guides[0].Center {
		t.Fatalf("guides = %+v", guides)
	}
}

func TestSnapAbutsNeighbour(t *testing.T) {
	// right edge 3 units left of the neighbour's left edge, bottom 2 below its bottom
	other := R(200, 100, 50, 50)
	dx, dy, guides := Snap(R(97, 52, 100, 100), []Rect{other}, SnapOptions{Edges: true, Threshold: 5})
	if dx != 3 || dy != -2 {
		t.Fatalf("delta = %v,%v, want 3,-2", dx, dy)
	}
	if len(guides) != 2 || guides[0].Pos != 200 || guides[1].Pos != 150 {
		t.Fatalf("guides = %+v", guides)
	}
}

func TestSnapToCenters(t *testing.T) {
	surface := R(0, 0, 600, 400)
	dx, dy, guides := Snap(R(248, 149, 100, 100), []Rect{surface}, SnapOptions{Centers: true})
	if dx != 2 || dy != 1 {
		t.Fatalf("delta = %v,%v, want 2,1", dx, dy)
	}
	for _, g := range guides {
		if !g.Center {
			t.Fatalf("expected center guides: %+v", guides)
		}
	}
}

func TestSnapThresholdAndClosestWins(t *testing.T) {
	if dx, dy, g := Snap(R(20, 20, 10, 10), []Rect{R(0, 0, 100, 100)}, SnapOptions{Edges: true, Centers: true}); dx != 0 || dy != 0 || g != nil {
		t.Fatalf("nothing within threshold, got %v,%v %+v", dx, dy, g)
	}
	anchors := []Rect{R(105, 0, 10, 10), R(102, 0, 10, 10)}
	dx, _, _ := Snap(R(0, 50, 100, 10), anchors, SnapOptions{Edges: true})
	if dx != 2 {
		t.Fatalf("closest anchor should win, dx = %v", dx)
	}
}
