/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"math/rand"
	"sort"
	"strings"
	"testing"

	applog "photoframe/internal/log"
)

func pair(fid, iid string) (*Node, *Node) {
	f := NewCircleFrame(100, 100, 50)
	img := NewImage(iid+".png", nil, 400, 300)
	f.ID, img.ID = fid, iid
	Link(f, img)
	return f, img
}

func other(id string) *Node {
	n := NewOther(id, 10, 10, 20, 20)
	n.ID = id
	return n
}

func TestResolveEmitsOthersPairsThenUnmatched(t *testing.T) {
	f1, i1 := pair("F1", "I1")
	f2, i2 := pair("F2", "I2")
	lone := NewRectFrame(0, 0, 10, 10)
	lone.ID = "F3"
	stray := NewImage("s", nil, 1, 1)
	stray.ID, stray.Image.FrameBound, stray.Image.BoundFrameID = "I3", true, "gone"
	s := NewStore(i2, stray, f1, other("O1"), lone, i1, f2, other("O2"))

	res := Resolve(s, ResolveOptions{})
	sameOrder(t, s, "O1", "O2", "F2", "I2", "F1", "I1", "F3", "I3")
	if len(res.Pairs) != 2 || len(res.UnmatchedFrames) != 1 || len(res.UnmatchedImages) != 1 || !res.Changed {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if p, ok := res.PairFor(i1); !ok || p.Frame != f1 || p.Match != SchemeNew {
		t.Fatalf("PairFor(I1) = %+v %v", p, ok)
	}
}

func TestResolveLegacyScheme(t *testing.T) {
	f := NewCircleFrame(0, 0, 10)
	f.ID, f.Frame.LegacyID, f.Frame.Empty = "F", "old-1", false
	img := NewImage("x", nil, 10, 10)
	img.ID, img.Image.FrameBound, img.Image.LegacyFrameID = "I", true, "old-1"
	s := NewStore(img, f)
	res := Resolve(s, ResolveOptions{})
	sameOrder(t, s, "F", "I")
	if len(res.Pairs) != 1 || res.Pairs[0].Match != SchemeLegacy {
		t.Fatalf("expected one legacy pair, got %+v", res.Pairs)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		var nodes []*Node
		for i := 0; i < 4; i++ {
			f, img := pair("F"+string(rune('a'+i)), "I"+string(rune('a'+i)))
			switch rng.Intn(4) {
			case 0:
				img.Image.BoundFrameID, f.Frame.BoundImageID = "", ""
				img.Image.LegacyFrameID, f.Frame.LegacyID = "L"+f.ID, "L"+f.ID
			case 1:
				// id-less pair, only adjacency can match it
				img.Image.BoundFrameID, f.Frame.BoundImageID = "", ""
				img.Image.LegacyFrameID, f.Frame.LegacyID = "", ""
			}
			switch rng.Intn(4) {
			case 0:
				// uid and legacy disagree about the frame
				img.Image.BoundFrameID = "F" + string(rune('a'+rng.Intn(4)))
				img.Image.LegacyFrameID = "L" + string(rune('a'+rng.Intn(4)))
				f.Frame.LegacyID = "L" + string(rune('a'+i))
			case 1:
				// a second image claims some frame
				dup := claim("D"+string(rune('a'+i)), "F"+string(rune('a'+rng.Intn(4))), "")
				if rng.Intn(2) == 0 {
					dup.Image.LegacyFrameID = "L" + string(rune('a'+rng.Intn(4)))
				}
				nodes = append(nodes, dup)
			}
			nodes = append(nodes, f, img, other("O"+string(rune('a'+i))))
		}
		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
		s := NewStore(nodes...)
		opts := ResolveOptions{AllowAdjacency: rng.Intn(2) == 0, Logger: applog.Discard()}
		before := pairsOf(Resolve(s, opts))
		first := ids(s)
		res := Resolve(s, opts)
		if got := pairsOf(res); got != before {
			t.Fatalf("round %d: pairing changed on second resolve: %s -> %s", round, before, got)
		}
		if res.Changed {
			t.Fatalf("round %d: second resolve moved nodes: %v -> %v", round, first, ids(s))
		}
		sameOrder(t, s, first...)
		for _, p := range res.Pairs {
			if s.IndexOf(p.Image) != s.IndexOf(p.Frame)+1 {
				t.Fatalf("round %d: pair %s/%s not adjacent in %v", round, p.Frame.ID, p.Image.ID, ids(s))
			}
		}
	}
}

// claim builds a frame-bound image that names frameID by uid and legacyKey
// by the legacy scheme.
func claim(id, frameID, legacyKey string) *Node {
	img := NewImage(id+".png", nil, 10, 10)
	img.ID, img.Image.FrameBound = id, true
	img.Image.BoundFrameID, img.Image.LegacyFrameID = frameID, legacyKey
	return img
}

func pairsOf(res Resolution) string {
	var out []string
	for _, p := range res.Pairs {
		out = append(out, p.Frame.ID+"/"+p.Image.ID)
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

func TestResolveConflictingClaimsIgnoresPosition(t *testing.T) {
	fA := NewCircleFrame(0, 0, 10)
	fA.ID, fA.Frame.LegacyID, fA.Frame.Empty = "fA", "L", false
	fB := NewCircleFrame(50, 0, 10)
	fB.ID, fB.Frame.Empty = "fB", false
	i1 := claim("i1", "fB", "")
	i2 := claim("i2", "fB", "L")

	base := []*Node{fA, i1, fB, i2}
	var perms [][]int
	for _, a := range []int{0, 1, 2, 3} {
		for _, b := range []int{0, 1, 2, 3} {
			for _, c := range []int{0, 1, 2, 3} {
				d := 6 - a - b - c
				if a == b || a == c || b == c || d < 0 || d > 3 || d == a || d == b || d == c {
					continue
				}
				perms = append(perms, []int{a, b, c, d})
			}
		}
	}
	for _, perm := range perms {
		nodes := make([]*Node, len(perm))
		for i, k := range perm {
			nodes[i] = base[k]
		}
		s := NewStore(nodes...)
		first := Resolve(s, ResolveOptions{})
		if got := pairsOf(first); got != "fA/i2 fB/i1" {
			t.Fatalf("perm %v: pairs = %q, want fA/i2 fB/i1", perm, got)
		}
		order := ids(s)
		second := Resolve(s, ResolveOptions{})
		if second.Changed || pairsOf(second) != pairsOf(first) {
			t.Fatalf("perm %v: second resolve changed %v -> %v (%s)", perm, order, ids(s), pairsOf(second))
		}
		if ImageOf(s, fB) != i1 || ImageOf(s, fA) != i2 || FrameOf(s, i1) != fB {
			t.Fatalf("perm %v: lookups disagree with Resolve", perm)
		}
	}
}

func TestResolvePrefersMutualLink(t *testing.T) {
	f, img := pair("F1", "I9")
	stray := claim("I0", "F1", "")
	s := NewStore(stray, f, img)
	res := Resolve(s, ResolveOptions{})
	if p, ok := res.PairFor(f); !ok || p.Image != img {
		t.Fatalf("frame should keep the image it links back to, got %+v", p)
	}
	if ImageOf(s, f) != img {
		t.Fatalf("ImageOf should prefer the mutual link")
	}
	sameOrder(t, s, "F1", "I9", "I0")
}

func TestAdjacencyFallbackIsOptIn(t *testing.T) {
	f := NewCircleFrame(0, 0, 10)
	f.ID, f.Frame.Empty = "F", false
	img := NewImage("x", nil, 10, 10)
	img.ID, img.Image.FrameBound = "I", true
	s := NewStore(f, img)

	if res := Resolve(s, ResolveOptions{}); len(res.Pairs) != 0 {
		t.Fatalf("no pairs expected without adjacency, got %+v", res.Pairs)
	}
	res := Resolve(s, ResolveOptions{AllowAdjacency: true, Logger: applog.Discard()})
	if len(res.Pairs) != 1 || len(res.Degraded) != 1 || res.Pairs[0].Match != SchemeAdjacent {
		t.Fatalf("expected one degraded pair, got %+v", res)
	}
	if img.Image.BoundFrameID != "" || f.Frame.BoundImageID != "" {
		t.Fatalf("adjacency must not write links")
	}
}

func TestAdjacencySkipsEmptyFrames(t *testing.T) {
	f := NewCircleFrame(0, 0, 10)
	f.ID = "F"
	img := NewImage("x", nil, 10, 10)
	img.ID, img.Image.FrameBound = "I", true
	s := NewStore(f, img)
	if res := Resolve(s, ResolveOptions{AllowAdjacency: true}); len(res.Pairs) != 0 {
		t.Fatalf("empty frame must not be paired by position")
	}
}

func TestResolveKeepsFreeImagesWithOthers(t *testing.T) {
	f1, i1 := pair("F1", "I1")
	free := NewImage("free", nil, 10, 10)
	free.ID = "free"
	s := NewStore(f1, i1, free)
	Resolve(s, ResolveOptions{})
	sameOrder(t, s, "free", "F1", "I1")
}
