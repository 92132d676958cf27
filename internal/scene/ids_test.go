/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"regexp"
	"testing"
	"time"
)

func TestNewIDFormat(t *testing.T) {
	old := idNow
	idNow = func() time.Time { return time.UnixMilli(1700000000000) }
	defer func() { idNow = old }()

	id := NewID("frame")
	if !regexp.MustCompile(`^frame_[0-9a-z]+_[0-9a-f]{8}$`).MatchString(id) {
		t.Fatalf("unexpected id %q", id)
	}
	if id == NewID("frame") {
		t.Fatalf("ids must differ within the same millisecond")
	}
}

func TestLookupSchemesAreIndependent(t *testing.T) {
	f := NewCircleFrame(0, 0, 10)
	f.ID, f.Frame.LegacyID = "frame_a", "legacy-a"
	newImg := NewImage("n", nil, 10, 10)
	newImg.ID, newImg.Image.FrameBound, newImg.Image.BoundFrameID = "image_n", true, "frame_a"
	oldImg := NewImage("o", nil, 10, 10)
	oldImg.ID, oldImg.Image.FrameBound, oldImg.Image.LegacyFrameID = "image_o", true, "legacy-a"
	s := NewStore(f, oldImg, newImg)

	if got := LookupImage(s, f, SchemeNew); got != newImg {
		t.Fatalf("uid lookup = %v", got)
	}
	if got := LookupImage(s, f, SchemeLegacy); got != oldImg {
		t.Fatalf("legacy lookup = %v", got)
	}
	if got := ImageOf(s, f); got != newImg {
		t.Fatalf("ImageOf should prefer the uid scheme")
	}
	if got := FrameOf(s, oldImg); got != f {
		t.Fatalf("FrameOf legacy = %v", got)
	}
}

func TestLinkedByFrameSideOnly(t *testing.T) {
	f := NewRectFrame(0, 0, 10, 10)
	img := NewImage("x", nil, 10, 10)
	f.ID, img.ID = "f", "i"
	img.Image.FrameBound = true
	f.Frame.BoundImageID = "i"
	if !Linked(f, img, SchemeNew) {
		t.Fatalf("frame side link should match")
	}
	img.Image.BoundFrameID = "other"
	if Linked(f, img, SchemeNew) {
		t.Fatalf("image side link wins when present")
	}
}

func TestLinkAndUnlink(t *testing.T) {
	f := NewCircleFrame(0, 0, 10)
	img := NewImage("x", nil, 10, 10)
	Link(f, img)
	if f.ID == "" || img.ID == "" || f.Frame.Empty || !img.Image.FrameBound || img.Image.BoundFrameID != f.ID {
		t.Fatalf("link incomplete: frame=%+v image=%+v", f.Frame, img.Image)
	}
	Unlink(f)
	if !f.Frame.Empty || f.Frame.BoundImageID != "" {
		t.Fatalf("unlink should empty the frame")
	}
}
