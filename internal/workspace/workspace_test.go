/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photoframe/internal/config"
	"photoframe/internal/storage"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: 10, A: 255})
		}
	}
	p := filepath.Join(dir, "photo.png")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return p
}

func TestEditorConfigFromAppConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Editor.MinNodeSize = 12
	cfg.Editor.MaxFrameSize = 900
	cfg.Editor.AdjacencyFallback = true
	ec := EditorConfig(cfg, 400, 300)
	if ec.Limits.MinSize != 12 || ec.Limits.MaxFrameSize != 900 {
		t.Fatalf("limits not applied: %+v", ec.Limits)
	}
	if ec.Limits.Surface.W != 400 || ec.Limits.Surface.H != 300 {
		t.Fatalf("surface = %+v", ec.Limits.Surface)
	}
	if ec.Limits.MaxImageSize != 20*400 {
		t.Fatalf("max image = %v", ec.Limits.MaxImageSize)
	}
	if !ec.AllowAdjacency {
		t.Fatalf("adjacency flag lost")
	}
	if ec.History.MaxEntries != cfg.Editor.HistoryDepth {
		t.Fatalf("history depth = %d", ec.History.MaxEntries)
	}
}

func TestCreateBindSaveReopen(t *testing.T) {
	root := filepath.Join(t.TempDir(), "card")
	ws, err := Create(root, "", 0, 0, config.Defaults())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ws.Handle.Doc.Name != "card" {
		t.Fatalf("name = %q", ws.Handle.Doc.Name)
	}
	if s := ws.Editor.Surface(); s.W != 600 || s.H != 600 {
		t.Fatalf("surface = %+v", s)
	}
	f := ws.Editor.AddCircleFrame(300, 300, 100)
	img, err := ws.BindFile(f.ID, writePNG(t, t.TempDir(), 40, 20))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if img.ScaleX != 10 {
		t.Fatalf("cover scale = %v, want 10", img.ScaleX)
	}
	if err := ws.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	again, err := Open(root, config.Defaults())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if again.Editor.Store().Len() != 2 {
		t.Fatalf("nodes = %d", again.Editor.Store().Len())
	}
	res := again.Editor.Resolve()
	if len(res.Pairs) != 1 || res.Pairs[0].Frame.ID != f.ID || res.Pairs[0].Image.ID != img.ID {
		t.Fatalf("pairs = %+v", res.Pairs)
	}
	bmp, err := again.Editor.Bitmap(img.Image.Src)
	if err != nil || bmp == nil {
		t.Fatalf("bitmap from library: %v %v", bmp, err)
	}
	lines := again.Describe()
	if len(lines) != 2 || !strings.Contains(lines[0], "-> "+img.ID) {
		t.Fatalf("describe = %q", lines)
	}
}

func TestStructuralPushesAreMirrored(t *testing.T) {
	ws, err := Create(t.TempDir(), "m", 300, 300, config.Defaults())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ws.Editor.AddRectFrame(150, 150, 80, 60)
	ws.Editor.AddCircleFrame(100, 100, 30)
	recs, err := storage.ListSnapshots(context.Background(), ws.Handle, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("mirrored snapshots = %d, want 2", len(recs))
	}
	for _, r := range recs {
		if !r.Structural || len(r.Blob) == 0 {
			t.Fatalf("bad record %+v", r)
		}
	}
}

func TestFindUnknown(t *testing.T) {
	ws, err := Create(t.TempDir(), "x", 100, 100, config.Defaults())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ws.Find("frame_nope"); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("err = %v", err)
	}
	if _, err := ws.BindFile("frame_nope", "x.png"); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("bind err = %v", err)
	}
}
