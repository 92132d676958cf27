/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"photoframe/internal/domain"
	"photoframe/internal/scene"
	"photoframe/internal/storage"
	"photoframe/internal/textlayout"

	"golang.org/x/image/font/gofont/goregular"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var red = color.RGBA{R: 255, A: 255}

func isRed(c color.RGBA) bool { return c.R > 250 && c.G < 5 && c.B < 5 && c.A > 250 }

// circleScene is a 200x200 surface with a radius 50 circle frame at (100,100)
// holding a red square image that covers it.
func circleScene() (*scene.Store, domain.Surface) {
	f := scene.NewCircleFrame(100, 100, 50)
	img := scene.NewImage("red", solid(10, 10, red), 0, 0)
	scene.Link(f, img)
	scene.PlaceCovering(f, img)
	return scene.NewStore(f, img), domain.Surface{Width: 200, Height: 200, DPI: 300, Background: "white"}
}

func TestRenderClipsFrameImage(t *testing.T) {
	s, surf := circleScene()
	img, err := Render(s, surf, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("unexpected size %v", b)
	}
	if c := img.RGBAAt(100, 100); !isRed(c) {
		t.Fatalf("center should be red, got %v", c)
	}
	// inside the image square but outside the circle
	if c := img.RGBAAt(55, 55); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Fatalf("corner should be clipped to white, got %v", c)
	}
}

func TestRenderTransparentBackground(t *testing.T) {
	s, surf := circleScene()
	img, err := Render(s, surf, RenderOptions{Background: BackgroundTransparent})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c := img.RGBAAt(2, 2); c.A != 0 {
		t.Fatalf("expected transparent corner, got %v", c)
	}
}

func TestRenderScale(t *testing.T) {
	s, surf := circleScene()
	img, err := Render(s, surf, RenderOptions{Scale: 0.5})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Fatalf("unexpected size %v", b)
	}
	if c := img.RGBAAt(50, 50); !isRed(c) {
		t.Fatalf("center should be red, got %v", c)
	}
}

func TestRenderPlaceholdersAndHidden(t *testing.T) {
	f := scene.NewRectFrame(50, 50, 40, 40)
	hidden := scene.NewOther("hidden", 150, 150, 40, 40)
	hidden.Visible = false
	s := scene.NewStore(f, hidden)
	surf := domain.Surface{Width: 200, Height: 200}

	plain, err := Render(s, surf, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c := plain.RGBAAt(50, 50); c.R != 255 {
		t.Fatalf("empty frame must not print, got %v", c)
	}
	withPH, err := Render(s, surf, RenderOptions{Placeholders: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c := withPH.RGBAAt(50, 50); c.R != placeholderFill.R {
		t.Fatalf("expected placeholder fill, got %v", c)
	}
	if c := withPH.RGBAAt(150, 150); c.R != 255 || c.G != 255 {
		t.Fatalf("hidden node drawn: %v", c)
	}
}

func TestRenderInvalidSurface(t *testing.T) {
	s, _ := circleScene()
	if _, err := Render(s, domain.Surface{}, RenderOptions{}); err == nil {
		t.Fatalf("expected error for empty surface")
	}
	if _, err := Render(nil, domain.Surface{Width: 1, Height: 1}, RenderOptions{}); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestEncodePNGDecodes(t *testing.T) {
	s, surf := circleScene()
	data, err := EncodePNG(s, surf, RenderOptions{})
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 200 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestEncodePDF(t *testing.T) {
	s, surf := circleScene()
	data, err := EncodePDF(s, surf, "card", RenderOptions{})
	if err != nil {
		t.Fatalf("EncodePDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
	w, h := pageSizePt(surf)
	if w != 48 || h != 48 {
		t.Fatalf("expected 48pt page at 300dpi, got %gx%g", w, h)
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	s, surf := circleScene()
	if _, err := Encode("tiff", s, surf, "", RenderOptions{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseBackground(t *testing.T) {
	if ParseBackground(" Transparent ") != BackgroundTransparent {
		t.Fatalf("transparent not parsed")
	}
	if ParseBackground("blue") != BackgroundWhite || BackgroundWhite.String() != "white" {
		t.Fatalf("fallback should be white")
	}
}

func TestExportDesignRecordsExport(t *testing.T) {
	root := t.TempDir()
	s, surf := circleScene()
	doc := domain.NewDocument("card", surf.Width, surf.Height)
	dh, err := storage.InitDesign(root, doc)
	if err != nil {
		t.Fatalf("InitDesign: %v", err)
	}
	ctx := context.Background()
	out, err := ExportDesign(ctx, dh, s, FormatPNG, RenderOptions{})
	if err != nil {
		t.Fatalf("ExportDesign: %v", err)
	}
	st, err := os.Stat(out)
	if err != nil || st.Size() == 0 {
		t.Fatalf("export missing: %v", err)
	}
	list, err := storage.ListExports(ctx, dh, 5)
	if err != nil || len(list) != 1 || list[0].Format != FormatPNG || list[0].Bytes != st.Size() {
		t.Fatalf("export not recorded: %+v %v", list, err)
	}
}

func darkPixels(img *image.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c := img.RGBAAt(x, y); c.R < 100 && c.G < 100 && c.B < 100 {
				n++
			}
		}
	}
	return n
}

func TestRenderOtherLabels(t *testing.T) {
	label := scene.NewOther("Happy birthday Anna", 100, 50, 120, 60)
	s := scene.NewStore(label)
	surf := domain.Surface{Width: 200, Height: 100}

	basic, err := Render(s, surf, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	box := image.Rect(40, 20, 160, 80)
	if darkPixels(basic, box) == 0 {
		t.Fatalf("label text not drawn")
	}
	if darkPixels(basic, image.Rect(0, 0, 35, 100)) != 0 {
		t.Fatalf("label text escaped its box")
	}

	fonts := textlayout.NewFonts()
	if err := fonts.LoadBytes("go", goregular.TTF); err != nil {
		t.Fatalf("load font: %v", err)
	}
	ttf, err := Render(s, surf, RenderOptions{Fonts: fonts, LabelFamily: "go"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if darkPixels(ttf, box) == 0 {
		t.Fatalf("label text not drawn with loaded font")
	}
	if bytes.Equal(basic.Pix, ttf.Pix) {
		t.Fatalf("loaded font should change the output")
	}
}
