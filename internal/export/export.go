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
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"photoframe/internal/domain"
	applog "photoframe/internal/log"
	"photoframe/internal/scene"
	"photoframe/internal/storage"
)

// Output formats.
const (
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// EncodePNG renders s and returns the PNG bytes.
func EncodePNG(s *scene.Store, surf domain.Surface, opt RenderOptions) ([]byte, error) {
	img, err := Render(s, surf, opt)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// pageSizePt converts the surface to PDF points. Surface units are pixels at
// the document DPI; a zero DPI maps one unit to one point.
func pageSizePt(surf domain.Surface) (float64, float64) {
	if surf.DPI <= 0 {
		return surf.Width, surf.Height
	}
	f := 72.0 / float64(surf.DPI)
	return surf.Width * f, surf.Height * f
}

// EncodePDF renders s and embeds the flattened bitmap as the only page of a
// PDF whose page box has the surface aspect.
func EncodePDF(s *scene.Store, surf domain.Surface, title string, opt RenderOptions) ([]byte, error) {
	pngBytes, err := EncodePNG(s, surf, opt)
	if err != nil {
		return nil, err
	}
	w, h := pageSizePt(surf)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetTitle(title, true)
	pdf.SetAuthor("photoframe", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: w, Ht: h})
	const name = "surface"
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(pngBytes))
	pdf.ImageOptions(name, 0, 0, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode dispatches on format.
func Encode(format string, s *scene.Store, surf domain.Surface, title string, opt RenderOptions) ([]byte, error) {
	switch format {
	case FormatPNG:
		return EncodePNG(s, surf, opt)
	case FormatPDF:
		return EncodePDF(s, surf, title, opt)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// ExportDesign writes the flattened design into the exports folder of dh and
// records the export in the design index. It returns the written path.
func ExportDesign(ctx context.Context, dh *storage.DesignHandle, s *scene.Store, format string, opt RenderOptions) (string, error) {
	if dh == nil {
		return "", fmt.Errorf("design handle is nil")
	}
	ctx = applog.ContextWithDesign(ctx, dh.Root)
	l := applog.WithOperation(applog.WithComponent("export"), "export").With(slog.String("format", format))
	data, err := Encode(format, s, dh.Doc.Surface, dh.Doc.Name, opt)
	if err != nil {
		l.ErrorContext(ctx, "encode failed", slog.Any("err", err))
		return "", err
	}
	dir := filepath.Join(dh.Root, storage.ExportsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	now := time.Now()
	name := fmt.Sprintf("design-%s.%s", now.Format("20060102-150405"), format)
	out := filepath.Join(dir, name)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", format, err)
	}
	rel := filepath.ToSlash(filepath.Join(storage.ExportsDirName, name))
	if err := storage.RecordExport(ctx, dh, storage.ExportRecord{TS: now, Format: format, Path: rel, Bytes: int64(len(data))}); err != nil {
		l.WarnContext(ctx, "record export failed", slog.Any("err", err))
	}
	l.InfoContext(ctx, "exported", slog.String("path", out), slog.Int("bytes", len(data)))
	return out, nil
}
