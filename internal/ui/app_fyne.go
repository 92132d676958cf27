//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"photoframe/internal/config"
	"photoframe/internal/crash"
	"photoframe/internal/editor"
	"photoframe/internal/export"
	applog "photoframe/internal/log"
	"photoframe/internal/scene"
	pfstorage "photoframe/internal/storage"
	"photoframe/internal/telemetry"
	"photoframe/internal/version"
	"photoframe/internal/workspace"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Run starts the desktop UI. designDir is opened immediately when set.
func Run(designDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	var ws *workspace.Workspace
	defer crash.Guard(func() *pfstorage.DesignHandle {
		if ws == nil {
			return nil
		}
		return ws.Handle
	})
	telemetry.Event(telemetry.EventStarted, map[string]any{"surface": "desktop", "version": version.Version})

	fyneApp := app.NewWithID("photoframe")
	w := fyneApp.NewWindow("PhotoFrame")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1100)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 640 {
		winW = 640
	}
	if winH < 480 {
		winH = 480
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	blank := editor.New(workspace.EditorConfig(cfg, cfg.Editor.SurfaceWidth, cfg.Editor.SurfaceHeight), nil)
	surface := NewSurfaceCanvas(blank)
	surface.OnError = func(err error) { dialog.ShowError(err, w) }
	surface.OnChange = func() { status.SetText(describeSession(surface.Editor())) }

	recent := loadRecentDesigns(prefs)
	recentList := widget.NewList(
		func() int { return len(recent) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(filepath.Base(recent[i])) },
	)

	attach := func(next *workspace.Workspace) {
		ws = next
		next.Editor.SetPicker(&dialogPicker{win: w, ws: next, done: surface.changed, fail: surface.fail})
		next.Editor.AddListener(editor.ListenerFuncs{
			OnMode: func(m editor.Mode, target *scene.Node) {
				l.Debug("mode changed", slog.String("mode", m.String()))
			},
		})
		surface.SetEditor(next.Editor)
		w.SetTitle(fmt.Sprintf("PhotoFrame - %s", next.Handle.Doc.Name))
		addRecentDesign(prefs, next.Handle.Root)
		recent = loadRecentDesigns(prefs)
		recentList.Refresh()
		status.SetText(fmt.Sprintf("Opened %s", next.Handle.Root))
		if next.Handle.FromBackup {
			dialog.ShowInformation("Recovered", "design.json was unreadable; the latest backup was loaded.", w)
		}
	}
	openDir := func(dir string) {
		abs, _ := filepath.Abs(dir)
		l.Info("open design", slog.String("root", abs))
		next, err := workspace.Open(abs, cfg)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		attach(next)
	}
	createDir := func(dir string) {
		abs, _ := filepath.Abs(dir)
		l.Info("create design", slog.String("root", abs))
		next, err := workspace.Create(abs, "", 0, 0, cfg)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		attach(next)
	}
	recentList.OnSelected = func(id widget.ListItemID) {
		if id >= 0 && int(id) < len(recent) {
			openDir(recent[id])
		}
		recentList.UnselectAll()
	}

	requireDesign := func() bool {
		if ws == nil {
			dialog.ShowInformation("No design", "Open or create a design first.", w)
			return false
		}
		return true
	}
	save := func() {
		if !requireDesign() {
			return
		}
		if err := ws.Save(); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText(fmt.Sprintf("Saved %s", ws.Handle.Path))
	}
	undoAction := func() {
		if _, err := surface.Editor().Undo(); err != nil {
			surface.fail(err)
		}
		surface.changed()
	}
	redoAction := func() {
		if _, err := surface.Editor().Redo(); err != nil {
			surface.fail(err)
		}
		surface.changed()
	}
	addFrame := func(shape scene.Shape) {
		if !requireDesign() {
			return
		}
		ed := ws.Editor
		s := ed.Surface()
		side := min(s.W, s.H) / 3
		if shape == scene.ShapeCircle {
			ed.AddCircleFrame(s.W/2, s.H/2, side/2)
		} else {
			ed.AddRectFrame(s.W/2, s.H/2, side, side*0.75)
		}
		surface.changed()
	}
	exportAs := func(format string) {
		if !requireDesign() {
			return
		}
		opt := export.RenderOptions{Scale: 1, Background: export.ParseBackground(ws.Handle.Doc.Surface.Background)}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		out, err := export.ExportDesign(ctx, ws.Handle, ws.Editor.Store(), format, opt)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		telemetry.Event(telemetry.EventExport, map[string]any{"format": format, "source": "ui"})
		status.SetText(fmt.Sprintf("Exported %s", out))
	}

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Design...", func() {
			dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if u != nil {
					createDir(u.Path())
				}
			}, w)
		}),
		fyne.NewMenuItem("Open Design...", func() {
			dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if u != nil {
					openDir(u.Path())
				}
			}, w)
		}),
		fyne.NewMenuItem("Save", save),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", undoAction),
		fyne.NewMenuItem("Redo", redoAction),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete", func() { surface.Editor().DeleteActive(); surface.changed() }),
		fyne.NewMenuItem("Remove Image", func() {
			if f := surface.Editor().Session().Frame; f != nil {
				surface.Editor().Unbind(f)
			}
			surface.changed()
		}),
		fyne.NewMenuItem("Exit Editing", func() { surface.Editor().Exit(); surface.changed() }),
	)
	insertMenu := fyne.NewMenu("Insert",
		fyne.NewMenuItem("Circle Frame", func() { addFrame(scene.ShapeCircle) }),
		fyne.NewMenuItem("Rectangle Frame", func() { addFrame(scene.ShapeRect) }),
	)
	arrangeMenu := fyne.NewMenu("Arrange",
		fyne.NewMenuItem("Bring to Front", func() { surface.layer(editor.BringToFront); surface.changed() }),
		fyne.NewMenuItem("Bring Forward", func() { surface.layer(editor.BringForward); surface.changed() }),
		fyne.NewMenuItem("Send Backward", func() { surface.layer(editor.SendBackward); surface.changed() }),
		fyne.NewMenuItem("Send to Back", func() { surface.layer(editor.SendToBack); surface.changed() }),
	)
	exportMenu := fyne.NewMenu("Export",
		fyne.NewMenuItem("PNG", func() { exportAs(export.FormatPNG) }),
		fyne.NewMenuItem("PDF", func() { exportAs(export.FormatPDF) }),
	)
	aboutMenu := fyne.NewMenu("About", fyne.NewMenuItem("Version", func() {
		dialog.ShowInformation("PhotoFrame", version.String(), w)
	}))
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, insertMenu, arrangeMenu, exportMenu, aboutMenu))

	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { undoAction() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { redoAction() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { save() })

	left := container.NewBorder(widget.NewLabel("Recent designs"), nil, nil, nil, recentList)
	split := container.NewHSplit(left, surface)
	split.Offset = 0.2
	w.SetContent(container.NewBorder(nil, status, nil, nil, split))

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})

	if designDir != "" {
		if _, err := os.Stat(filepath.Join(designDir, pfstorage.DesignFileName)); err == nil {
			openDir(designDir)
		} else {
			createDir(designDir)
		}
	}
	w.ShowAndRun()
	return nil
}

// describeSession renders the status line for the current edit session.
func describeSession(ed *editor.Editor) string {
	sess := ed.Session()
	target := "nothing selected"
	if n := sess.Target(); n != nil {
		target = n.ID
	}
	return fmt.Sprintf("%s | %s | %d nodes", sess.Mode, target, ed.Store().Len())
}

// dialogPicker asks for an image with the fyne file dialog. The dialog is
// asynchronous, so Pick reports a cancel and the callback binds the image.
type dialogPicker struct {
	win  fyne.Window
	ws   *workspace.Workspace
	done func()
	fail func(error)
}

func (p *dialogPicker) Pick(_ context.Context, frame *scene.Node) (editor.Picked, error) {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			p.fail(err)
			return
		}
		if r == nil {
			return
		}
		defer func() { _ = r.Close() }()
		data, err := io.ReadAll(r)
		if err != nil {
			p.fail(fmt.Errorf("read %s: %w", r.URI().Name(), err))
			return
		}
		asset, bmp, err := p.ws.Lib.ImportBytes(data)
		if err != nil {
			p.fail(err)
			return
		}
		if _, err := p.ws.Editor.BindImage(frame, editor.Picked{Src: asset.Key, Bitmap: bmp, Asset: asset}); err != nil {
			p.fail(err)
			return
		}
		telemetry.Event(telemetry.EventImageBound, map[string]any{"format": asset.Mime, "source": "ui"})
		p.done()
	}, p.win)
	d.SetFilter(storage.NewExtensionFileFilter(imageExts))
	d.Show()
	return editor.Picked{}, editor.ErrPickCancelled
}

// Recent design persistence helpers.
const recentPrefsKey = "recent.designs"
const recentMax = 10

func loadRecentDesigns(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s, pfstorage.DesignFileName)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentDesigns(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentDesign(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentDesigns(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// case-insensitive on Windows
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentDesigns(p, out)
}
