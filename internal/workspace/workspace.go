/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package workspace binds a design directory on disk to a live editor:
// config-derived limits, the content-addressed asset library and history
// mirroring into the design index.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"photoframe/internal/config"
	"photoframe/internal/domain"
	"photoframe/internal/editor"
	applog "photoframe/internal/log"
	"photoframe/internal/media"
	"photoframe/internal/scene"
	"photoframe/internal/storage"
	"photoframe/internal/undo"
)

// ErrUnknownNode is returned by Find for ids that are not on the surface.
var ErrUnknownNode = errors.New("unknown node")

// snapshotKeep bounds the mirrored history rows per design.
const snapshotKeep = 200

// Workspace is an open design.
type Workspace struct {
	Handle *storage.DesignHandle
	Lib    *media.Library
	Editor *editor.Editor

	log *slog.Logger
	// ctx tags log records with the design root.
	ctx context.Context
}

// EditorConfig derives editor tunables for a w x h surface from cfg.
func EditorConfig(cfg config.AppConfig, w, h float64) editor.Config {
	ec := cfg.Editor
	lim := scene.DefaultLimits(w, h)
	if ec.MinNodeSize > 0 {
		lim.MinSize = ec.MinNodeSize
	}
	if ec.MaxFrameSize > 0 {
		lim.MaxFrameSize = ec.MaxFrameSize
	}
	if ec.MaxImageSize > 0 {
		lim.MaxImageSize = ec.MaxImageSize
	}
	return editor.Config{
		Limits:              lim,
		DoubleClickDebounce: ec.DoubleClickDebounce(),
		AllowAdjacency:      ec.AdjacencyFallback,
		History:             undo.Config{MaxEntries: ec.HistoryDepth, Debounce: ec.HistoryDebounce()},
	}
}

// Create scaffolds a new design at root. Zero sizes fall back to cfg.
func Create(root, name string, w, h float64, cfg config.AppConfig) (*Workspace, error) {
	if w <= 0 {
		w = cfg.Editor.SurfaceWidth
	}
	if h <= 0 {
		h = cfg.Editor.SurfaceHeight
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(root)
	}
	dh, err := storage.InitDesign(root, domain.NewDocument(name, w, h))
	if err != nil {
		return nil, err
	}
	return attach(dh, cfg)
}

// Open loads the design at root and resolves its frame/image pairs.
func Open(root string, cfg config.AppConfig) (*Workspace, error) {
	dh, err := storage.Open(root)
	if err != nil {
		return nil, err
	}
	return attach(dh, cfg)
}

func attach(dh *storage.DesignHandle, cfg config.AppConfig) (*Workspace, error) {
	ws := &Workspace{
		Handle: dh,
		Lib:    media.NewLibrary(dh.Root),
		log:    applog.WithComponent("workspace"),
		ctx:    applog.ContextWithDesign(context.Background(), dh.Root),
	}
	ec := EditorConfig(cfg, dh.Doc.Surface.Width, dh.Doc.Surface.Height)
	ec.Assets = ws.Lib
	ec.OnSnapshot = ws.mirror
	ws.Editor = editor.New(ec, nil)
	if err := ws.Editor.Deserialize(dh.Doc); err != nil {
		return nil, err
	}
	if dh.FromBackup {
		ws.log.WarnContext(ws.ctx, "design restored from backup")
	}
	return ws, nil
}

// mirror copies structural history entries into the index. Failures only log.
func (ws *Workspace) mirror(s undo.Snapshot) {
	if !s.Structural {
		return
	}
	ctx, cancel := context.WithTimeout(ws.ctx, 2*time.Second)
	defer cancel()
	if err := storage.SaveSnapshot(ctx, ws.Handle, s.Blob, true, s.TS); err != nil {
		ws.log.WarnContext(ctx, "snapshot mirror failed", slog.Any("err", err))
		return
	}
	if _, err := storage.PruneOldSnapshots(ctx, ws.Handle, snapshotKeep); err != nil {
		ws.log.DebugContext(ctx, "snapshot prune failed", slog.Any("err", err))
	}
}

// Save writes the editor state back to design.json.
func (ws *Workspace) Save() error {
	ws.Handle.Doc = ws.Editor.Serialize()
	return storage.Save(ws.Handle)
}

// Find returns the node with the given id.
func (ws *Workspace) Find(id string) (*scene.Node, error) {
	if n := ws.Editor.Store().ByID(id); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
}

// BindFile imports path into the asset library and binds it to the frame with the given id.
func (ws *Workspace) BindFile(frameID, path string) (*scene.Node, error) {
	f, err := ws.Find(frameID)
	if err != nil {
		return nil, err
	}
	asset, bmp, err := ws.Lib.Import(path)
	if err != nil {
		return nil, err
	}
	return ws.Editor.BindImage(f, editor.Picked{Src: asset.Key, Bitmap: bmp, Asset: asset})
}

// Describe lists the stacking order bottom to top with pairing info.
func (ws *Workspace) Describe() []string {
	res := ws.Editor.Resolve()
	var out []string
	for i, n := range ws.Editor.Store().Nodes() {
		line := fmt.Sprintf("%2d %-6s %s (%.0f,%.0f)", i, n.Kind, n.ID, n.X, n.Y)
		switch {
		case n.IsFrame():
			if p, ok := res.PairFor(n); ok {
				line += " -> " + p.Image.ID
			} else {
				line += " empty"
			}
		case n.IsImage():
			line += fmt.Sprintf(" src=%s scale=%.3f", n.Image.Src, n.ScaleX)
		default:
			if n.Label != "" {
				line += " " + n.Label
			}
		}
		out = append(out, line)
	}
	return out
}
