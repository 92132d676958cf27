/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"photoframe/internal/domain"
	"photoframe/internal/scene"
	"photoframe/internal/undo"
)

func (e *Editor) snapshotBlob() []byte {
	b, err := json.Marshal(e.Serialize())
	if err != nil {
		e.log.Error("snapshot encode failed", slog.Any("err", err))
		return nil
	}
	return b
}

func (e *Editor) push() { e.hist.Push(e.snapshotBlob()) }

func (e *Editor) pushNow() {
	s := e.hist.PushNow(e.snapshotBlob())
	if e.cfg.OnSnapshot != nil {
		e.cfg.OnSnapshot(s)
	}
}

// Undo restores the previous history entry.
func (e *Editor) Undo() (bool, error) {
	s, ok := e.hist.Undo()
	if !ok {
		return false, nil
	}
	return true, e.restore(s)
}

// Redo restores the next history entry.
func (e *Editor) Redo() (bool, error) {
	s, ok := e.hist.Redo()
	if !ok {
		return false, nil
	}
	return true, e.restore(s)
}

// restore rebuilds the store from s and re-enters the previous mode when its
// nodes still exist.
func (e *Editor) restore(s undo.Snapshot) error {
	var doc domain.Document
	if err := json.Unmarshal(s.Blob, &doc); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	prev := e.sess
	if err := e.load(doc); err != nil {
		return err
	}
	var frameID, imageID, selID string
	if prev.Frame != nil {
		frameID = prev.Frame.ID
	}
	if prev.Image != nil {
		imageID = prev.Image.ID
	}
	if prev.Selected != nil {
		selID = prev.Selected.ID
	}
	f, img := e.store.ByID(frameID), e.store.ByID(imageID)
	switch {
	case prev.Mode == ModeImageEdit && f != nil && img != nil && scene.ImageOf(e.store, f) == img:
		e.enterImageEdit(f, img)
	case prev.Mode != ModeNone && f != nil:
		e.enterFrameEdit(f)
	default:
		e.setSession(Session{Selected: e.store.ByID(selID)})
	}
	return nil
}

// Serialize returns the current design. Order is the current stacking order.
func (e *Editor) Serialize() domain.Document {
	doc := e.doc
	doc.Version = domain.SchemaVersion
	doc.Nodes = scene.Records(e.store)
	doc.Assets = append([]domain.Asset(nil), e.doc.Assets...)
	return doc
}

// Deserialize replaces the design with doc, resolves pairs and resets the
// session and history.
func (e *Editor) Deserialize(doc domain.Document) error {
	if err := e.load(doc); err != nil {
		return err
	}
	e.setSession(Session{})
	e.hist.Reset(e.snapshotBlob())
	return nil
}

func (e *Editor) load(doc domain.Document) error {
	if doc.Surface.Width <= 0 || doc.Surface.Height <= 0 {
		return fmt.Errorf("load design %q: invalid surface %vx%v", doc.Name, doc.Surface.Width, doc.Surface.Height)
	}
	nodes, err := scene.FromRecords(doc.Nodes, e)
	if err != nil {
		return fmt.Errorf("load design %q: %w", doc.Name, err)
	}
	e.doc = doc
	e.doc.Nodes = nil
	e.store.Batch(func() {
		e.store.Reset(nodes)
		res := e.resolve()
		scene.SyncAllClips(e.store, res)
		e.idleAll(res)
	})
	return nil
}

// Resolve runs the pairing resolver on demand (used by inspection tools).
func (e *Editor) Resolve() scene.Resolution { return e.resolve() }
