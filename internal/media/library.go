/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"photoframe/internal/domain"
	"photoframe/internal/editor"
	applog "photoframe/internal/log"
	"photoframe/internal/scene"
	"photoframe/internal/storage"
)

// ErrAssetNotFound is returned when no stored file matches a key.
var ErrAssetNotFound = errors.New("asset not found")

// Library stores imported images under <root>/assets named by content hash
// and serves decoded bitmaps by key.
type Library struct {
	root string
	log  *slog.Logger

	mu    sync.Mutex
	cache map[string]image.Image
}

var _ scene.Bitmaps = (*Library)(nil)

// NewLibrary returns a library for the design directory root.
func NewLibrary(root string) *Library {
	return &Library{
		root:  root,
		log:   applog.WithComponent("media").With(slog.String("root", root)),
		cache: map[string]image.Image{},
	}
}

// Key returns the content key of data.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// Import copies the image file at path into the library. Importing the same
// content twice yields the same asset.
func (l *Library) Import(path string) (domain.Asset, image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Asset{}, nil, fmt.Errorf("import %s: %w", path, err)
	}
	return l.ImportBytes(data)
}

// ImportBytes is Import for in-memory file contents.
func (l *Library) ImportBytes(data []byte) (domain.Asset, image.Image, error) {
	img, format, err := DecodeBytes(data)
	if err != nil {
		return domain.Asset{}, nil, err
	}
	key := Key(data)
	rel := filepath.ToSlash(filepath.Join(storage.AssetsDirName, key+ExtFor(format)))
	dst := filepath.Join(l.root, filepath.FromSlash(rel))
	if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return domain.Asset{}, nil, fmt.Errorf("ensure assets dir: %w", err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return domain.Asset{}, nil, fmt.Errorf("store asset: %w", err)
		}
		l.log.Info("asset stored", slog.String("key", key), slog.String("format", format), slog.Int("bytes", len(data)))
	}
	b := img.Bounds()
	l.mu.Lock()
	l.cache[key] = img
	l.mu.Unlock()
	return domain.Asset{Key: key, Path: rel, Mime: MimeFor(format), Width: b.Dx(), Height: b.Dy()}, img, nil
}

// Bitmap returns the decoded image stored under key.
func (l *Library) Bitmap(key string) (image.Image, error) {
	l.mu.Lock()
	if img, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return img, nil
	}
	l.mu.Unlock()
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return nil, fmt.Errorf("%w: %q", ErrAssetNotFound, key)
	}
	matches, err := filepath.Glob(filepath.Join(l.root, storage.AssetsDirName, key+".*"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrAssetNotFound, key)
	}
	img, _, err := DecodeFile(matches[0])
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cache[key] = img
	l.mu.Unlock()
	return img, nil
}

// FilePicker implements editor.ImagePicker on top of a Library. Choose asks
// the user for a file path; an empty path means the user backed out.
type FilePicker struct {
	Lib    *Library
	Choose func(ctx context.Context, frame *scene.Node) (string, error)
}

var _ editor.ImagePicker = (*FilePicker)(nil)

// Pick imports the chosen file.
func (p *FilePicker) Pick(ctx context.Context, frame *scene.Node) (editor.Picked, error) {
	if p.Choose == nil || p.Lib == nil {
		return editor.Picked{}, errors.New("file picker not configured")
	}
	path, err := p.Choose(ctx, frame)
	if err != nil {
		return editor.Picked{}, err
	}
	if strings.TrimSpace(path) == "" {
		return editor.Picked{}, editor.ErrPickCancelled
	}
	if err := ctx.Err(); err != nil {
		return editor.Picked{}, err
	}
	a, img, err := p.Lib.Import(path)
	if err != nil {
		return editor.Picked{}, err
	}
	return editor.Picked{Src: a.Key, Bitmap: img, Asset: a}, nil
}

// PathPicker returns a picker that always chooses path.
func PathPicker(lib *Library, path string) *FilePicker {
	return &FilePicker{Lib: lib, Choose: func(context.Context, *scene.Node) (string, error) { return path, nil }}
}
