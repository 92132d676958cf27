/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// Fonts holds parsed OpenType fonts by family and caches faces per size.
// The zero value is empty; Face then always returns the basic face.
type Fonts struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
	first string
}

type faceKey struct {
	family string
	size   float64
}

func NewFonts() *Fonts {
	return &Fonts{fonts: make(map[string]*opentype.Font), faces: make(map[faceKey]font.Face)}
}

// LoadFile parses a .ttf or .otf file and registers it under family.
func (fs *Fonts) LoadFile(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fs.LoadBytes(family, data)
}

// LoadBytes registers an in-memory font under family.
func (fs *Fonts) LoadBytes(family string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", family, err)
	}
	family = strings.ToLower(strings.TrimSpace(family))
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.fonts == nil {
		fs.fonts = make(map[string]*opentype.Font)
		fs.faces = make(map[faceKey]font.Face)
	}
	fs.fonts[family] = f
	if fs.first == "" {
		fs.first = family
	}
	return nil
}

// Face returns family at sizePx. An unknown family falls back to the first
// loaded font, and an empty library to Basic.
func (fs *Fonts) Face(family string, sizePx float64) font.Face {
	if fs == nil || sizePx <= 0 {
		return Basic()
	}
	family = strings.ToLower(strings.TrimSpace(family))
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.fonts[family]
	if !ok {
		if f, ok = fs.fonts[fs.first]; !ok {
			return Basic()
		}
		family = fs.first
	}
	key := faceKey{family: family, size: sizePx}
	if face, ok := fs.faces[key]; ok {
		return face
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePx, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return Basic()
	}
	fs.faces[key] = face
	return face
}
