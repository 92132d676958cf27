/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the persisted design document. A design is one surface
// holding an ordered list of nodes, bottom-most first. It serializes to the
// human-readable design.json manifest.

// SchemaVersion is written into every saved document.
const SchemaVersion = 2

// Node type names as stored in JSON.
const (
	TypeFrame = "frame"
	TypeImage = "image"
	TypeOther = "other"
)

// Document is a complete design.
type Document struct {
	Version  int          `json:"version"`
	Name     string       `json:"name"`
	Surface  Surface      `json:"surface"`
	Metadata Metadata     `json:"metadata,omitempty"`
	Nodes    []NodeRecord `json:"nodes"`
	Assets   []Asset      `json:"assets,omitempty"`
}

// Surface is the fixed-aspect design area in surface units (pixels at 1x).
type Surface struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	DPI        int     `json:"dpi,omitempty"`
	Background string  `json:"background,omitempty"` // white or transparent
}

// Metadata carries optional order information.
type Metadata struct {
	OrderID  string `json:"orderId,omitempty"`
	Template string `json:"template,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// NodeRecord is one node. Geometry is center based. Both id schemes are kept
// so documents authored before uid links keep resolving.
type NodeRecord struct {
	Type     string  `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Rotation float64 `json:"rotation,omitempty"`
	Hidden   bool    `json:"hidden,omitempty"`

	// uid scheme
	UID          string `json:"uid,omitempty"`
	BoundImageID string `json:"boundImageId,omitempty"`
	BoundFrameID string `json:"boundFrameId,omitempty"`
	// legacy scheme
	LegacyID      string `json:"id,omitempty"`
	LegacyFrameID string `json:"frameId,omitempty"`

	// frames
	Shape  string  `json:"shape,omitempty"` // circle or rect
	Radius float64 `json:"radius,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Empty  bool    `json:"emptyFlag,omitempty"`

	// images
	Src        string  `json:"src,omitempty"`
	NativeW    float64 `json:"nativeWidth,omitempty"`
	NativeH    float64 `json:"nativeHeight,omitempty"`
	FrameBound bool    `json:"frameFlag,omitempty"`

	// others
	Label string `json:"label,omitempty"`
}

// Asset describes an image file stored with the design.
type Asset struct {
	Key    string `json:"key"`  // content hash
	Path   string `json:"path"` // relative to the design root
	Mime   string `json:"mime,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// AssetByKey returns the asset with key k.
func (d *Document) AssetByKey(k string) (Asset, bool) {
	for _, a := range d.Assets {
		if a.Key == k {
			return a, true
		}
	}
	return Asset{}, false
}

// PutAsset adds or replaces the asset with the same key.
func (d *Document) PutAsset(a Asset) {
	for i := range d.Assets {
		if d.Assets[i].Key == a.Key {
			d.Assets[i] = a
			return
		}
	}
	d.Assets = append(d.Assets, a)
}

// NewDocument returns an empty design for a w x h surface.
func NewDocument(name string, w, h float64) Document {
	return Document{Version: SchemaVersion, Name: name, Surface: Surface{Width: w, Height: h, DPI: 300, Background: "white"}, Nodes: []NodeRecord{}}
}
