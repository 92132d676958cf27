/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"fmt"

	"photoframe/internal/vector"
)

// ErrBoundsViolation is returned when a transform leaves the allowed size
// range or moves a node completely off the surface.
var ErrBoundsViolation = errors.New("bounds violation")

// Limits are the constraints a committed transform has to satisfy.
type Limits struct {
	Surface      vector.Rect
	MinSize      float64
	MaxFrameSize float64
	MaxImageSize float64
}

// DefaultLimits returns limits for a w x h surface.
func DefaultLimits(w, h float64) Limits {
	return Limits{Surface: vector.R(0, 0, w, h), MinSize: 10, MaxFrameSize: 4 * max(w, h), MaxImageSize: 20 * max(w, h)}
}

// CheckBounds validates the current geometry of n.
func CheckBounds(n *Node, lim Limits) error {
	if n == nil || !(n.IsFrame() || n.IsImage()) {
		return nil
	}
	s := n.Size()
	limit := lim.MaxFrameSize
	if n.IsImage() {
		limit = lim.MaxImageSize
	}
	if lim.MinSize > 0 && (s.W < lim.MinSize || s.H < lim.MinSize) {
		return fmt.Errorf("%s %s: size %.1fx%.1f below %.1f: %w", n.Kind, n.ID, s.W, s.H, lim.MinSize, ErrBoundsViolation)
	}
	if limit > 0 && (s.W > limit || s.H > limit) {
		return fmt.Errorf("%s %s: size %.1fx%.1f above %.1f: %w", n.Kind, n.ID, s.W, s.H, limit, ErrBoundsViolation)
	}
	if !lim.Surface.Empty() && !lim.Surface.Overlaps(n.Bounds()) {
		return fmt.Errorf("%s %s: off surface: %w", n.Kind, n.ID, ErrBoundsViolation)
	}
	return nil
}
