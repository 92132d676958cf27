/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "photoframe/internal/vector"

// Affordance selects how the surface decorates a node.
type Affordance uint8

const (
	AffordanceNone Affordance = iota
	AffordanceFrameActive
	AffordanceFrameSecondary
	AffordanceImageActive
)

func (a Affordance) String() string {
	switch a {
	case AffordanceFrameActive:
		return "frame-active"
	case AffordanceFrameSecondary:
		return "frame-secondary"
	case AffordanceImageActive:
		return "image-active"
	default:
		return "none"
	}
}

var (
	accent = vector.Color{R: 0x1e, G: 0x88, B: 0xe5, A: 255}
	muted  = vector.Color{R: 0x90, G: 0xa4, B: 0xae, A: 200}
	warm   = vector.Color{R: 0xff, G: 0x8f, B: 0x00, A: 255}
)

// Stroke returns the outline style for a.
func (a Affordance) Stroke() vector.Stroke {
	switch a {
	case AffordanceFrameActive:
		return vector.Stroke{Color: accent, Width: 2, HandleSize: 8, Enabled: true}
	case AffordanceFrameSecondary:
		return vector.Stroke{Color: muted, Width: 1, Dash: []float64{4, 3}, HandleSize: 6, Enabled: true}
	case AffordanceImageActive:
		return vector.Stroke{Color: warm, Width: 2, HandleSize: 8, Enabled: true}
	default:
		return vector.Stroke{}
	}
}
