/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"fmt"

	"photoframe/internal/scene"
)

// Mode is the edit mode of the session.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeFrameEdit
	ModeImageEdit
)

func (m Mode) String() string {
	switch m {
	case ModeFrameEdit:
		return "frame-edit"
	case ModeImageEdit:
		return "image-edit"
	default:
		return "none"
	}
}

// ErrInvalidSession reports a session that contradicts the store.
var ErrInvalidSession = errors.New("invalid edit session")

// Session is the single active edit session of an editor.
// In ModeNone, Selected may hold a plain selection.
type Session struct {
	Mode     Mode
	Frame    *scene.Node
	Image    *scene.Node
	Selected *scene.Node
}

// Target returns the node the user is operating on.
func (s Session) Target() *scene.Node {
	switch s.Mode {
	case ModeImageEdit:
		return s.Image
	case ModeFrameEdit:
		return s.Frame
	default:
		return s.Selected
	}
}

// Validate checks the session invariants against st.
func (s Session) Validate(st *scene.Store) error {
	switch s.Mode {
	case ModeImageEdit:
		if s.Frame == nil || s.Image == nil {
			return fmt.Errorf("%w: image edit needs frame and image", ErrInvalidSession)
		}
		if !st.Contains(s.Frame) || !st.Contains(s.Image) {
			return fmt.Errorf("%w: image edit target not in store", ErrInvalidSession)
		}
		if scene.ImageOf(st, s.Frame) != s.Image {
			return fmt.Errorf("%w: %s is not bound to %s", ErrInvalidSession, s.Image.ID, s.Frame.ID)
		}
	case ModeFrameEdit:
		if s.Frame == nil || !st.Contains(s.Frame) {
			return fmt.Errorf("%w: frame edit without frame", ErrInvalidSession)
		}
		if s.Image != nil && scene.ImageOf(st, s.Frame) != s.Image {
			return fmt.Errorf("%w: stale image in frame edit", ErrInvalidSession)
		}
	default:
		if s.Frame != nil || s.Image != nil {
			return fmt.Errorf("%w: idle session holds a pair", ErrInvalidSession)
		}
		if s.Selected != nil && !st.Contains(s.Selected) {
			return fmt.Errorf("%w: selection not in store", ErrInvalidSession)
		}
	}
	return nil
}
