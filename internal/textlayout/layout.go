/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout breaks node labels into lines that fit their box.
// Measurement goes through x/image/font faces so the result matches what
// the renderer draws.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Block is a label laid out for a maximum width, in pixels.
type Block struct {
	Lines      []string
	Width      float64
	LineHeight float64
	Height     float64
}

// Basic is the built-in 7x13 face used when no font is loaded.
func Basic() font.Face { return basicfont.Face7x13 }

// LineHeight returns the line advance of face in pixels.
func LineHeight(face font.Face) float64 {
	return float64(face.Metrics().Height) / 64
}

// Width measures s in pixels.
func Width(face font.Face, s string) float64 {
	d := &font.Drawer{Face: face}
	return float64(d.MeasureString(s)) / 64
}

// Layout word-wraps text at spaces to maxWidth; explicit newlines always
// break. A single word wider than maxWidth gets a line of its own. A
// maxWidth <= 0 disables wrapping.
func Layout(face font.Face, text string, maxWidth float64) Block {
	if face == nil {
		face = Basic()
	}
	b := Block{LineHeight: LineHeight(face)}
	space := Width(face, " ")
	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		var curW float64
		flush := func() {
			b.Lines = append(b.Lines, cur.String())
			if curW > b.Width {
				b.Width = curW
			}
			cur.Reset()
			curW = 0
		}
		for _, word := range strings.Fields(para) {
			w := Width(face, word)
			if cur.Len() > 0 && maxWidth > 0 && curW+space+w > maxWidth {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				curW += space
			}
			cur.WriteString(word)
			curW += w
		}
		flush()
	}
	b.Height = float64(len(b.Lines)) * b.LineHeight
	return b
}

// Fit drops trailing lines that do not fit maxHeight; the last kept line
// ends with an ellipsis when something was cut.
func (b Block) Fit(face font.Face, maxHeight float64) Block {
	if b.LineHeight <= 0 || b.Height <= maxHeight {
		return b
	}
	n := int(maxHeight / b.LineHeight)
	if n < 1 {
		n = 1
	}
	if n >= len(b.Lines) {
		return b
	}
	out := b
	out.Lines = append([]string(nil), b.Lines[:n]...)
	out.Lines[n-1] = strings.TrimRight(out.Lines[n-1], " ") + "..."
	out.Height = float64(n) * b.LineHeight
	out.Width = 0
	for _, l := range out.Lines {
		out.Width = max(out.Width, Width(face, l))
	}
	return out
}
