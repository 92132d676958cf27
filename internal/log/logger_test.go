/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readJSONLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

// The rotating file sink carries static attrs, component/op and, when the
// record is logged with a design context, the design root.
func TestFileSinkTagsDesignRecords(t *testing.T) {
	// system temp dir: Windows refuses to remove a still-open t.TempDir file
	fpath := filepath.Join(os.TempDir(), fmt.Sprintf("pf_log_%d.json", time.Now().UnixNano()))
	Init(Options{Level: "debug", Format: "json", File: fpath})
	defer Init(Options{Level: "info"})

	ctx := ContextWithDesign(context.Background(), "/orders/42/design")
	l := WithOperation(WithComponent("workspace"), "mirror")
	l.InfoContext(ctx, "snapshot mirrored", slog.Int("nodes", 3))
	l.Debug("no design here")
	time.Sleep(50 * time.Millisecond)

	lines := readJSONLines(t, fpath)
	if len(lines) < 2 {
		t.Fatalf("want 2 log lines, got %d", len(lines))
	}
	tagged, plain := lines[len(lines)-2], lines[len(lines)-1]
	if tagged["app"] != "photoframe" || tagged["ver"] == nil {
		t.Fatalf("static attrs missing: %v", tagged)
	}
	if tagged["component"] != "workspace" || tagged["op"] != "mirror" || tagged["msg"] != "snapshot mirrored" {
		t.Fatalf("context attrs mismatch: %v", tagged)
	}
	if tagged["design"] != "/orders/42/design" || tagged["nodes"] != float64(3) {
		t.Fatalf("record attrs mismatch: %v", tagged)
	}
	if _, ok := plain["design"]; ok || plain["level"] != "DEBUG" {
		t.Fatalf("plain record = %v", plain)
	}
}

func TestDesignFromContext(t *testing.T) {
	if _, ok := DesignFromContext(nil); ok {
		t.Fatalf("nil context has no design")
	}
	if _, ok := DesignFromContext(ContextWithDesign(context.Background(), "")); ok {
		t.Fatalf("empty root must not count")
	}
	if root, ok := DesignFromContext(ContextWithDesign(context.Background(), "/d")); !ok || root != "/d" {
		t.Fatalf("DesignFromContext = %q, %v", root, ok)
	}
}
