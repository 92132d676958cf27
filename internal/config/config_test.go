/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

// isolate points the config file at a temp dir and stubs the keyring.
func isolate(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, p)
	keyring.MockInit()
	return p
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
}

func TestEnvOverridesEditor(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAdjacency, "yes")
	t.Setenv(EnvHistoryDepth, "12")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Editor.AdjacencyFallback || cfg.Editor.HistoryDepth != 12 {
		t.Fatalf("editor overrides not applied: %#v", cfg.Editor)
	}
	if env, ok := EnvOverrideFor("editor.history_depth"); !ok || env != EnvHistoryDepth {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("editor.surface_width"); ok {
		t.Fatalf("surface width has no env override")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/pf.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/pf.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsDefaultsForZeroEditorFields(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Editor: EditorConfig{SurfaceWidth: 1200, LabelFont: " /fonts/label.ttf "}}
	mergeInto(&dst, &src)
	if dst.Editor.LabelFont != "/fonts/label.ttf" {
		t.Fatalf("label font not merged: %q", dst.Editor.LabelFont)
	}
	if dst.Editor.SurfaceWidth != 1200 || dst.Editor.SurfaceHeight != 600 || dst.Editor.HistoryDepth != 50 {
		t.Fatalf("unexpected editor config: %#v", dst.Editor)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/tmp/x.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/tmp/x.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveLoadRoundTripWithToken(t *testing.T) {
	path := isolate(t)
	cfg := Defaults()
	cfg.Editor.SurfaceWidth = 800
	cfg.Backend.DatabaseURL = "postgres://localhost/pf"
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if st, err := os.Stat(path); err != nil || st.Mode().Perm() != 0o600 {
		t.Fatalf("config file not written privately: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Editor.SurfaceWidth != 800 || got.Backend.DatabaseURL != "postgres://localhost/pf" || tok != "s3cret" {
		t.Fatalf("round trip mismatch: %#v token=%q", got, tok)
	}
	data, _ := os.ReadFile(path)
	if string(data) == "" || strings.Contains(string(data), "s3cret") {
		t.Fatalf("token must not be written to disk")
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken twice: %v", err)
	}
	if _, tok, _ := Load(); tok != "" {
		t.Fatalf("token should be gone, got %q", tok)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("editor: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDurations(t *testing.T) {
	d := Defaults()
	if d.Editor.HistoryDebounce() != 500*time.Millisecond || d.Editor.DoubleClickDebounce() != 300*time.Millisecond {
		t.Fatalf("unexpected editor durations")
	}
	if (BackendConfig{}).Timeout() != 15*time.Second {
		t.Fatalf("timeout fallback wrong")
	}
}
