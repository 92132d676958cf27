/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
	// DesignsDir is where `photoframe init` places new designs when given a bare name.
	DesignsDir string `yaml:"designs_dir"`
}

// EditorConfig holds surface defaults and interaction tuning.
type EditorConfig struct {
	SurfaceWidth      float64 `yaml:"surface_width"`
	SurfaceHeight     float64 `yaml:"surface_height"`
	MinNodeSize       float64 `yaml:"min_node_size"`
	MaxFrameSize      float64 `yaml:"max_frame_size"` // 0 derives from the surface
	MaxImageSize      float64 `yaml:"max_image_size"` // 0 derives from the surface
	HistoryDepth      int     `yaml:"history_depth"`
	HistoryDebounceMs int     `yaml:"history_debounce_ms"`
	DoubleClickMs     int     `yaml:"double_click_ms"`
	AdjacencyFallback bool    `yaml:"adjacency_fallback"`
	// LabelFont is an optional .ttf/.otf used for text labels in renders.
	LabelFont string `yaml:"label_font"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	DatabaseURL string `yaml:"database_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Editor: EditorConfig{
			SurfaceWidth:      600,
			SurfaceHeight:     600,
			MinNodeSize:       10,
			HistoryDepth:      50,
			HistoryDebounceMs: 500,
			DoubleClickMs:     300,
			AdjacencyFallback: false,
		},
		Backend: BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvBackendURL       = "PF_BACKEND_URL"
	EnvDatabaseURL      = "PF_DATABASE_URL"
	EnvBackendTimeoutMs = "PF_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "PF_TLS_INSECURE"
	EnvTelemetryOptIn   = "PF_TELEMETRY_OPT_IN"
	EnvAdjacency        = "PF_ADJACENCY_FALLBACK"
	EnvHistoryDepth     = "PF_HISTORY_DEPTH"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PF_LOG_LEVEL"
	EnvLogFormat = "PF_LOG_FORMAT"
	EnvLogSource = "PF_LOG_SOURCE"
	EnvLogFile   = "PF_LOG_FILE"
	// EnvConfigPath replaces the per-user config file location.
	EnvConfigPath = "PF_CONFIG"
)

// Service/keys for OS keyring.
const (
	keyringService = "PhotoFrame"
	keyringToken   = "backend_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the token backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PhotoFrame")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PhotoFrame")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "photoframe")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the backend token from keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	// a missing keyring entry or an unavailable keyring both mean no token
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

// ClearToken removes the backend token from the keyring.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.General.DesignsDir) != "" {
		dst.General.DesignsDir = strings.TrimSpace(src.General.DesignsDir)
	}
	// editor
	if src.Editor.SurfaceWidth > 0 {
		dst.Editor.SurfaceWidth = src.Editor.SurfaceWidth
	}
	if src.Editor.SurfaceHeight > 0 {
		dst.Editor.SurfaceHeight = src.Editor.SurfaceHeight
	}
	if src.Editor.MinNodeSize > 0 {
		dst.Editor.MinNodeSize = src.Editor.MinNodeSize
	}
	if src.Editor.MaxFrameSize > 0 {
		dst.Editor.MaxFrameSize = src.Editor.MaxFrameSize
	}
	if src.Editor.MaxImageSize > 0 {
		dst.Editor.MaxImageSize = src.Editor.MaxImageSize
	}
	if src.Editor.HistoryDepth > 0 {
		dst.Editor.HistoryDepth = src.Editor.HistoryDepth
	}
	if src.Editor.HistoryDebounceMs > 0 {
		dst.Editor.HistoryDebounceMs = src.Editor.HistoryDebounceMs
	}
	if src.Editor.DoubleClickMs > 0 {
		dst.Editor.DoubleClickMs = src.Editor.DoubleClickMs
	}
	dst.Editor.AdjacencyFallback = src.Editor.AdjacencyFallback
	if strings.TrimSpace(src.Editor.LabelFont) != "" {
		dst.Editor.LabelFont = strings.TrimSpace(src.Editor.LabelFont)
	}
	// backend
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.DatabaseURL != "" {
		dst.Backend.DatabaseURL = src.Backend.DatabaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		cfg.Backend.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvAdjacency)); v != "" {
		cfg.Editor.AdjacencyFallback = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.HistoryDepth = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"backend.base_url":          EnvBackendURL,
		"backend.database_url":      EnvDatabaseURL,
		"backend.timeout_ms":        EnvBackendTimeoutMs,
		"backend.tls_insecure":      EnvBackendTLSInsec,
		"general.telemetry_opt_in":  EnvTelemetryOptIn,
		"editor.adjacency_fallback": EnvAdjacency,
		"editor.history_depth":      EnvHistoryDepth,
		"logging.level":             EnvLogLevel,
		"logging.format":            EnvLogFormat,
		"logging.source":            EnvLogSource,
		"logging.file":              EnvLogFile,
	}
	if env, ok := names[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// Timeout returns the backend timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// HistoryDebounce returns the coalescing window for history pushes.
func (e EditorConfig) HistoryDebounce() time.Duration {
	return time.Duration(e.HistoryDebounceMs) * time.Millisecond
}

// DoubleClickDebounce returns the window in which repeated double clicks are ignored.
func (e EditorConfig) DoubleClickDebounce() time.Duration {
	return time.Duration(e.DoubleClickMs) * time.Millisecond
}
