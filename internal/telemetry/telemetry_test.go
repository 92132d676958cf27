/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// collector records request bodies per path.
type collector struct {
	events  chan map[string]any
	crashes chan string
	srv     *httptest.Server
}

func newCollector(t *testing.T) *collector {
	t.Helper()
	c := &collector{events: make(chan map[string]any, 16), crashes: make(chan string, 4)}
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		c.events <- m
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.crashes <- string(b)
	})
	c.srv = httptest.NewServer(mux)
	t.Cleanup(c.srv.Close)
	return c
}

func (c *collector) client(optIn bool) *Client {
	return New(Config{OptIn: optIn, EventsURL: c.srv.URL + "/events", CrashURL: c.srv.URL + "/crash", Timeout: time.Second})
}

func (c *collector) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case m := <-c.events:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}
	return nil
}

func (c *collector) none(t *testing.T) {
	t.Helper()
	select {
	case m := <-c.events:
		t.Fatalf("unexpected event %v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventPayloadsAreFlatAndRedacted(t *testing.T) {
	col := newCollector(t)
	c := col.client(true)
	defer c.Close()

	cases := []struct {
		name    string
		props   map[string]any
		keep    []string
		dropped []string
	}{
		{EventLayer, map[string]any{"op": "forward", "source": "ui", "id": "frame_abc"}, []string{"op", "source"}, []string{"id"}},
		{EventExport, map[string]any{"format": "pdf", "path": "/home/me/design/exports/a.pdf"}, []string{"format"}, []string{"path"}},
		{EventImageBound, map[string]any{"scale": 3.5, "src": "abc.png", "frames": []string{"frame_1"}}, []string{"scale"}, []string{"src", "frames"}},
		{EventSync, map[string]any{"direction": "push", "orderID": "A-17"}, []string{"direction"}, []string{"orderID"}},
	}
	for _, tc := range cases {
		c.Event(tc.name, tc.props)
		m := col.next(t)
		if m["name"] != tc.name {
			t.Fatalf("name = %v, want %s", m["name"], tc.name)
		}
		for _, k := range []string{"ts", "version", "os", "arch"} {
			if _, ok := m[k].(string); !ok {
				t.Fatalf("%s: missing %s in %v", tc.name, k, m)
			}
		}
		for _, k := range tc.keep {
			if _, ok := m[k]; !ok {
				t.Fatalf("%s: %s dropped from %v", tc.name, k, m)
			}
		}
		for _, k := range tc.dropped {
			if _, ok := m[k]; ok {
				t.Fatalf("%s: %s must not be sent: %v", tc.name, k, m)
			}
		}
	}
}

func TestUnknownEventsAndDisabledClientSendNothing(t *testing.T) {
	col := newCollector(t)

	off := col.client(false)
	defer off.Close()
	if off.Enabled() {
		t.Fatalf("client without opt-in must be disabled")
	}
	off.Event(EventStarted, nil)
	off.UploadCrash([]byte("trace"))

	on := col.client(true)
	defer on.Close()
	on.Event("", nil)
	on.Event("panel_added", map[string]any{"n": 1})
	on.Flush(context.Background())

	col.none(t)
	select {
	case b := <-col.crashes:
		t.Fatalf("crash uploaded without opt-in: %q", b)
	default:
	}
	if !Known(EventSync) || Known("panel_added") {
		t.Fatalf("Known mismatch")
	}
}

func TestUploadCrash(t *testing.T) {
	col := newCollector(t)
	c := col.client(true)
	defer c.Close()
	c.UploadCrash([]byte("panic: frame without image"))
	select {
	case b := <-col.crashes:
		if b != "panic: frame without image" {
			t.Fatalf("crash body = %q", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("crash report not uploaded")
	}
}

func TestSendFailuresAreSwallowed(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()
	c.Event(EventExport, map[string]any{"format": "png"})
	c.Event("unknown", nil)
	c.UploadCrash([]byte("trace"))
	c.Flush(context.Background())
}

func TestFromEnvInstallsDefault(t *testing.T) {
	t.Setenv("PF_TELEMETRY_OPT_IN", "yes")
	t.Setenv("PF_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("PF_CRASH_UPLOAD_URL", "")
	t.Setenv("PF_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond || cfg.CrashURL != "" {
		t.Fatalf("FromEnv = %+v", cfg)
	}
	NewDefault(cfg)
	if !Enabled() {
		t.Fatalf("default client should be enabled")
	}
	NewDefault(Config{})
	if Enabled() {
		t.Fatalf("default client should be disabled after reset")
	}
}
