/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"photoframe/internal/domain"
)

// memStore is an in-memory DesignStore for handler tests.
type memStore struct {
	mu      sync.Mutex
	designs map[string]StoredDesign
	exports map[string][][]byte
	down    bool
}

func newMemStore() *memStore {
	return &memStore{designs: map[string]StoredDesign{}, exports: map[string][][]byte{}}
}

func (m *memStore) GetDesign(_ context.Context, id string) (StoredDesign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.designs[id]
	if !ok {
		return StoredDesign{}, ErrNotFound
	}
	return d, nil
}

func (m *memStore) PutDesign(_ context.Context, id string, doc domain.Document, base int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.designs[id]
	if base > 0 && base != cur.Version {
		return 0, ErrConflict
	}
	cur = StoredDesign{OrderID: id, Version: cur.Version + 1, UpdatedAt: time.Now(), Document: doc}
	m.designs[id] = cur
	return cur.Version, nil
}

func (m *memStore) AddExport(_ context.Context, id, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.designs[id]; !ok {
		return ErrNotFound
	}
	m.exports[id] = append(m.exports[id], data)
	return nil
}

func (m *memStore) Ping(context.Context) error {
	if m.down {
		return errors.New("down")
	}
	return nil
}

func newTestService(t *testing.T) (*memStore, *Client) {
	t.Helper()
	st := newMemStore()
	srv := httptest.NewServer(NewHandler(st, "test-secret"))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", "")
	if _, err := c.RequestToken(context.Background(), "tester"); err != nil {
		t.Fatalf("RequestToken: %v", err)
	}
	return st, c
}

func sampleDoc() domain.Document {
	doc := domain.NewDocument("order card", 400, 300)
	doc.Nodes = append(doc.Nodes,
		domain.NodeRecord{Type: domain.TypeFrame, X: 100, Y: 100, ScaleX: 1, ScaleY: 1, UID: "frame_a", Shape: "circle", Radius: 40, Empty: true},
	)
	return doc
}

func TestPushFetchDesign(t *testing.T) {
	_, c := newTestService(t)
	ctx := context.Background()
	v, err := c.PushDesign(ctx, "A-1", sampleDoc(), 0)
	if err != nil || v != 1 {
		t.Fatalf("PushDesign v=%d err=%v", v, err)
	}
	got, err := c.FetchDesign(ctx, "A-1")
	if err != nil {
		t.Fatalf("FetchDesign: %v", err)
	}
	if got.Version != 1 || got.Document.Name != "order card" || len(got.Document.Nodes) != 1 {
		t.Fatalf("unexpected design %+v", got)
	}
	if v, err := c.PushDesign(ctx, "A-1", sampleDoc(), 1); err != nil || v != 2 {
		t.Fatalf("second push v=%d err=%v", v, err)
	}
}

func TestPushConflict(t *testing.T) {
	_, c := newTestService(t)
	ctx := context.Background()
	if _, err := c.PushDesign(ctx, "A-2", sampleDoc(), 0); err != nil {
		t.Fatalf("PushDesign: %v", err)
	}
	_, err := c.PushDesign(ctx, "A-2", sampleDoc(), 7)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestFetchMissingDesign(t *testing.T) {
	_, c := newTestService(t)
	_, err := c.FetchDesign(context.Background(), "nope")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestPushRejectsInvalidDocument(t *testing.T) {
	_, c := newTestService(t)
	doc := sampleDoc()
	doc.Surface.Width = 0
	_, err := c.PushDesign(context.Background(), "A-3", doc, 0)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestUploadExport(t *testing.T) {
	st, c := newTestService(t)
	ctx := context.Background()
	if err := c.UploadExport(ctx, "A-4", "png", []byte("png")); err == nil {
		t.Fatalf("expected error for unknown order")
	}
	if _, err := c.PushDesign(ctx, "A-4", sampleDoc(), 0); err != nil {
		t.Fatalf("PushDesign: %v", err)
	}
	if err := c.UploadExport(ctx, "A-4", "png", []byte("png")); err != nil {
		t.Fatalf("UploadExport: %v", err)
	}
	if err := c.UploadExport(ctx, "A-4", "gif", []byte("gif")); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if len(st.exports["A-4"]) != 1 {
		t.Fatalf("expected one stored export, got %d", len(st.exports["A-4"]))
	}
}

func TestUnauthorized(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newMemStore(), "s"))
	defer srv.Close()
	c := NewClient(srv.URL, "forged.token")
	_, err := c.FetchDesign(context.Background(), "x")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestReadyz(t *testing.T) {
	st := newMemStore()
	srv := httptest.NewServer(NewHandler(st, "s"))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	st.down = true
	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := signToken("k", "alice", time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	if sub, err := verifyToken("k", tok); err != nil || sub != "alice" {
		t.Fatalf("verifyToken sub=%q err=%v", sub, err)
	}
	if _, err := verifyToken("other", tok); err == nil {
		t.Fatalf("expected signature error")
	}
	old, _ := signToken("k", "bob", time.Now().Add(-time.Minute))
	if _, err := verifyToken("k", old); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("migrations/0002_exports.sql"); err != nil || v != 2 {
		t.Fatalf("parseVersion v=%d err=%v", v, err)
	}
	if _, err := parseVersion("exports.sql"); err == nil {
		t.Fatalf("expected error")
	}
}
