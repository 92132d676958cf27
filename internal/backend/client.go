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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"photoframe/internal/domain"
)

// Client is a minimal HTTP client for the order service API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return NewClientWith(baseURL, token, 10*time.Second, false)
}

// NewClientWith is NewClient with an explicit timeout and TLS verification switch.
func NewClientWith(baseURL, token string, timeout time.Duration, tlsInsecure bool) *Client {
	hc := &http.Client{Timeout: timeout}
	if tlsInsecure {
		hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for self-signed dev servers
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  hc,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Code, strings.TrimSpace(e.Body))
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode, Body: string(b)}
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// RequestToken asks the service for a bearer token and installs it on c.
func (c *Client) RequestToken(ctx context.Context, subject string) (string, error) {
	body, _ := json.Marshal(map[string]any{"subject": subject})
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", "application/json", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

// FetchDesign returns the design stored for orderID.
func (c *Client) FetchDesign(ctx context.Context, orderID string) (StoredDesign, error) {
	var d StoredDesign
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID)+"/design", "", nil, &d); err != nil {
		return StoredDesign{}, err
	}
	return d, nil
}

// PushDesign uploads doc for orderID. baseVersion 0 skips the version check.
func (c *Client) PushDesign(ctx context.Context, orderID string, doc domain.Document, baseVersion int64) (int64, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(putDesignRequest{BaseVersion: baseVersion, Document: raw})
	if err != nil {
		return 0, err
	}
	var out struct {
		Version int64 `json:"version"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/orders/"+url.PathEscape(orderID)+"/design", "application/json", bytes.NewReader(body), &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

// UploadExport sends a flattened print file for orderID.
func (c *Client) UploadExport(ctx context.Context, orderID, format string, data []byte) error {
	ct := "image/png"
	if format == "pdf" {
		ct = "application/pdf"
	}
	path := "/api/orders/" + url.PathEscape(orderID) + "/exports?format=" + url.QueryEscape(format)
	return c.do(ctx, http.MethodPost, path, ct, bytes.NewReader(data), nil)
}
