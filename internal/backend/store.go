/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend is the order service side of photoframe: a PostgreSQL
// design store, its HTTP API and the client the desktop tools use to talk to it.
package backend

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"photoframe/internal/domain"
	applog "photoframe/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNotFound is returned when an order has no design.
	ErrNotFound = errors.New("design not found")
	// ErrConflict is returned when a write was based on a stale version.
	ErrConflict = errors.New("design version conflict")
)

// StoredDesign is a design as held by the order service.
type StoredDesign struct {
	OrderID   string          `json:"order_id"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Document  domain.Document `json:"document"`
}

// DesignStore persists designs per order.
type DesignStore interface {
	GetDesign(ctx context.Context, orderID string) (StoredDesign, error)
	// PutDesign stores doc. A baseVersion > 0 must match the stored version.
	PutDesign(ctx context.Context, orderID string, doc domain.Document, baseVersion int64) (int64, error)
	AddExport(ctx context.Context, orderID, format string, data []byte) error
	Ping(ctx context.Context) error
}

// PGStore implements DesignStore on PostgreSQL through the pgx stdlib driver.
type PGStore struct {
	db  *sql.DB
	log *slog.Logger
}

var _ DesignStore = (*PGStore)(nil)

// OpenPG connects to dsn, pings and applies the embedded migrations.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewPGStore(db), nil
}

// NewPGStore wraps an already migrated database.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db, log: applog.WithComponent("backend")}
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PGStore) GetDesign(ctx context.Context, orderID string) (StoredDesign, error) {
	var (
		out StoredDesign
		raw []byte
	)
	row := s.db.QueryRowContext(ctx, `SELECT order_id, version, updated_at, document FROM designs WHERE order_id = $1`, orderID)
	switch err := row.Scan(&out.OrderID, &out.Version, &out.UpdatedAt, &raw); {
	case errors.Is(err, sql.ErrNoRows):
		return StoredDesign{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	case err != nil:
		return StoredDesign{}, err
	}
	if err := json.Unmarshal(raw, &out.Document); err != nil {
		return StoredDesign{}, fmt.Errorf("decode design %s: %w", orderID, err)
	}
	return out, nil
}

func (s *PGStore) PutDesign(ctx context.Context, orderID string, doc domain.Document, baseVersion int64) (int64, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encode design: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var cur int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM designs WHERE order_id = $1 FOR UPDATE`, orderID).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if baseVersion > 0 {
			return 0, fmt.Errorf("%w: order %s has no design", ErrConflict, orderID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO designs(order_id, name, version, document) VALUES($1, $2, 1, $3)`, orderID, doc.Name, string(raw)); err != nil {
			return 0, fmt.Errorf("insert design: %w", err)
		}
		cur = 1
	case err != nil:
		return 0, err
	default:
		if baseVersion > 0 && baseVersion != cur {
			return 0, fmt.Errorf("%w: have %d, base %d", ErrConflict, cur, baseVersion)
		}
		cur++
		if _, err := tx.ExecContext(ctx, `UPDATE designs SET name = $2, version = $3, document = $4, updated_at = now() WHERE order_id = $1`, orderID, doc.Name, cur, string(raw)); err != nil {
			return 0, fmt.Errorf("update design: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.log.Info("design stored", slog.String("order", orderID), slog.Int64("version", cur), slog.Int("nodes", len(doc.Nodes)))
	return cur, nil
}

func (s *PGStore) AddExport(ctx context.Context, orderID, format string, data []byte) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO design_exports(order_id, format, data)
		SELECT order_id, $2, $3 FROM designs WHERE order_id = $1`, orderID, format, data)
	if err != nil {
		return fmt.Errorf("insert export: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return nil
}

// applyMigrations applies embedded SQL migrations in filename order.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithOperation(applog.WithComponent("backend"), "migrate")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		sqlText := string(b)
		if strings.TrimSpace(sqlText) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			return fmt.Errorf("apply %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
