/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openRawIndex(t *testing.T, root string) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(IndexPath(root)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIndexInitCreatesWALAndTables(t *testing.T) {
	root := t.TempDir()
	if _, err := InitDesign(root, sampleDocument()); err != nil {
		t.Fatalf("InitDesign error: %v", err)
	}
	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index file missing: %v", err)
	}
	db := openRawIndex(t, root)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','assets','snapshots','exports')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 5 {
		t.Fatalf("expected 5 tables, got %d", cnt)
	}
	var schema int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("expected schema %d, got %d", schemaVersion, schema)
	}
}

func TestSaveSyncsAssetsCatalog(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDesign(root, sampleDocument())
	if err != nil {
		t.Fatalf("InitDesign: %v", err)
	}
	ctx := context.Background()
	n, err := CountAssets(ctx, root)
	if err != nil || n != 1 {
		t.Fatalf("CountAssets got %d err %v", n, err)
	}
	dh.Doc.PutAsset(sampleDocument().Assets[0])
	dh.Doc.Assets = append(dh.Doc.Assets, dh.Doc.Assets[0])
	dh.Doc.Assets[1].Key = "def"
	dh.Doc.Assets[1].Path = "assets/def.png"
	if err := Save(dh); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n, _ := CountAssets(ctx, root); n != 2 {
		t.Fatalf("expected 2 assets after save, got %d", n)
	}
	dh.Doc.Assets = nil
	if err := UpdateIndex(ctx, root, dh.Doc); err != nil {
		t.Fatalf("UpdateIndex: %v", err)
	}
	if n, _ := CountAssets(ctx, root); n != 0 {
		t.Fatalf("expected empty catalog, got %d", n)
	}
}

func TestInitOrOpenIndexRequiresRoot(t *testing.T) {
	if _, err := InitOrOpenIndex(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}
