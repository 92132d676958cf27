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
	"errors"
	"fmt"
	"time"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(ts, structural, blob) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT ts, structural, blob FROM snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT ts, structural, blob FROM snapshots ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE id NOT IN (
	SELECT id FROM snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// language=SQL
// dialect=SQLite
const insertExportSQL = `INSERT INTO exports(ts, format, path, bytes) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listExportsSQL = `SELECT ts, format, path, bytes FROM exports ORDER BY ts DESC, id DESC LIMIT ?`

// tsLayout is fixed width so timestamps sort lexicographically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SnapshotRecord is a persisted history entry.
type SnapshotRecord struct {
	TS         time.Time
	Structural bool
	Blob       []byte
}

// ExportRecord is one line of the export log.
type ExportRecord struct {
	TS     time.Time
	Format string
	Path   string
	Bytes  int64
}

// SaveSnapshot persists a serialized design with a timestamp.
func SaveSnapshot(ctx context.Context, dh *DesignHandle, blob []byte, structural bool, ts time.Time) error {
	if dh == nil {
		return errors.New("nil DesignHandle")
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertSnapshotSQL, ts.UTC().Format(tsLayout), boolInt(structural), blob)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetLatestSnapshot returns the latest snapshot or nil if none.
func GetLatestSnapshot(ctx context.Context, dh *DesignHandle) (*SnapshotRecord, error) {
	if dh == nil {
		return nil, errors.New("nil DesignHandle")
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	var tsStr string
	var structural int
	var blob []byte
	err = db.QueryRowContext(ctx, selectLatestSnapshotSQL).Scan(&tsStr, &structural, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts, _ := time.Parse(tsLayout, tsStr) // keep blob even if ts parse fails
	return &SnapshotRecord{TS: ts, Structural: structural != 0, Blob: blob}, nil
}

// ListSnapshots returns up to limit most recent snapshots, newest first.
func ListSnapshots(ctx context.Context, dh *DesignHandle, limit int) ([]SnapshotRecord, error) {
	if dh == nil {
		return nil, errors.New("nil DesignHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []SnapshotRecord
	for rows.Next() {
		var tsStr string
		var structural int
		var blob []byte
		if err := rows.Scan(&tsStr, &structural, &blob); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(tsLayout, tsStr)
		out = append(out, SnapshotRecord{TS: ts, Structural: structural != 0, Blob: blob})
	}
	return out, rows.Err()
}

// PruneOldSnapshots keeps at most keepLast snapshots and deletes older ones.
func PruneOldSnapshots(ctx context.Context, dh *DesignHandle, keepLast int) (int64, error) {
	if dh == nil {
		return 0, errors.New("nil DesignHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordExport appends an entry to the export log.
func RecordExport(ctx context.Context, dh *DesignHandle, rec ExportRecord) error {
	if dh == nil {
		return errors.New("nil DesignHandle")
	}
	if rec.TS.IsZero() {
		rec.TS = time.Now()
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if _, err := db.ExecContext(ctx, insertExportSQL, rec.TS.UTC().Format(tsLayout), rec.Format, rec.Path, rec.Bytes); err != nil {
		return fmt.Errorf("insert export: %w", err)
	}
	return nil
}

// ListExports returns up to limit most recent exports, newest first.
func ListExports(ctx context.Context, dh *DesignHandle, limit int) ([]ExportRecord, error) {
	if dh == nil {
		return nil, errors.New("nil DesignHandle")
	}
	if limit <= 0 {
		limit = 20
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listExportsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []ExportRecord
	for rows.Next() {
		var r ExportRecord
		var tsStr string
		if err := rows.Scan(&tsStr, &r.Format, &r.Path, &r.Bytes); err != nil {
			return nil, err
		}
		r.TS, _ = time.Parse(tsLayout, tsStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
