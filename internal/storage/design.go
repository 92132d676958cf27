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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"photoframe/internal/domain"
	applog "photoframe/internal/log"
)

const (
	DesignFileName = "design.json"
	BackupsDirName = "backups"
	AssetsDirName  = "assets"
	ExportsDirName = "exports"
)

// Standard subfolders of a design directory.
var standardSubDirs = []string{
	AssetsDirName,
	ExportsDirName,
	BackupsDirName,
}

// DesignHandle keeps track of a design loaded from or saved to disk.
// Root is the design directory containing design.json and subfolders.
type DesignHandle struct {
	Root string
	Path string
	Doc  domain.Document
	// FromBackup is set when Open had to fall back to a backup.
	FromBackup bool
}

// InitDesign creates a new design directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes doc transactionally.
func InitDesign(root string, doc domain.Document) (*DesignHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	if doc.Version == 0 {
		doc.Version = domain.SchemaVersion
	}
	dh := &DesignHandle{
		Root: root,
		Path: filepath.Join(root, DesignFileName),
		Doc:  doc,
	}
	if err := Save(dh); err != nil {
		return nil, err
	}
	return dh, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create design root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads an existing design from root. A document that cannot be read,
// parsed or validated is replaced by the latest readable backup.
func Open(root string) (*DesignHandle, error) {
	path := filepath.Join(root, DesignFileName)
	doc, err := readDocument(path)
	if err != nil {
		bdoc, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open design: %w; backup attempt: %v", err, berr)
		}
		return &DesignHandle{Root: root, Path: path, Doc: *bdoc, FromBackup: true}, nil
	}
	return &DesignHandle{Root: root, Path: path, Doc: *doc}, nil
}

func readDocument(path string) (*domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateDocument(b); err != nil {
		return nil, err
	}
	var d domain.Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse design: %w", err)
	}
	return &d, nil
}

// Save writes DesignHandle.Doc to disk with transactional semantics and a
// timestamped backup of the previous document (if present).
func Save(dh *DesignHandle) error {
	if dh == nil {
		return errors.New("nil DesignHandle")
	}
	if dh.Root == "" || dh.Path == "" {
		return errors.New("invalid DesignHandle: missing paths")
	}
	if dh.Doc.Nodes == nil {
		dh.Doc.Nodes = []domain.NodeRecord{}
	}
	data, err := json.MarshalIndent(dh.Doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal design: %w", err)
	}
	data = append(data, '\n')
	if err := ValidateDocument(data); err != nil {
		return err
	}

	bdir := filepath.Join(dh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current document exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(dh.Path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", DesignFileName, stamp))
		if cerr := copyFile(dh.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current design: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	dir := filepath.Dir(dh.Path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", DesignFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp design: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(dh.Path); err == nil {
		_ = os.Remove(dh.Path)
	}
	if rerr := os.Rename(temp, dh.Path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace design: %w", rerr)
	}
	dh.FromBackup = false

	// The index is derived data; a failed sync is repaired by DetectAndRebuildIndex.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := UpdateIndex(ctx, dh.Root, dh.Doc); err != nil {
		applog.WithOperation(applog.WithComponent("storage"), "save").Warn("index sync failed",
			slog.String("root", dh.Root), slog.Any("err", err))
	}
	return nil
}

// SaveAs writes the design to a new root folder, scaffolding structure if needed,
// copies the referenced assets along and updates the handle.
func SaveAs(dh *DesignHandle, newRoot string) error {
	if dh == nil {
		return errors.New("nil DesignHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	for _, a := range dh.Doc.Assets {
		src := filepath.Join(dh.Root, a.Path)
		dst := filepath.Join(newRoot, a.Path)
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("copy asset %s: %w", a.Key, err)
		}
	}
	dh.Root = newRoot
	dh.Path = filepath.Join(newRoot, DesignFileName)
	return Save(dh)
}

// AutosaveCrashSnapshot writes the in-memory document next to the backups
// without touching design.json. It returns the written path.
func AutosaveCrashSnapshot(dh *DesignHandle) (string, error) {
	if dh == nil || dh.Root == "" {
		return "", errors.New("invalid DesignHandle")
	}
	data, err := json.MarshalIndent(dh.Doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash snapshot: %w", err)
	}
	bdir := filepath.Join(dh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", DesignFileName, time.Now().Format("20060102-150405")))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// PruneBackups keeps the newest keep design backups and deletes the rest.
func PruneBackups(dh *DesignHandle, keep int) (int, error) {
	if dh == nil || keep <= 0 {
		return 0, nil
	}
	candidates, err := listBackups(dh.Root)
	if err != nil {
		return 0, err
	}
	if len(candidates) <= keep {
		return 0, nil
	}
	removed := 0
	for _, p := range candidates[:len(candidates)-keep] {
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("remove backup: %w", err)
		}
		removed++
	}
	return removed, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

func listBackups(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, DesignFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	return candidates, nil
}

// openFromLatestBackup returns the newest backup that parses and validates.
func openFromLatestBackup(root string) (*domain.Document, error) {
	candidates, err := listBackups(root)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		d, err := readDocument(candidates[i])
		if err == nil {
			return d, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no readable backup: %w", lastErr)
}
