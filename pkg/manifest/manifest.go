// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package manifest is the durable work queue of a batch run: a plain text
// file with one item per line that always holds exactly the items not yet
// processed successfully.
package manifest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrManifestUnreadable is returned when the manifest cannot be opened or read.
	ErrManifestUnreadable = errors.Base("manifest unreadable")
	// ErrPersistenceFailure is returned when the manifest cannot be rewritten.
	ErrPersistenceFailure = errors.Base("manifest persistence failure")
)

// 📖 Load reads the item identifiers in file order. Blank lines are skipped.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("%w: %w", ErrManifestUnreadable, err)
	}
	return Parse(data), nil
}

// Parse splits manifest content into identifiers, dropping blank lines and
// carriage returns left by CRLF files.
func Parse(data []byte) []string {
	lines := strings.Split(string(data), "\n")
	items := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}

// 💾 Persist replaces the manifest with the given items, one per line.
// The content is written to a temp file in the same directory and renamed
// over the manifest, so readers see either the old or the new list. A
// symlinked manifest is written through: the link stays, its target changes.
func Persist(path string, items []string) error {
	var buf bytes.Buffer
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		buf.WriteString(item)
		buf.WriteByte('\n')
	}

	path = resolve(path)

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("%w: creating temp file: %w", ErrPersistenceFailure, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Errorf("%w: writing temp file: %w", ErrPersistenceFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Errorf("%w: syncing temp file: %w", ErrPersistenceFailure, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Errorf("%w: closing temp file: %w", ErrPersistenceFailure, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Errorf("%w: setting mode: %w", ErrPersistenceFailure, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Errorf("%w: renaming temp file: %w", ErrPersistenceFailure, err)
	}
	if err := syncDir(filepath.Dir(path)); err != nil {
		return errors.Errorf("%w: syncing directory: %w", ErrPersistenceFailure, err)
	}

	return nil
}

// resolve follows symlinks so the rename replaces the target, not the link.
// Paths that do not exist yet are returned unchanged.
func resolve(path string) string {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return target
}

// syncDir flushes the directory entry written by the rename.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil && runtime.GOOS != "windows" {
		_ = d.Close()
		return err
	}
	return d.Close()
}

// 🗂️ Store binds Load and Persist to one manifest path
type Store struct {
	path string
}

// NewStore creates a store for the manifest at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the manifest location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the manifest into a fresh queue.
func (s *Store) Load(ctx context.Context) (*Queue, error) {
	items, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("path", s.path).Int("items", len(items)).Msg("loaded manifest")
	return NewQueue(items), nil
}

// Commit persists everything the queue still owns.
func (s *Store) Commit(ctx context.Context, q *Queue) error {
	remaining := q.Remaining()
	if err := Persist(s.path, remaining); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("path", s.path).Int("remaining", len(remaining)).Msg("committed manifest")
	return nil
}
