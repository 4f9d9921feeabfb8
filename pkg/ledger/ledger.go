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

// Package ledger keeps the append-only record of failed items.
//
// Two files grow side by side: one identifier per line in the failed-items
// file, and the raw diagnostic text of the tool in the error log. Diagnostics
// are concatenated without separators, so a reader of the error log cannot
// always tell where one item's output ends.
package ledger

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/rcbatch/pkg/manifest"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultFailedFile = "failed_files.txt"
	DefaultErrorLog   = "error_info.txt"
)

// 📒 Ledger appends failure records to its two files
type Ledger struct {
	failedPath   string
	errorLogPath string
}

// 🏭 New creates a ledger. Empty paths fall back to the defaults.
func New(failedPath, errorLogPath string) *Ledger {
	if failedPath == "" {
		failedPath = DefaultFailedFile
	}
	if errorLogPath == "" {
		errorLogPath = DefaultErrorLog
	}
	return &Ledger{failedPath: failedPath, errorLogPath: errorLogPath}
}

// FailedPath is the failed-items file.
func (l *Ledger) FailedPath() string {
	return l.failedPath
}

// ErrorLogPath is the error log file.
func (l *Ledger) ErrorLogPath() string {
	return l.errorLogPath
}

// 📝 Record appends the identifier and its diagnostic. Both writes are
// attempted even if the first fails.
func (l *Ledger) Record(ctx context.Context, id, diagnostic string) error {
	zerolog.Ctx(ctx).Debug().
		Str("item", id).
		Str("failed_file", l.failedPath).
		Str("error_log", l.errorLogPath).
		Msg("recording failure")

	errID := appendFile(l.failedPath, id+"\n")
	errDiag := appendFile(l.errorLogPath, diagnostic)

	if errID != nil && errDiag != nil {
		return errors.Join(
			errors.Errorf("appending to %s: %w", l.failedPath, errID),
			errors.Errorf("appending to %s: %w", l.errorLogPath, errDiag),
		)
	}
	if errID != nil {
		return errors.Errorf("appending to %s: %w", l.failedPath, errID)
	}
	if errDiag != nil {
		return errors.Errorf("appending to %s: %w", l.errorLogPath, errDiag)
	}
	return nil
}

// ReadFailed returns the identifiers recorded in a failed-items file, in the
// order they failed. A file that does not exist yet holds no failures.
func ReadFailed(path string) ([]string, error) {
	items, err := manifest.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Errorf("reading failed items: %w", err)
	}
	return items, nil
}

// RotateLayout is the timestamp appended to rotated ledger files.
const RotateLayout = "20060102-150405"

// Rotated names the files a Rotate call moved the ledger to. A path is empty
// when that file did not exist.
type Rotated struct {
	FailedPath   string
	ErrorLogPath string
}

// 🔄 Rotate moves both ledger files aside under a shared timestamp suffix so
// the next run starts a fresh pair. Nothing is truncated or deleted. If the
// second rename fails the first one is undone, so the pair always moves
// together.
func (l *Ledger) Rotate(ctx context.Context, now time.Time) (*Rotated, error) {
	suffix := "." + now.Format(RotateLayout)
	out := &Rotated{}

	moved, err := rotateFile(l.failedPath, l.failedPath+suffix)
	if err != nil {
		return nil, errors.Errorf("rotating %s: %w", l.failedPath, err)
	}
	if moved {
		out.FailedPath = l.failedPath + suffix
	}

	movedLog, err := rotateFile(l.errorLogPath, l.errorLogPath+suffix)
	if err != nil {
		if moved {
			if undoErr := os.Rename(out.FailedPath, l.failedPath); undoErr != nil {
				err = errors.Join(err, errors.Errorf("restoring %s: %w", l.failedPath, undoErr))
			}
		}
		return nil, errors.Errorf("rotating %s: %w", l.errorLogPath, err)
	}
	if movedLog {
		out.ErrorLogPath = l.errorLogPath + suffix
	}

	zerolog.Ctx(ctx).Debug().
		Str("failed_file", out.FailedPath).
		Str("error_log", out.ErrorLogPath).
		Msg("rotated ledger")
	return out, nil
}

func rotateFile(from, to string) (bool, error) {
	if _, err := os.Stat(to); err == nil {
		return false, errors.Errorf("%s already exists", to)
	}
	if err := os.Rename(from, to); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func appendFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Errorf("creating directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Errorf("opening: %w", err)
	}

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return errors.Errorf("writing: %w", err)
	}

	if err := f.Close(); err != nil {
		return errors.Errorf("closing: %w", err)
	}
	return nil
}
