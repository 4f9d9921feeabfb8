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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workspace struct {
	dir      string
	manifest string
	failed   string
	errors   string
}

func newWorkspace(t *testing.T, items string) *workspace {
	t.Helper()
	dir := t.TempDir()
	w := &workspace{
		dir:      dir,
		manifest: filepath.Join(dir, "files.txt"),
		failed:   filepath.Join(dir, "failed_files.txt"),
		errors:   filepath.Join(dir, "error_info.txt"),
	}
	require.NoError(t, os.WriteFile(w.manifest, []byte(items), 0o644))
	return w
}

func (w *workspace) read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func (w *workspace) ledgerFlags() []string {
	return []string{"--failed-files", w.failed, "--error-log", w.errors}
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	color.NoColor = true
	pterm.DisableStyling()
	t.Cleanup(pterm.EnableStyling)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestBatchCommands(t *testing.T) {
	tests := []struct {
		name         string
		binary       string
		args         func(w *workspace) []string
		wantCode     int
		wantManifest string
		wantFailed   string
		wantOutput   []string
	}{
		{
			name:   "copy_succeeds",
			binary: "true",
			args: func(w *workspace) []string {
				return []string{"copy", "/data/src", "remote:dst", w.manifest}
			},
			wantCode:     0,
			wantManifest: "",
			wantOutput:   []string{"[copy /data/src → remote:dst]", "copy finished: all 2 succeeded"},
		},
		{
			name:   "copy_fails",
			binary: "false",
			args: func(w *workspace) []string {
				return []string{"copy", "/data/src", "remote:dst", w.manifest}
			},
			wantCode:     1,
			wantManifest: "a.txt\nphotos\n",
			wantFailed:   "photos\na.txt\n",
			wantOutput:   []string{"copy finished: 2 of 2 failed"},
		},
		{
			name:   "delete_alias_dry_run",
			binary: "false",
			args: func(w *workspace) []string {
				return []string{"del", "remote:old", w.manifest, "--dry-run"}
			},
			wantCode:     0,
			wantManifest: "a.txt\nphotos\n",
			wantOutput:   []string{"false purge -P remote:old/photos", "false delete -P remote:old/a.txt", "delete dry run: 2 commands planned"},
		},
		{
			name:   "move_with_parameters_debug",
			binary: "true",
			args: func(w *workspace) []string {
				return []string{"--debug", "move", "/src", "/dst", w.manifest, "-p", "--checksum"}
			},
			wantCode:     0,
			wantManifest: "",
			wantOutput:   []string{"true move -P /src/photos /dst/photos --checksum", "true move -P /src/a.txt /dst/ --checksum"},
		},
		{
			name:   "missing_manifest",
			binary: "true",
			args: func(w *workspace) []string {
				return []string{"sync", "/src", "/dst", filepath.Join(w.dir, "nope.txt")}
			},
			wantCode:     1,
			wantManifest: "a.txt\nphotos\n",
		},
		{
			name:   "wrong_arity",
			binary: "true",
			args: func(w *workspace) []string {
				return []string{"copy", "/src", w.manifest}
			},
			wantCode:     1,
			wantManifest: "a.txt\nphotos\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireBinary(t, tt.binary)
			w := newWorkspace(t, "a.txt\nphotos\n")

			args := append([]string{"--binary", tt.binary}, tt.args(w)...)
			args = append(args, w.ledgerFlags()...)

			code, stdout, stderr := runCLI(t, args...)
			assert.Equal(t, tt.wantCode, code, "stdout: %s\nstderr: %s", stdout, stderr)
			assert.Equal(t, tt.wantManifest, w.read(t, w.manifest))
			assert.Equal(t, tt.wantFailed, w.read(t, w.failed))
			for _, want := range tt.wantOutput {
				assert.Contains(t, stdout, want)
			}
		})
	}
}

func TestRetry(t *testing.T) {
	requireBinary(t, "false")
	w := newWorkspace(t, "a.txt\nphotos\n")

	code, _, _ := runCLI(t, append([]string{"--binary", "false", "copy", "/src", "/dst", w.manifest}, w.ledgerFlags()...)...)
	require.Equal(t, 1, code)

	// a second failing run records the same items again
	code, _, _ = runCLI(t, append([]string{"--binary", "false", "copy", "/src", "/dst", w.manifest}, w.ledgerFlags()...)...)
	require.Equal(t, 1, code)
	require.Equal(t, "photos\na.txt\nphotos\na.txt\n", w.read(t, w.failed))
	errorLog := w.read(t, w.errors)

	retry := filepath.Join(w.dir, "retry.txt")
	code, stdout, stderr := runCLI(t, append([]string{"retry", retry}, w.ledgerFlags()...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "rcbatch • retry "+w.failed)
	assert.Contains(t, stdout, "2 failed items written to")
	assert.Equal(t, "a.txt\nphotos\n", w.read(t, retry), "original manifest order")
	assert.Equal(t, "photos\na.txt\nphotos\na.txt\n", w.read(t, w.failed), "ledger is never truncated")
	assert.Equal(t, errorLog, w.read(t, w.errors))

	code, _, stderr = runCLI(t, append([]string{"retry", retry}, w.ledgerFlags()...)...)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--force")

	code, stdout, stderr = runCLI(t, append([]string{"retry", retry, "--force", "--rotate"}, w.ledgerFlags()...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "previous ledger kept as")
	assert.Equal(t, "a.txt\nphotos\n", w.read(t, retry))
	assert.NoFileExists(t, w.failed)
	assert.NoFileExists(t, w.errors)

	rotatedFailed, err := filepath.Glob(w.failed + ".*")
	require.NoError(t, err)
	require.Len(t, rotatedFailed, 1)
	assert.Equal(t, "photos\na.txt\nphotos\na.txt\n", w.read(t, rotatedFailed[0]))

	rotatedErrors, err := filepath.Glob(w.errors + ".*")
	require.NoError(t, err)
	require.Len(t, rotatedErrors, 1)
	assert.Equal(t, errorLog, w.read(t, rotatedErrors[0]))

	// nothing left to retry
	code, stdout, _ = runCLI(t, append([]string{"retry", retry, "--force"}, w.ledgerFlags()...)...)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "no failed items recorded")
	assert.Equal(t, "a.txt\nphotos\n", w.read(t, retry))
}

func TestListLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "photos"), 0o755))

	code, stdout, _ := runCLI(t, "ll", dir)
	require.Equal(t, 0, code)
	assert.Equal(t, "a.txt\nphotos/\n", stdout)

	out := filepath.Join(t.TempDir(), "listing.txt")
	code, _, _ = runCLI(t, "list-local", dir, "-o", out)
	require.Equal(t, 0, code)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a.txt\nphotos/\n", string(data))
}

func TestCompare(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(left, "a.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(left, "b.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(right, "a.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(right, "c.txt"), nil, 0o644))

	out := filepath.Join(t.TempDir(), "missing.txt")
	code, stdout, stderr := runCLI(t, "compare", left, right, "--output", out)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "rcbatch • compare "+left)
	assert.Contains(t, stdout, "only in "+left)
	assert.Contains(t, stdout, "b.txt")
	assert.Contains(t, stdout, "c.txt")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "b.txt\n", string(data))
}

func TestConfigFile(t *testing.T) {
	requireBinary(t, "true")
	w := newWorkspace(t, "a.txt\n")

	cfg := filepath.Join(w.dir, "rcbatch.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("binary: \"true\"\nparameters:\n  copy: --fast-list\n"), 0o644))

	code, stdout, stderr := runCLI(t, append([]string{"--config", cfg, "--debug", "copy", "/s", "/d", w.manifest}, w.ledgerFlags()...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "true copy -P /s/a.txt /d/ --fast-list")

	bad := filepath.Join(w.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("bogus: 1\n"), 0o644))
	code, _, stderr = runCLI(t, "--config", bad, "copy", "/s", "/d", w.manifest)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "loading config")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version", "--json")
	require.Equal(t, 0, code)

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)

	code, stdout, _ = runCLI(t, "version")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "rcbatch version info")
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "mirror", "a", "b", "c")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown command")
}
