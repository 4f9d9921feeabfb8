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

package manifest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/rcbatch/pkg/manifest"
	"gitlab.com/tozd/go/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "files.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "simple", content: "a.txt\nphotos\nb.pdf\n", want: []string{"a.txt", "photos", "b.pdf"}},
		{name: "no_trailing_newline", content: "a.txt\nb.pdf", want: []string{"a.txt", "b.pdf"}},
		{name: "blank_lines_skipped", content: "\na.txt\n\n  \nb.pdf\n\n\n", want: []string{"a.txt", "b.pdf"}},
		{name: "crlf", content: "a.txt\r\nb.pdf\r\n", want: []string{"a.txt", "b.pdf"}},
		{name: "spaces_kept_inside_names", content: "my photos\n", want: []string{"my photos"}},
		{name: "empty", content: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := manifest.Load(writeManifest(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, manifest.ErrManifestUnreadable))
}

func TestPersist(t *testing.T) {
	path := writeManifest(t, "old\n")

	require.NoError(t, manifest.Persist(path, []string{"a.txt", "", "photos"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a.txt\nphotos\n", string(data))

	require.NoError(t, manifest.Persist(path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestPersistThroughSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lists", "files.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("a\nb\n"), 0o600))

	link := filepath.Join(dir, "files.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	require.NoError(t, manifest.Persist(link, []string{"a"}))

	fi, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeSymlink, "link must survive the rewrite")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(data))

	fi, err = os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left next to the link")
}

func TestPersistMissingDirectory(t *testing.T) {
	err := manifest.Persist(filepath.Join(t.TempDir(), "gone", "files.txt"), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, manifest.ErrPersistenceFailure))
}

func TestQueueOrder(t *testing.T) {
	q := manifest.NewQueue([]string{"a", "b", "c", "d", "e"})

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "e", item, "last line is consumed first")
	q.Hold(item)

	item, _ = q.Pop()
	assert.Equal(t, "d", item)

	item, _ = q.Pop()
	assert.Equal(t, "c", item)
	q.Hold(item)

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []string{"c", "e"}, q.Held())
	assert.Equal(t, []string{"a", "b", "c", "e"}, q.Remaining())

	q.Pop()
	q.Pop()
	_, ok = q.Pop()
	assert.False(t, ok)
	assert.Equal(t, []string{"c", "e"}, q.Remaining())
}

func TestQueueOwnsItems(t *testing.T) {
	items := []string{"a", "b"}
	q := manifest.NewQueue(items)
	items[1] = "changed"

	item, _ := q.Pop()
	assert.Equal(t, "b", item)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	path := writeManifest(t, "a\nb\nc\n")
	store := manifest.NewStore(path)
	assert.Equal(t, path, store.Path())

	q, err := store.Load(ctx)
	require.NoError(t, err)

	q.Pop()
	require.NoError(t, store.Commit(ctx, q))

	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, again.Remaining())
}
