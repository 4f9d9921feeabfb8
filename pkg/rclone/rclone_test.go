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

package rclone_test

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/rcbatch/pkg/rclone"
	"gitlab.com/tozd/go/errors"
)

// 🧪 shClient uses /bin/sh as the "tool" so scripts can stand in for rclone
func shClient(t *testing.T, opts ...rclone.Option) *rclone.Client {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return rclone.NewClient("sh", opts...)
}

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func TestRunSuccess(t *testing.T) {
	var stdout bytes.Buffer
	c := shClient(t, rclone.WithStdout(&stdout))

	res, err := c.Run(testContext(t), []string{"-c", "echo transferred"})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "transferred\n", stdout.String())
	assert.Empty(t, res.Stdout, "Run streams stdout instead of capturing it")
}

func TestRunFailureIsAResult(t *testing.T) {
	var mirror bytes.Buffer
	c := shClient(t, rclone.WithStderr(&mirror))

	res, err := c.Run(testContext(t), []string{"-c", "echo 'ERROR : not found' >&2; exit 3"})
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "ERROR : not found\n", res.Stderr)
	assert.Equal(t, "ERROR : not found\n", mirror.String())
}

func TestOutputCapturesStdout(t *testing.T) {
	c := shClient(t)

	res, err := c.Output(testContext(t), []string{"-c", "printf 'a.txt\\nphotos/\\n'"})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "a.txt\nphotos/\n", res.Stdout)
}

func TestArgumentsAreNotShellExpanded(t *testing.T) {
	c := shClient(t)

	// $0 is the first argument after the script; it must arrive untouched
	res, err := c.Output(testContext(t), []string{"-c", `printf '%s' "$0"`, "my photos; $(rm -rf x)"})
	require.NoError(t, err)
	assert.Equal(t, "my photos; $(rm -rf x)", res.Stdout)
}

func TestMissingBinary(t *testing.T) {
	c := rclone.NewClient("rcbatch-definitely-not-installed")
	_, err := c.Run(testContext(t), []string{"version"})
	require.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	c := shClient(t)
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	_, err := c.Run(ctx, []string{"-c", "sleep 5"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDefaultBinary(t *testing.T) {
	assert.Equal(t, "rclone", rclone.NewClient("").Binary())
}

func TestFormat(t *testing.T) {
	got := rclone.Format("rclone", []string{"copy", "-P", "src/my photos", "dst/", ""})
	assert.Equal(t, `rclone copy -P "src/my photos" dst/ ""`, got)
}
