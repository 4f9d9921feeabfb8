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

// Package listing lists the direct entries of a local or remote directory
// and reports which entries of one listing are missing from another.
//
// Entries are names relative to the listed root; directories carry a trailing
// "/". Membership in Diff is exact string equality, so a local "photos/" and
// a remote "photos" are different entries.
package listing

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/rcbatch/pkg/rclone"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// ErrListingFailed is returned when a directory cannot be listed.
var ErrListingFailed = errors.Base("listing failed")

// 📂 ListLocal returns the entries of a local directory, sorted, with
// directories suffixed by "/".
func ListLocal(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Errorf("%w: %w", ErrListingFailed, err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ☁️ ListRemote returns the entries the tool's lsf reports for root, in the
// tool's order.
func ListRemote(ctx context.Context, runner rclone.Runner, root string) ([]string, error) {
	res, err := runner.Output(ctx, []string{"lsf", root})
	if err != nil {
		return nil, errors.Errorf("%w: %w", ErrListingFailed, err)
	}
	if !res.Success() {
		return nil, errors.Errorf("%w: lsf %s exited %d: %s",
			ErrListingFailed, root, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	var out []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// IsRemote reports whether root names a remote ("name:path") rather than a
// local directory. Windows drive paths such as "C:\data" are local.
func IsRemote(root string) bool {
	i := strings.Index(root, ":")
	if i < 0 {
		return false
	}
	if i == 1 && isLetter(root[0]) && (len(root) == 2 || root[2] == '\\' || root[2] == '/') {
		return false
	}
	return true
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// List dispatches to ListRemote or ListLocal.
func List(ctx context.Context, runner rclone.Runner, root string) ([]string, error) {
	if IsRemote(root) {
		return ListRemote(ctx, runner, root)
	}
	return ListLocal(root)
}

// 🔍 Diff returns the entries of b that are not in a, in b's order.
func Diff(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, x := range a {
		seen[x] = struct{}{}
	}

	out := []string{}
	for _, x := range b {
		if _, ok := seen[x]; !ok {
			out = append(out, x)
		}
	}
	return out
}

// 📊 Comparison holds both listings and the differences in each direction
type Comparison struct {
	Left  string
	Right string

	LeftEntries  []string
	RightEntries []string

	// OnlyLeft are entries of Left missing from Right
	OnlyLeft []string
	// OnlyRight are entries of Right missing from Left
	OnlyRight []string
}

// Identical reports whether neither side has entries the other lacks.
func (c *Comparison) Identical() bool {
	return len(c.OnlyLeft) == 0 && len(c.OnlyRight) == 0
}

// 🔄 Compare lists left and right concurrently and diffs them both ways.
func Compare(ctx context.Context, runner rclone.Runner, left, right string) (*Comparison, error) {
	c := &Comparison{Left: left, Right: right}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := List(gctx, runner, left)
		if err != nil {
			return errors.Errorf("listing %s: %w", left, err)
		}
		c.LeftEntries = entries
		return nil
	})
	g.Go(func() error {
		entries, err := List(gctx, runner, right)
		if err != nil {
			return errors.Errorf("listing %s: %w", right, err)
		}
		c.RightEntries = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.OnlyLeft = Diff(c.RightEntries, c.LeftEntries)
	c.OnlyRight = Diff(c.LeftEntries, c.RightEntries)

	zerolog.Ctx(ctx).Debug().
		Str("left", left).
		Str("right", right).
		Int("only_left", len(c.OnlyLeft)).
		Int("only_right", len(c.OnlyRight)).
		Msg("compared listings")

	return c, nil
}
