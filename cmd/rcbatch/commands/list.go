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

package commands

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/rcbatch/cmd/rcbatch/opts"
	"github.com/walteh/rcbatch/pkg/listing"
	"github.com/walteh/rcbatch/pkg/log"
	"github.com/walteh/rcbatch/pkg/manifest"
	"gitlab.com/tozd/go/errors"
)

type listFlags struct {
	output string
}

// NewListLocalCmd creates the list-local command
func NewListLocalCmd(opts *opts.RootOpts) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:     "list-local <dir>",
		Aliases: []string{"ll"},
		Short:   "List the entries of a local directory",
		Long: `list-local prints the direct entries of a local directory, one per line,
directories suffixed with "/". With --output the listing is written as a
manifest instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := listing.ListLocal(args[0])
			if err != nil {
				return err
			}
			return emitListing(opts.Stdout, entries, flags.output)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the entries to this manifest file")
	return cmd
}

// NewListRemoteCmd creates the list-remote command
func NewListRemoteCmd(opts *opts.RootOpts) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:     "list-remote <remote:path>",
		Aliases: []string{"lr"},
		Short:   "List the entries of a remote directory with rclone lsf",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := listing.ListRemote(cmd.Context(), opts.Runner, args[0])
			if err != nil {
				return err
			}
			return emitListing(opts.Stdout, entries, flags.output)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the entries to this manifest file")
	return cmd
}

func emitListing(w io.Writer, entries []string, output string) error {
	if output != "" {
		if err := manifest.Persist(output, entries); err != nil {
			return errors.Errorf("writing %s: %w", output, err)
		}
		fmt.Fprintln(w, pterm.Success.Sprintf("wrote %d entries to %s", len(entries), output))
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(w, e)
	}
	return nil
}

type compareFlags struct {
	output string
}

// NewCompareCmd creates the compare command
func NewCompareCmd(opts *opts.RootOpts) *cobra.Command {
	flags := &compareFlags{}

	cmd := &cobra.Command{
		Use:   "compare <left> <right>",
		Short: "Show entries that exist on only one side of two directories",
		Long: `compare lists two directories, local or remote, and reports the entries
missing from either side. A path containing ":" is treated as an rclone remote.

With --output the entries of <left> missing from <right> are written as a
manifest, ready for "rcbatch copy <left> <right> <manifest>".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log.FromContext(cmd.Context()).Header(fmt.Sprintf("compare %s ↔ %s", args[0], args[1]))

			c, err := listing.Compare(cmd.Context(), opts.Runner, args[0], args[1])
			if err != nil {
				return err
			}

			report, err := renderComparison(c)
			if err != nil {
				return err
			}
			fmt.Fprint(opts.Stdout, report)

			if flags.output != "" {
				if err := manifest.Persist(flags.output, c.OnlyLeft); err != nil {
					return errors.Errorf("writing %s: %w", flags.output, err)
				}
				fmt.Fprintln(opts.Stdout, pterm.Success.Sprintf("wrote %d entries to %s", len(c.OnlyLeft), flags.output))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write entries missing from <right> to this manifest file")
	return cmd
}

func renderComparison(c *listing.Comparison) (string, error) {
	table, err := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"side", "path", "entries", "only here"},
		{"left", c.Left, fmt.Sprint(len(c.LeftEntries)), fmt.Sprint(len(c.OnlyLeft))},
		{"right", c.Right, fmt.Sprint(len(c.RightEntries)), fmt.Sprint(len(c.OnlyRight))},
	}).Srender()
	if err != nil {
		return "", errors.Errorf("rendering table: %w", err)
	}

	out := table + "\n"
	if c.Identical() {
		return out + pterm.Success.Sprintln("both sides have the same entries"), nil
	}

	for _, side := range []struct {
		title   string
		entries []string
	}{
		{title: "only in " + c.Left, entries: c.OnlyLeft},
		{title: "only in " + c.Right, entries: c.OnlyRight},
	} {
		if len(side.entries) == 0 {
			continue
		}
		items := make([]pterm.BulletListItem, 0, len(side.entries))
		for _, e := range side.entries {
			items = append(items, pterm.BulletListItem{Level: 0, Text: e})
		}
		list, err := pterm.DefaultBulletList.WithItems(items).Srender()
		if err != nil {
			return "", errors.Errorf("rendering list: %w", err)
		}
		out += pterm.DefaultSection.Sprint(side.title) + list
	}
	return out, nil
}
