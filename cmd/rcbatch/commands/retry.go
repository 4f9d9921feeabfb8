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
	"time"

	"github.com/spf13/cobra"
	"github.com/walteh/rcbatch/cmd/rcbatch/opts"
	"github.com/walteh/rcbatch/pkg/ledger"
	"github.com/walteh/rcbatch/pkg/log"
	"github.com/walteh/rcbatch/pkg/manifest"
	"gitlab.com/tozd/go/errors"
)

type retryFlags struct {
	failedFiles string
	errorLog    string
	force       bool
	rotate      bool
}

// NewRetryCmd creates the retry command
func NewRetryCmd(opts *opts.RootOpts) *cobra.Command {
	flags := &retryFlags{}

	cmd := &cobra.Command{
		Use:   "retry <manifest>",
		Short: "Turn the failed-items file into a new manifest",
		Long: `retry writes every item recorded in the failed-items file to <manifest>,
once each. Items are written in their original manifest order, so the next
run tries them in the same order a normal run would.

The failed-items file and error log are left as they are. With --rotate both
are moved aside together under a timestamp suffix, so the next run starts a
fresh pair while the old records are kept.

Run the original command against the new manifest to try the items again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.FromContext(ctx)
			target := args[0]

			failedFiles := opts.Config.FailedFiles
			if flags.failedFiles != "" {
				failedFiles = flags.failedFiles
			}
			errorLog := opts.Config.ErrorLog
			if flags.errorLog != "" {
				errorLog = flags.errorLog
			}
			l := ledger.New(failedFiles, errorLog)

			logger.Header(fmt.Sprintf("retry %s → %s", l.FailedPath(), target))

			recorded, err := ledger.ReadFailed(l.FailedPath())
			if err != nil {
				return err
			}
			items := retryOrder(recorded)
			if len(items) == 0 {
				logger.Infof("no failed items recorded in %s", l.FailedPath())
				return nil
			}

			if !flags.force {
				existing, err := manifest.Load(target)
				if err == nil && len(existing) > 0 {
					return errors.Errorf("%s still has %d items; use --force to replace it", target, len(existing))
				}
			}

			if err := manifest.Persist(target, items); err != nil {
				return errors.Errorf("writing %s: %w", target, err)
			}
			logger.Successf("%d failed items written to %s", len(items), target)

			if flags.rotate {
				rotated, err := l.Rotate(ctx, time.Now())
				if err != nil {
					return err
				}
				logger.Infof("previous ledger kept as %s and %s", orNone(rotated.FailedPath), orNone(rotated.ErrorLogPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.failedFiles, "failed-files", "", "failed-items file to read (default from config)")
	cmd.Flags().StringVar(&flags.errorLog, "error-log", "", "error log rotated along with it (default from config)")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "replace a manifest that still has items")
	cmd.Flags().BoolVar(&flags.rotate, "rotate", false, "move the failed-items file and error log aside after writing the manifest")
	return cmd
}

// retryOrder drops repeated identifiers and restores manifest order. Runs
// consume the manifest from the end, so failures are recorded last line first.
func retryOrder(recorded []string) []string {
	seen := make(map[string]struct{}, len(recorded))
	out := make([]string, 0, len(recorded))
	for _, it := range recorded {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func orNone(path string) string {
	if path == "" {
		return "(none)"
	}
	return path
}
