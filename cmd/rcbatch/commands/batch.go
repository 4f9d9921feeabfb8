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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/rcbatch/cmd/rcbatch/opts"
	"github.com/walteh/rcbatch/pkg/engine"
	"github.com/walteh/rcbatch/pkg/ledger"
	"github.com/walteh/rcbatch/pkg/log"
	"github.com/walteh/rcbatch/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// ErrItemsFailed is returned when a batch finished with failed items. The
// summary has already been printed when it is returned.
var ErrItemsFailed = errors.Base("items failed")

type batchFlags struct {
	parameters  string
	failedFiles string
	errorLog    string
	verify      bool
	dryRun      bool
}

// NewBatchCmd creates the command that runs one operation over a manifest
func NewBatchCmd(kind operation.Kind, opts *opts.RootOpts) *cobra.Command {
	flags := &batchFlags{}

	use := fmt.Sprintf("%s <source> <dest> <manifest>", kind)
	args := cobra.ExactArgs(3)
	if !kind.NeedsDestination() {
		use = fmt.Sprintf("%s <source> <manifest>", kind)
		args = cobra.ExactArgs(2)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Run %s for every item of a manifest", kind),
		Long: fmt.Sprintf(`%s processes a manifest of item names relative to <source>, one per line.
It will:
1. Take the last line of the manifest
2. Run rclone %s for that item and wait for it to finish
3. Remove the item from the manifest if it succeeded, or record it in the
   failed-items file and error log if it did not
4. Repeat until every item has been tried

An interrupted run can be resumed by running the same command again.`, kind, kind),
		Args: args,
		RunE: func(cmd *cobra.Command, args []string) error {
			job := engine.Job{
				Operation:  kind,
				SourceRoot: args[0],
				Parameters: opts.Config.ParametersFor(kind),
				Verify:     opts.Config.Verify,
			}
			if kind.NeedsDestination() {
				job.DestRoot = args[1]
				job.ManifestPath = args[2]
			} else {
				job.ManifestPath = args[1]
			}

			if cmd.Flags().Changed("parameters") {
				job.Parameters = flags.parameters
			}
			if cmd.Flags().Changed("verify") {
				job.Verify = flags.verify
			}

			failedFiles := opts.Config.FailedFiles
			if flags.failedFiles != "" {
				failedFiles = flags.failedFiles
			}
			errorLog := opts.Config.ErrorLog
			if flags.errorLog != "" {
				errorLog = flags.errorLog
			}

			classifier, err := opts.Config.Classifier()
			if err != nil {
				return err
			}

			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", kind.String()).Logger().WithContext(cmd.Context())
			logger := log.FromContext(ctx)

			eng := engine.New(opts.Runner,
				engine.WithBinary(opts.Config.Binary),
				engine.WithClassifier(classifier),
				engine.WithLedger(ledger.New(failedFiles, errorLog)),
				engine.WithReporter(logger),
				engine.WithDryRun(flags.dryRun),
				engine.WithEcho(opts.Debug),
			)

			out, err := eng.Run(ctx, job)
			if err != nil {
				if out != nil {
					logger.Errorf("stopped after %d succeeded and %d failed of %d; run the same command again to resume",
						out.Succeeded, out.Failed, out.Total)
				}
				return errors.Errorf("running %s: %w", kind, err)
			}

			if !out.OK() {
				return errors.Errorf("%w: %d of %d", ErrItemsFailed, out.Failed, out.Total)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.parameters, "parameters", "p", "", "extra rclone parameters, replacing the configured ones")
	f.StringVar(&flags.failedFiles, "failed-files", "", "file that receives failed item names (default "+ledger.DefaultFailedFile+")")
	f.StringVar(&flags.errorLog, "error-log", "", "file that receives rclone diagnostics (default "+ledger.DefaultErrorLog+")")
	f.BoolVar(&flags.dryRun, "dry-run", false, "print the commands without running them")
	if kind.Transfers() {
		f.BoolVar(&flags.verify, "verify", false, "check every item after it was transferred")
	}

	if kind == operation.Delete {
		cmd.Aliases = []string{"del"}
	}

	return cmd
}
