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
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/rcbatch/cmd/rcbatch/commands"
	"github.com/walteh/rcbatch/cmd/rcbatch/opts"
	"github.com/walteh/rcbatch/pkg/config"
	"github.com/walteh/rcbatch/pkg/log"
	"github.com/walteh/rcbatch/pkg/operation"
	"github.com/walteh/rcbatch/pkg/rclone"
	"gitlab.com/tozd/go/errors"
)

type rootFlags struct {
	configFile string
	binary     string
	debug      bool
}

// newRootCmd builds the command tree. Shared options are resolved in
// PersistentPreRunE, after flags are parsed.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}
	rootOpts := &opts.RootOpts{Stdout: stdout}

	cmd := &cobra.Command{
		Use:   "rcbatch",
		Short: "Run rclone over a manifest of items, one at a time, resumably",
		Long: `rcbatch runs an rclone operation for every item listed in a manifest file.
Finished items are removed from the manifest as soon as they succeed, so an
interrupted batch picks up where it stopped. Failed items stay in the manifest
and are recorded in a failed-items file and an error log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := setupLogging(cmd.Context(), stdout, stderr, flags.debug)
			cmd.SetContext(ctx)

			if err := newRootOpts(ctx, flags, rootOpts, stdout, stderr); err != nil {
				return err
			}
			return nil
		},
	}

	addRootFlags(cmd, flags)

	for _, kind := range operation.Kinds {
		cmd.AddCommand(commands.NewBatchCmd(kind, rootOpts))
	}
	cmd.AddCommand(
		commands.NewListLocalCmd(rootOpts),
		commands.NewListRemoteCmd(rootOpts),
		commands.NewCompareCmd(rootOpts),
		commands.NewRetryCmd(rootOpts),
		newVersionCmd(stdout),
	)

	return cmd
}

// newRootOpts fills o with the loaded config and its dependencies
func newRootOpts(ctx context.Context, flags *rootFlags, o *opts.RootOpts, stdout, stderr io.Writer) error {
	var (
		cfg *config.Config
		err error
	)
	if flags.configFile == "" {
		cfg, err = config.LoadOrDefault(ctx, config.DefaultPath)
	} else {
		cfg, err = config.Load(ctx, flags.configFile)
	}
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	if flags.binary != "" {
		cfg.Binary = flags.binary
	}

	zerolog.Ctx(ctx).Debug().Stringer("config", cfg).Str("location", cfg.Location()).Msg("configuration loaded")

	o.Config = cfg
	o.Debug = flags.debug
	o.Runner = rclone.NewClient(cfg.Binary, rclone.WithStdout(stdout), rclone.WithStderr(stderr))
	return nil
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, flags *rootFlags) {
	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file path (default "+config.DefaultPath+" when present)")
	cmd.PersistentFlags().StringVar(&flags.binary, "binary", "", "rclone executable to run")
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging and echo every command")
}

// setupLogging attaches the console logger to ctx. Progress goes to stdout,
// zerolog diagnostics to stderr.
func setupLogging(ctx context.Context, stdout, stderr io.Writer, debug bool) context.Context {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return log.NewContext(ctx, log.New(stdout, stderr, level))
}
