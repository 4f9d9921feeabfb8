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

// Package rclone runs the external transfer tool as a subprocess.
package rclone

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultBinary is the tool looked up on PATH when none is configured.
const DefaultBinary = "rclone"

// 📊 Result is what a finished invocation reports back
type Result struct {
	ExitCode int
	Stdout   string // only filled by Output
	Stderr   string
}

// Success reports a zero exit status.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// 🔌 Runner executes tool invocations. A non-zero exit status is a Result,
// not an error; errors are reserved for invocations that could not run to
// completion (missing binary, cancelled context).
type Runner interface {
	// Run streams stdout to the console and captures stderr.
	Run(ctx context.Context, args []string) (*Result, error)
	// Output captures both stdout and stderr.
	Output(ctx context.Context, args []string) (*Result, error)
}

// 🔧 Client implements Runner with os/exec, without a shell
type Client struct {
	binary string
	stdout io.Writer
	stderr io.Writer
}

// Option configures a Client.
type Option func(*Client)

// WithStdout sets where progress output of Run goes.
func WithStdout(w io.Writer) Option {
	return func(c *Client) { c.stdout = w }
}

// WithStderr mirrors diagnostics to w while they are captured.
func WithStderr(w io.Writer) Option {
	return func(c *Client) { c.stderr = w }
}

// 🏭 NewClient creates a client for binary, defaulting to rclone.
func NewClient(binary string, opts ...Option) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	c := &Client{binary: binary}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binary returns the executable the client invokes.
func (c *Client) Binary() string {
	return c.binary
}

// Run implements Runner.
func (c *Client) Run(ctx context.Context, args []string) (*Result, error) {
	return c.exec(ctx, args, c.stdout)
}

// Output implements Runner.
func (c *Client) Output(ctx context.Context, args []string) (*Result, error) {
	var stdout bytes.Buffer
	res, err := c.exec(ctx, args, &stdout)
	if err != nil {
		return nil, err
	}
	res.Stdout = stdout.String()
	return res, nil
}

func (c *Client) exec(ctx context.Context, args []string, stdout io.Writer) (*Result, error) {
	zerolog.Ctx(ctx).Debug().Str("command", Format(c.binary, args)).Msg("running tool")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stdout = stdout
	if c.stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, c.stderr)
	} else {
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	res := &Result{Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		return nil, errors.Errorf("running %s: %w", c.binary, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when the process was killed by a signal
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return nil, errors.Errorf("running %s: %w", c.binary, err)
}

// Format renders an invocation for display. Arguments with spaces or quotes
// are quoted; the result is never passed to a shell.
func Format(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, binary)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
