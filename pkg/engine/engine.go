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

// Package engine drives a manifest through the transfer tool one item at a
// time.
//
// Each iteration pops the last pending item, builds its command, runs it to
// completion and only then looks at the exit status. A success rewrites the
// manifest without the item before the next item starts; a failure keeps the
// item in the manifest and appends it to the ledger. Item failures never stop
// the batch. Only an invalid job, an unreadable manifest, a manifest that can
// no longer be rewritten, or a tool that cannot be started at all are fatal.
//
// Nothing here is safe for two engines sharing one manifest path.
package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/rcbatch/pkg/classify"
	"github.com/walteh/rcbatch/pkg/ledger"
	"github.com/walteh/rcbatch/pkg/log"
	"github.com/walteh/rcbatch/pkg/manifest"
	"github.com/walteh/rcbatch/pkg/operation"
	"github.com/walteh/rcbatch/pkg/rclone"
	"gitlab.com/tozd/go/errors"
)

// ErrItemTransferFailed marks a single item whose command exited non-zero.
// It is logged and counted, never returned from Run.
var ErrItemTransferFailed = errors.Base("item transfer failed")

// 🔍 Classifier decides the shape of an item
type Classifier interface {
	Classify(id string) classify.Kind
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(id string) classify.Kind

// Classify implements Classifier.
func (f ClassifierFunc) Classify(id string) classify.Kind {
	return f(id)
}

// 📢 Reporter receives user-facing notices; *log.Logger implements it
type Reporter interface {
	StartBatch(ctx context.Context, b log.Batch)
	LogCommand(ctx context.Context, command string)
	LogItem(ctx context.Context, it log.Item)
	EndBatch(ctx context.Context, s log.Summary)
	Warning(msg string)
}

// 🎯 Job is one batch run
type Job struct {
	Operation    operation.Kind
	SourceRoot   string
	DestRoot     string
	ManifestPath string
	Parameters   string
	// Verify runs a check after each successful transfer; only copy, move
	// and sync are verified
	Verify bool
}

// Validate rejects jobs that must not touch any item.
func (j Job) Validate() error {
	if err := j.Operation.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(j.SourceRoot) == "" {
		return errors.Errorf("source root is required")
	}
	if j.Operation.NeedsDestination() && strings.TrimSpace(j.DestRoot) == "" {
		return errors.Errorf("destination root is required for %s", j.Operation)
	}
	if strings.TrimSpace(j.ManifestPath) == "" {
		return errors.Errorf("manifest path is required")
	}
	return nil
}

// 📊 Outcome aggregates a run. Failed is the number that matters: zero
// means every item succeeded.
type Outcome struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Planned   int
	// Failures lists failed identifiers in the order they failed
	Failures []string
}

// OK reports a run without failures.
func (o *Outcome) OK() bool {
	return o.Failed == 0
}

// 🏃 Engine runs jobs sequentially
type Engine struct {
	runner     rclone.Runner
	binary     string
	classifier Classifier
	ledger     *ledger.Ledger
	reporter   Reporter
	dryRun     bool
	echo       bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier replaces the default suffix classifier.
func WithClassifier(c Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithLedger sets where failures are recorded.
func WithLedger(l *ledger.Ledger) Option {
	return func(e *Engine) { e.ledger = l }
}

// WithReporter sets the notice sink.
func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithDryRun reports commands without running them or touching any file.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// WithEcho prints every command before it runs.
func WithEcho(echo bool) Option {
	return func(e *Engine) { e.echo = echo }
}

// WithBinary sets the executable name shown in echoed commands.
func WithBinary(binary string) Option {
	return func(e *Engine) { e.binary = binary }
}

// 🏭 New creates an engine around runner
func New(runner rclone.Runner, opts ...Option) *Engine {
	e := &Engine{
		runner:     runner,
		binary:     rclone.DefaultBinary,
		classifier: ClassifierFunc(classify.Classify),
		reporter:   log.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ledger == nil {
		e.ledger = ledger.New("", "")
	}
	return e
}

// 🏃 Run processes the job's manifest until it is exhausted.
//
// The returned Outcome is non-nil whenever the manifest was loaded, also
// together with a fatal error, so callers can report partial progress.
func (e *Engine) Run(ctx context.Context, job Job) (*Outcome, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("operation", job.Operation.String()).
		Str("manifest", job.ManifestPath).
		Logger()

	if err := job.Validate(); err != nil {
		return nil, errors.Errorf("validating job: %w", err)
	}

	store := manifest.NewStore(job.ManifestPath)
	queue, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Errorf("loading manifest: %w", err)
	}

	out := &Outcome{Total: queue.Len()}
	e.reporter.StartBatch(ctx, log.Batch{
		Operation:   job.Operation.String(),
		Source:      job.SourceRoot,
		Destination: job.DestRoot,
		Manifest:    job.ManifestPath,
		Items:       out.Total,
		DryRun:      e.dryRun,
	})

	index := 0
	for {
		if err := ctx.Err(); err != nil {
			logger.Warn().Int("remaining", queue.Len()).Msg("batch interrupted")
			return out, errors.Errorf("batch interrupted: %w", err)
		}

		item, ok := queue.Pop()
		if !ok {
			break
		}
		index++

		if strings.TrimSpace(item) == "" {
			out.Skipped++
			e.reporter.LogItem(ctx, log.Item{Status: log.ItemSkipped, Index: index, Total: out.Total})
			continue
		}

		if err := e.processItem(ctx, job, store, queue, item, index, out); err != nil {
			logger.Error().Err(err).Str("item", item).Msg("batch aborted")
			return out, err
		}
	}

	e.reporter.EndBatch(ctx, log.Summary{
		Operation:  job.Operation.String(),
		Total:      out.Total,
		Succeeded:  out.Succeeded,
		Failed:     out.Failed,
		Skipped:    out.Skipped,
		Planned:    out.Planned,
		FailedFile: e.ledger.FailedPath(),
		ErrorLog:   e.ledger.ErrorLogPath(),
	})

	logger.Info().
		Int("total", out.Total).
		Int("succeeded", out.Succeeded).
		Int("failed", out.Failed).
		Msg("batch finished")

	return out, nil
}

// processItem runs one item and routes its outcome. A returned error is fatal.
func (e *Engine) processItem(ctx context.Context, job Job, store *manifest.Store, queue *manifest.Queue, item string, index int, out *Outcome) error {
	class := e.classifier.Classify(item)

	args, err := operation.Build(job.Operation, job.SourceRoot, job.DestRoot, item, class, job.Parameters)
	if err != nil {
		queue.Hold(item)
		return errors.Errorf("building command for %q: %w", item, err)
	}

	command := rclone.Format(e.binary, args)
	entry := log.Item{
		Path:    item,
		Class:   class.String(),
		Command: command,
		Index:   index,
		Total:   out.Total,
	}

	if e.echo || e.dryRun {
		e.reporter.LogCommand(ctx, command)
	}

	if e.dryRun {
		queue.Hold(item)
		out.Planned++
		entry.Status = log.ItemPlanned
		e.reporter.LogItem(ctx, entry)
		return nil
	}

	res, err := e.runner.Run(ctx, args)
	if err != nil {
		queue.Hold(item)
		return errors.Errorf("running %q: %w", item, err)
	}

	diagnostic := res.Stderr
	success := res.Success()

	if success && job.Verify && job.Operation.Transfers() {
		vargs := operation.VerifyArgs(job.Operation, job.SourceRoot, job.DestRoot, item, class)
		if e.echo {
			e.reporter.LogCommand(ctx, rclone.Format(e.binary, vargs))
		}
		vres, err := e.runner.Output(ctx, vargs)
		if err != nil {
			queue.Hold(item)
			return errors.Errorf("verifying %q: %w", item, err)
		}
		success = vres.Success()
		diagnostic = vres.Stderr
	}

	if success {
		if err := store.Commit(ctx, queue); err != nil {
			return errors.Errorf("committing %q: %w", item, err)
		}
		out.Succeeded++
		entry.Status = log.ItemDone
		entry.Label = job.Operation.Verb()
		e.reporter.LogItem(ctx, entry)
		return nil
	}

	queue.Hold(item)
	out.Failed++
	out.Failures = append(out.Failures, item)

	zerolog.Ctx(ctx).Debug().
		Err(errors.Errorf("%w: %s (exit %d)", ErrItemTransferFailed, item, res.ExitCode)).
		Msg("item failed")

	if err := e.ledger.Record(ctx, item, diagnostic); err != nil {
		e.reporter.Warning("could not record failure of " + item + ": " + err.Error())
	}

	entry.Status = log.ItemFailed
	entry.Diagnostic = diagnostic
	e.reporter.LogItem(ctx, entry)
	return nil
}
