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

package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	itemIndent  = 4  // spaces to indent item entries
	nameWidth   = 35 // Base width for the item name
	classWidth  = 12 // Width for leaf/container
	statusWidth = 12 // Width for status text
)

// 🚦 ItemStatus is the outcome of one manifest entry
type ItemStatus int

const (
	ItemDone ItemStatus = iota
	ItemFailed
	ItemSkipped
	ItemPlanned
)

func (s ItemStatus) String() string {
	switch s {
	case ItemDone:
		return "done"
	case ItemFailed:
		return "failed"
	case ItemSkipped:
		return "skipped"
	case ItemPlanned:
		return "planned"
	default:
		return "unknown"
	}
}

// 🎯 Item represents one processed manifest entry for logging
type Item struct {
	Path       string     // Item identifier, relative to the source root
	Class      string     // leaf or container
	Status     ItemStatus // Outcome
	Label      string     // Status text, e.g. "copied"
	Command    string     // Rendered tool invocation
	Diagnostic string     // Tool stderr on failure
	Index      int        // 1-based position in this run
	Total      int        // Items in this run
}

// 📦 Batch describes a run for the header line
type Batch struct {
	Operation   string
	Source      string
	Destination string
	Manifest    string
	Items       int
	DryRun      bool
}

// 📊 Summary closes a run
type Summary struct {
	Operation  string
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Planned    int
	FailedFile string
	ErrorLog   string
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	mu        sync.Mutex
	current   *Batch
	processed int
}

// 🏭 New creates a logger printing to console, with zerolog diagnostics at
// level written to diagnostics
func New(console, diagnostics io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: diagnostics}).Level(level).With().Timestamp().Logger()
	return NewWithZerolog(console, zlog)
}

// NewWithZerolog creates a logger that mirrors console lines to zlog.
func NewWithZerolog(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// Discard returns a logger that prints and records nothing.
func Discard() *Logger {
	return NewWithZerolog(io.Discard, zerolog.Nop())
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context, along with its zerolog logger so
// zerolog.Ctx sees the same diagnostics stream
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(l.zlog.WithContext(ctx), contextKey{}, l)
}

// 📝 formatItem formats an item for display
func (l *Logger) formatItem(it Item) string {
	var symbol rune
	var symbolColor color.Attribute
	switch it.Status {
	case ItemDone:
		symbol = '✓'
		symbolColor = color.FgGreen
	case ItemFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	case ItemPlanned:
		symbol = '-'
		symbolColor = color.FgYellow
	default:
		symbol = '•'
		symbolColor = color.FgCyan
	}

	classColor := color.FgBlue
	if it.Class == "leaf" {
		classColor = color.FgCyan
	}

	label := it.Label
	if label == "" {
		label = it.Status.String()
	}

	progress := ""
	if it.Total > 0 {
		width := len(fmt.Sprint(it.Total))
		progress = color.New(color.Faint).Sprintf("[%*d/%d] ", width, it.Index, it.Total)
	}

	return fmt.Sprintf("%s%s %s%s %s %s",
		strings.Repeat(" ", itemIndent),
		color.New(symbolColor).Sprint(string(symbol)),
		progress,
		fmt.Sprintf("%-*s", nameWidth, it.Path),
		color.New(classColor).Sprint(fmt.Sprintf("%-*s", classWidth, it.Class)),
		fmt.Sprintf("%-*s", statusWidth, label))
}

// 📝 LogItem logs the outcome of one manifest entry
func (l *Logger) LogItem(ctx context.Context, it Item) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.processed++
	fmt.Fprintln(l.console, l.formatItem(it))

	ev := l.zlog.Info()
	if it.Status == ItemFailed {
		ev = l.zlog.Warn().Str("diagnostic", strings.TrimSpace(it.Diagnostic))
	}
	ev.Str("item", it.Path).
		Str("class", it.Class).
		Str("status", it.Status.String()).
		Str("command", it.Command).
		Int("index", it.Index).
		Int("total", it.Total).
		Msg("item processed")
}

// 💬 LogCommand echoes a tool invocation before it runs
func (l *Logger) LogCommand(ctx context.Context, command string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.console, "%s%s %s\n",
		strings.Repeat(" ", itemIndent),
		color.New(color.Faint).Sprint("$"),
		color.New(color.Faint).Sprint(command))
	l.zlog.Debug().Str("command", command).Msg("running")
}

// 📝 StartBatch prints the header of a run
func (l *Logger) StartBatch(ctx context.Context, b Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &b
	l.processed = 0

	target := b.Source
	if b.Destination != "" {
		target = fmt.Sprintf("%s → %s", b.Source, b.Destination)
	}

	fmt.Fprintf(l.console, "[%s %s]\n",
		b.Operation,
		color.New(color.FgCyan).Sprint(target))

	suffix := ""
	if b.DryRun {
		suffix = " " + color.New(color.FgYellow).Sprint("(dry run)")
	}
	fmt.Fprintf(l.console, "%s %s %s %s%s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(b.Manifest),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprintf("%d items", b.Items),
		suffix)

	l.zlog.Info().
		Str("operation", b.Operation).
		Str("source", b.Source).
		Str("destination", b.Destination).
		Str("manifest", b.Manifest).
		Int("items", b.Items).
		Bool("dry_run", b.DryRun).
		Msg("starting batch")
}

// 📝 EndBatch prints the closing summary of a run
func (l *Logger) EndBatch(ctx context.Context, s Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s.Operation == "" && l.current != nil {
		s.Operation = l.current.Operation
	}

	l.zlog.Info().
		Str("operation", s.Operation).
		Int("total", s.Total).
		Int("succeeded", s.Succeeded).
		Int("failed", s.Failed).
		Int("skipped", s.Skipped).
		Int("logged", l.processed).
		Msg("batch complete")

	switch {
	case s.Planned > 0:
		fmt.Fprintf(l.console, "📋 %s\n", color.New(color.FgYellow).Sprintf(
			"%s dry run: %d commands planned, nothing changed", s.Operation, s.Planned))
	case s.Failed > 0:
		fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprintf(
			"%s finished: %d of %d failed, see %s and %s",
			s.Operation, s.Failed, s.Total, s.FailedFile, s.ErrorLog))
	default:
		fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprintf(
			"%s finished: all %d succeeded", s.Operation, s.Succeeded))
	}

	l.current = nil
	l.processed = 0
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("rcbatch")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
