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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/rcbatch/pkg/classify"
	"github.com/walteh/rcbatch/pkg/ledger"
	"github.com/walteh/rcbatch/pkg/operation"
	"github.com/walteh/rcbatch/pkg/rclone"
	"gitlab.com/tozd/go/errors"
)

// DefaultPath is read when no --config flag is given. A missing file there
// is not an error.
const DefaultPath = ".rcbatch.yaml"

// DefaultTransferParameters are appended to copy, move and sync commands
// unless the config or the command line says otherwise.
const DefaultTransferParameters = "--ignore-errors --cache-chunk-size 20M --drive-server-side-across-configs"

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse decodes the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Config holds the settings shared by every batch command
type Config struct {
	// Binary is the transfer tool executable
	Binary string `json:"binary,omitempty" yaml:"binary,omitempty"`
	// Parameters maps an operation name to its default parameter string.
	// A key that is present with an empty value means no parameters.
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// FailedFiles receives the identifiers of failed items
	FailedFiles string `json:"failed_files,omitempty" yaml:"failed_files,omitempty"`
	// ErrorLog receives the diagnostics of failed items
	ErrorLog string `json:"error_log,omitempty" yaml:"error_log,omitempty"`
	// Extensions are added to the built-in leaf extensions
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	// LeafPatterns are doublestar globs that also mark an item as a leaf
	LeafPatterns []string `json:"leaf_patterns,omitempty" yaml:"leaf_patterns,omitempty"`
	// Verify checks every transferred item after it succeeds
	Verify bool `json:"verify,omitempty" yaml:"verify,omitempty"`

	location string
}

// 🏭 Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	path = os.ExpandEnv(path)

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	cfg, err := parse(ctx, path, data)
	if err != nil {
		return nil, err
	}

	cfg.location = path
	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(ctx context.Context, path string) (*Config, error) {
	cfg, err := Load(ctx, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			zerolog.Ctx(ctx).Debug().Str("path", path).Msg("no config file, using defaults")
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func parse(ctx context.Context, path string, data []byte) (*Config, error) {
	if p := GetParser(path); p != nil {
		cfg, err := p.Parse(ctx, data)
		if err != nil {
			return nil, errors.Errorf("parsing config: %w", err)
		}
		return cfg, nil
	}

	// extensionless files such as ".rcbatch" may hold YAML or HCL
	if filepath.Ext(strings.TrimPrefix(filepath.Base(path), ".")) == "" {
		cfg, yamlErr := (&YAMLParser{}).Parse(ctx, data)
		if yamlErr == nil {
			return cfg, nil
		}
		cfg, hclErr := (&HCLParser{}).Parse(ctx, data)
		if hclErr == nil {
			return cfg, nil
		}
		return nil, errors.Errorf("parsing %s as YAML or HCL: %w", path, errors.Join(yamlErr, hclErr))
	}

	return nil, errors.Errorf("no parser found for file: %s", path)
}

// expandEnv expands environment variables in path-like fields
func (cfg *Config) expandEnv() {
	cfg.Binary = os.ExpandEnv(cfg.Binary)
	cfg.FailedFiles = os.ExpandEnv(cfg.FailedFiles)
	cfg.ErrorLog = os.ExpandEnv(cfg.ErrorLog)
}

// applyDefaults fills in zero-value fields
func (cfg *Config) applyDefaults() {
	if cfg.Binary == "" {
		cfg.Binary = rclone.DefaultBinary
	}
	if cfg.FailedFiles == "" {
		cfg.FailedFiles = ledger.DefaultFailedFile
	}
	if cfg.ErrorLog == "" {
		cfg.ErrorLog = ledger.DefaultErrorLog
	}
	if cfg.Parameters == nil {
		cfg.Parameters = map[string]string{}
	}
	for _, k := range operation.Kinds {
		if _, ok := cfg.Parameters[string(k)]; ok {
			continue
		}
		if k.Transfers() {
			cfg.Parameters[string(k)] = DefaultTransferParameters
		} else {
			cfg.Parameters[string(k)] = ""
		}
	}
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Binary) == "" {
		return errors.Errorf("binary is required")
	}

	for name := range cfg.Parameters {
		if err := operation.Kind(name).Validate(); err != nil {
			return errors.Errorf("parameters.%s: %w", name, err)
		}
	}

	for _, ext := range cfg.Extensions {
		if strings.TrimSpace(strings.TrimPrefix(ext, ".")) == "" {
			return errors.Errorf("extensions: empty extension")
		}
	}

	for _, p := range cfg.LeafPatterns {
		if !doublestar.ValidatePattern(p) {
			return errors.Errorf("leaf_patterns: invalid pattern %q", p)
		}
	}

	return nil
}

// ParametersFor returns the configured parameter string of an operation.
func (cfg *Config) ParametersFor(kind operation.Kind) string {
	return cfg.Parameters[string(kind)]
}

// Classifier builds the item classifier described by the config.
func (cfg *Config) Classifier() (*classify.Classifier, error) {
	c, err := classify.New(cfg.Extensions, cfg.LeafPatterns)
	if err != nil {
		return nil, errors.Errorf("building classifier: %w", err)
	}
	return c, nil
}

// Location is the file the config was loaded from, empty for Default.
func (cfg *Config) Location() string {
	return cfg.location
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	ops := make([]string, 0, len(cfg.Parameters))
	for k := range cfg.Parameters {
		ops = append(ops, k)
	}
	sort.Strings(ops)
	return fmt.Sprintf("%s [%s] failed=%s errors=%s verify=%t",
		cfg.Binary, strings.Join(ops, ","), cfg.FailedFiles, cfg.ErrorLog, cfg.Verify)
}
