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

// Package classify decides whether a manifest entry names a single file or a
// directory-like unit.
//
// The decision is a suffix heuristic, not a filesystem probe. An entry that
// ends in one of the known extensions is a Leaf, everything else is a
// Container. Entries whose real type disagrees are misrouted: a directory
// called "backup.zip" is handled as a Leaf, and a file without an extension
// ("Makefile") is handled as a Container.
package classify

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// 📦 Kind is the shape of a manifest entry
type Kind int

const (
	// Container is a directory-like unit, merged recursively into a same-named subtree
	Container Kind = iota
	// Leaf is a single file, placed inside the destination root
	Leaf
)

func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Container:
		return "container"
	default:
		return "unknown"
	}
}

// DefaultExtensions are the suffixes that mark an entry as a single file.
// Archives, media, documents and images.
var DefaultExtensions = []string{
	".exe", ".jar", ".bat",
	".zip", ".rar", ".7z", ".tar", ".gz",
	".mp3", ".wav", ".mp4", ".mov", ".avi", ".mpeg",
	".txt", ".doc", ".docx", ".xls", ".xlsx", ".pdf", ".ppt",
	".htm", ".html", ".xml", ".csv",
	".bmp", ".jpg", ".jpeg", ".png", ".gif", ".psd",
}

var defaultClassifier = &Classifier{extensions: lowerAll(DefaultExtensions)}

// 🔍 Classify reports the kind of an entry using DefaultExtensions only
func Classify(id string) Kind {
	return defaultClassifier.Classify(id)
}

// 🎯 Classifier matches entries against a set of extensions and glob patterns
type Classifier struct {
	extensions []string
	patterns   []string
}

// 🏭 New creates a classifier that knows DefaultExtensions plus the given
// extensions and doublestar patterns. Matching is case-insensitive.
func New(extensions []string, patterns []string) (*Classifier, error) {
	exts := lowerAll(DefaultExtensions)
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}

	pats := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid leaf pattern %q", p)
		}
		pats = append(pats, p)
	}

	return &Classifier{extensions: exts, patterns: pats}, nil
}

// Classify reports Leaf when the entry ends in a known extension or matches
// one of the configured patterns, Container otherwise.
func (c *Classifier) Classify(id string) Kind {
	lower := strings.ToLower(id)
	for _, ext := range c.extensions {
		if strings.HasSuffix(lower, ext) {
			return Leaf
		}
	}
	for _, p := range c.patterns {
		// patterns were validated in New, so the error is always nil
		if ok, _ := doublestar.Match(p, lower); ok {
			return Leaf
		}
	}
	return Container
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
