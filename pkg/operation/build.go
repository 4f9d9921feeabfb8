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

package operation

import (
	"strings"

	"github.com/walteh/rcbatch/pkg/classify"
)

// ProgressFlag asks the tool to print live transfer progress.
const ProgressFlag = "-P"

// 🔧 NormalizeRoot converts separators to "/" and leaves exactly one trailing "/"
func NormalizeRoot(root string) string {
	root = strings.ReplaceAll(root, `\`, "/")
	return strings.TrimRight(root, "/") + "/"
}

// SplitParameters tokenizes a free-form parameter string on whitespace.
func SplitParameters(params string) []string {
	return strings.Fields(params)
}

// 🏗️ Build returns the tool arguments for one item. The result never
// includes the binary name.
func Build(kind Kind, sourceRoot, destRoot, item string, class classify.Kind, params string) ([]string, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	src := NormalizeRoot(sourceRoot)
	dst := NormalizeRoot(destRoot)

	args := []string{string(kind), ProgressFlag}

	switch kind {
	case Copy, Move, Sync:
		if class == classify.Leaf {
			// a file target must be the containing directory
			args = append(args, src+item, dst)
		} else {
			args = append(args, src+item, dst+item)
		}
	case Delete:
		if class == classify.Container {
			// "delete" only removes files, purge removes the whole tree
			args[0] = "purge"
		}
		args = append(args, src+item)
	case Check:
		args = append(args, src+item, dst+item)
	}

	return append(args, SplitParameters(params)...), nil
}

// 🔍 VerifyArgs builds the command that confirms a finished transfer.
// A move leaves nothing at the source, so it only lists the destination.
func VerifyArgs(kind Kind, sourceRoot, destRoot, item string, class classify.Kind) []string {
	src := NormalizeRoot(sourceRoot)
	dst := NormalizeRoot(destRoot)

	target := dst + item
	if class == classify.Leaf {
		target = dst + baseName(item)
	}

	switch {
	case kind == Move:
		return []string{"lsf", target}
	case kind == Sync && class == classify.Container:
		return []string{string(Check), src + item, target}
	case class == classify.Leaf:
		return []string{string(Check), src + item, dst, "--one-way"}
	default:
		return []string{string(Check), src + item, target, "--one-way"}
	}
}

func baseName(item string) string {
	item = strings.TrimRight(item, "/")
	if i := strings.LastIndex(item, "/"); i >= 0 {
		return item[i+1:]
	}
	return item
}
