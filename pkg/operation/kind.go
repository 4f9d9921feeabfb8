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

	"gitlab.com/tozd/go/errors"
)

// ErrUnsupportedOperation is returned for any kind outside the known vocabulary.
var ErrUnsupportedOperation = errors.Base("unsupported operation")

// 🎯 Kind is a batch operation understood by the transfer tool
type Kind string

const (
	Copy   Kind = "copy"
	Move   Kind = "move"
	Sync   Kind = "sync"
	Check  Kind = "check"
	Delete Kind = "delete"
)

// Kinds lists every supported operation in display order.
var Kinds = []Kind{Copy, Move, Sync, Check, Delete}

// 🔍 Parse maps user input to a Kind. "del" is accepted for Delete.
func Parse(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "del" {
		k = Delete
	}
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

// Validate fails with ErrUnsupportedOperation for unknown kinds.
func (k Kind) Validate() error {
	switch k {
	case Copy, Move, Sync, Check, Delete:
		return nil
	}
	return errors.Errorf("%w: %q", ErrUnsupportedOperation, string(k))
}

// NeedsDestination reports whether the kind takes a destination root.
func (k Kind) NeedsDestination() bool {
	return k != Delete
}

// Transfers reports whether the kind moves data and can be verified afterwards.
func (k Kind) Transfers() bool {
	return k == Copy || k == Move || k == Sync
}

// Verb is the past-tense label used in notices.
func (k Kind) Verb() string {
	switch k {
	case Copy:
		return "copied"
	case Move:
		return "moved"
	case Sync:
		return "synced"
	case Check:
		return "checked"
	case Delete:
		return "deleted"
	default:
		return string(k)
	}
}

func (k Kind) String() string {
	return string(k)
}
