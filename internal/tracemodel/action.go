//
// Copyright 2019 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
//
// Package tracemodel provides the indexed trace store a checked execution
// log is lifted into: timepoints, events, action occurrences, and the value
// indices variable-binding search relies on.
package tracemodel

import (
	"strings"
)

// ActionKind is the closed enumeration of action kinds a trace event can
// carry. Lookup/Store/FindNode are operations; Join/Leave/Fail are membership
// transitions; the remainder are regimen predicates emitted by the
// preprocessor.
type ActionKind int8

const (
	// Lookup is a key lookup operation.
	Lookup ActionKind = iota
	// Store is a key/value store operation.
	Store
	// FindNode is a ring-routing operation.
	FindNode
	// Join is a membership-join transition.
	Join
	// Leave is a membership-leave transition.
	Leave
	// Fail is a membership-terminating failure; both Begin and End of itself.
	Fail
	// Ideal is a derived regimen predicate: the ring's successor pointers
	// form the ideal sorted cycle.
	Ideal
	// Stable is a derived regimen predicate: no membership operation is
	// in-flight.
	Stable
	// ReadOnly is a derived regimen predicate: no Store operation is
	// in-flight.
	ReadOnly
	// Member is a derived regimen predicate: a node is a live ring member.
	Member
	// Responsible is a derived regimen predicate: a node owns a key.
	Responsible
)

// String renders the canonical label used in log lines and diagnostics.
func (k ActionKind) String() string {
	switch k {
	case Lookup:
		return "Lookup"
	case Store:
		return "Store"
	case FindNode:
		return "FindNode"
	case Join:
		return "Join"
	case Leave:
		return "Leave"
	case Fail:
		return "Fail"
	case Ideal:
		return "Ideal"
	case Stable:
		return "Stable"
	case ReadOnly:
		return "ReadOnly"
	case Member:
		return "Member"
	case Responsible:
		return "Responsible"
	default:
		return "Unknown"
	}
}

// IsOperation reports whether k is an operational action kind (Lookup,
// Store, FindNode), as opposed to a membership transition or derived
// regimen predicate.
func (k ActionKind) IsOperation() bool {
	return k == Lookup || k == Store || k == FindNode
}

// IsMembershipTransition reports whether k is Join, Leave, or Fail.
func (k ActionKind) IsMembershipTransition() bool {
	return k == Join || k == Leave || k == Fail
}

// IsRegimen reports whether k is a derived regimen predicate kind.
func (k ActionKind) IsRegimen() bool {
	switch k {
	case Ideal, Stable, ReadOnly, Member, Responsible:
		return true
	default:
		return false
	}
}

// allActionKinds lists every ActionKind, used for case-insensitive label
// lookup and for building per-kind index structures.
var allActionKinds = []ActionKind{
	Lookup, Store, FindNode, Join, Leave, Fail,
	Ideal, Stable, ReadOnly, Member, Responsible,
}

// ParseActionKind resolves a case-insensitive action label (as found in a
// log line, after any Reply/End prefix has been stripped) to its ActionKind.
// The second return value is false if label names no known ActionKind.
func ParseActionKind(label string) (ActionKind, bool) {
	for _, k := range allActionKinds {
		if strings.EqualFold(k.String(), label) {
			return k, true
		}
	}
	return 0, false
}
