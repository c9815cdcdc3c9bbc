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
package tracemodel

import (
	"fmt"
	"strings"
	"time"
)

// EventVariant distinguishes the two kinds of trace event.
type EventVariant int8

const (
	// Begin marks the start of an action occurrence.
	Begin EventVariant = iota
	// End marks the close of an action occurrence.
	End
)

func (v EventVariant) String() string {
	if v == Begin {
		return "Begin"
	}
	return "End"
}

// Event is a single timestamped begin/end action event.
type Event struct {
	Variant EventVariant
	Kind    ActionKind
	// ID is the correlation id joining an event to its matching
	// Begin-or-End partner. Non-empty.
	ID string
	// Values is the ordered vector of string values (inputs for Begin,
	// outputs for End) carried by the event.
	Values []string
	// Time is this event's timestamp, millisecond resolution.
	Time time.Time
}

// Matches reports whether ev and other are the same variant and kind and
// carry equal value vectors, ignoring id and time — the equivalence spec §3
// calls "match".
func (ev Event) Matches(other Event) bool {
	if ev.Variant != other.Variant || ev.Kind != other.Kind {
		return false
	}
	if len(ev.Values) != len(other.Values) {
		return false
	}
	for i, v := range ev.Values {
		if other.Values[i] != v {
			return false
		}
	}
	return true
}

func (ev Event) String() string {
	return fmt.Sprintf("%s %s %s(%s) @ %s", ev.Variant, ev.Kind, ev.ID, strings.Join(ev.Values, ", "), ev.Time.Format(TimestampLayout))
}

// TimestampLayout is the millisecond-resolution timestamp format used by raw
// and enriched log lines, per the external interface.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Timepoint is an equivalence class of events sharing a timestamp, ordered
// by its index (position) in the trace.
type Timepoint struct {
	Time   time.Time
	Events []Event
}
