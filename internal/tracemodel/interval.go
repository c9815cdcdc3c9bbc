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

import "fmt"

// Bound is a timepoint-index endpoint: either a concrete index or the
// Unbounded sentinel (an unterminated action's end). A tagged sentinel is
// used rather than a floating-point infinity so that comparisons remain
// exact integers, per the design note on unbounded ends.
type Bound struct {
	unbounded bool
	value     int
}

// Bounded returns a Bound at the given timepoint index.
func Bounded(value int) Bound {
	return Bound{value: value}
}

// Unbounded is the sentinel Bound representing an unterminated action's end.
var Unbounded = Bound{unbounded: true}

// IsUnbounded reports whether b is the Unbounded sentinel.
func (b Bound) IsUnbounded() bool {
	return b.unbounded
}

// Value returns the concrete timepoint index and true, or (0, false) if b is
// Unbounded.
func (b Bound) Value() (int, bool) {
	if b.unbounded {
		return 0, false
	}
	return b.value, true
}

// Less reports whether a strictly precedes b. Any bounded value is less than
// Unbounded; Unbounded is never less than anything.
func (b Bound) Less(other Bound) bool {
	if b.unbounded {
		return false
	}
	if other.unbounded {
		return true
	}
	return b.value < other.value
}

// Equal reports whether a and b denote the same endpoint. Two Unbounded
// values are equal; a bounded and an Unbounded value are never equal.
func (b Bound) Equal(other Bound) bool {
	if b.unbounded || other.unbounded {
		return b.unbounded == other.unbounded
	}
	return b.value == other.value
}

// LessEqual reports b <= other.
func (b Bound) LessEqual(other Bound) bool {
	return b.Less(other) || b.Equal(other)
}

func (b Bound) String() string {
	if b.unbounded {
		return "∞"
	}
	return fmt.Sprintf("%d", b.value)
}

// Interval is a half-bounded closed range [Begin, End] over timepoint
// indices, where End may be Unbounded.
type Interval struct {
	Begin int
	End   Bound
}

// NewInterval returns the closed interval [begin, end].
func NewInterval(begin int, end Bound) Interval {
	return Interval{Begin: begin, End: end}
}

// Equal reports component-wise equality.
func (iv Interval) Equal(other Interval) bool {
	return iv.Begin == other.Begin && iv.End.Equal(other.End)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d, %s]", iv.Begin, iv.End)
}

// BeginBound returns iv.Begin wrapped as a Bound, for use in Allen-predicate
// comparisons that treat both endpoints uniformly.
func (iv Interval) BeginBound() Bound {
	return Bounded(iv.Begin)
}
