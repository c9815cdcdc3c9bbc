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
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ActionOccurrence is one begin/end-paired instance of an action kind in the
// trace. Interval is held by value, not by reference. Occurrences returns
// pointers to the store's own records, so a later CompleteEnd on an
// occurrence is visible through a pointer obtained earlier.
type ActionOccurrence struct {
	Kind     ActionKind
	Interval Interval
	Inputs   []string
	Outputs  []string
}

// OccRef is an opaque reference to a mutable ActionOccurrence record inside
// a Trace, returned by InsertBegin and consumed by CompleteEnd.
type OccRef struct {
	kind ActionKind
	idx  int
}

type slotIndex struct {
	// values maps a (kind, slot) pair to the list of values observed at
	// that slot, in occurrence order, duplicates preserved.
	values map[ActionKind][][]string
}

func newSlotIndex() *slotIndex {
	return &slotIndex{values: make(map[ActionKind][][]string)}
}

func (si *slotIndex) record(kind ActionKind, vs []string) {
	slots := si.values[kind]
	for i, v := range vs {
		for len(slots) <= i {
			slots = append(slots, nil)
		}
		slots[i] = append(slots[i], v)
	}
	si.values[kind] = slots
}

func (si *slotIndex) at(kind ActionKind, slot int) []string {
	slots := si.values[kind]
	if slot < 0 || slot >= len(slots) {
		return nil
	}
	return slots[slot]
}

// Trace is the indexed Trace Store of spec §4.A: an ordered sequence of
// timepoints, per-kind action occurrence lists, and input/output value
// indices for quantifier-domain enumeration.
type Trace struct {
	timepoints  []Timepoint
	occurrences map[ActionKind][]*ActionOccurrence
	inputs      *slotIndex
	outputs     *slotIndex
}

// NewTrace returns an empty Trace Store.
func NewTrace() *Trace {
	return &Trace{
		occurrences: make(map[ActionKind][]*ActionOccurrence),
		inputs:      newSlotIndex(),
		outputs:     newSlotIndex(),
	}
}

// timepointIndex finds-or-creates the timepoint for t, enforcing the
// non-decreasing timestamp invariant. Equal timestamps extend the trailing
// timepoint; a strictly greater timestamp starts a new one; a lesser
// timestamp is OutOfOrderTimestamp.
func (tr *Trace) timepointIndex(t time.Time) (int, error) {
	n := len(tr.timepoints)
	if n == 0 {
		tr.timepoints = append(tr.timepoints, Timepoint{Time: t})
		return 0, nil
	}
	last := &tr.timepoints[n-1]
	switch {
	case t.Equal(last.Time):
		return n - 1, nil
	case t.After(last.Time):
		tr.timepoints = append(tr.timepoints, Timepoint{Time: t})
		return n, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument,
			"OutOfOrderTimestamp: event at %s precedes last timepoint at %s",
			t.Format(TimestampLayout), last.Time.Format(TimestampLayout))
	}
}

// InsertBegin appends a Begin event for kind/id/inputs at time, appends a new
// open ActionOccurrence, and extends the input index. It returns an OccRef
// identifying the new occurrence so the caller (the Ingestor, which owns
// id-to-occurrence pairing) can later call CompleteEnd.
func (tr *Trace) InsertBegin(kind ActionKind, id string, inputs []string, t time.Time) (OccRef, error) {
	tpIdx, err := tr.timepointIndex(t)
	if err != nil {
		return OccRef{}, err
	}
	tr.timepoints[tpIdx].Events = append(tr.timepoints[tpIdx].Events, Event{
		Variant: Begin,
		Kind:    kind,
		ID:      id,
		Values:  append([]string(nil), inputs...),
		Time:    t,
	})
	occ := &ActionOccurrence{
		Kind:     kind,
		Interval: Interval{Begin: tpIdx, End: Unbounded},
		Inputs:   append([]string(nil), inputs...),
	}
	tr.occurrences[kind] = append(tr.occurrences[kind], occ)
	tr.inputs.record(kind, inputs)
	return OccRef{kind: kind, idx: len(tr.occurrences[kind]) - 1}, nil
}

// CompleteEnd records an End event for id/outputs at time against the
// occurrence ref points to, and sets occ.End/occ.Outputs iff the occurrence
// was not already completed. It returns false (with no error) if the
// occurrence was already completed — the DuplicateEnd condition — so callers
// can attach their own id/line diagnostics.
func (tr *Trace) CompleteEnd(ref OccRef, id string, outputs []string, t time.Time) (bool, error) {
	occs := tr.occurrences[ref.kind]
	if ref.idx < 0 || ref.idx >= len(occs) {
		return false, status.Errorf(codes.InvalidArgument, "invalid occurrence reference for kind %s", ref.kind)
	}
	occ := occs[ref.idx]
	if !occ.Interval.End.IsUnbounded() {
		return false, nil
	}
	tpIdx, err := tr.timepointIndex(t)
	if err != nil {
		return false, err
	}
	tr.timepoints[tpIdx].Events = append(tr.timepoints[tpIdx].Events, Event{
		Variant: End,
		Kind:    ref.kind,
		ID:      id,
		Values:  append([]string(nil), outputs...),
		Time:    t,
	})
	occ.Interval.End = Bounded(tpIdx)
	occ.Outputs = append([]string(nil), outputs...)
	tr.outputs.record(ref.kind, outputs)
	return true, nil
}

// InputsAt returns the sequence of strings observed at input slot i of kind,
// duplicates preserved, in occurrence order.
func (tr *Trace) InputsAt(kind ActionKind, i int) []string {
	return tr.inputs.at(kind, i)
}

// OutputsAt returns the sequence of strings observed at output slot i of
// kind, duplicates preserved, in occurrence order.
func (tr *Trace) OutputsAt(kind ActionKind, i int) []string {
	return tr.outputs.at(kind, i)
}

// Occurrences returns the action occurrences recorded for kind, in
// insertion order.
func (tr *Trace) Occurrences(kind ActionKind) []*ActionOccurrence {
	return tr.occurrences[kind]
}

// TimepointCount returns the number of timepoints in the trace.
func (tr *Trace) TimepointCount() int {
	return len(tr.timepoints)
}

// TimepointAt returns the timepoint at index idx, or false if idx is out of
// range.
func (tr *Trace) TimepointAt(idx int) (Timepoint, bool) {
	if idx < 0 || idx >= len(tr.timepoints) {
		return Timepoint{}, false
	}
	return tr.timepoints[idx], true
}

// AllEvents returns every event in the trace, in timepoint (chronological)
// order, with events within a timepoint in insertion order.
func (tr *Trace) AllEvents() []Event {
	var out []Event
	for _, tp := range tr.timepoints {
		out = append(out, tp.Events...)
	}
	return out
}

// MatchEvent locates an event of the given variant/kind/values within the
// timepoint at index tpIdx, returning it and true, or false if no such event
// exists there.
func (tr *Trace) MatchEvent(kind ActionKind, variant EventVariant, values []string, tpIdx int) (Event, bool) {
	tp, ok := tr.TimepointAt(tpIdx)
	if !ok {
		return Event{}, false
	}
	probe := Event{Variant: variant, Kind: kind, Values: values}
	for _, ev := range tp.Events {
		if ev.Matches(probe) {
			return ev, true
		}
	}
	return Event{}, false
}
