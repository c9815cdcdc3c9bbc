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
// Package regimen derives the five regimen predicates of spec §4.C
// (ReadOnly, Stable, Member, Ideal, Responsible) from a raw operational
// trace and an optional successor-pointer history, emitting them as
// well-formed Begin/End event pairs a second ingest pass can fold back into
// the trace store.
package regimen

import (
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/schedviz/chordcheck/internal/chordlog"
	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// offset is the ±1ms nudge applied to derived timestamps so a regimen
// transition never collides with, and always orders cleanly around, the
// operational event that caused it.
const offset = time.Millisecond

// SuccessorChange is one observed update of a node's successor pointer, as
// read from a successor-log.
type SuccessorChange struct {
	Time      time.Time
	Node      string
	Successor string
}

// Derived is one Begin or End event of a derived regimen predicate, prior to
// being folded back into enriched log text.
type Derived struct {
	Variant tracemodel.EventVariant
	Kind    tracemodel.ActionKind
	ID      string
	Values  []string
	Time    time.Time
}

// Result bundles the five regimen interval streams process derives, kept
// separate because each has its own id-numbering scheme and because callers
// (notably tests) often want to inspect one regimen at a time.
type Result struct {
	ReadOnly    []Derived
	Stable      []Derived
	Member      []Derived
	Ideal       []Derived
	Responsible []Derived
}

// All returns the five streams concatenated, not chronologically merged —
// Enrich (render.go) is responsible for the final chronological merge.
func (r Result) All() []Derived {
	out := make([]Derived, 0, len(r.ReadOnly)+len(r.Stable)+len(r.Member)+len(r.Ideal)+len(r.Responsible))
	out = append(out, r.ReadOnly...)
	out = append(out, r.Stable...)
	out = append(out, r.Member...)
	out = append(out, r.Ideal...)
	out = append(out, r.Responsible...)
	return out
}

// Keys returns the set of known keys spec §4.C derives from the raw trace:
// the first value of every event, plus the key argument (second value) of
// Store, Lookup and FindNode Begin events — FindNode's key argument is taken
// from every FindNode event, not only Begin, matching the asymmetry of the
// trace this is grounded on.
func Keys(trace *tracemodel.Trace) map[string]bool {
	keys := make(map[string]bool)
	for _, ev := range trace.AllEvents() {
		if len(ev.Values) > 0 {
			keys[ev.Values[0]] = true
		}
		isBegin := ev.Variant == tracemodel.Begin
		switch ev.Kind {
		case tracemodel.Store, tracemodel.Lookup:
			if isBegin && len(ev.Values) > 1 {
				keys[ev.Values[1]] = true
			}
		case tracemodel.FindNode:
			if len(ev.Values) > 1 {
				keys[ev.Values[1]] = true
			}
		}
	}
	return keys
}

// state holds every mutable structure process's single chronological walk
// threads through; splitting it out of Process's locals keeps the per-regime
// helper functions (readonly, membership, ideal, responsibility) free of a
// dozen-parameter signature.
type state struct {
	keys map[string]bool

	storeOps map[string]bool
	readonly []Derived

	currentMembers map[string]string // node -> its open Member interval's id
	membership     []Derived
	membershipOps  map[string]tracemodel.Event // id -> the op's Begin event
	stable         []Derived

	successors map[string]string
	ideal      []Derived

	responsibilities  map[string]map[string]bool // successor -> owned keys
	responsibilityIDs map[[2]string]string        // (successor, key) -> open interval id
	responsible       []Derived
}

// invariantErrorf reports an InvariantError (spec §7): a duplicate join,
// leave-of-non-member, or pointer-of-unknown-node condition that leaves the
// derived regimen state inconsistent with the raw trace. Per spec, this
// aborts preprocessing rather than continuing with corrupted derived state;
// the current membership set is logged alongside the message as "the state
// of the machine".
func invariantErrorf(st *state, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	chordlog.Errorf("InvariantError: %s (currentMembers=%v)", msg, st.currentMembers)
	return status.Errorf(codes.FailedPrecondition, "InvariantError: %s", msg)
}

// Process derives the five regimen predicate streams from trace's raw
// operational and membership events and from successorChanges (already
// sorted by Time), following spec §4.C: ReadOnly/Stable toggle on
// in-flight-operation counts, Member tracks live nodes, and Ideal/Responsible
// are recomputed at initialization, on every successor-pointer update, and
// on every completed membership change. It returns an error and abandons the
// partial Result if the trace or successor history violates an InvariantError
// condition (spec §7).
func Process(trace *tracemodel.Trace, successorChanges []SuccessorChange) (Result, error) {
	if trace.TimepointCount() == 0 {
		return Result{}, nil
	}

	st := &state{
		keys:              Keys(trace),
		storeOps:          make(map[string]bool),
		currentMembers:    make(map[string]string),
		membershipOps:     make(map[string]tracemodel.Event),
		successors:        make(map[string]string),
		responsibilities:  make(map[string]map[string]bool),
		responsibilityIDs: make(map[[2]string]string),
	}

	firstTP, _ := trace.TimepointAt(0)
	firstEvent := firstTP.Events[0]
	initialTime := firstEvent.Time.Add(-offset)

	if len(firstEvent.Values) > 0 {
		initialMember := firstEvent.Values[0]
		id := memberID(st, initialMember)
		st.currentMembers[initialMember] = id
		st.membership = append(st.membership, Derived{
			Variant: tracemodel.Begin, Kind: tracemodel.Member, ID: id,
			Values: []string{initialMember}, Time: initialTime,
		})
	}
	st.readonly = append(st.readonly, beginEvent(tracemodel.ReadOnly, "ReadOnly", len(st.readonly), initialTime))
	st.stable = append(st.stable, beginEvent(tracemodel.Stable, "Stable", len(st.stable), initialTime))

	updateIdeal(st, initialTime)
	updateResponsibility(st, initialTime)

	scIdx := 0
	for tpIdx := 0; tpIdx < trace.TimepointCount(); tpIdx++ {
		tp, _ := trace.TimepointAt(tpIdx)

		for scIdx < len(successorChanges) && tp.Time.After(successorChanges[scIdx].Time) {
			sc := successorChanges[scIdx]
			if _, ok := st.currentMembers[sc.Node]; !ok {
				return Result{}, invariantErrorf(st, "pointer-of-unknown-node: successor update names %q, which is not a live member", sc.Node)
			}
			st.successors[sc.Node] = sc.Successor
			updateIdeal(st, sc.Time)
			updateResponsibility(st, sc.Time)
			scIdx++
		}

		for _, ev := range tp.Events {
			switch {
			case ev.Kind == tracemodel.Store:
				processReadOnly(st, ev)
			case ev.Kind.IsMembershipTransition():
				node, err := processMembership(st, ev)
				if err != nil {
					return Result{}, err
				}
				if node != "" {
					newTime := ev.Time.Add(offset)
					updateIdeal(st, newTime)
					updateResponsibility(st, newTime)
				}
			}
		}
	}

	return Result{
		ReadOnly:    st.readonly,
		Stable:      st.stable,
		Member:      st.membership,
		Ideal:       st.ideal,
		Responsible: st.responsible,
	}, nil
}

// beginEvent/endEvent build the simple (no-suffix, no-value) id scheme
// shared by ReadOnly, Stable and Ideal: a running pair counter, one id per
// open/close round-trip — there is at most one such interval open at a time,
// so recomputing the id from the stream's current length is unambiguous.
func beginEvent(kind tracemodel.ActionKind, prefix string, streamLen int, t time.Time) Derived {
	return Derived{Variant: tracemodel.Begin, Kind: kind, ID: pairID(prefix, streamLen), Time: t}
}

func endEvent(kind tracemodel.ActionKind, prefix string, streamLen int, t time.Time) Derived {
	return Derived{Variant: tracemodel.End, Kind: kind, ID: pairID(prefix, streamLen), Time: t}
}

func pairID(prefix string, streamLen int) string {
	return formatID(prefix, streamLen/2)
}

func formatID(prefix string, n int) string {
	return prefix + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func memberID(st *state, node string) string {
	return "Membership" + itoa(len(st.membership)/2) + "-" + node
}

// processReadOnly toggles the ReadOnly regimen on Store occupancy, emitting
// an End when the first Store begins and a Begin when the last open Store
// ends.
func processReadOnly(st *state, ev tracemodel.Event) {
	switch ev.Variant {
	case tracemodel.Begin:
		st.storeOps[ev.ID] = true
		if len(st.storeOps) == 1 {
			st.readonly = append(st.readonly, endEvent(tracemodel.ReadOnly, "ReadOnly", len(st.readonly), ev.Time.Add(-offset)))
		}
	case tracemodel.End:
		delete(st.storeOps, ev.ID)
		if len(st.storeOps) == 0 {
			st.readonly = append(st.readonly, beginEvent(tracemodel.ReadOnly, "ReadOnly", len(st.readonly), ev.Time.Add(offset)))
		}
	}
}

// processMembership toggles the Stable regimen on in-flight membership-op
// occupancy and, when an operation completes, updates the live Member set.
// It returns the node that joined or left, or "" if ev did not complete a
// membership change (i.e. ev is a Begin). A completed operation that would
// leave the derived Member set inconsistent with the raw trace — a duplicate
// join or a leave-of-non-member — is an InvariantError (spec §7) and aborts.
func processMembership(st *state, ev tracemodel.Event) (string, error) {
	if ev.Variant == tracemodel.Begin {
		st.membershipOps[ev.ID] = ev
		if len(st.membershipOps) == 1 {
			st.stable = append(st.stable, endEvent(tracemodel.Stable, "Stable", len(st.stable), ev.Time.Add(-offset)))
		}
		return "", nil
	}

	begin, ok := st.membershipOps[ev.ID]
	if !ok {
		return "", invariantErrorf(st, "End %s %q has no matching Begin", ev.Kind, ev.ID)
	}
	delete(st.membershipOps, ev.ID)
	if len(st.membershipOps) == 0 {
		st.stable = append(st.stable, beginEvent(tracemodel.Stable, "Stable", len(st.stable), ev.Time.Add(offset)))
	}

	if len(begin.Values) == 0 {
		chordlog.Warningf("regimen: membership op %q has no node argument, ignored", ev.ID)
		return "", nil
	}
	node := begin.Values[0]
	t := ev.Time.Add(offset)

	if ev.Kind == tracemodel.Join {
		if _, alreadyMember := st.currentMembers[node]; alreadyMember {
			return "", invariantErrorf(st, "node %q cannot join because it is already a member", node)
		}
		id := memberID(st, node)
		st.membership = append(st.membership, Derived{
			Variant: tracemodel.Begin, Kind: tracemodel.Member, ID: id,
			Values: []string{node}, Time: t,
		})
		st.currentMembers[node] = id
	} else {
		id, open := st.currentMembers[node]
		if !open {
			return "", invariantErrorf(st, "node %q cannot leave because it is not a member", node)
		}
		delete(st.currentMembers, node)
		st.membership = append(st.membership, Derived{
			Variant: tracemodel.End, Kind: tracemodel.Member, ID: id, Time: t,
		})
	}
	return node, nil
}
