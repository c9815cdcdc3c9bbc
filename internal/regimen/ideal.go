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
package regimen

import (
	"sort"
	"time"

	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// between reports whether b lies in the circular right-open arc (a, c] of
// the sorted-lexicographic node ring — the ownership test spec §4.C's
// Responsible regimen is built on. a == c denotes a single-member ring, to
// which every key belongs.
func between(a, b, c string) bool {
	if a == c {
		return true
	}
	if a < c {
		return a < b && b <= c
	}
	return a < b || b <= c
}

// isIdeal reports whether every member's successor pointer names the next
// member in sorted-lexicographic cyclic order. A member with no recorded
// pointer is treated, and recorded, as pointing to itself — matching the
// grounding algorithm's own fill-as-you-go convention, since a
// freshly-joined node's first successor update may not yet have arrived.
func isIdeal(successors map[string]string, ordered []string) bool {
	n := len(ordered)
	ideal := true
	for i, node := range ordered {
		if _, ok := successors[node]; !ok {
			successors[node] = node
		}
		if successors[node] != ordered[(i+1)%n] {
			ideal = false
		}
	}
	return ideal
}

func sortedMembers(currentMembers map[string]string) []string {
	out := make([]string, 0, len(currentMembers))
	for node := range currentMembers {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}

// updateIdeal recomputes the Ideal predicate and, if it has just become or
// just stopped being true, appends the matching Begin/End.
func updateIdeal(st *state, t time.Time) {
	ordered := sortedMembers(st.currentMembers)
	nowIdeal := isIdeal(st.successors, ordered)
	lastIsEnd := len(st.ideal) == 0 || st.ideal[len(st.ideal)-1].Variant == tracemodel.End

	switch {
	case nowIdeal && lastIsEnd:
		st.ideal = append(st.ideal, beginEvent(tracemodel.Ideal, "Ideal", len(st.ideal), t))
	case !nowIdeal && !lastIsEnd:
		st.ideal = append(st.ideal, endEvent(tracemodel.Ideal, "Ideal", len(st.ideal), t))
	}
}

// updateResponsibility recomputes, for every node with a recorded successor
// pointer, which keys that successor now owns — all keys if the node points
// to itself (a singleton ring), otherwise every key in the circular arc
// between the node and its successor — and emits End events for
// responsibilities that lapsed before Begin events for responsibilities that
// newly took effect, so an instant never shows two nodes owning the same key.
func updateResponsibility(st *state, t time.Time) {
	nodes := sortedMembers(st.successors)

	newResp := make(map[string]map[string]bool)
	for _, node := range nodes {
		succ := st.successors[node]
		if succ == node {
			owned := make(map[string]bool, len(st.keys))
			for k := range st.keys {
				owned[k] = true
			}
			newResp[succ] = owned
			continue
		}
		owned := newResp[succ]
		if owned == nil {
			owned = make(map[string]bool)
			newResp[succ] = owned
		}
		for k := range st.keys {
			if between(node, k, succ) {
				owned[k] = true
			}
		}
	}

	succs := make([]string, 0, len(newResp))
	for succ := range newResp {
		succs = append(succs, succ)
	}
	sort.Strings(succs)

	// End lapsed responsibilities first, so they never overlap an instant
	// with the Begin of whichever node now owns the same key.
	for _, succ := range succs {
		prev := st.responsibilities[succ]
		now := newResp[succ]
		for _, key := range sortedKeySet(prev) {
			if now[key] {
				continue
			}
			id, ok := st.responsibilityIDs[[2]string{succ, key}]
			if !ok {
				continue
			}
			delete(st.responsibilityIDs, [2]string{succ, key})
			st.responsible = append(st.responsible, Derived{
				Variant: tracemodel.End, Kind: tracemodel.Responsible, ID: id, Time: t,
			})
		}
	}
	for _, succ := range succs {
		prev := st.responsibilities[succ]
		now := newResp[succ]
		for _, key := range sortedKeySet(now) {
			if prev[key] {
				continue
			}
			id := "Responsible-" + itoa(len(st.responsible)) + "-" + succ + "-" + key
			st.responsible = append(st.responsible, Derived{
				Variant: tracemodel.Begin, Kind: tracemodel.Responsible, ID: id,
				Values: []string{succ, key}, Time: t,
			})
			st.responsibilityIDs[[2]string{succ, key}] = id
		}
	}

	st.responsibilities = newResp
}

func sortedKeySet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
