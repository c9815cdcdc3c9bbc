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
package eval

import (
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/schedviz/chordcheck/internal/formula"
	"github.com/google/schedviz/chordcheck/internal/ingest"
	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// buildTrace ingests a small log and returns the resulting trace, failing
// the test on any ingest error.
func buildTrace(t *testing.T, log string) *tracemodel.Trace {
	t.Helper()
	ing := ingest.New(ingest.Options{})
	if err := ing.IngestString(log); err != nil {
		t.Fatalf("IngestString: %v", err)
	}
	return ing.Trace()
}

func TestEvaluateStoreThenLookupConsistency(t *testing.T) {
	// A single Store of k1=v1 followed by a Lookup of k1 must observe v1.
	trace := buildTrace(t, `
2000-01-01 12:00:00.000, Store, s1, nA, k1, v1
2000-01-01 12:00:00.010, ReplyStore, s1, nA
2000-01-01 12:00:00.020, Lookup, l1, nB, k1
2000-01-01 12:00:00.030, ReplyLookup, l1, v1
`)

	f := formula.ForAllAction{
		Action: formula.Action{
			Kind:        tracemodel.Lookup,
			IntervalRef: "iL",
			Inputs:      []formula.Node{formula.Wildcard{}, formula.Constant{Value: "k1"}},
			Outputs:     []formula.Node{formula.Variable{Label: "v"}},
		},
		Body: formula.Equal{Left: formula.Variable{Label: "v"}, Right: formula.Constant{Value: "v1"}},
	}

	got, err := New(trace).Evaluate(f)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !got {
		t.Errorf("Evaluate: got false, want true (every Lookup of k1 returns v1)")
	}
}

func TestEvaluateStoreThenLookupInconsistency(t *testing.T) {
	trace := buildTrace(t, `
2000-01-01 12:00:00.000, Store, s1, nA, k1, v1
2000-01-01 12:00:00.010, ReplyStore, s1, nA
2000-01-01 12:00:00.020, Lookup, l1, nB, k1
2000-01-01 12:00:00.030, ReplyLookup, l1, wrong
`)
	f := formula.ForAllAction{
		Action: formula.Action{
			Kind:        tracemodel.Lookup,
			IntervalRef: "iL",
			Inputs:      []formula.Node{formula.Wildcard{}, formula.Constant{Value: "k1"}},
			Outputs:     []formula.Node{formula.Variable{Label: "v"}},
		},
		Body: formula.Equal{Left: formula.Variable{Label: "v"}, Right: formula.Constant{Value: "v1"}},
	}
	got, err := New(trace).Evaluate(f)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got {
		t.Errorf("Evaluate: got true, want false (Lookup returned an inconsistent value)")
	}
}

func TestEvaluateExistsActionVacuouslyFalse(t *testing.T) {
	trace := buildTrace(t, "")
	f := formula.ExistsAction{
		Action: formula.Action{Kind: tracemodel.Lookup, IntervalRef: "i"},
		Body:   formula.Constant{Value: "unused"}, // never reached: empty domain
	}
	// Body isn't boolean, but with no occurrences the loop body never runs,
	// so this must short-circuit to the vacuous false without a TypeMismatch.
	got, err := New(trace).Evaluate(f)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got {
		t.Errorf("Evaluate: got true, want false (vacuous existential over empty trace)")
	}
}

func TestEvaluateForAllActionVacuouslyTrue(t *testing.T) {
	trace := buildTrace(t, "")
	f := formula.ForAllAction{
		Action: formula.Action{Kind: tracemodel.Lookup, IntervalRef: "i"},
		Body:   formula.Constant{Value: "unused"},
	}
	got, err := New(trace).Evaluate(f)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !got {
		t.Errorf("Evaluate: got false, want true (vacuous universal over empty trace)")
	}
}

func TestEvaluateUnterminatedActionIsUnbounded(t *testing.T) {
	trace := buildTrace(t, "2000-01-01 12:00:00.000, Lookup, l1, nA, k1\n")
	f := formula.ExistsAction{
		Action: formula.Action{
			Kind:        tracemodel.Lookup,
			IntervalRef: "i",
			Inputs:      []formula.Node{formula.Constant{Value: "nA"}, formula.Constant{Value: "k1"}},
		},
		Body: formula.Allen{
			Op:    formula.IntervalEquals,
			Left:  formula.IntervalRef{Label: "i"},
			Right: formula.IntervalRef{Label: "i"},
		},
	}
	got, err := New(trace).Evaluate(f)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !got {
		t.Errorf("Evaluate: got false, want true (unterminated occurrence still binds, with Unbounded end)")
	}
}

func TestEvaluateUnboundVariableError(t *testing.T) {
	trace := buildTrace(t, "")
	f := formula.Variable{Label: "nope"}
	_, err := New(trace).Evaluate(f)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("Evaluate: got %v, want NotFound (UnboundVariable)", err)
	}
}

func TestEvaluateTypeMismatchRootNotBoolean(t *testing.T) {
	trace := buildTrace(t, "")
	f := formula.Constant{Value: "not a bool"}
	_, err := New(trace).Evaluate(f)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("Evaluate: got %v, want InvalidArgument (TypeMismatch)", err)
	}
}

func TestEvaluateAllenBefore(t *testing.T) {
	trace := buildTrace(t, `
2000-01-01 12:00:00.000, Lookup, l1, nA, k1
2000-01-01 12:00:00.010, ReplyLookup, l1, v1
2000-01-01 12:00:00.020, Lookup, l2, nA, k2
2000-01-01 12:00:00.030, ReplyLookup, l2, v2
`)
	f := formula.ExistsAction{
		Action: formula.Action{
			Kind: tracemodel.Lookup, IntervalRef: "a",
			Inputs: []formula.Node{formula.Wildcard{}, formula.Constant{Value: "k1"}},
		},
		Body: formula.ExistsAction{
			Action: formula.Action{
				Kind: tracemodel.Lookup, IntervalRef: "b",
				Inputs: []formula.Node{formula.Wildcard{}, formula.Constant{Value: "k2"}},
			},
			Body: formula.Allen{Op: formula.Before, Left: formula.IntervalRef{Label: "a"}, Right: formula.IntervalRef{Label: "b"}},
		},
	}
	got, err := New(trace).Evaluate(f)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !got {
		t.Errorf("Evaluate: got false, want true (k1's lookup strictly precedes k2's)")
	}
}
