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
	"github.com/google/schedviz/chordcheck/internal/formula"
	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// PossibleValues enumerates the trace values a quantifier could bind to
// targetVariable if it appears, unbound, somewhere under node — the
// quantifier-domain-enumeration contract of spec §4.D. The Evaluator's own
// ForAllAction/ExistsAction binding does not call this (it enumerates whole
// occurrences directly, which subsumes per-variable enumeration); this is
// the standalone helper the AST contract requires, useful to callers
// inspecting a formula before evaluating it (e.g. a CLI's dry-run mode).
func PossibleValues(trace *tracemodel.Trace, node formula.Node, targetVariable string) []string {
	switch n := node.(type) {
	case formula.Action:
		for i, in := range n.Inputs {
			if v, ok := in.(formula.Variable); ok && v.Label == targetVariable {
				return trace.InputsAt(n.Kind, i)
			}
		}
		for i, out := range n.Outputs {
			if v, ok := out.(formula.Variable); ok && v.Label == targetVariable {
				return trace.OutputsAt(n.Kind, i)
			}
		}
		return nil
	case formula.Not:
		return PossibleValues(trace, n.Expr, targetVariable)
	case formula.And:
		return possibleValuesUnion(trace, n.Exprs, targetVariable)
	case formula.Or:
		return possibleValuesUnion(trace, n.Exprs, targetVariable)
	case formula.Implies:
		return possibleValuesUnion(trace, []formula.Node{n.Left, n.Right}, targetVariable)
	case formula.Equal:
		return possibleValuesUnion(trace, []formula.Node{n.Left, n.Right}, targetVariable)
	case formula.ForAllAction:
		return possibleValuesUnion(trace, []formula.Node{n.Action, n.Body}, targetVariable)
	case formula.ExistsAction:
		return possibleValuesUnion(trace, []formula.Node{n.Action, n.Body}, targetVariable)
	default:
		return nil
	}
}

func possibleValuesUnion(trace *tracemodel.Trace, nodes []formula.Node, targetVariable string) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, PossibleValues(trace, n, targetVariable)...)
	}
	return out
}

// PossibleActions enumerates the ActionOccurrences a quantifier could bind
// targetInterval to, if that label is used as an IntervalRef somewhere under
// node — the symmetric helper spec §4.D describes for interval
// quantification.
func PossibleActions(trace *tracemodel.Trace, node formula.Node, targetInterval string) []*tracemodel.ActionOccurrence {
	switch n := node.(type) {
	case formula.Action:
		if n.IntervalRef == targetInterval {
			return trace.Occurrences(n.Kind)
		}
		return nil
	case formula.Not:
		return PossibleActions(trace, n.Expr, targetInterval)
	case formula.And:
		return possibleActionsUnion(trace, n.Exprs, targetInterval)
	case formula.Or:
		return possibleActionsUnion(trace, n.Exprs, targetInterval)
	case formula.Implies:
		return possibleActionsUnion(trace, []formula.Node{n.Left, n.Right}, targetInterval)
	case formula.ForAllAction:
		if n.Action.IntervalRef == targetInterval {
			return trace.Occurrences(n.Action.Kind)
		}
		return PossibleActions(trace, n.Body, targetInterval)
	case formula.ExistsAction:
		if n.Action.IntervalRef == targetInterval {
			return trace.Occurrences(n.Action.Kind)
		}
		return PossibleActions(trace, n.Body, targetInterval)
	default:
		return nil
	}
}

func possibleActionsUnion(trace *tracemodel.Trace, nodes []formula.Node, targetInterval string) []*tracemodel.ActionOccurrence {
	var out []*tracemodel.ActionOccurrence
	for _, n := range nodes {
		out = append(out, PossibleActions(trace, n, targetInterval)...)
	}
	return out
}
