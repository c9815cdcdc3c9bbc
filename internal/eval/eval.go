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
	"fmt"

	"github.com/google/schedviz/chordcheck/internal/chordlog"
	"github.com/google/schedviz/chordcheck/internal/formula"
	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// Evaluator evaluates a formula.Node against a fixed, immutable Trace Store.
// Evaluators are pure over their inputs: they perform no I/O and never
// block, and any internal caching is optional (none is used here).
type Evaluator struct {
	trace *tracemodel.Trace
}

// New returns an Evaluator over trace.
func New(trace *tracemodel.Trace) *Evaluator {
	return &Evaluator{trace: trace}
}

// Evaluate evaluates the root formula node and returns its boolean verdict.
// A formula that does not evaluate to a boolean is a TypeMismatch.
func (ev *Evaluator) Evaluate(node formula.Node) (bool, error) {
	v, err := ev.eval(node, Env{}, IntervalEnv{}, nil)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, typeMismatchErr(nil, "formula root does not evaluate to a boolean")
	}
	return b, nil
}

// eval is the single recursive evaluate function the AST's sum-type design
// note calls for: one type switch over every formula.Node variant.
func (ev *Evaluator) eval(node formula.Node, sigma Env, iota IntervalEnv, p path) (Value, error) {
	switch n := node.(type) {
	case formula.Variable:
		v, ok := sigma[n.Label]
		if !ok {
			return Value{}, unboundVariableErr(n.Label, p)
		}
		return Str(v), nil

	case formula.Wildcard:
		return Value{}, typeMismatchErr(p, "wildcard is illegal in value position")

	case formula.Constant:
		return Str(n.Value), nil

	case formula.IntervalRef:
		iv, ok := iota[n.Label]
		if !ok {
			return Value{}, unboundIntervalErr(n.Label, p)
		}
		return Ivl(iv), nil

	case formula.Not:
		v, err := ev.eval(n.Expr, sigma, iota, p.push("Not"))
		if err != nil {
			return Value{}, err
		}
		b, ok := v.AsBool()
		if !ok {
			return Value{}, typeMismatchErr(p, "operand of Not is not boolean")
		}
		return Bool(!b), nil

	case formula.And:
		if len(n.Exprs) < 2 {
			return Value{}, typeMismatchErr(p, "And requires at least 2 operands")
		}
		for i, e := range n.Exprs {
			v, err := ev.eval(e, sigma, iota, p.push(fmt.Sprintf("And[%d]", i)))
			if err != nil {
				return Value{}, err
			}
			b, ok := v.AsBool()
			if !ok {
				return Value{}, typeMismatchErr(p, "operand %d of And is not boolean", i)
			}
			if !b {
				return Bool(false), nil
			}
		}
		return Bool(true), nil

	case formula.Or:
		if len(n.Exprs) < 2 {
			return Value{}, typeMismatchErr(p, "Or requires at least 2 operands")
		}
		for i, e := range n.Exprs {
			v, err := ev.eval(e, sigma, iota, p.push(fmt.Sprintf("Or[%d]", i)))
			if err != nil {
				return Value{}, err
			}
			b, ok := v.AsBool()
			if !ok {
				return Value{}, typeMismatchErr(p, "operand %d of Or is not boolean", i)
			}
			if b {
				return Bool(true), nil
			}
		}
		return Bool(false), nil

	case formula.Implies:
		l, err := ev.eval(n.Left, sigma, iota, p.push("Implies.left"))
		if err != nil {
			return Value{}, err
		}
		lb, ok := l.AsBool()
		if !ok {
			return Value{}, typeMismatchErr(p, "left operand of Implies is not boolean")
		}
		if !lb {
			return Bool(true), nil
		}
		r, err := ev.eval(n.Right, sigma, iota, p.push("Implies.right"))
		if err != nil {
			return Value{}, err
		}
		rb, ok := r.AsBool()
		if !ok {
			return Value{}, typeMismatchErr(p, "right operand of Implies is not boolean")
		}
		return Bool(rb), nil

	case formula.Equal:
		return ev.evalEqual(n, sigma, iota, p)

	case formula.Action:
		return ev.evalActionGround(n, sigma, iota, p)

	case formula.ForAllAction:
		return ev.evalForAllAction(n, sigma, iota, p)

	case formula.ExistsAction:
		return ev.evalExistsAction(n, sigma, iota, p)

	case formula.Allen:
		return ev.evalAllen(n, iota, p)

	default:
		return Value{}, typeMismatchErr(p, "unknown formula node %T", node)
	}
}

func (ev *Evaluator) evalEqual(n formula.Equal, sigma Env, iota IntervalEnv, p path) (Value, error) {
	l, err := ev.eval(n.Left, sigma, iota, p.push("Equal.left"))
	if err != nil {
		return Value{}, err
	}
	r, err := ev.eval(n.Right, sigma, iota, p.push("Equal.right"))
	if err != nil {
		return Value{}, err
	}
	if ls, ok := l.AsStr(); ok {
		rs, ok := r.AsStr()
		if !ok {
			return Value{}, typeMismatchErr(p, "Equal operands are of different categories (string vs non-string)")
		}
		return Bool(ls == rs), nil
	}
	if li, ok := l.AsInterval(); ok {
		ri, ok := r.AsInterval()
		if !ok {
			return Value{}, typeMismatchErr(p, "Equal operands are of different categories (interval vs non-interval)")
		}
		return Bool(li.Equal(ri)), nil
	}
	return Value{}, typeMismatchErr(p, "Equal operands must be strings or intervals")
}

func (ev *Evaluator) evalAllen(n formula.Allen, iota IntervalEnv, p path) (Value, error) {
	left, ok := iota[n.Left.Label]
	if !ok {
		return Value{}, unboundIntervalErr(n.Left.Label, p)
	}
	right, ok := iota[n.Right.Label]
	if !ok {
		return Value{}, unboundIntervalErr(n.Right.Label, p)
	}
	a1, a2 := tracemodel.Bounded(left.Begin), left.End
	b1, b2 := tracemodel.Bounded(right.Begin), right.End
	switch n.Op {
	case formula.Before:
		return Bool(a2.Less(b1)), nil
	case formula.Meets:
		return Bool(a2.Equal(b1)), nil
	case formula.Overlaps:
		return Bool(a1.Less(b1) && b1.Less(a2) && a2.Less(b2)), nil
	case formula.Starts:
		return Bool(a1.Equal(b1) && a2.Less(b2)), nil
	case formula.During:
		return Bool(b1.Less(a1) && a2.Less(b2)), nil
	case formula.Finishes:
		return Bool(a2.Equal(b2) && b1.Less(a1)), nil
	case formula.IntervalEquals:
		return Bool(a1.Equal(b1) && a2.Equal(b2)), nil
	default:
		return Value{}, typeMismatchErr(p, "unknown Allen predicate %v", n.Op)
	}
}

// evalActionGround evaluates an Action node used outside a quantifier head,
// as a ground predicate: its IntervalRef must already be bound, and the
// predicate holds iff a matching Begin/End pair occupies that interval.
func (ev *Evaluator) evalActionGround(n formula.Action, sigma Env, iota IntervalEnv, p path) (Value, error) {
	iv, ok := iota[n.IntervalRef]
	if !ok {
		return Value{}, unboundIntervalErr(n.IntervalRef, p)
	}
	inputs, err := ev.evalStrings(n.Inputs, sigma, iota, p.push("Action.inputs"))
	if err != nil {
		return Value{}, err
	}
	outputs, err := ev.evalStrings(n.Outputs, sigma, iota, p.push("Action.outputs"))
	if err != nil {
		return Value{}, err
	}
	for _, occ := range ev.trace.Occurrences(n.Kind) {
		if occ.Interval.Begin != iv.Begin || !stringsEqual(occ.Inputs, inputs) {
			continue
		}
		if iv.End.IsUnbounded() {
			if occ.Interval.End.IsUnbounded() {
				return Bool(true), nil
			}
			continue
		}
		if occ.Interval.End.Equal(iv.End) && stringsEqual(occ.Outputs, outputs) {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func (ev *Evaluator) evalStrings(nodes []formula.Node, sigma Env, iota IntervalEnv, p path) ([]string, error) {
	out := make([]string, len(nodes))
	for i, node := range nodes {
		v, err := ev.eval(node, sigma, iota, p.push(fmt.Sprintf("[%d]", i)))
		if err != nil {
			return nil, err
		}
		s, ok := v.AsStr()
		if !ok {
			return nil, typeMismatchErr(p, "action value %d is not a string", i)
		}
		out[i] = s
	}
	return out, nil
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// unify attempts to bind occ's inputs/outputs against action's template,
// per spec §4.E: Wildcard slots are skipped, an already-bound Variable must
// equal the occurrence's value (mismatch skips the occurrence), an unbound
// Variable is bound, a Constant must equal the occurrence's value (mismatch
// skips the occurrence), and the occurrence's interval is bound under the
// action's IntervalRef label. ok is false if the occurrence should be
// skipped (length or value mismatch); err is non-nil only for a malformed
// template (a slot that is not a Variable, Constant or Wildcard).
func unify(action formula.Action, occ *tracemodel.ActionOccurrence, sigma Env, iota IntervalEnv, p path) (Env, IntervalEnv, bool, error) {
	if len(action.Inputs) > len(occ.Inputs) || len(action.Outputs) > len(occ.Outputs) {
		chordlog.Warningf("skipping occurrence of %s: template expects %d/%d inputs/outputs, trace has %d/%d",
			action.Kind, len(action.Inputs), len(action.Outputs), len(occ.Inputs), len(occ.Outputs))
		return nil, nil, false, nil
	}
	newSigma := sigma
	for i, node := range action.Inputs {
		var label string
		switch slot := node.(type) {
		case formula.Wildcard:
			continue
		case formula.Variable:
			label = slot.Label
		case formula.Constant:
			if slot.Value != occ.Inputs[i] {
				return nil, nil, false, nil
			}
			continue
		default:
			return nil, nil, false, typeMismatchErr(p, "action template input %d must be a Variable, Constant or Wildcard", i)
		}
		val := occ.Inputs[i]
		if bound, ok := newSigma[label]; ok {
			if bound != val {
				return nil, nil, false, nil
			}
			continue
		}
		newSigma = newSigma.With(label, val)
	}
	for i, node := range action.Outputs {
		var label string
		switch slot := node.(type) {
		case formula.Wildcard:
			continue
		case formula.Variable:
			label = slot.Label
		case formula.Constant:
			if slot.Value != occ.Outputs[i] {
				return nil, nil, false, nil
			}
			continue
		default:
			return nil, nil, false, typeMismatchErr(p, "action template output %d must be a Variable, Constant or Wildcard", i)
		}
		val := occ.Outputs[i]
		if bound, ok := newSigma[label]; ok {
			if bound != val {
				return nil, nil, false, nil
			}
			continue
		}
		newSigma = newSigma.With(label, val)
	}
	newIota := iota
	if action.IntervalRef != "" {
		newIota = iota.With(action.IntervalRef, occ.Interval)
	}
	return newSigma, newIota, true, nil
}

func (ev *Evaluator) evalExistsAction(n formula.ExistsAction, sigma Env, iota IntervalEnv, p path) (Value, error) {
	occs := ev.trace.Occurrences(n.Action.Kind)
	for i, occ := range occs {
		newSigma, newIota, ok, err := unify(n.Action, occ, sigma, iota, p)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			continue
		}
		v, err := ev.eval(n.Body, newSigma, newIota, p.push(fmt.Sprintf("∃%s[%d]", n.Action.Kind, i)))
		if err != nil {
			return Value{}, err
		}
		b, ok := v.AsBool()
		if !ok {
			return Value{}, typeMismatchErr(p, "existential body is not boolean")
		}
		if b {
			return Bool(true), nil
		}
	}
	// Empty domain: existential is vacuously false.
	return Bool(false), nil
}

func (ev *Evaluator) evalForAllAction(n formula.ForAllAction, sigma Env, iota IntervalEnv, p path) (Value, error) {
	occs := ev.trace.Occurrences(n.Action.Kind)
	for i, occ := range occs {
		newSigma, newIota, ok, err := unify(n.Action, occ, sigma, iota, p)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			continue
		}
		v, err := ev.eval(n.Body, newSigma, newIota, p.push(fmt.Sprintf("∀%s[%d]", n.Action.Kind, i)))
		if err != nil {
			return Value{}, err
		}
		b, ok := v.AsBool()
		if !ok {
			return Value{}, typeMismatchErr(p, "universal body is not boolean")
		}
		if !b {
			return Bool(false), nil
		}
	}
	// Empty domain: universal is vacuously true.
	return Bool(true), nil
}
