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
// Package formula defines the typed, immutable formula AST that chordcheck's
// evaluator interprets: variables, constants, interval references, boolean
// connectives, action templates, action/interval quantification, and
// Allen-style interval predicates. Surface-text parsing of formulas is out of
// scope (spec §1); this package fixes only the tree an external parser
// produces.
//
// Node is encoded as a sum type over a closed set of structs rather than a
// class hierarchy with virtual evaluate methods: every node implements the
// unexported isNode marker, and the evaluator (package eval) recurses with a
// single type switch, per the AST's design note.
package formula

import (
	"fmt"

	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// ActionKind is an alias of tracemodel.ActionKind so formula nodes can name
// action kinds without importing tracemodel directly at every call site.
type ActionKind = tracemodel.ActionKind

// Node is any formula AST node. The interface is sealed to this package's
// node types.
type Node interface {
	fmt.Stringer
	isNode()
}

// Variable references a bound value by label, resolved against the Σ
// (string) or I (interval) environment depending on context.
type Variable struct {
	Label string
}

func (Variable) isNode() {}
func (v Variable) String() string {
	return v.Label
}

// Wildcard matches anything without binding it. Legal only inside an Action
// template's input/output list; illegal in value position.
type Wildcard struct{}

func (Wildcard) isNode() {}
func (Wildcard) String() string {
	return "_"
}

// Constant is a literal string value.
type Constant struct {
	Value string
}

func (Constant) isNode() {}
func (c Constant) String() string {
	return fmt.Sprintf("%q", c.Value)
}

// IntervalRef references a bound interval by label, resolved against I.
type IntervalRef struct {
	Label string
}

func (IntervalRef) isNode() {}
func (r IntervalRef) String() string {
	return r.Label
}

// Not is boolean negation.
type Not struct {
	Expr Node
}

func (Not) isNode() {}
func (n Not) String() string {
	return fmt.Sprintf("¬(%s)", n.Expr)
}

// And is n-ary (at least 2) boolean conjunction, evaluated short-circuit
// left to right.
type And struct {
	Exprs []Node
}

func (And) isNode() {}
func (a And) String() string {
	return joinExprs(a.Exprs, "∧")
}

// Or is n-ary (at least 2) boolean disjunction, evaluated short-circuit left
// to right.
type Or struct {
	Exprs []Node
}

func (Or) isNode() {}
func (o Or) String() string {
	return joinExprs(o.Exprs, "∨")
}

func joinExprs(exprs []Node, sep string) string {
	s := ""
	for i, e := range exprs {
		if i > 0 {
			s += " " + sep + " "
		}
		s += fmt.Sprintf("(%s)", e)
	}
	return s
}

// Implies is material implication, Left => Right.
type Implies struct {
	Left, Right Node
}

func (Implies) isNode() {}
func (i Implies) String() string {
	return fmt.Sprintf("(%s) => (%s)", i.Left, i.Right)
}

// Equal compares two string-or-interval-valued nodes. Both sides must
// evaluate to the same category (both strings or both intervals).
type Equal struct {
	Left, Right Node
}

func (Equal) isNode() {}
func (e Equal) String() string {
	return fmt.Sprintf("(%s) = (%s)", e.Left, e.Right)
}

// Action is a ground or template action predicate: kind, the label of the
// interval it occupies, and its input/output value lists. Inside a
// quantifier head, Inputs/Outputs entries are typically Variable or
// Wildcard; as a ground predicate, they may be any value-producing Node.
type Action struct {
	Kind        ActionKind
	IntervalRef string
	Inputs      []Node
	Outputs     []Node
}

func (Action) isNode() {}
func (a Action) String() string {
	return fmt.Sprintf("%s[%s](%v)->(%v)", a.Kind, a.IntervalRef, a.Inputs, a.Outputs)
}

// ForAllAction universally quantifies Body over every ActionOccurrence of
// Action.Kind, unifying Action's Inputs/Outputs/IntervalRef against each
// occurrence before evaluating Body.
type ForAllAction struct {
	Action Action
	Body   Node
}

func (ForAllAction) isNode() {}
func (f ForAllAction) String() string {
	return fmt.Sprintf("∀ %s. (%s)", f.Action, f.Body)
}

// ExistsAction existentially quantifies Body the same way ForAllAction does.
type ExistsAction struct {
	Action Action
	Body   Node
}

func (ExistsAction) isNode() {}
func (e ExistsAction) String() string {
	return fmt.Sprintf("∃ %s. (%s)", e.Action, e.Body)
}

// AllenOp is one of the seven Allen-style interval predicates spec §4.E
// defines over two IntervalRefs.
type AllenOp int8

const (
	// Before: a.End < b.Begin.
	Before AllenOp = iota
	// Meets: a.End = b.Begin.
	Meets
	// Overlaps: a.Begin < b.Begin < a.End < b.End.
	Overlaps
	// Starts: a.Begin = b.Begin ∧ a.End < b.End.
	Starts
	// During: b.Begin < a.Begin ∧ a.End < b.End.
	During
	// Finishes: a.End = b.End ∧ b.Begin < a.Begin.
	Finishes
	// IntervalEquals: a.Begin = b.Begin ∧ a.End = b.End.
	IntervalEquals
)

func (op AllenOp) String() string {
	switch op {
	case Before:
		return "Before"
	case Meets:
		return "Meets"
	case Overlaps:
		return "Overlaps"
	case Starts:
		return "Starts"
	case During:
		return "During"
	case Finishes:
		return "Finishes"
	case IntervalEquals:
		return "Equals"
	default:
		return "UnknownAllenOp"
	}
}

// Allen is an Allen-style interval predicate over two interval references.
type Allen struct {
	Op          AllenOp
	Left, Right IntervalRef
}

func (Allen) isNode() {}
func (a Allen) String() string {
	return fmt.Sprintf("%s(%s, %s)", a.Op, a.Left, a.Right)
}
