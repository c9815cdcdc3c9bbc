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
// Package eval implements the recursive evaluation semantics of spec §4.E:
// boolean connectives, Allen-style interval predicates, and action/interval
// quantification with unification, over the variable environment Σ and the
// interval environment I.
package eval

import (
	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// Env is the variable environment Σ: label -> string. Environments are
// created by the Evaluator, grown by quantifier binding, and discarded on
// return; binding copies rather than mutates, since formulas are small.
type Env map[string]string

// With returns a copy of e with label bound to value.
func (e Env) With(label, value string) Env {
	out := make(Env, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	out[label] = value
	return out
}

// IntervalEnv is the interval environment I: label -> Interval.
type IntervalEnv map[string]tracemodel.Interval

// With returns a copy of ie with label bound to iv.
func (ie IntervalEnv) With(label string, iv tracemodel.Interval) IntervalEnv {
	out := make(IntervalEnv, len(ie)+1)
	for k, v := range ie {
		out[k] = v
	}
	out[label] = iv
	return out
}

// ValueKind discriminates the category a Value was produced with.
type ValueKind int8

const (
	// BoolKind values are the result of boolean sub-formulas.
	BoolKind ValueKind = iota
	// StringKind values are the result of Variable/Constant evaluation.
	StringKind
	// IntervalKind values are the result of IntervalRef evaluation.
	IntervalKind
)

// Value is the tagged union evaluate() produces: bool | string | Interval.
type Value struct {
	kind ValueKind
	b    bool
	s    string
	iv   tracemodel.Interval
}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

// Str returns a string Value.
func Str(s string) Value { return Value{kind: StringKind, s: s} }

// Ivl returns an interval Value.
func Ivl(iv tracemodel.Interval) Value { return Value{kind: IntervalKind, iv: iv} }

// Kind reports which category v holds.
func (v Value) Kind() ValueKind { return v.kind }

// AsBool returns v's boolean payload and true, or (false, false) if v is not
// a BoolKind Value.
func (v Value) AsBool() (bool, bool) {
	if v.kind != BoolKind {
		return false, false
	}
	return v.b, true
}

// AsStr returns v's string payload and true, or ("", false) if v is not a
// StringKind Value.
func (v Value) AsStr() (string, bool) {
	if v.kind != StringKind {
		return "", false
	}
	return v.s, true
}

// AsInterval returns v's interval payload and true, or (zero, false) if v is
// not an IntervalKind Value.
func (v Value) AsInterval() (tracemodel.Interval, bool) {
	if v.kind != IntervalKind {
		return tracemodel.Interval{}, false
	}
	return v.iv, true
}
