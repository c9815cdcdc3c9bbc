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
package formula

import (
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// wireNode is the JSON wire shape a pre-built formula tree arrives in: a
// "type" discriminator plus whichever fields that node kind needs, every
// child held as a RawMessage so decoding recurses node-by-node. Formula-text
// parsing is out of scope (spec §1); this is the in-process interchange
// format for an already-built AST crossing a process boundary.
type wireNode struct {
	Type string `json:"type"`

	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`

	Expr  json.RawMessage   `json:"expr,omitempty"`
	Exprs []json.RawMessage `json:"exprs,omitempty"`
	Left  json.RawMessage   `json:"left,omitempty"`
	Right json.RawMessage   `json:"right,omitempty"`

	Kind        string            `json:"kind,omitempty"`
	IntervalRef string            `json:"interval_ref,omitempty"`
	Inputs      []json.RawMessage `json:"inputs,omitempty"`
	Outputs     []json.RawMessage `json:"outputs,omitempty"`

	Action *wireNode       `json:"action,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`

	Op       string `json:"op,omitempty"`
	LeftRef  string `json:"left_ref,omitempty"`
	RightRef string `json:"right_ref,omitempty"`
}

// DecodeFormula reads a single JSON-encoded formula tree from r.
func DecodeFormula(r io.Reader) (Node, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding formula JSON: %v", err)
	}
	return decodeRaw(raw)
}

func decodeRaw(data json.RawMessage) (Node, error) {
	if len(data) == 0 {
		return nil, status.Error(codes.InvalidArgument, "empty formula node")
	}
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding formula node: %v", err)
	}
	return decodeWire(w)
}

func decodeWire(w wireNode) (Node, error) {
	switch w.Type {
	case "Variable":
		return Variable{Label: w.Label}, nil
	case "Wildcard":
		return Wildcard{}, nil
	case "Constant":
		return Constant{Value: w.Value}, nil
	case "IntervalRef":
		return IntervalRef{Label: w.Label}, nil
	case "Not":
		expr, err := decodeRaw(w.Expr)
		if err != nil {
			return nil, err
		}
		return Not{Expr: expr}, nil
	case "And":
		exprs, err := decodeRawList(w.Exprs)
		if err != nil {
			return nil, err
		}
		return And{Exprs: exprs}, nil
	case "Or":
		exprs, err := decodeRawList(w.Exprs)
		if err != nil {
			return nil, err
		}
		return Or{Exprs: exprs}, nil
	case "Implies":
		left, right, err := decodeLeftRight(w)
		if err != nil {
			return nil, err
		}
		return Implies{Left: left, Right: right}, nil
	case "Equal":
		left, right, err := decodeLeftRight(w)
		if err != nil {
			return nil, err
		}
		return Equal{Left: left, Right: right}, nil
	case "Action":
		kind, ok := ParseActionKind(w.Kind)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "Action node: unknown kind %q", w.Kind)
		}
		inputs, err := decodeRawList(w.Inputs)
		if err != nil {
			return nil, err
		}
		outputs, err := decodeRawList(w.Outputs)
		if err != nil {
			return nil, err
		}
		return Action{Kind: kind, IntervalRef: w.IntervalRef, Inputs: inputs, Outputs: outputs}, nil
	case "ForAllAction", "ExistsAction":
		if w.Action == nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s node: missing action", w.Type)
		}
		actionNode, err := decodeWire(*w.Action)
		if err != nil {
			return nil, err
		}
		action, ok := actionNode.(Action)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s node: action field is not an Action", w.Type)
		}
		body, err := decodeRaw(w.Body)
		if err != nil {
			return nil, err
		}
		if w.Type == "ForAllAction" {
			return ForAllAction{Action: action, Body: body}, nil
		}
		return ExistsAction{Action: action, Body: body}, nil
	case "Allen":
		op, ok := parseAllenOp(w.Op)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "Allen node: unknown op %q", w.Op)
		}
		return Allen{Op: op, Left: IntervalRef{Label: w.LeftRef}, Right: IntervalRef{Label: w.RightRef}}, nil
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown formula node type %q", w.Type)
	}
}

func decodeRawList(raws []json.RawMessage) ([]Node, error) {
	out := make([]Node, len(raws))
	for i, raw := range raws {
		n, err := decodeRaw(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func decodeLeftRight(w wireNode) (Node, Node, error) {
	left, err := decodeRaw(w.Left)
	if err != nil {
		return nil, nil, fmt.Errorf("left: %w", err)
	}
	right, err := decodeRaw(w.Right)
	if err != nil {
		return nil, nil, fmt.Errorf("right: %w", err)
	}
	return left, right, nil
}

func parseAllenOp(s string) (AllenOp, bool) {
	switch s {
	case "Before":
		return Before, true
	case "Meets":
		return Meets, true
	case "Overlaps":
		return Overlaps, true
	case "Starts":
		return Starts, true
	case "During":
		return During, true
	case "Finishes":
		return Finishes, true
	case "Equals", "IntervalEquals":
		return IntervalEquals, true
	default:
		return 0, false
	}
}
