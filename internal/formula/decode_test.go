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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

func TestDecodeFormula(t *testing.T) {
	tests := []struct {
		description string
		json        string
		want        Node
		wantErr     bool
	}{
		{
			description: "variable",
			json:        `{"type":"Variable","label":"v"}`,
			want:        Variable{Label: "v"},
		},
		{
			description: "constant",
			json:        `{"type":"Constant","value":"v1"}`,
			want:        Constant{Value: "v1"},
		},
		{
			description: "wildcard",
			json:        `{"type":"Wildcard"}`,
			want:        Wildcard{},
		},
		{
			description: "not",
			json:        `{"type":"Not","expr":{"type":"Constant","value":"x"}}`,
			want:        Not{Expr: Constant{Value: "x"}},
		},
		{
			description: "and",
			json: `{"type":"And","exprs":[
				{"type":"Constant","value":"a"},
				{"type":"Constant","value":"b"}
			]}`,
			want: And{Exprs: []Node{Constant{Value: "a"}, Constant{Value: "b"}}},
		},
		{
			description: "implies",
			json: `{"type":"Implies",
				"left":{"type":"Constant","value":"a"},
				"right":{"type":"Constant","value":"b"}}`,
			want: Implies{Left: Constant{Value: "a"}, Right: Constant{Value: "b"}},
		},
		{
			description: "action",
			json: `{"type":"Action","kind":"Lookup","interval_ref":"i",
				"inputs":[{"type":"Wildcard"},{"type":"Constant","value":"k1"}],
				"outputs":[{"type":"Variable","label":"v"}]}`,
			want: Action{
				Kind:        tracemodel.Lookup,
				IntervalRef: "i",
				Inputs:      []Node{Wildcard{}, Constant{Value: "k1"}},
				Outputs:     []Node{Variable{Label: "v"}},
			},
		},
		{
			description: "forall action",
			json: `{"type":"ForAllAction",
				"action":{"type":"Action","kind":"Lookup","interval_ref":"i"},
				"body":{"type":"Constant","value":"x"}}`,
			want: ForAllAction{
				Action: Action{Kind: tracemodel.Lookup, IntervalRef: "i"},
				Body:   Constant{Value: "x"},
			},
		},
		{
			description: "allen",
			json:        `{"type":"Allen","op":"Before","left_ref":"a","right_ref":"b"}`,
			want:        Allen{Op: Before, Left: IntervalRef{Label: "a"}, Right: IntervalRef{Label: "b"}},
		},
		{
			description: "unknown node type",
			json:        `{"type":"Bogus"}`,
			wantErr:     true,
		},
		{
			description: "unknown action kind",
			json:        `{"type":"Action","kind":"Bogus","interval_ref":"i"}`,
			wantErr:     true,
		},
		{
			description: "unknown allen op",
			json:        `{"type":"Allen","op":"Bogus","left_ref":"a","right_ref":"b"}`,
			wantErr:     true,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			got, err := DecodeFormula(strings.NewReader(test.json))
			if (err != nil) != test.wantErr {
				t.Fatalf("DecodeFormula: err = %v, wantErr %v", err, test.wantErr)
			}
			if test.wantErr {
				return
			}
			if d := cmp.Diff(test.want, got); d != "" {
				t.Errorf("DecodeFormula(-want +got):\n%s", d)
			}
		})
	}
}
