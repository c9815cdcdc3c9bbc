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
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
	return path
}

func TestExecEndToEndVerdictTrue(t *testing.T) {
	dir := t.TempDir()
	logPath := writeTempFile(t, dir, "trace.log", strings.Join([]string{
		"2000-01-01 12:00:00.000, Store, s1, nA, k1, v1",
		"2000-01-01 12:00:00.010, ReplyStore, s1, nA",
		"2000-01-01 12:00:00.020, Lookup, l1, nB, k1",
		"2000-01-01 12:00:00.030, ReplyLookup, l1, v1",
	}, "\n"))
	formulaPath := writeTempFile(t, dir, "formula.json", `{
		"type": "ForAllAction",
		"action": {"type": "Action", "kind": "Lookup", "interval_ref": "iL",
			"inputs": [{"type":"Wildcard"}, {"type":"Constant","value":"k1"}],
			"outputs": [{"type":"Variable","label":"v"}]},
		"body": {"type": "Equal",
			"left": {"type":"Variable","label":"v"},
			"right": {"type":"Constant","value":"v1"}}
	}`)

	var stdout, stderr bytes.Buffer
	args := []string{"-log", logPath, "-formula", formulaPath, "-skip-preprocess"}
	if err := exec(context.Background(), strings.NewReader(""), &stdout, &stderr, args); err != nil {
		t.Fatalf("exec: %v (stderr: %s)", err, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != "true" {
		t.Errorf("exec stdout: got %q, want %q", got, "true")
	}
}

func TestExecInjectProbeAffectsVerdict(t *testing.T) {
	dir := t.TempDir()
	logPath := writeTempFile(t, dir, "trace.log", strings.Join([]string{
		"2000-01-01 12:00:00.000, Lookup, l1, nB, k1",
		"2000-01-01 12:00:00.010, ReplyLookup, l1, v1",
	}, "\n"))
	formulaPath := writeTempFile(t, dir, "formula.json", `{
		"type": "ForAllAction",
		"action": {"type": "Action", "kind": "Lookup", "interval_ref": "iL",
			"inputs": [{"type":"Wildcard"}, {"type":"Wildcard"}],
			"outputs": [{"type":"Variable","label":"v"}]},
		"body": {"type": "Equal",
			"left": {"type":"Variable","label":"v"},
			"right": {"type":"Constant","value":"v1"}}
	}`)

	var stdout, stderr bytes.Buffer
	args := []string{"-log", logPath, "-formula", formulaPath, "-skip-preprocess", "-inject-probe"}
	if err := exec(context.Background(), strings.NewReader(""), &stdout, &stderr, args); err != nil {
		t.Fatalf("exec: %v (stderr: %s)", err, stderr.String())
	}
	// Every real Lookup returns v1, but the injected probe returns
	// "probe-value", so the ForAllAction no longer holds universally.
	if got := strings.TrimSpace(stdout.String()); got != "false" {
		t.Errorf("exec stdout: got %q, want %q (probe should break the universal claim)", got, "false")
	}
}

func TestExecMissingRequiredFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := exec(context.Background(), strings.NewReader(""), &stdout, &stderr, []string{"-log", "x"})
	if err == nil {
		t.Fatal("exec: got nil error, want error for missing -formula")
	}
}

func TestExecBadFormulaPath(t *testing.T) {
	dir := t.TempDir()
	logPath := writeTempFile(t, dir, "trace.log", "2000-01-01 12:00:00.000, Lookup, l1, nA, k1\n2000-01-01 12:00:00.010, ReplyLookup, l1, v1\n")
	var stdout, stderr bytes.Buffer
	err := exec(context.Background(), strings.NewReader(""), &stdout, &stderr,
		[]string{"-log", logPath, "-formula", filepath.Join(dir, "does-not-exist.json")})
	if err == nil {
		t.Fatal("exec: got nil error, want error for unreadable formula path")
	}
}
