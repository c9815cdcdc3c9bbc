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
package ingest

import (
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

func TestIngestStringBasic(t *testing.T) {
	log := strings.Join([]string{
		"2000-01-01 12:00:00.000, Lookup, l1, nA, k1",
		"2000-01-01 12:00:00.010, ReplyLookup, l1, v1",
	}, "\n")

	ing := New(Options{})
	if err := ing.IngestString(log); err != nil {
		t.Fatalf("IngestString: %v", err)
	}
	occs := ing.Trace().Occurrences(tracemodel.Lookup)
	if len(occs) != 1 {
		t.Fatalf("Occurrences(Lookup): got %d, want 1", len(occs))
	}
	if occs[0].Interval.End.IsUnbounded() {
		t.Errorf("Interval.End: got Unbounded, want bounded")
	}
}

func TestIngestStringFailIsSelfContained(t *testing.T) {
	ing := New(Options{})
	if err := ing.IngestString("2000-01-01 12:00:00.000, Fail, f1, nA"); err != nil {
		t.Fatalf("IngestString: %v", err)
	}
	occs := ing.Trace().Occurrences(tracemodel.Fail)
	if len(occs) != 1 {
		t.Fatalf("Occurrences(Fail): got %d, want 1", len(occs))
	}
	if occs[0].Interval.End.IsUnbounded() {
		t.Errorf("Fail occurrence should be immediately closed")
	}
}

func TestIngestStringIgnoreNonOperations(t *testing.T) {
	log := strings.Join([]string{
		"2000-01-01 12:00:00.000, Member, Membership0-nA, nA",
		"2000-01-01 12:00:00.010, Lookup, l1, nA, k1",
		"2000-01-01 12:00:00.020, ReplyLookup, l1, v1",
	}, "\n")
	ing := New(Options{IgnoreNonOperations: true})
	if err := ing.IngestString(log); err != nil {
		t.Fatalf("IngestString: %v", err)
	}
	if got := ing.Trace().Occurrences(tracemodel.Member); len(got) != 0 {
		t.Errorf("Occurrences(Member): got %d, want 0 (dropped)", len(got))
	}
	if got := ing.Trace().Occurrences(tracemodel.Lookup); len(got) != 1 {
		t.Errorf("Occurrences(Lookup): got %d, want 1", len(got))
	}
}

func TestIngestStringMissingBeginForEnd(t *testing.T) {
	ing := New(Options{})
	err := ing.IngestString("2000-01-01 12:00:00.000, ReplyLookup, l1, v1")
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("IngestString: got %v, want FailedPrecondition (MissingBeginForEnd)", err)
	}
}

func TestIngestStringDuplicateEnd(t *testing.T) {
	log := strings.Join([]string{
		"2000-01-01 12:00:00.000, Store, s1, nA, k1, v1",
		"2000-01-01 12:00:00.010, ReplyStore, s1, nA",
	}, "\n")
	ing := New(Options{})
	if err := ing.IngestString(log); err != nil {
		t.Fatalf("first IngestString: %v", err)
	}
	err := ing.IngestString("2000-01-01 12:00:00.020, ReplyStore, s1, nA")
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("duplicate end: got %v, want FailedPrecondition (DuplicateEnd)", err)
	}
	// A second End for an id that already completed is DuplicateEnd, not
	// MissingBeginForEnd: the id did have a Begin, it just isn't open anymore.
	if !strings.Contains(err.Error(), "DuplicateEnd") {
		t.Errorf("duplicate end: got %q, want it to mention DuplicateEnd (not MissingBeginForEnd)", err.Error())
	}
}

func TestIngestStringBatchPolicySkipsMalformedLine(t *testing.T) {
	log := strings.Join([]string{
		"not, a, valid, line, at, all, x",
		"2000-01-01 12:00:00.000, Lookup, l1, nA, k1",
	}, "\n")
	ing := New(Options{})
	if err := ing.IngestString(log); err != nil {
		t.Fatalf("IngestString (batch policy): %v", err)
	}
	if got := ing.Trace().Occurrences(tracemodel.Lookup); len(got) != 1 {
		t.Errorf("Occurrences(Lookup): got %d, want 1 (malformed line skipped, not fatal)", len(got))
	}
}

func TestIngestStringInteractivePolicyAborts(t *testing.T) {
	ing := New(Options{AbortOnFormatError: true})
	err := ing.IngestString("garbled")
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("IngestString (interactive policy): got %v, want InvalidArgument", err)
	}
}

func TestIngestStringSkipsRemove(t *testing.T) {
	log := strings.Join([]string{
		"2000-01-01 12:00:00.000, Remove, r1, nA, k1",
		"2000-01-01 12:00:00.010, Lookup, l1, nA, k1",
	}, "\n")
	ing := New(Options{})
	if err := ing.IngestString(log); err != nil {
		t.Fatalf("IngestString: %v", err)
	}
	if got := ing.Trace().Occurrences(tracemodel.Lookup); len(got) != 1 {
		t.Errorf("Occurrences(Lookup): got %d, want 1", len(got))
	}
}

func TestIngestStringMaxLines(t *testing.T) {
	log := strings.Join([]string{
		"2000-01-01 12:00:00.000, Lookup, l1, nA, k1",
		"2000-01-01 12:00:00.010, Lookup, l2, nA, k2",
		"2000-01-01 12:00:00.020, Lookup, l3, nA, k3",
	}, "\n")
	ing := New(Options{MaxLines: 1})
	if err := ing.IngestString(log); err != nil {
		t.Fatalf("IngestString: %v", err)
	}
	if got := ing.Trace().Occurrences(tracemodel.Lookup); len(got) != 1 {
		t.Errorf("Occurrences(Lookup): got %d, want 1 (stopped after MaxLines)", len(got))
	}
}
