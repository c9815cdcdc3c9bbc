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
// Package ingest parses a raw or enriched textual trace log into a
// tracemodel.Trace, pairing Begin and End events by correlation id.
package ingest

import (
	"bufio"
	"io"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/schedviz/chordcheck/internal/chordlog"
	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// Options configures an Ingestor.
type Options struct {
	// IgnoreNonOperations drops events of the derived regimen kinds
	// (Member, ReadOnly, Stable, Ideal, Responsible). Used when feeding an
	// already-enriched log into an evaluator that does not need to
	// recompute the regimen.
	IgnoreNonOperations bool
	// MaxLines stops ingestion after this many lines, 0 meaning unlimited.
	MaxLines int
	// AbortOnFormatError makes a malformed line (LogFormat) fatal, the
	// "interactive" policy of spec §7; the default, "batch", policy logs
	// and skips the line instead.
	AbortOnFormatError bool
}

// Ingestor parses log lines into a tracemodel.Trace, maintaining the
// per-id map of open Begin occurrences used to pair End events.
type Ingestor struct {
	opts      Options
	trace     *tracemodel.Trace
	open      map[string]tracemodel.OccRef
	completed map[string]bool
	lines     int
}

// New returns a new Ingestor with an empty Trace.
func New(opts Options) *Ingestor {
	return &Ingestor{
		opts:      opts,
		trace:     tracemodel.NewTrace(),
		open:      make(map[string]tracemodel.OccRef),
		completed: make(map[string]bool),
	}
}

// Trace returns the Trace Store built so far.
func (ing *Ingestor) Trace() *tracemodel.Trace {
	return ing.trace
}

// IngestReader parses every line from r. It stops early, without error, once
// MaxLines have been consumed. A PairingError (MissingBeginForEnd,
// DuplicateEnd) aborts parsing and is returned to the caller.
func (ing *Ingestor) IngestReader(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	// Enriched and raw logs can carry long comma-separated value lists;
	// grow the scan buffer past bufio's 64KiB default line cap.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if ing.opts.MaxLines > 0 && lineNo > ing.opts.MaxLines {
			break
		}
		if err := ing.ingestLine(scanner.Text(), lineNo); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return status.Errorf(codes.Unknown, "reading trace log: %v", err)
	}
	return nil
}

// IngestString parses every line of log.
func (ing *Ingestor) IngestString(log string) error {
	return ing.IngestReader(strings.NewReader(log))
}

func lineErrorf(lineNo int, line string, format string, args ...interface{}) error {
	msg := status.Newf(codes.InvalidArgument, format, args...)
	return status.Errorf(codes.InvalidArgument, "line %d: %s\n> %s", lineNo, msg.Message(), strings.TrimSpace(line))
}

func (ing *Ingestor) ingestLine(line string, lineNo int) error {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	var fields []string
	for _, f := range strings.Split(trimmed, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) < 3 {
		return ing.formatError(lineNo, line, "fewer than 3 CSV fields")
	}

	ts, label, id := fields[0], fields[1], fields[2]
	values := fields[3:]

	t, err := time.Parse(tracemodel.TimestampLayout, ts)
	if err != nil {
		return ing.formatError(lineNo, line, "bad timestamp %q", ts)
	}

	if strings.Contains(strings.ToLower(label), "remove") {
		// Dropped per spec §9: the original's "TODO: convert to Store" is
		// left unimplemented upstream; this ingestor skips Remove lines.
		chordlog.Warningf("line %d: skipping Remove event (unsupported): %s", lineNo, trimmed)
		return nil
	}

	lowerLabel := strings.ToLower(label)
	isEnd := strings.HasPrefix(lowerLabel, "reply") || strings.HasPrefix(lowerLabel, "end")
	stripped := label
	switch {
	case strings.HasPrefix(lowerLabel, "reply"):
		stripped = label[len("reply"):]
	case strings.HasPrefix(lowerLabel, "end"):
		stripped = label[len("end"):]
	}

	kind, ok := tracemodel.ParseActionKind(stripped)
	if !ok {
		return ing.formatError(lineNo, line, "unknown action label %q", label)
	}

	if ing.opts.IgnoreNonOperations && kind.IsRegimen() {
		return nil
	}

	if kind == tracemodel.Fail {
		// Fail is both Begin and End of itself, at the same timestamp.
		ref, err := ing.trace.InsertBegin(kind, id, values, t)
		if err != nil {
			return ing.wrapStoreError(lineNo, line, err)
		}
		if _, err := ing.trace.CompleteEnd(ref, id, nil, t); err != nil {
			return ing.wrapStoreError(lineNo, line, err)
		}
		return nil
	}

	if !isEnd {
		ref, err := ing.trace.InsertBegin(kind, id, values, t)
		if err != nil {
			return ing.wrapStoreError(lineNo, line, err)
		}
		ing.open[id] = ref
		return nil
	}

	ref, ok := ing.open[id]
	if !ok {
		// An id that already completed is DuplicateEnd, not
		// MissingBeginForEnd: it did have a Begin, it just isn't open
		// anymore. An id never seen at all is the real MissingBeginForEnd.
		if ing.completed[id] {
			return ing.duplicateEndError(lineNo, line, id)
		}
		return ing.missingBeginError(lineNo, line, id)
	}
	completed, err := ing.trace.CompleteEnd(ref, id, values, t)
	if err != nil {
		return ing.wrapStoreError(lineNo, line, err)
	}
	if !completed {
		return ing.duplicateEndError(lineNo, line, id)
	}
	delete(ing.open, id)
	ing.completed[id] = true
	return nil
}

// formatError applies the LogFormat batch-vs-interactive policy: in batch
// mode (the default) it logs and returns nil so parsing continues; in
// interactive mode (AbortOnFormatError) it returns the error.
func (ing *Ingestor) formatError(lineNo int, line string, format string, args ...interface{}) error {
	err := lineErrorf(lineNo, line, format, args...)
	if ing.opts.AbortOnFormatError {
		return err
	}
	chordlog.Warning(err.Error())
	return nil
}

func (ing *Ingestor) missingBeginError(lineNo int, line string, id string) error {
	return status.Errorf(codes.FailedPrecondition,
		"line %d: MissingBeginForEnd: End event %q does not match any ongoing action\n> %s",
		lineNo, id, strings.TrimSpace(line))
}

func (ing *Ingestor) duplicateEndError(lineNo int, line string, id string) error {
	return status.Errorf(codes.FailedPrecondition,
		"line %d: DuplicateEnd: End event %q matches an action that already terminated\n> %s",
		lineNo, id, strings.TrimSpace(line))
}

func (ing *Ingestor) wrapStoreError(lineNo int, line string, err error) error {
	return status.Errorf(status.Code(err), "line %d: %v\n> %s", lineNo, err, strings.TrimSpace(line))
}
