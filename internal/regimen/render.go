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
package regimen

import (
	"sort"
	"strings"

	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// line is one rendered log row, kept alongside its sort key so the final
// merge can order derived regimen rows against the original trace's own
// rows without re-parsing text.
type line struct {
	isEnd bool
	text  string
}

// usesReplyPrefix reports whether kind's End row carries a Reply prefix
// (Lookup, Store, Join, Leave); every other kind (FindNode included, and
// every derived regimen kind) carries an End prefix.
func usesReplyPrefix(kind tracemodel.ActionKind) bool {
	switch kind {
	case tracemodel.Lookup, tracemodel.Store, tracemodel.Join, tracemodel.Leave:
		return true
	default:
		return false
	}
}

func renderLabel(kind tracemodel.ActionKind, variant tracemodel.EventVariant) string {
	label := kind.String()
	if variant != tracemodel.End {
		return label
	}
	if usesReplyPrefix(kind) {
		return "Reply" + label
	}
	return "End" + label
}

func renderRow(variant tracemodel.EventVariant, kind tracemodel.ActionKind, id string, values []string, timestamp string) line {
	parts := append([]string{timestamp, renderLabel(kind, variant), id}, values...)
	return line{isEnd: variant == tracemodel.End, text: strings.Join(parts, ", ")}
}

// Enrich merges trace's original events with a Result's derived regimen
// events into a single ordered log text, sorted by (time, is-end-event,
// text) per the deterministic tie-break spec §4.C requires: at equal
// timestamps End rows sort before Begin rows, and remaining ties break
// lexicographically on the rendered row itself. Fail's synthesized End
// event is never written out — Fail is a single line in both raw and
// enriched logs.
func Enrich(trace *tracemodel.Trace, result Result) string {
	type timedLine struct {
		line
		t string
	}
	var rows []timedLine

	for _, ev := range trace.AllEvents() {
		if ev.Kind == tracemodel.Fail && ev.Variant == tracemodel.End {
			continue
		}
		ts := ev.Time.Format(tracemodel.TimestampLayout)
		rows = append(rows, timedLine{line: renderRow(ev.Variant, ev.Kind, ev.ID, ev.Values, ts), t: ts})
	}
	for _, d := range result.All() {
		ts := d.Time.Format(tracemodel.TimestampLayout)
		rows = append(rows, timedLine{line: renderRow(d.Variant, d.Kind, d.ID, d.Values, ts), t: ts})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.t != b.t {
			return a.t < b.t
		}
		if a.isEnd != b.isEnd {
			return a.isEnd
		}
		return a.text < b.text
	})

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = r.text
	}
	return strings.Join(lines, "\n")
}
