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
	"bufio"
	"io"
	"sort"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

// ParseSuccessors reads a successor-log — one "time, label, node, successor"
// CSV row per pointer update — and returns the updates sorted by time.
func ParseSuccessors(r io.Reader) ([]SuccessorChange, error) {
	scanner := bufio.NewScanner(r)
	var out []SuccessorChange
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		var fields []string
		for _, f := range strings.Split(trimmed, ",") {
			fields = append(fields, strings.TrimSpace(f))
		}
		if len(fields) != 4 {
			return nil, status.Errorf(codes.InvalidArgument,
				"successor log line %d: expected 4 CSV fields, got %d: %q", lineNo, len(fields), trimmed)
		}
		t, err := time.Parse(tracemodel.TimestampLayout, fields[0])
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "successor log line %d: bad timestamp %q", lineNo, fields[0])
		}
		out = append(out, SuccessorChange{Time: t, Node: fields[2], Successor: fields[3]})
	}
	if err := scanner.Err(); err != nil {
		return nil, status.Errorf(codes.Unknown, "reading successor log: %v", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}
