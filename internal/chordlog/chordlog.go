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
// Package chordlog wraps glog with the handful of helpers chordcheck's
// batch components use to log parse and evaluation diagnostics.
package chordlog

import (
	"strings"

	log "github.com/golang/glog"
)

// Info logs an informational message at V(0).
func Info(args ...interface{}) {
	log.Info(args...)
}

// Infof logs a formatted informational message at V(0).
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// V reports whether verbose logging at the given level is enabled, mirroring
// glog's V() gate so callers can skip building expensive diagnostic strings.
func V(level log.Level) bool {
	return bool(log.V(level))
}

// Warning logs a non-fatal diagnostic, used for skipped or malformed lines
// under batch-continue policy.
func Warning(args ...interface{}) {
	log.Warning(args...)
}

// Warningf logs a formatted non-fatal diagnostic.
func Warningf(format string, args ...interface{}) {
	log.Warningf(format, args...)
}

// Error logs a recoverable error.
func Error(args ...interface{}) {
	log.Error(args...)
}

// Errorf logs a formatted recoverable error.
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// Flush flushes any pending log writes; callers invoke this before process
// exit so batch diagnostics aren't lost.
func Flush() {
	log.Flush()
}

// FormulaPath renders a stack of enclosing quantifier/formula descriptions as
// the "formula subtree" diagnostic string required by error reporting for
// evaluator failures.
func FormulaPath(frames []string) string {
	if len(frames) == 0 {
		return "<root>"
	}
	return strings.Join(frames, " -> ")
}
