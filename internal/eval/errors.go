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
package eval

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/schedviz/chordcheck/internal/chordlog"
)

// path is the stack of enclosing quantifier/connective descriptions carried
// alongside a recursive evaluate call, used to build the diagnostic required
// of UnboundVariable/UnboundInterval/TypeMismatch errors.
type path []string

func (p path) push(frame string) path {
	out := make(path, len(p), len(p)+1)
	copy(out, p)
	return append(out, frame)
}

func (p path) String() string {
	return chordlog.FormulaPath([]string(p))
}

func unboundVariableErr(label string, p path) error {
	return status.Errorf(codes.NotFound, "UnboundVariable: %q is not bound\nat: %s", label, p)
}

func unboundIntervalErr(label string, p path) error {
	return status.Errorf(codes.NotFound, "UnboundInterval: %q is not bound\nat: %s", label, p)
}

func typeMismatchErr(p path, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return status.Errorf(codes.InvalidArgument, "TypeMismatch: %s\nat: %s", msg, p)
}
