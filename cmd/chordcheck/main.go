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
// chordcheck is a batch checker: it ingests a raw or enriched trace log,
// optionally derives the regimen predicates (ReadOnly, Stable, Member,
// Ideal, Responsible) from it and a successor-pointer history, and
// evaluates a pre-built formula against the resulting trace, printing the
// boolean verdict.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/peterbourgon/ff/v4/ffval"

	"github.com/google/schedviz/chordcheck/internal/chordlog"
	"github.com/google/schedviz/chordcheck/internal/eval"
	"github.com/google/schedviz/chordcheck/internal/formula"
	"github.com/google/schedviz/chordcheck/internal/ingest"
	"github.com/google/schedviz/chordcheck/internal/regimen"
	"github.com/google/schedviz/chordcheck/internal/tracemodel"
)

func main() {
	err := exec(context.Background(), os.Stdin, os.Stdout, os.Stderr, os.Args[1:])
	chordlog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	LogPath          string
	SuccessorsPath   string
	FormulaPath      string
	IgnoreNonOps     bool
	MaxLines         int
	AbortOnFormatErr bool
	SkipPreprocess   bool
	Timeout          time.Duration
	InjectProbe      bool
	Verbosity        int
}

func exec(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) (err error) {
	cfg := &config{Timeout: 30 * time.Second}

	fs := ff.NewFlagSet("chordcheck")
	fs.AddFlag(ff.FlagConfig{ShortName: 'l', LongName: "log", Value: ffval.NewValue(&cfg.LogPath),
		Usage: "path to the raw or enriched trace log", Placeholder: "PATH"})
	fs.AddFlag(ff.FlagConfig{ShortName: 's', LongName: "successors", Value: ffval.NewValue(&cfg.SuccessorsPath),
		Usage: "path to the successor-pointer log (optional)", Placeholder: "PATH"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'f', LongName: "formula", Value: ffval.NewValue(&cfg.FormulaPath),
		Usage: "path to the JSON-encoded formula AST, or - for stdin", Placeholder: "PATH"})
	fs.AddFlag(ff.FlagConfig{LongName: "ignore-non-operations", Value: ffval.NewValue(&cfg.IgnoreNonOps),
		Usage: "drop derived regimen events when ingesting (idempotence checks)"})
	fs.AddFlag(ff.FlagConfig{LongName: "max-lines", Value: ffval.NewValue(&cfg.MaxLines),
		Usage: "stop ingesting after this many lines, 0 for unlimited", Placeholder: "N"})
	fs.AddFlag(ff.FlagConfig{LongName: "abort-on-format-error", Value: ffval.NewValue(&cfg.AbortOnFormatErr),
		Usage: "interactive LogFormat policy: abort instead of skipping a malformed line"})
	fs.AddFlag(ff.FlagConfig{LongName: "skip-preprocess", Value: ffval.NewValue(&cfg.SkipPreprocess),
		Usage: "evaluate the log as ingested, without deriving regimen predicates"})
	fs.AddFlag(ff.FlagConfig{LongName: "timeout", Value: ffval.NewValue(&cfg.Timeout),
		Usage: "bound on total ingest+preprocess+evaluate time", Placeholder: "DURATION"})
	fs.AddFlag(ff.FlagConfig{LongName: "inject-probe", Value: ffval.NewValue(&cfg.InjectProbe),
		Usage: "append a synthetic Lookup begin/end pair before evaluating, for smoke-testing a formula"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'v', LongName: "v", Value: ffval.NewValue(&cfg.Verbosity),
		Usage: "glog verbosity level", Placeholder: "LEVEL"})

	cmd := &ff.Command{
		Name:      "chordcheck",
		ShortHelp: "check a distributed-ring trace log against an interval-temporal-logic formula",
		Flags:     fs,
	}

	showHelp := true
	defer func() {
		errHelp := errors.Is(err, ff.ErrHelp) || errors.Is(err, ff.ErrNoExec)
		if showHelp || errHelp {
			fmt.Fprintf(stderr, "\n%s\n", ffhelp.Command(cmd))
		}
		if errHelp {
			err = nil
		}
	}()

	if err := cmd.Parse(args, ff.WithEnvVarPrefix("CHORDCHECK")); err != nil {
		return err
	}
	showHelp = false

	if cfg.LogPath == "" {
		return fmt.Errorf("-log is required")
	}
	if cfg.FormulaPath == "" {
		return fmt.Errorf("-formula is required")
	}
	flag.Set("v", strconv.Itoa(cfg.Verbosity))

	runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	type outcome struct {
		verdict bool
		err     error
	}
	done := make(chan outcome, 1)

	var g run.Group
	g.Add(func() error {
		verdict, err := runPipeline(runCtx, cfg, stdin)
		done <- outcome{verdict: verdict, err: err}
		return err
	}, func(error) {})
	g.Add(func() error {
		<-runCtx.Done()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("evaluation timed out after %s", cfg.Timeout)
		}
		return runCtx.Err()
	}, func(error) { cancel() })

	if err := g.Run(); err != nil {
		return err
	}
	o := <-done
	if o.err != nil {
		return o.err
	}
	fmt.Fprintf(stdout, "%t\n", o.verdict)
	return nil
}

// runPipeline performs the ingest -> (optional) regimen derivation ->
// re-ingest -> evaluate sequence, cancellable via ctx only at its coarse,
// natural breakpoints (there is no finer-grained cancellation within
// ingestion, derivation, or evaluation themselves — spec §5 places
// timeouts squarely at process level).
func runPipeline(ctx context.Context, cfg *config, stdin io.Reader) (bool, error) {
	rawTrace, err := ingestFile(cfg.LogPath, stdin, ingest.Options{
		MaxLines:           cfg.MaxLines,
		AbortOnFormatError: cfg.AbortOnFormatErr,
	})
	if err != nil {
		return false, err
	}
	if err := ctxErr(ctx); err != nil {
		return false, err
	}

	if cfg.InjectProbe {
		if err := injectProbe(rawTrace); err != nil {
			return false, err
		}
	}

	trace := rawTrace
	if !cfg.SkipPreprocess {
		var changes []regimen.SuccessorChange
		if cfg.SuccessorsPath != "" {
			changes, err = parseSuccessorsFile(cfg.SuccessorsPath, stdin)
			if err != nil {
				return false, err
			}
		}
		result, err := regimen.Process(rawTrace, changes)
		if err != nil {
			return false, err
		}
		enriched := regimen.Enrich(rawTrace, result)

		ing := ingest.New(ingest.Options{IgnoreNonOperations: cfg.IgnoreNonOps, AbortOnFormatError: true})
		if err := ing.IngestString(enriched); err != nil {
			return false, fmt.Errorf("re-ingesting enriched log: %w", err)
		}
		trace = ing.Trace()
	}
	if err := ctxErr(ctx); err != nil {
		return false, err
	}

	node, err := decodeFormulaFile(cfg.FormulaPath, stdin)
	if err != nil {
		return false, err
	}

	return eval.New(trace).Evaluate(node)
}

// probeOffset separates the synthetic probe's Begin and End from the last
// real timepoint in the trace and from each other, preserving the
// non-decreasing timestamp invariant InsertBegin/CompleteEnd enforce.
const probeOffset = time.Millisecond

// injectProbe appends a synthetic Lookup occurrence to the end of trace,
// tagged with a random correlation id, so an operator can smoke-test a
// formula against a real log before trusting its verdict: a formula that
// asserts something false of every Lookup will catch the probe too.
func injectProbe(trace *tracemodel.Trace) error {
	last := time.Time{}
	if tp, ok := trace.TimepointAt(trace.TimepointCount() - 1); ok {
		last = tp.Time
	}
	id := uuid.NewString()
	chordlog.Infof("probe %s: injecting synthetic Lookup", id)

	ref, err := trace.InsertBegin(tracemodel.Lookup, id, []string{"probe-node", "probe-key"}, last.Add(probeOffset))
	if err != nil {
		return fmt.Errorf("injecting probe Begin: %w", err)
	}
	if _, err := trace.CompleteEnd(ref, id, []string{"probe-value"}, last.Add(2*probeOffset)); err != nil {
		return fmt.Errorf("injecting probe End: %w", err)
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func ingestFile(path string, stdin io.Reader, opts ingest.Options) (*tracemodel.Trace, error) {
	r, closer, err := openPathOrStdin(path, stdin)
	if err != nil {
		return nil, err
	}
	defer closer()
	ing := ingest.New(opts)
	if err := ing.IngestReader(r); err != nil {
		return nil, err
	}
	return ing.Trace(), nil
}

func parseSuccessorsFile(path string, stdin io.Reader) ([]regimen.SuccessorChange, error) {
	r, closer, err := openPathOrStdin(path, stdin)
	if err != nil {
		return nil, err
	}
	defer closer()
	return regimen.ParseSuccessors(r)
}

func decodeFormulaFile(path string, stdin io.Reader) (formula.Node, error) {
	r, closer, err := openPathOrStdin(path, stdin)
	if err != nil {
		return nil, err
	}
	defer closer()
	return formula.DecodeFormula(r)
}

func openPathOrStdin(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
