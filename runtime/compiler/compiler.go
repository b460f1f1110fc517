// Package compiler runs the passes that turn MSCI source into a compiled
// script: parse every line, build and verify the branch tree, and
// linearize it into the standard and auxiliary streams.
package compiler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opal-lang/msci/core/diag"
	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/core/scriptfmt"
	"github.com/opal-lang/msci/runtime/command"
	"github.com/opal-lang/msci/runtime/script"
	"github.com/opal-lang/msci/runtime/syntax"
	"github.com/opal-lang/msci/runtime/tree"
)

// Snapshot is the read-only data a compile looks names up in. One snapshot
// may be shared by any number of concurrent compiles.
type Snapshot struct {
	Table   *syntax.Table
	Objects *syntax.Objects
}

// Builtin returns the snapshot of the embedded tables.
func Builtin() Snapshot {
	table, objects := syntax.Builtin()
	return Snapshot{Table: table, Objects: objects}
}

// LoadSnapshot loads a syntax table and object tables from files. An empty
// path selects the embedded table.
func LoadSnapshot(tablePath, objectsPath string) (Snapshot, error) {
	snap := Builtin()
	if tablePath != "" {
		table, err := syntax.LoadTableFile(tablePath)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Table = table
	}
	if objectsPath != "" {
		objects, err := syntax.LoadObjectsFile(objectsPath)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Objects = objects
	}
	return snap, nil
}

// Result is the outcome of one compile. Script streams are only filled
// when there are no diagnostics.
type Result struct {
	Script      *script.File
	Tree        *tree.Tree
	Diagnostics []diag.Diagnostic
	Telemetry   *Telemetry // nil unless requested
}

// OK reports whether the script compiled without diagnostics.
func (r *Result) OK() bool {
	return len(r.Diagnostics) == 0
}

// Digest returns the digest of the compiled output.
func (r *Result) Digest() (string, error) {
	return scriptfmt.Digest(Export(r.Script))
}

// InternalError is a compiler defect detected during a compile. The pass is
// aborted; the script is left in an unspecified state.
type InternalError struct {
	Script    string
	Violation *invariant.Violation
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal compiler error in %s: %v", e.Script, e.Violation)
}

func (e *InternalError) Unwrap() error {
	return e.Violation
}

// Compile compiles lines into f, replacing whatever f held from an earlier
// compile. Script problems are returned as diagnostics in the result; the
// error is only set for an InternalError.
//
// Compiling the same lines twice gives the same output.
func Compile(f *script.File, lines []string, snap Snapshot, opts ...Option) (res *Result, err error) {
	invariant.NotNil(f, "script")
	invariant.NotNil(snap.Table, "syntax table")

	defer func() {
		var v *invariant.Violation
		if errors.As(err, &v) {
			res, err = nil, &InternalError{Script: f.Name, Violation: v}
		}
	}()
	defer invariant.Recover(&err)

	cfg := newConfig(opts)
	start := time.Now()
	var tm Telemetry

	f.Reset()
	var diags diag.List
	p := &command.Parser{
		Table:   snap.Table,
		Objects: snap.Objects,
		Game:    f.Game,
		Scope:   f.Variables,
		Scripts: f.Calls,
		Logger:  cfg.logger,
	}
	for i, text := range lines {
		f.Input = append(f.Input, p.ParseLine(text, i+1, &diags))
	}
	tm.ParseTime = time.Since(start)

	mark := time.Now()
	t := tree.Build(f.Input)
	t.Verify(f, snap.Objects, &diags)
	tm.VerifyTime = time.Since(mark)

	if diags.Empty() {
		mark = time.Now()
		t.Linearize(f, snap.Table)
		tm.LinearizeTime = time.Since(mark)
	}
	tm.TotalTime = time.Since(start)

	res = &Result{Script: f, Tree: t, Diagnostics: diags.Items()}
	tm.Lines = len(lines)
	tm.Standard = len(f.StdOutput)
	tm.Auxiliary = len(f.AuxOutput)
	tm.Diagnostics = len(res.Diagnostics)

	switch cfg.telemetry {
	case TelemetryBasic:
		tm.ParseTime, tm.VerifyTime, tm.LinearizeTime, tm.TotalTime = 0, 0, 0, 0
		res.Telemetry = &tm
	case TelemetryTiming:
		res.Telemetry = &tm
	}

	if cfg.logger != nil {
		cfg.logger.Debug("compiled script",
			"script", f.Name,
			"game", f.Game.String(),
			"lines", tm.Lines,
			"standard", tm.Standard,
			"auxiliary", tm.Auxiliary,
			"diagnostics", tm.Diagnostics,
			"duration", tm.TotalTime)
	}
	return res, nil
}

// SplitLines splits source text into lines. A trailing newline does not
// start another line, and carriage returns before newlines are dropped.
func SplitLines(src string) []string {
	if src == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(src, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
