package tree

import (
	"fmt"
	"strings"

	"github.com/opal-lang/msci/core/diag"
	"github.com/opal-lang/msci/runtime/command"
	"github.com/opal-lang/msci/runtime/script"
	"github.com/opal-lang/msci/runtime/syntax"
)

// Verify checks branch logic, labels and references, defining the script's
// labels on the way. Every problem is reported; verification does not stop
// at the first. It reports whether the tree is fit for linearization.
func (t *Tree) Verify(f *script.File, objects *syntax.Objects, diags *diag.List) bool {
	before := diags.Len()
	v := &verifier{t: t, f: f, objects: objects, diags: diags}

	t.Walk(v.node)
	v.labels()
	v.script()

	t.verified = diags.Len() == before
	return t.verified
}

type verifier struct {
	t       *Tree
	f       *script.File
	objects *syntax.Objects
	diags   *diag.List
	gotos   []Handle
}

// report adds a diagnostic spanning the command text of h.
func (v *verifier) report(h Handle, kind diag.Kind, format string, args ...interface{}) {
	cmd := v.t.nodes[h].cmd
	text := strings.TrimRight(cmd.Text, " \t")
	start := len(text) - len(strings.TrimLeft(text, " \t"))
	v.diags.Addf(kind, cmd.Line, cmd.Text, start, len(text)-start, format, args...)
}

func (v *verifier) node(h Handle) {
	t := v.t
	cmd := t.nodes[h].cmd

	switch cmd.Branch() {
	case command.BranchIf:
		v.block(h, "'if' conditional is missing matching 'end'")
		v.alternatives(h)
	case command.BranchWhile:
		v.block(h, "'while' conditional is missing matching 'end'")
	case command.BranchElse, command.BranchElseIf:
		parent := t.nodes[h].parent
		if t.Branch(parent) != command.BranchIf {
			v.report(h, diag.BranchLogic, "else/else-if outside 'if' conditional")
			break
		}
		t.nodes[h].jump = parent
	case command.BranchEnd:
		parent := t.nodes[h].parent
		if b := t.Branch(parent); b != command.BranchIf && b != command.BranchWhile {
			v.report(h, diag.BranchLogic, "'end' outside 'if' or 'while' conditional")
			break
		}
		t.nodes[h].jump = parent
	case command.BranchBreak, command.BranchContinue:
		loop := v.enclosingWhile(h)
		if loop == None {
			v.report(h, diag.BranchLogic, "break/continue outside 'while' conditional")
			break
		}
		t.nodes[h].jump = loop
	case command.BranchSkipIf:
		if len(t.nodes[h].children) != 1 {
			v.report(h, diag.BranchLogic, "'skip-if' must be followed by a standard command")
		}
	}

	switch cmd.ID() {
	case syntax.CmdDefineLabel:
		if cmd.Commented {
			break
		}
		name, _ := cmd.Label()
		if _, ok := v.f.Labels.Define(name, cmd.Line); !ok {
			v.report(h, diag.UnresolvedReference, "Label '%s' is already defined", name)
		}
	case syntax.CmdGotoLabel, syntax.CmdGotoSub:
		if !cmd.Commented {
			v.gotos = append(v.gotos, h)
		}
	}

	if !cmd.Commented {
		v.references(cmd)
	}
}

// block checks that an If or While is closed by its last child.
func (v *verifier) block(h Handle, missing string) {
	children := v.t.nodes[h].children
	if len(children) == 0 || v.t.Branch(children[len(children)-1]) != command.BranchEnd {
		v.report(h, diag.BranchLogic, "%s", missing)
	}
}

// alternatives checks that no else-if follows an else.
func (v *verifier) alternatives(h Handle) {
	seenElse := false
	for _, c := range v.t.nodes[h].children {
		switch v.t.Branch(c) {
		case command.BranchElseIf:
			if seenElse {
				v.report(c, diag.BranchLogic, "'else-if' must precede 'else'")
			}
		case command.BranchElse:
			if seenElse {
				v.report(c, diag.BranchLogic, "'if' conditional already has an 'else'")
			}
			seenElse = true
		}
	}
}

// enclosingWhile finds the nearest While above h, looking through If,
// Else, ElseIf and SkipIf blocks.
func (v *verifier) enclosingWhile(h Handle) Handle {
	for p := v.t.nodes[h].parent; p != Root && p != None; p = v.t.nodes[p].parent {
		if v.t.Branch(p) == command.BranchWhile {
			return p
		}
	}
	return None
}

func (v *verifier) references(cmd *command.Command) {
	for _, params := range [][]command.Parameter{cmd.Params, cmd.VarArgs, cmd.Terms} {
		for _, p := range params {
			if !p.Unresolved {
				continue
			}
			switch p.Ref {
			case command.RefGameObject:
				v.unresolved(cmd, p, "Unknown game object '%s'", v.gameObjectNames())
			case command.RefScriptObject:
				v.unresolved(cmd, p, "Unknown script object '%s'", v.scriptObjectNames())
			}
		}
	}
}

func (v *verifier) unresolved(cmd *command.Command, p command.Parameter, format string, candidates []string) {
	v.diags.Add(diag.Diagnostic{
		Kind:       diag.UnresolvedReference,
		Message:    fmt.Sprintf(format, p.Value.Str),
		Line:       cmd.Line,
		Start:      p.Token.Start,
		Length:     p.Token.Len(),
		LineText:   cmd.Text,
		Suggestion: syntax.Closest(p.Value.Str, candidates),
	})
}

func (v *verifier) gameObjectNames() []string {
	if v.objects == nil {
		return nil
	}
	return v.objects.GameObjectNames()
}

func (v *verifier) scriptObjectNames() []string {
	if v.objects == nil {
		return nil
	}
	return v.objects.ScriptObjectNames()
}

// labels checks goto and gosub targets once every label is defined.
func (v *verifier) labels() {
	names := v.f.Labels.Names()
	for _, h := range v.gotos {
		cmd := v.t.nodes[h].cmd
		name, _ := cmd.Label()
		if _, ok := v.f.Labels.Get(name); ok {
			continue
		}
		p := cmd.Params[0]
		v.diags.Add(diag.Diagnostic{
			Kind:       diag.UnresolvedReference,
			Message:    "Unknown label '" + name + "'",
			Line:       cmd.Line,
			Start:      p.Token.Start,
			Length:     p.Token.Len(),
			LineText:   cmd.Text,
			Suggestion: syntax.Closest(name, names),
		})
	}
}

// script checks the whole-script rules: at least one standard command, and
// 'return' last.
func (v *verifier) script() {
	last := None
	v.t.Walk(func(h Handle) {
		cmd := v.t.nodes[h].cmd
		if !cmd.IsAuxiliary() {
			last = h
		}
	})

	if last == None {
		line, text := 1, ""
		if len(v.t.nodes) > 1 {
			text = v.t.nodes[1].cmd.Text
		}
		v.diags.Addf(diag.BranchLogic, line, text, 0, len(text), "Script must contain at least one command")
		return
	}

	cmd := v.t.nodes[last].cmd
	if !cmd.IsUnrecognised() && !syntax.IsReturn(cmd.ID()) {
		v.report(last, diag.BranchLogic, "Last command in script must be 'return'")
	}
}
