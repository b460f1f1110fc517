package tree

import (
	"strconv"

	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/command"
	"github.com/opal-lang/msci/runtime/script"
	"github.com/opal-lang/msci/runtime/syntax"
)

// Linearize flattens a verified tree into f's standard and auxiliary
// streams.
//
// Standard commands are numbered in source order. Conditionals store where
// to continue when their test fails (for 'skip if', when it holds). The end
// of every if/else-if branch followed by an alternative gets an
// unconditional jump past the 'end'; a while loop gets one back to its test,
// break and continue become jumps out of and back to the loop. Keywords,
// comments, labels and blank lines go to the auxiliary stream, tagged with
// the index of the standard command that follows them, except break and
// continue, which refer to the jump emitted just before them. Finally goto
// and gosub targets are replaced by the index of their label.
func (t *Tree) Linearize(f *script.File, table *syntax.Table) {
	invariant.Precondition(t.verified, "linearizing an unverified tree")
	jump := table.Get(syntax.CmdJump)
	invariant.Invariant(!jump.IsUnrecognised() && len(jump.Params) == 1, "syntax table has no usable jump command")

	l := &linearizer{t: t, f: f, jump: jump}
	for _, h := range t.nodes[Root].children {
		l.emit(h, nil)
	}
	l.resolveLabels()

	f.StdOutput = l.std
	f.AuxOutput = l.aux
}

type linearizer struct {
	t    *Tree
	f    *script.File
	jump *syntax.Syntax
	std  []*command.Command
	aux  []*command.Command
}

// loop tracks the innermost while loop
type loop struct {
	start  int
	breaks []*command.Command
}

func (l *linearizer) next() int {
	return len(l.std)
}

func (l *linearizer) standard(h Handle, c *command.Command) int {
	invariant.Invariant(!c.IsUnrecognised(), "line %d: unrecognised command reached linearization", c.Line)
	i := len(l.std)
	l.std = append(l.std, c)
	if h != None && l.t.nodes[h].index < 0 {
		l.t.nodes[h].index = i
	}
	return i
}

func (l *linearizer) auxiliary(c *command.Command) {
	l.auxiliaryAt(c, l.next())
}

// auxiliaryAt appends an auxiliary command referring to a given standard
// index. Only break and continue refer backwards, to their own jump.
func (l *linearizer) auxiliaryAt(c *command.Command, ref int) {
	c.RefIndex = ref
	l.aux = append(l.aux, c)
}

// jumpTo appends a synthesized jump. Its target may be patched later.
func (l *linearizer) jumpTo(line, target int) *command.Command {
	c := command.NewCommand(l.jump, line, command.IntParameter(l.jump.Params[0], target))
	l.standard(None, c)
	return c
}

func retarget(jump *command.Command, target int) {
	jump.Params[0].Value = command.IntValue(types.DTInteger, target)
	jump.Params[0].Text = strconv.Itoa(target)
}

func (l *linearizer) emit(h Handle, in *loop) {
	c := l.t.nodes[h].cmd
	switch c.Branch() {
	case command.BranchIf:
		l.emitIf(h, in)
	case command.BranchWhile:
		l.emitWhile(h)
	case command.BranchSkipIf:
		l.standard(h, c)
		for _, child := range l.t.nodes[h].children {
			l.emit(child, in)
		}
		c.SetJump(l.next())
	case command.BranchBreak:
		invariant.NotNil(in, "break outside a loop")
		j := l.jumpTo(c.Line, 0)
		in.breaks = append(in.breaks, j)
		l.auxiliaryAt(c, len(l.std)-1)
	case command.BranchContinue:
		invariant.NotNil(in, "continue outside a loop")
		l.jumpTo(c.Line, in.start)
		l.auxiliaryAt(c, len(l.std)-1)
	case command.BranchNOP:
		l.auxiliary(c)
		if name, ok := c.Label(); ok && c.ID() == syntax.CmdDefineLabel && !c.Commented {
			label, found := l.f.Labels.Get(name)
			invariant.Invariant(found, "line %d: label %q was not defined during verification", c.Line, name)
			label.Index = l.next()
		}
	case command.BranchNone:
		if c.IsMacro() {
			for _, sub := range c.Expansion {
				l.standard(h, sub)
			}
			break
		}
		l.standard(h, c)
	default:
		invariant.Invariant(false, "line %d: %s outside its block reached linearization", c.Line, c.Branch())
	}
}

func (l *linearizer) emitIf(h Handle, in *loop) {
	c := l.t.nodes[h].cmd
	l.standard(h, c)

	open := c // conditional whose failure target is still unknown
	var exits []*command.Command
	for _, child := range l.t.nodes[h].children {
		cc := l.t.nodes[child].cmd
		switch cc.Branch() {
		case command.BranchElseIf:
			exits = append(exits, l.jumpTo(cc.Line, 0))
			open.SetJump(l.next())
			l.standard(child, cc)
			open = cc
			for _, gc := range l.t.nodes[child].children {
				l.emit(gc, in)
			}
		case command.BranchElse:
			exits = append(exits, l.jumpTo(cc.Line, 0))
			l.auxiliary(cc)
			open.SetJump(l.next())
			open = nil
			for _, gc := range l.t.nodes[child].children {
				l.emit(gc, in)
			}
		case command.BranchEnd:
			l.auxiliary(cc)
			end := l.next()
			if open != nil {
				open.SetJump(end)
			}
			for _, j := range exits {
				retarget(j, end)
			}
		default:
			l.emit(child, in)
		}
	}
}

func (l *linearizer) emitWhile(h Handle) {
	c := l.t.nodes[h].cmd
	in := &loop{start: l.standard(h, c)}

	for _, child := range l.t.nodes[h].children {
		cc := l.t.nodes[child].cmd
		if cc.Branch() != command.BranchEnd {
			l.emit(child, in)
			continue
		}
		l.jumpTo(cc.Line, in.start)
		l.auxiliary(cc)
		exit := l.next()
		c.SetJump(exit)
		for _, j := range in.breaks {
			retarget(j, exit)
		}
	}
}

// resolveLabels replaces goto and gosub label names by standard indices.
func (l *linearizer) resolveLabels() {
	for _, c := range l.std {
		switch c.ID() {
		case syntax.CmdGotoLabel, syntax.CmdGotoSub:
		default:
			continue
		}
		name, _ := c.Label()
		label, ok := l.f.Labels.Get(name)
		invariant.Invariant(ok, "line %d: unknown label %q reached linearization", c.Line, name)
		for i := range c.Params {
			if c.Params[i].Syntax.Type == types.ParamLabel {
				c.Params[i].Value = command.IntValue(types.DTInteger, label.Index)
			}
		}
	}
}
