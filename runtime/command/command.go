// Package command turns single MSCI source lines into commands: it matches a
// line against the syntax table, decodes its return value, resolves its
// parameters and renders commands back to source text.
package command

import (
	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/expr"
	"github.com/opal-lang/msci/runtime/syntax"
)

// Order says how a command's parameters are arranged.
type Order int

const (
	PhysicalOrder Order = iota // as compiled (parsed from source)
	DisplayOrder               // as written in the template
)

// Command is one parsed script command.
type Command struct {
	Syntax    *syntax.Syntax
	Params    []Parameter // fixed parameters, in Order
	Order     Order
	VarArgs   []Parameter // trailing variable arguments
	Text      string      // source line, as written
	Line      int         // 1-based source line
	Commented bool        // '*'-prefixed command kept for reference
	RefIndex  int         // auxiliary commands: standard index they precede
	Return    ReturnValue

	// Expression is set for expression commands. Terms holds its postfix
	// items: resolved operands, and operators as DTOperator codes.
	Expression *expr.Expression
	Terms      []Parameter

	// Expansion holds the standard commands a macro compiles to.
	Expansion []*Command
}

// ID returns the command syntax ID
func (c *Command) ID() int {
	if c == nil || c.Syntax == nil {
		return syntax.CmdUnrecognised
	}
	return c.Syntax.ID
}

// IsUnrecognised reports whether no syntax matched.
func (c *Command) IsUnrecognised() bool {
	return c.Syntax.IsUnrecognised()
}

// IsAuxiliary reports whether the command compiles into the auxiliary stream:
// comments, commented commands, labels, blank lines and the branch keywords
// that are realised as jumps.
func (c *Command) IsAuxiliary() bool {
	return c.Commented || c.Syntax.Class == types.ClassAuxiliary
}

// IsMacro reports whether the command expands into other commands.
func (c *Command) IsMacro() bool {
	return !c.Commented && c.Syntax.Class == types.ClassMacro
}

// Branch returns the branch-logic category. Keyword commands are classified
// by ID; everything else by its decoded return value.
func (c *Command) Branch() Branch {
	if c.Commented {
		return BranchNOP
	}
	switch c.ID() {
	case syntax.CmdNOP, syntax.CmdComment, syntax.CmdDefineLabel:
		return BranchNOP
	case syntax.CmdElse:
		return BranchElse
	case syntax.CmdEnd:
		return BranchEnd
	case syntax.CmdBreak:
		return BranchBreak
	case syntax.CmdContinue:
		return BranchContinue
	}
	if c.Return.Kind == ReturnConditional {
		return conditionalBranch(c.Return.Cond)
	}
	return BranchNone
}

// Param returns the parameter with the given physical index.
func (c *Command) Param(physical int) (Parameter, bool) {
	for _, p := range c.Params {
		if p.Syntax.Physical == physical {
			return p, true
		}
	}
	return Parameter{}, false
}

// PhysicalParams returns the fixed parameters in physical order.
func (c *Command) PhysicalParams() []Parameter {
	if c.Order == PhysicalOrder {
		return c.Params
	}
	out := make([]Parameter, len(c.Params))
	copy(out, c.Params)
	sortPhysical(out)
	return out
}

// DisplayParams returns the fixed parameters in display order.
func (c *Command) DisplayParams() []Parameter {
	if c.Order == DisplayOrder {
		return c.Params
	}
	out := make([]Parameter, len(c.Params))
	seen := make([]bool, len(c.Params))
	for _, p := range c.Params {
		d := p.Syntax.Display
		invariant.Invariant(d >= 0 && d < len(out), "syntax %d: display index %d out of range", c.ID(), d)
		invariant.Invariant(!seen[d], "syntax %d: display index %d used twice", c.ID(), d)
		seen[d] = true
		out[d] = p
	}
	return out
}

// Label returns the label name a goto/gosub or label definition refers to.
func (c *Command) Label() (string, bool) {
	switch c.ID() {
	case syntax.CmdGotoLabel, syntax.CmdGotoSub, syntax.CmdDefineLabel:
		if len(c.Params) > 0 {
			p := c.Params[0]
			if p.Value.Type == types.DTString {
				return p.Value.Str, true
			}
			return p.Text, true
		}
	}
	return "", false
}

func sortPhysical(ps []Parameter) {
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && ps[j].Syntax.Physical < ps[j-1].Syntax.Physical; j-- {
			ps[j], ps[j-1] = ps[j-1], ps[j]
		}
	}
}

// NewCommand builds a command for a syntax with parameters in physical order.
// Used for synthesized commands such as jumps and macro expansions.
func NewCommand(s *syntax.Syntax, line int, params ...Parameter) *Command {
	return &Command{Syntax: s, Params: params, Order: PhysicalOrder, Line: line}
}
