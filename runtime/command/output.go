package command

import (
	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/expr"
)

// SetJump stores the jump target of a conditional in its return value.
func (c *Command) SetJump(jump int) {
	invariant.Precondition(c.Return.Kind == ReturnConditional, "line %d: jump on a non-conditional command", c.Line)
	retvar, ok := c.Syntax.RetVar()
	invariant.Invariant(ok, "line %d: conditional command %d has no return value", c.Line, c.ID())
	for i := range c.Params {
		if c.Params[i].Syntax.Physical == retvar.Physical {
			c.Params[i].Value = IntValue(types.DTInteger, c.Return.Encode(-1, jump))
		}
	}
}

// Jump returns the decoded jump target of a conditional.
func (c *Command) Jump() (int, bool) {
	retvar, ok := c.Syntax.RetVar()
	if !ok || c.Return.Kind != ReturnConditional {
		return 0, false
	}
	param, _ := c.Param(retvar.Physical)
	_, _, jump := DecodeReturnValue(param.Value.Int)
	return jump, true
}

// Output returns the values a command compiles to, in physical order.
//
// Expressions compile to the return value, the postfix items (prefixed by
// their count) and the infix display order (prefixed by its count), where
// each infix entry is the postfix index of an operand or operator, or a
// bracket code. Variable-argument commands append the argument count and
// the arguments.
func (c *Command) Output() []Value {
	fixed := c.PhysicalParams()
	out := make([]Value, 0, len(fixed)+len(c.VarArgs)+2*len(c.Terms)+2)

	if c.Expression == nil {
		for _, p := range fixed {
			out = append(out, p.Value)
		}
		if c.Syntax.VarArgs {
			out = append(out, IntValue(types.DTInteger, len(c.VarArgs)))
			for _, p := range c.VarArgs {
				out = append(out, p.Value)
			}
		}
		return out
	}

	retvar, _ := c.Syntax.RetVar()
	for _, p := range fixed {
		if p.Syntax.Physical == retvar.Physical {
			out = append(out, p.Value)
		}
	}
	out = append(out, IntValue(types.DTInteger, len(c.Terms)))
	index := make(map[int]int, len(c.Terms))
	for i, t := range c.Terms {
		out = append(out, t.Value)
		index[t.Token.Start] = i
	}

	infix := c.Expression.Infix
	out = append(out, IntValue(types.DTInteger, len(infix)))
	for _, item := range infix {
		switch item.Kind {
		case expr.ItemOpenBracket:
			out = append(out, IntValue(types.DTOperator, expr.CodeOpenBracket))
		case expr.ItemCloseBracket:
			out = append(out, IntValue(types.DTOperator, expr.CodeCloseBracket))
		default:
			i, ok := index[item.Token.Start]
			invariant.Invariant(ok, "line %d: infix item at %d missing from postfix", c.Line, item.Token.Start)
			out = append(out, IntValue(types.DTInteger, i))
		}
	}
	return out
}
