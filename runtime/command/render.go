package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/expr"
	"github.com/opal-lang/msci/runtime/lexer"
	"github.com/opal-lang/msci/runtime/syntax"
)

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Render writes a command back as source text for a game release. Parsing
// the result yields an equal command.
func Render(c *Command, game types.GameVersion) string {
	if c.Commented {
		inner := *c
		inner.Commented = false
		return "* " + Render(&inner, game)
	}

	switch c.ID() {
	case syntax.CmdUnrecognised:
		return c.Text
	case syntax.CmdNOP:
		return ""
	case syntax.CmdComment:
		return "*" + c.Params[0].Text
	case syntax.CmdDefineLabel:
		name, _ := c.Label()
		return name + ":"
	case syntax.CmdExpression:
		return joinPrefix(c.Return.Prefix(), renderExpression(c, game))
	}

	out := renderTemplate(c)
	switch {
	case len(c.VarArgs) == 0:
	case c.ID() == syntax.CmdCallScript:
		args := make([]string, len(c.VarArgs))
		for i, arg := range c.VarArgs {
			args[i] = arg.Name + "=" + arg.Text
		}
		out += " " + strings.Join(args, " ")
	default:
		values := make([]string, len(c.VarArgs))
		for i, arg := range c.VarArgs {
			values[i] = arg.Text
		}
		out += " " + strings.Join(values, ", ")
	}
	return out
}

// renderTemplate substitutes parameter text into the syntax template. The
// return-value placeholder becomes the prefix; an empty prefix takes its
// following space with it.
func renderTemplate(c *Command) string {
	var b strings.Builder
	text := c.Syntax.Text
	for {
		loc := placeholder.FindStringSubmatchIndex(text)
		if loc == nil {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:loc[0]])
		n, _ := strconv.Atoi(text[loc[2]:loc[3]])
		text = text[loc[1]:]

		param, _ := c.Param(n)
		if param.Syntax.Type == types.ParamRetVar {
			prefix := c.Return.Prefix()
			if prefix == "" {
				text = strings.TrimPrefix(text, " ")
			}
			b.WriteString(prefix)
			continue
		}
		b.WriteString(param.Text)
	}
}

func joinPrefix(prefix, body string) string {
	if prefix == "" {
		return body
	}
	return prefix + " " + body
}

// renderExpression writes the infix form with operators spelled for game.
func renderExpression(c *Command, game types.GameVersion) string {
	if c.Expression == nil {
		return ""
	}
	operands := make(map[int]string, len(c.Terms))
	for _, t := range c.Terms {
		operands[t.Token.Start] = t.Text
	}

	var b strings.Builder
	glue := false
	infix := c.Expression.Infix
	for i, item := range infix {
		if glue && item.Kind != expr.ItemCloseBracket {
			b.WriteByte(' ')
		}
		glue = true
		switch item.Kind {
		case expr.ItemOperand:
			b.WriteString(operands[item.Token.Start])
		case expr.ItemOperator:
			b.WriteString(item.Op.Spelling(game))
			// '- 5' must not collapse into the literal -5
			if item.Op.IsUnary() && !(item.Op == expr.OpNegate && i+1 < len(infix) && infix[i+1].Token.Type == lexer.NUMBER) {
				glue = false
			}
		case expr.ItemOpenBracket:
			b.WriteString("(")
			glue = false
		case expr.ItemCloseBracket:
			b.WriteString(")")
		}
	}
	return b.String()
}
