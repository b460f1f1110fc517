package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/lexer"
	"github.com/opal-lang/msci/runtime/syntax"
)

// Value is a tagged parameter value: exactly one of Int, Str or Float is
// meaningful, depending on Type.
type Value struct {
	Type  types.DataType
	Int   int
	Str   string
	Float float64
}

// IntValue returns an integer-carrying value of the given type.
func IntValue(t types.DataType, n int) Value {
	return Value{Type: t, Int: n}
}

// StringValue returns a string value.
func StringValue(s string) Value {
	return Value{Type: types.DTString, Str: s}
}

// Equal compares type and value, ignoring how the value was written.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case types.DTString:
		return v.Str == o.Str
	case types.DTFloat:
		return v.Float == o.Float
	case types.DTUnknown:
		return v.Str == o.Str
	default:
		return v.Int == o.Int
	}
}

func (v Value) String() string {
	switch v.Type {
	case types.DTString, types.DTUnknown:
		return fmt.Sprintf("%s:%q", v.Type, v.Str)
	case types.DTFloat:
		return fmt.Sprintf("%s:%g", v.Type, v.Float)
	default:
		return fmt.Sprintf("%s:%d", v.Type, v.Int)
	}
}

// RefKind says which name table a parameter value was resolved against.
type RefKind int

const (
	RefNone RefKind = iota
	RefGameObject
	RefScriptObject
	RefLabel
)

// Parameter is one resolved parameter of a parsed command.
type Parameter struct {
	Syntax syntax.Param
	Value  Value
	Text   string      // display text, e.g. "$ship", "'hello'", "{Energy Cells}"
	Token  lexer.Token // source token; zero for synthesized parameters
	Name   string      // argument name of a variable argument

	Ref        RefKind
	Unresolved bool // Ref named something the tables do not know
}

// Equal compares type and value only, independent of source formatting.
func (p Parameter) Equal(o Parameter) bool {
	return p.Value.Equal(o.Value)
}

// Scope resolves variable names to dense IDs. Declare registers a name on
// first use.
type Scope interface {
	Declare(name string) int
}

// resolve converts a slot token into a parameter value. A non-empty problem
// describes a value that could not be represented.
func (p *Parser) resolve(tok lexer.Token, param syntax.Param) (out Parameter, problem string) {
	out = Parameter{Syntax: param, Token: tok}
	switch tok.Type {
	case lexer.VARIABLE:
		out.Value = IntValue(types.DTVariable, p.Scope.Declare(tok.Text))
		out.Text = "$" + tok.Text

	case lexer.NUMBER:
		out.Text = tok.Text
		if strings.Contains(tok.Text, ".") {
			f, err := strconv.ParseFloat(tok.Text, 64)
			if err != nil {
				return out, fmt.Sprintf("Invalid number '%s'", tok.Text)
			}
			out.Value = Value{Type: types.DTFloat, Float: f}
		} else {
			n, err := strconv.ParseInt(tok.Text, 10, 32)
			if err != nil {
				return out, fmt.Sprintf("Number '%s' is out of range", tok.Text)
			}
			out.Value = IntValue(types.DTInteger, int(n))
		}

	case lexer.STRING:
		out.Value = StringValue(tok.Text)
		out.Text = QuoteString(tok.Text)

	case lexer.NULL:
		out.Value = IntValue(types.DTNull, 0)
		out.Text = "null"

	case lexer.GAME_OBJECT:
		out.Text = "{" + tok.Text + "}"
		out.Ref = RefGameObject
		out.Value, out.Unresolved = p.lookupObject(tok.Text, true)

	case lexer.SCRIPT_OBJECT:
		out.Text = "[" + tok.Text + "]"
		out.Ref = RefScriptObject
		out.Value, out.Unresolved = p.lookupObject(tok.Text, false)

	default:
		// bare words only make sense as label names
		out.Text = tok.Text
		if param.Type == types.ParamLabel || param.Type == types.ParamScriptName {
			out.Value = StringValue(tok.Text)
			out.Ref = RefLabel
		} else {
			out.Value = Value{Type: types.DTUnknown, Str: tok.Text}
		}
	}
	return out, ""
}

func (p *Parser) lookupObject(name string, game bool) (Value, bool) {
	if p.Objects != nil {
		var obj syntax.Object
		var ok bool
		if game {
			obj, ok = p.Objects.GameObject(name, p.Game)
		} else {
			obj, ok = p.Objects.ScriptObject(name, p.Game)
		}
		if ok {
			return IntValue(obj.Type, obj.ID), false
		}
	}
	// keep the name so the value still compares and renders sensibly
	return Value{Type: types.DTUnknown, Str: name}, true
}

// QuoteString renders a string literal with single quotes.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
