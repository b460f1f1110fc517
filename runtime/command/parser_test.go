package command

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/msci/core/diag"
	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/expr"
	"github.com/opal-lang/msci/runtime/syntax"
)

// testScope numbers variables in order of first use
type testScope map[string]int

func (s testScope) Declare(name string) int {
	if id, ok := s[name]; ok {
		return id
	}
	id := len(s)
	s[name] = id
	return id
}

type fakeScripts map[string][]string

func (f fakeScripts) ArgumentNames(script string) ([]string, bool) {
	names, ok := f[script]
	return names, ok
}

func newTestParser(game types.GameVersion) *Parser {
	table, objects := syntax.Builtin()
	return &Parser{Table: table, Objects: objects, Game: game, Scope: testScope{}}
}

// parseOK parses a line that must not produce diagnostics
func parseOK(t *testing.T, p *Parser, text string) *Command {
	t.Helper()
	var diags diag.List
	cmd := p.ParseLine(text, 1, &diags)
	require.True(t, diags.Empty(), "unexpected diagnostics for %q: %v", text, diags.Messages())
	return cmd
}

func TestParseReturnValue(t *testing.T) {
	tests := []struct {
		line   string
		id     int
		want   ReturnValue
		branch Branch
	}{
		{"$ps = get player ship", 123, ReturnValue{Kind: ReturnAssign, Variable: "ps"}, BranchNone},
		{"get player ship", 123, ReturnValue{Kind: ReturnDiscard}, BranchNone},
		{"if $ship -> exists", 122, ReturnValue{Kind: ReturnConditional, Cond: CondIf}, BranchIf},
		{"if not $ship -> exists", 122, ReturnValue{Kind: ReturnConditional, Cond: CondIfNot}, BranchIf},
		{"skip if $ship -> exists", 122, ReturnValue{Kind: ReturnConditional, Cond: CondSkipIf}, BranchSkipIf},
		{"skip if not $ship -> exists", 122, ReturnValue{Kind: ReturnConditional, Cond: CondSkipIfNot}, BranchSkipIf},
		{"while $i < 10", syntax.CmdExpression, ReturnValue{Kind: ReturnConditional, Cond: CondWhile}, BranchWhile},
		{"else if not $x == 1", syntax.CmdExpression, ReturnValue{Kind: ReturnConditional, Cond: CondElseIfNot}, BranchElseIf},
		{"start $ship -> fly to sector {Argon Prime}", 131, ReturnValue{Kind: ReturnStart}, BranchNone},
		{"write to player logbook 'hi'", 133, ReturnValue{}, BranchNone},
		{"else", syntax.CmdElse, ReturnValue{}, BranchElse},
		{"end", syntax.CmdEnd, ReturnValue{}, BranchEnd},
		{"break", syntax.CmdBreak, ReturnValue{}, BranchBreak},
		{"continue", syntax.CmdContinue, ReturnValue{}, BranchContinue},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd := parseOK(t, newTestParser(types.GameX3TC), tt.line)
			assert.Equal(t, tt.id, cmd.ID())
			if diff := cmp.Diff(tt.want, cmd.Return); diff != "" {
				t.Errorf("return value mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.branch, cmd.Branch())
		})
	}
}

func TestParseParameters(t *testing.T) {
	p := newTestParser(types.GameX3TC)

	cmd := parseOK(t, p, "$amount = $ship -> get amount of ware {Energy Cells} in cargo bay")
	require.Len(t, cmd.Params, 3)
	assert.Equal(t, IntValue(types.DTInteger, 0), cmd.Params[0].Value, "retvar packs variable 0")
	assert.Equal(t, IntValue(types.DTVariable, 1), cmd.Params[1].Value)
	assert.Equal(t, IntValue(types.DTWare, 1001), cmd.Params[2].Value)
	assert.Equal(t, RefGameObject, cmd.Params[2].Ref)
	assert.Equal(t, "{Energy Cells}", cmd.Params[2].Text)

	cmd = parseOK(t, p, "write to player logbook 'it\\'s here'")
	assert.Equal(t, StringValue("it's here"), cmd.Params[0].Value)

	cmd = parseOK(t, p, "$r = $ship -> get relation to race [Boron]")
	assert.Equal(t, IntValue(types.DTRace, 2), cmd.Params[2].Value)
	assert.Equal(t, RefScriptObject, cmd.Params[2].Ref)

	cmd = parseOK(t, p, "$f = $ship -> get hull")
	assert.Equal(t, IntValue(types.DTVariable, p.Scope.Declare("ship")), cmd.Params[1].Value)
}

func TestParseDisplayOrder(t *testing.T) {
	cmd := parseOK(t, newTestParser(types.GameX3TC), "set element 2 of array $arr to 5")
	require.Equal(t, 113, cmd.ID())

	physical := cmd.PhysicalParams()
	assert.Equal(t, IntValue(types.DTVariable, 0), physical[0].Value)
	assert.Equal(t, IntValue(types.DTInteger, 2), physical[1].Value)
	assert.Equal(t, IntValue(types.DTInteger, 5), physical[2].Value)

	var display []string
	for _, param := range cmd.DisplayParams() {
		display = append(display, param.Text)
	}
	if diff := cmp.Diff([]string{"2", "$arr", "5"}, display); diff != "" {
		t.Errorf("display order mismatch (-want +got):\n%s", diff)
	}
}

func TestDisplayParamsRejectsBadIndices(t *testing.T) {
	tests := []struct {
		name    string
		display []int
		want    string
	}{
		{"out of range", []int{1, 0, 3}, "display index 3 out of range"},
		{"negative", []int{-1, 0, 2}, "display index -1 out of range"},
		{"duplicate", []int{1, 1, 2}, "display index 1 used twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := parseOK(t, newTestParser(types.GameX3TC), "set element 2 of array $arr to 5")
			require.Len(t, cmd.Params, len(tt.display))
			for i, d := range tt.display {
				cmd.Params[i].Syntax.Display = d
			}

			err := func() (err error) {
				defer invariant.Recover(&err)
				cmd.DisplayParams()
				return nil
			}()
			require.Error(t, err)
			var v *invariant.Violation
			assert.True(t, errors.As(err, &v))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		game types.GameVersion
		line string
		want []string
		kind diag.Kind
	}{
		{"unknown command", types.GameX3TC, "fly me to the moon", []string{"Unrecognised command"}, diag.SyntaxMatch},
		{"other release", types.GameX3TC, "$n = $ship -> get object name", []string{"Command not supported by X3TC"}, diag.SyntaxMatch},
		{"assign without result", types.GameX3TC, "$x = write to player logbook 'a'", []string{"Command does not return a value"}, diag.SyntaxMatch},
		{"condition without result", types.GameX3TC, "if write to player logbook 'a'", []string{"Command cannot be used as a conditional"}, diag.SyntaxMatch},
		{"start serial command", types.GameX3TC, "start get player ship", []string{"Command cannot be started concurrently"}, diag.SyntaxMatch},
		{"unterminated string", types.GameX3TC, "write to player logbook 'abc", []string{"Unrecognised text ''abc'"}, diag.LexicalAmbiguity},
		{"missing operand", types.GameX3TC, "$x = 1 +", []string{"Missing operand"}, diag.ExpressionSyntax},
		{"missing bracket", types.GameX3TC, "$x = (1 + 2", []string{"Missing closing bracket"}, diag.ExpressionSyntax},
		{"wrong parameter type", types.GameX3TC, "$r = $ship -> get relation to race 5", []string{"'5' is not a valid race parameter"}, diag.SyntaxMatch},
		{"number out of range", types.GameX3TC, "$x = $ship -> get amount of ware 99999999999 in cargo bay", []string{"Number '99999999999' is out of range"}, diag.SyntaxMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diags diag.List
			newTestParser(tt.game).ParseLine(tt.line, 7, &diags)
			if diff := cmp.Diff(tt.want, diags.Messages()); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}
			for _, d := range diags.Items() {
				assert.Equal(t, tt.kind, d.Kind)
				assert.Equal(t, 7, d.Line)
				assert.Equal(t, tt.line, d.LineText)
			}
		})
	}
}

func TestUnsupportedInOlderRelease(t *testing.T) {
	cmd := parseOK(t, newTestParser(types.GameX2), "$n = $ship -> get object name")
	assert.Equal(t, 137, cmd.ID())
}

func TestUnrecognisedKeepsBranch(t *testing.T) {
	var diags diag.List
	cmd := newTestParser(types.GameX3TC).ParseLine("while fly me", 1, &diags)
	assert.True(t, cmd.IsUnrecognised())
	assert.Equal(t, BranchWhile, cmd.Branch())
	assert.Equal(t, 1, diags.Len())
}

func TestUnresolvedObjectsDeferred(t *testing.T) {
	cmd := parseOK(t, newTestParser(types.GameX3TC), "$r = $ship -> get relation to race [Klingon]")
	param := cmd.Params[2]
	assert.True(t, param.Unresolved)
	assert.Equal(t, Value{Type: types.DTUnknown, Str: "Klingon"}, param.Value)

	// Earth only exists from X3TC on
	cmd = parseOK(t, newTestParser(types.GameX3R), "start $ship -> fly to sector {Earth}")
	assert.True(t, cmd.Params[2].Unresolved)
}

func TestParseComments(t *testing.T) {
	p := newTestParser(types.GameX3TC)

	cmd := parseOK(t, p, "* just a note")
	assert.Equal(t, syntax.CmdComment, cmd.ID())
	assert.Equal(t, " just a note", cmd.Params[0].Value.Str)
	assert.True(t, cmd.IsAuxiliary())

	cmd = parseOK(t, p, "* $name = $ship -> get name")
	assert.Equal(t, 120, cmd.ID())
	assert.True(t, cmd.Commented)
	assert.True(t, cmd.IsAuxiliary())
	assert.Equal(t, BranchNOP, cmd.Branch())

	cmd = parseOK(t, p, "* if $ship -> exists")
	assert.Equal(t, BranchNOP, cmd.Branch(), "commented conditionals do not open blocks")

	cmd = parseOK(t, p, "")
	assert.Equal(t, syntax.CmdNOP, cmd.ID())
	assert.Equal(t, BranchNOP, cmd.Branch())

	cmd = parseOK(t, p, "retry:")
	assert.Equal(t, syntax.CmdDefineLabel, cmd.ID())
	name, ok := cmd.Label()
	assert.True(t, ok)
	assert.Equal(t, "retry", name)
}

func TestParseExpression(t *testing.T) {
	cmd := parseOK(t, newTestParser(types.GameX3TC), "$x = 1 + 2 * 3")
	require.Equal(t, syntax.CmdExpression, cmd.ID())

	var terms []string
	for _, term := range cmd.Terms {
		terms = append(terms, term.Text)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "*", "+"}, terms); diff != "" {
		t.Errorf("postfix mismatch (-want +got):\n%s", diff)
	}

	want := []Value{
		IntValue(types.DTInteger, 0), // $x
		IntValue(types.DTInteger, 5),
		IntValue(types.DTInteger, 1),
		IntValue(types.DTInteger, 2),
		IntValue(types.DTInteger, 3),
		IntValue(types.DTOperator, expr.OpMultiply.Code()),
		IntValue(types.DTOperator, expr.OpAdd.Code()),
		IntValue(types.DTInteger, 5),
		IntValue(types.DTInteger, 0),
		IntValue(types.DTInteger, 4),
		IntValue(types.DTInteger, 1),
		IntValue(types.DTInteger, 3),
		IntValue(types.DTInteger, 2),
	}
	if diff := cmp.Diff(want, cmd.Output()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestExpressionBrackets(t *testing.T) {
	cmd := parseOK(t, newTestParser(types.GameX3TC), "if ($a + 1) == 2")
	out := cmd.Output()
	// retvar, 5 postfix items, then the infix stream
	infix := out[7:]
	assert.Equal(t, IntValue(types.DTInteger, 7), infix[0])
	assert.Equal(t, IntValue(types.DTOperator, expr.CodeOpenBracket), infix[1])
	assert.Equal(t, IntValue(types.DTOperator, expr.CodeCloseBracket), infix[5])
}

func TestSingleOperandNeedsPrefix(t *testing.T) {
	var diags diag.List
	cmd := newTestParser(types.GameX3TC).ParseLine("$x", 1, &diags)
	assert.True(t, cmd.IsUnrecognised())
	assert.Equal(t, []string{"Unrecognised command"}, diags.Messages())

	cmd = parseOK(t, newTestParser(types.GameX3TC), "$x = $y")
	assert.Equal(t, syntax.CmdExpression, cmd.ID())
}

func TestScriptCallArguments(t *testing.T) {
	p := newTestParser(types.GameX3TC)
	p.Scripts = fakeScripts{"lib.test": {"count", "name"}}

	cmd := parseOK(t, p, "$r = null -> call script 'lib.test' : count=5 name='x'")
	require.Len(t, cmd.VarArgs, 2)
	assert.Equal(t, "count", cmd.VarArgs[0].Name)
	assert.Equal(t, IntValue(types.DTInteger, 5), cmd.VarArgs[0].Value)
	assert.Equal(t, StringValue("x"), cmd.VarArgs[1].Value)

	out := cmd.Output()
	assert.Equal(t, IntValue(types.DTInteger, 2), out[3], "argument count follows the fixed parameters")

	var diags diag.List
	p.ParseLine("$r = null -> call script 'lib.test' : cuont=5", 1, &diags)
	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, "Script 'lib.test' has no argument 'cuont' at position 1", d.Message)
	assert.Equal(t, "count", d.Suggestion)

	diags = diag.List{}
	p.ParseLine("$r = null -> call script 'lib.test' : 1 2 3", 1, &diags)
	assert.Equal(t, []string{"Script 'lib.test' takes 2 arguments"}, diags.Messages())
}

func TestScriptCallMissingValue(t *testing.T) {
	tests := []struct {
		line  string
		want  []string
		start int
	}{
		{"$r = null -> call script 'lib.test' : count=", []string{"Missing value for argument 'count'"}, 38},
		{"$r = null -> call script 'lib.test' : count=5 name=", []string{"Missing value for argument 'name'"}, 46},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			p := newTestParser(types.GameX3TC)
			p.Scripts = fakeScripts{"lib.test": {"count", "name"}}

			var diags diag.List
			p.ParseLine(tt.line, 1, &diags)
			if diff := cmp.Diff(tt.want, diags.Messages()); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, 1, diags.Len())
			assert.Equal(t, tt.start, diags.Items()[0].Start)
			assert.Equal(t, len(tt.line)-tt.start, diags.Items()[0].Length)
		})
	}
}

func TestScriptCallUnknownScript(t *testing.T) {
	cmd := parseOK(t, newTestParser(types.GameX3TC), "start null -> call script 'other' : 1 'two'")
	require.Len(t, cmd.VarArgs, 2)
	assert.Equal(t, "argument1", cmd.VarArgs[0].Name)
	assert.Equal(t, "argument2", cmd.VarArgs[1].Name)
	assert.Equal(t, ReturnStart, cmd.Return.Kind)
}

func TestDimExpansion(t *testing.T) {
	p := newTestParser(types.GameX3TC)
	cmd := parseOK(t, p, "dim $arr = 1, 2, 'three'")
	require.True(t, cmd.IsMacro())
	require.Len(t, cmd.Expansion, 4)

	alloc := cmd.Expansion[0]
	assert.Equal(t, syntax.CmdArrayAlloc, alloc.ID())
	assert.Equal(t, ReturnValue{Kind: ReturnAssign, Variable: "arr"}, alloc.Return)
	assert.Equal(t, []Value{IntValue(types.DTInteger, 0), IntValue(types.DTInteger, 3)}, alloc.Output())

	last := cmd.Expansion[3]
	assert.Equal(t, syntax.CmdSetArrayValue, last.ID())
	want := []Value{IntValue(types.DTVariable, 0), IntValue(types.DTInteger, 2), StringValue("three")}
	if diff := cmp.Diff(want, last.Output()); diff != "" {
		t.Errorf("element output mismatch (-want +got):\n%s", diff)
	}
	for _, sub := range cmd.Expansion {
		assert.Equal(t, 1, sub.Line)
	}
}

func TestSetJump(t *testing.T) {
	cmd := parseOK(t, newTestParser(types.GameX3TC), "while $ship -> exists")
	cmd.SetJump(42)
	jump, ok := cmd.Jump()
	assert.True(t, ok)
	assert.Equal(t, 42, jump)

	rv, _, decoded := DecodeReturnValue(cmd.Params[0].Value.Int)
	assert.Equal(t, ReturnValue{Kind: ReturnConditional, Cond: CondWhile}, rv)
	assert.Equal(t, 42, decoded)
}
