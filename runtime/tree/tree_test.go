package tree

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/msci/core/diag"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/command"
	"github.com/opal-lang/msci/runtime/script"
	"github.com/opal-lang/msci/runtime/syntax"
)

// parseLines parses a script and builds its tree. Parse diagnostics are
// required to be empty.
func parseLines(t *testing.T, lines ...string) (*Tree, *script.File) {
	t.Helper()
	table, objects := syntax.Builtin()
	f := script.New("test", types.GameX3TC)
	p := &command.Parser{Table: table, Objects: objects, Game: f.Game, Scope: f.Variables, Scripts: f.Calls}

	var diags diag.List
	for i, line := range lines {
		f.Input = append(f.Input, p.ParseLine(line, i+1, &diags))
	}
	require.True(t, diags.Empty(), "parse diagnostics: %v", diags.Messages())
	return Build(f.Input), f
}

func verify(t *testing.T, lines ...string) (*Tree, *script.File, *diag.List) {
	t.Helper()
	tr, f := parseLines(t, lines...)
	_, objects := syntax.Builtin()
	var diags diag.List
	tr.Verify(f, objects, &diags)
	return tr, f, &diags
}

var loopScript = []string{
	"$i = 0",
	"while $i < 3",
	"  if $i == 1",
	"    continue",
	"  else if $i == 2",
	"    break",
	"  else",
	"    $i = $i + 1",
	"  end",
	"  $i = $i + 1",
	"end",
	"return $i",
}

func TestBuildStructure(t *testing.T) {
	tr, _ := parseLines(t, loopScript...)

	want := strings.Join([]string{
		"None 1",
		"While 2",
		"  If 3",
		"    Continue 4",
		"    ElseIf 5",
		"      Break 6",
		"    Else 7",
		"      None 8",
		"    End 9",
		"  None 10",
		"  End 11",
		"None 12",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, tr.String()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 12, tr.Len())
}

func TestBuildArena(t *testing.T) {
	tr, _ := parseLines(t, "if $a", "$b = 1", "end", "return $b")

	top := tr.Children(Root)
	require.Len(t, top, 2)
	assert.Equal(t, Root, tr.Parent(top[0]))
	assert.Nil(t, tr.Command(Root))
	assert.Equal(t, command.BranchNOP, tr.Branch(Root))

	body := tr.Children(top[0])
	require.Len(t, body, 2)
	for _, h := range body {
		assert.Equal(t, top[0], tr.Parent(h))
	}

	var visited []int
	tr.Walk(func(h Handle) { visited = append(visited, tr.Command(h).Line) })
	assert.Equal(t, []int{1, 2, 3, 4}, visited)
}

func TestSkipIfAdoptsNextCommand(t *testing.T) {
	tr, _ := parseLines(t, "skip if $a", "$b = 1", "return $b")
	top := tr.Children(Root)
	require.Len(t, top, 2)
	assert.Len(t, tr.Children(top[0]), 1)
}

func TestVerifyDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{"valid", loopScript, nil},
		{"if without end", []string{"if $a", "return 1"}, []string{"'if' conditional is missing matching 'end'"}},
		{"while without end", []string{"while $a", "return 1"}, []string{"'while' conditional is missing matching 'end'"}},
		{"else-if after else", []string{"if $a", "$b = 1", "else", "$b = 2", "else if $c", "$b = 3", "end", "return $b"},
			[]string{"'else-if' must precede 'else'"}},
		{"second else", []string{"if $a", "else", "else", "end", "return 1"}, []string{"'if' conditional already has an 'else'"}},
		{"stray end", []string{"return 1", "end"}, []string{"'end' outside 'if' or 'while' conditional"}},
		{"break at top level", []string{"break", "return 1"}, []string{"break/continue outside 'while' conditional"}},
		{"continue in if", []string{"if $a", "continue", "end", "return 1"}, []string{"break/continue outside 'while' conditional"}},
		{"stray else", []string{"else", "return 1"}, []string{"else/else-if outside 'if' conditional"}},
		{"else in while", []string{"while $a", "else", "end", "return 1"}, []string{"else/else-if outside 'if' conditional"}},
		{"skip-if before comment", []string{"skip if $a", "* note", "return 1"}, []string{"'skip-if' must be followed by a standard command"}},
		{"skip-if before if", []string{"skip if $a", "if $b", "end", "return 1"}, []string{"'skip-if' must be followed by a standard command"}},
		{"no commands", []string{"", "* only a comment"}, []string{"Script must contain at least one command"}},
		{"no return", []string{"$a = 1"}, []string{"Last command in script must be 'return'"}},
		{"unknown script object", []string{"$r = $s -> get relation to race [Borron]", "return $r"}, []string{"Unknown script object 'Borron'"}},
		{"unknown game object", []string{"start $s -> fly to sector {Argon Prme}", "return null"}, []string{"Unknown game object 'Argon Prme'"}},
		{"duplicate label", []string{"top:", "top:", "return 1"}, []string{"Label 'top' is already defined"}},
		{"unknown label", []string{"goto label tpo", "top:", "return 1"}, []string{"Unknown label 'tpo'"}},
		{"every problem reported", []string{"break", "end", "$a = 1"}, []string{
			"break/continue outside 'while' conditional",
			"'end' outside 'if' or 'while' conditional",
			"Last command in script must be 'return'",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, diags := verify(t, tt.lines...)
			if diff := cmp.Diff(tt.want, diags.Messages()); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}
			for _, d := range diags.Items() {
				assert.NotEqual(t, diag.SyntaxMatch, d.Kind)
			}
		})
	}
}

func TestVerifySuggestions(t *testing.T) {
	tests := []struct {
		lines []string
		want  string
	}{
		{[]string{"$r = $s -> get relation to race [Borron]", "return $r"}, "Boron"},
		{[]string{"start $s -> fly to sector {Argon Prme}", "return null"}, "Argon Prime"},
		{[]string{"goto label tpo", "top:", "return 1"}, "top"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, _, diags := verify(t, tt.lines...)
			require.Equal(t, 1, diags.Len())
			d := diags.Items()[0]
			assert.Equal(t, diag.UnresolvedReference, d.Kind)
			assert.Equal(t, tt.want, d.Suggestion)
		})
	}
}

func TestVerifyLinksKeywords(t *testing.T) {
	tr, _, diags := verify(t, loopScript...)
	require.True(t, diags.Empty())

	top := tr.Children(Root)
	while := top[1]
	ifNode := tr.Children(while)[0]
	alternatives := tr.Children(ifNode)

	assert.Equal(t, while, tr.Jump(alternatives[0]), "continue belongs to the loop")
	assert.Equal(t, ifNode, tr.Jump(alternatives[1]), "else-if belongs to the if")
	assert.Equal(t, while, tr.Jump(tr.Children(alternatives[1])[0]), "break belongs to the loop")
	assert.Equal(t, ifNode, tr.Jump(alternatives[3]), "end closes the if")
}

// describe summarises a stream entry as "id" or "id->jump".
func describe(c *command.Command) string {
	if c.ID() == syntax.CmdJump {
		return fmt.Sprintf("%d->%d", c.ID(), c.Params[0].Value.Int)
	}
	if jump, ok := c.Jump(); ok {
		return fmt.Sprintf("%d->%d", c.ID(), jump)
	}
	return fmt.Sprint(c.ID())
}

func linearize(t *testing.T, lines ...string) (*Tree, *script.File) {
	t.Helper()
	tr, f, diags := verify(t, lines...)
	require.True(t, diags.Empty(), "verify diagnostics: %v", diags.Messages())
	table, _ := syntax.Builtin()
	tr.Linearize(f, table)
	return tr, f
}

func TestLinearizeLoop(t *testing.T) {
	tr, f := linearize(t, loopScript...)

	var std []string
	for _, c := range f.StdOutput {
		std = append(std, describe(c))
	}
	want := []string{
		"110",     // $i = 0
		"110->11", // while: leave the loop
		"110->5",  // if: try the else-if
		"109->1",  // continue
		"109->9",  // end of the if branch
		"110->8",  // else if: go to the else body
		"109->11", // break
		"109->9",  // end of the else-if branch
		"110",     // else body
		"110",     // loop body
		"109->1",  // back to the test
		"104",     // return
	}
	if diff := cmp.Diff(want, std); diff != "" {
		t.Errorf("standard stream mismatch (-want +got):\n%s", diff)
	}

	type auxEntry struct{ ID, Ref int }
	var aux []auxEntry
	for _, c := range f.AuxOutput {
		aux = append(aux, auxEntry{c.ID(), c.RefIndex})
	}
	wantAux := []auxEntry{
		{syntax.CmdContinue, 3},
		{syntax.CmdBreak, 6},
		{syntax.CmdElse, 8},
		{syntax.CmdEnd, 9},
		{syntax.CmdEnd, 11},
	}
	if diff := cmp.Diff(wantAux, aux); diff != "" {
		t.Errorf("auxiliary stream mismatch (-want +got):\n%s", diff)
	}

	top := tr.Children(Root)
	assert.Equal(t, 0, tr.Index(top[0]))
	assert.Equal(t, 1, tr.Index(top[1]))
	assert.Equal(t, 11, tr.Index(top[2]))
}

func TestLinearizeIndicesAreSequential(t *testing.T) {
	tr, f := linearize(t, loopScript...)
	seen := make(map[int]bool)
	tr.Walk(func(h Handle) {
		i := tr.Index(h)
		if tr.Command(h).IsAuxiliary() {
			assert.Equal(t, -1, i)
			return
		}
		assert.False(t, seen[i], "index %d assigned twice", i)
		assert.Same(t, tr.Command(h), f.StdOutput[i])
		seen[i] = true
	})
}

func TestLinearizeSkipIf(t *testing.T) {
	_, f := linearize(t,
		"$x = get player ship",
		"skip if not $x -> exists",
		"write to player logbook 'gone'",
		"return null",
	)
	var std []string
	for _, c := range f.StdOutput {
		std = append(std, describe(c))
	}
	assert.Equal(t, []string{"123", "122->3", "133", "104"}, std)
}

func TestLinearizeLabels(t *testing.T) {
	_, f := linearize(t,
		"* start",
		"top:",
		"$x = get player ship",
		"goto label top",
		"",
		"return null",
	)

	require.Len(t, f.StdOutput, 3)
	gotoCmd := f.StdOutput[1]
	assert.Equal(t, syntax.CmdGotoLabel, gotoCmd.ID())
	assert.Equal(t, command.IntValue(types.DTInteger, 0), gotoCmd.Params[0].Value)
	assert.Equal(t, "top", gotoCmd.Params[0].Text)

	label, ok := f.Labels.Get("top")
	require.True(t, ok)
	assert.Equal(t, 0, label.Index)
	assert.Equal(t, 2, label.Line)

	var refs []int
	for _, c := range f.AuxOutput {
		refs = append(refs, c.RefIndex)
	}
	assert.Equal(t, []int{0, 0, 2}, refs)
}

func TestLinearizeDimMacro(t *testing.T) {
	_, f := linearize(t, "dim $a = 1, 2", "return $a")
	var ids []int
	for _, c := range f.StdOutput {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []int{syntax.CmdArrayAlloc, syntax.CmdSetArrayValue, syntax.CmdSetArrayValue, syntax.CmdReturn}, ids)
}

func TestLinearizeRequiresVerification(t *testing.T) {
	tr, f := parseLines(t, "return 1")
	table, _ := syntax.Builtin()
	assert.Panics(t, func() { tr.Linearize(f, table) })
}
