package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// tokenExpectation represents an expected token for testing
type tokenExpectation struct {
	Type  TokenType
	Text  string
	Start int
}

// assertTokens compares actual tokens with expected, providing clear error messages
func assertTokens(t *testing.T, input string, expected []tokenExpectation, opts ...Option) {
	t.Helper()

	var actual []tokenExpectation
	for _, tok := range Tokenize(input, opts...) {
		actual = append(actual, tokenExpectation{tok.Type, tok.Text, tok.Start})
	}

	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("token mismatch for %q (-expected +actual):\n%s", input, diff)
	}
}

func TestEmptyLine(t *testing.T) {
	assertTokens(t, "", []tokenExpectation{{EOF, "", 0}})
	assertTokens(t, "   ", []tokenExpectation{{EOF, "", 3}})
}

func TestCommandLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "assignment",
			input: "$a = 1",
			expected: []tokenExpectation{
				{VARIABLE, "a", 0},
				{TEXT, "=", 3},
				{NUMBER, "1", 5},
				{EOF, "", 6},
			},
		},
		{
			name:  "conditional expression",
			input: "if $a == 1",
			expected: []tokenExpectation{
				{KEYWORD, "if", 0},
				{VARIABLE, "a", 3},
				{BINARY_OP, "==", 6},
				{NUMBER, "1", 9},
				{EOF, "", 10},
			},
		},
		{
			name:  "reference object command",
			input: "$name = [THIS] -> get name",
			expected: []tokenExpectation{
				{VARIABLE, "name", 0},
				{TEXT, "=", 6},
				{SCRIPT_OBJECT, "THIS", 8},
				{TEXT, "->", 15},
				{TEXT, "get", 18},
				{TEXT, "name", 22},
				{EOF, "", 26},
			},
		},
		{
			name:  "game object and string",
			input: "$w = {Argon Federal Marine} 'hello world'",
			expected: []tokenExpectation{
				{VARIABLE, "w", 0},
				{TEXT, "=", 3},
				{GAME_OBJECT, "Argon Federal Marine", 5},
				{STRING, "hello world", 28},
				{EOF, "", 41},
			},
		},
		{
			name:  "null literal and keywords",
			input: "skip if not $x == null",
			expected: []tokenExpectation{
				{KEYWORD, "skip", 0},
				{KEYWORD, "if", 5},
				{KEYWORD, "not", 8},
				{VARIABLE, "x", 12},
				{BINARY_OP, "==", 15},
				{NULL, "null", 18},
				{EOF, "", 22},
			},
		},
		{
			name:  "keywords are case sensitive",
			input: "Return $x",
			expected: []tokenExpectation{
				{TEXT, "Return", 0},
				{VARIABLE, "x", 7},
				{EOF, "", 9},
			},
		},
		{
			name:  "multi character operators",
			input: "$a <= 1 && $b >= 2 || $c != 3",
			expected: []tokenExpectation{
				{VARIABLE, "a", 0},
				{BINARY_OP, "<=", 3},
				{NUMBER, "1", 6},
				{BINARY_OP, "&&", 8},
				{VARIABLE, "b", 11},
				{BINARY_OP, ">=", 14},
				{NUMBER, "2", 17},
				{BINARY_OP, "||", 19},
				{VARIABLE, "c", 22},
				{BINARY_OP, "!=", 25},
				{NUMBER, "3", 28},
				{EOF, "", 29},
			},
		},
		{
			name:  "word operators and brackets",
			input: "($a AND 1) mod 3",
			expected: []tokenExpectation{
				{LBRACKET, "(", 0},
				{VARIABLE, "a", 1},
				{BINARY_OP, "AND", 4},
				{NUMBER, "1", 8},
				{RBRACKET, ")", 9},
				{BINARY_OP, "mod", 11},
				{NUMBER, "3", 15},
				{EOF, "", 16},
			},
		},
		{
			name:  "signed number after operator",
			input: "$a - -2",
			expected: []tokenExpectation{
				{VARIABLE, "a", 0},
				{BINARY_OP, "-", 3},
				{NUMBER, "-2", 5},
				{EOF, "", 7},
			},
		},
		{
			name:  "spaced minus stays an operator",
			input: "- 1 + 2",
			expected: []tokenExpectation{
				{BINARY_OP, "-", 0},
				{NUMBER, "1", 2},
				{BINARY_OP, "+", 4},
				{NUMBER, "2", 6},
				{EOF, "", 7},
			},
		},
		{
			name:  "decimal number",
			input: "return 1.25",
			expected: []tokenExpectation{
				{KEYWORD, "return", 0},
				{NUMBER, "1.25", 7},
				{EOF, "", 11},
			},
		},
		{
			name:  "unary operators",
			input: "!$a ~ 1",
			expected: []tokenExpectation{
				{UNARY_OP, "!", 0},
				{VARIABLE, "a", 1},
				{UNARY_OP, "~", 4},
				{NUMBER, "1", 6},
				{EOF, "", 7},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, tt.expected)
		})
	}
}

func TestWholeLineTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "comment",
			input: "* check the ship",
			expected: []tokenExpectation{
				{COMMENT, " check the ship", 0},
				{EOF, "", 16},
			},
		},
		{
			name:  "indented comment",
			input: "  *note",
			expected: []tokenExpectation{
				{COMMENT, "note", 2},
				{EOF, "", 7},
			},
		},
		{
			name:  "label",
			input: "start:",
			expected: []tokenExpectation{
				{LABEL, "start", 0},
				{EOF, "", 6},
			},
		},
		{
			name:  "colon inside a command is not a label",
			input: "call script 'a' :",
			expected: []tokenExpectation{
				{TEXT, "call", 0},
				{TEXT, "script", 5},
				{STRING, "a", 12},
				{TEXT, ":", 16},
				{EOF, "", 17},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, tt.expected)
		})
	}
}

func TestUnrecognisedSequencesBecomeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "unterminated string",
			input: "$a = 'oops",
			expected: []tokenExpectation{
				{VARIABLE, "a", 0},
				{TEXT, "=", 3},
				{TEXT, "'oops", 5},
				{EOF, "", 10},
			},
		},
		{
			name:  "unterminated game object",
			input: "{Argon",
			expected: []tokenExpectation{
				{TEXT, "{Argon", 0},
				{EOF, "", 6},
			},
		},
		{
			name:  "stray dollar and brace",
			input: "$ }",
			expected: []tokenExpectation{
				{TEXT, "$", 0},
				{TEXT, "}", 2},
				{EOF, "", 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.input, tt.expected)
			toks := Tokenize(tt.input)
			found := false
			for _, tok := range toks {
				found = found || tok.Unrecognised
			}
			if !found {
				t.Errorf("expected an unrecognised token in %q", tt.input)
			}
		})
	}
}

func TestExpressionMode(t *testing.T) {
	// Syntax templates re-lex with placeholders and without statement keywords
	assertTokens(t, "$0 $1 -> get name", []tokenExpectation{
		{PLACEHOLDER, "0", 0},
		{PLACEHOLDER, "1", 3},
		{TEXT, "->", 6},
		{TEXT, "get", 9},
		{TEXT, "name", 13},
		{EOF, "", 17},
	}, WithMode(ModeExpression))

	assertTokens(t, "goto label $0", []tokenExpectation{
		{TEXT, "goto", 0},
		{TEXT, "label", 5},
		{PLACEHOLDER, "0", 11},
		{EOF, "", 13},
	}, WithMode(ModeExpression))
}

func TestLexerIsNotRestartable(t *testing.T) {
	l := New("return")
	if tok := l.Next(); tok.Type != KEYWORD {
		t.Fatalf("expected KEYWORD, got %s", tok.Type)
	}
	for i := 0; i < 3; i++ {
		if tok := l.Next(); tok.Type != EOF {
			t.Fatalf("expected EOF on call %d, got %s", i, tok.Type)
		}
	}
}
