package lexer

import "fmt"

// TokenType represents the lexical class of an MSCI token
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota

	// Statement structure
	KEYWORD // if, while, skip, else, end, break, continue, return, start, goto, gosub, endsub, not
	LABEL   // name: (label definition line)
	COMMENT // * text (comment line)

	// Operators
	UNARY_OP  // ! ~
	BINARY_OP // + - * / % mod & | ^ == != < > <= >= && || AND OR

	// Literals
	NUMBER // 123, 1.5, -4
	STRING // 'text' or "text"
	NULL   // null

	// References
	VARIABLE      // $name
	GAME_OBJECT   // {Argon Federal Marine}
	SCRIPT_OBJECT // [TRUE]
	PLACEHOLDER   // $0 (expression mode only: parameter slot in a syntax template)

	// Brackets
	LBRACKET // (
	RBRACKET // )

	// Anything else: command words, punctuation such as -> = : , and
	// unrecognised character runs.
	TEXT
)

var tokenTypeNames = [...]string{
	EOF:           "EOF",
	KEYWORD:       "KEYWORD",
	LABEL:         "LABEL",
	COMMENT:       "COMMENT",
	UNARY_OP:      "UNARY_OP",
	BINARY_OP:     "BINARY_OP",
	NUMBER:        "NUMBER",
	STRING:        "STRING",
	NULL:          "NULL",
	VARIABLE:      "VARIABLE",
	GAME_OBJECT:   "GAME_OBJECT",
	SCRIPT_OBJECT: "SCRIPT_OBJECT",
	PLACEHOLDER:   "PLACEHOLDER",
	LBRACKET:      "LBRACKET",
	RBRACKET:      "RBRACKET",
	TEXT:          "TEXT",
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexical unit of a line. Offsets are 0-based character
// positions in the line; End is exclusive.
type Token struct {
	Type  TokenType
	Text  string
	Start int
	End   int

	// Unrecognised marks TEXT produced from a character sequence the lexer
	// could not classify (unterminated string, stray '$', ...).
	Unrecognised bool
}

// Len returns the number of characters the token spans.
func (t Token) Len() int {
	return t.End - t.Start
}

// String returns the token text (for testing and debugging)
func (t Token) String() string {
	return t.Text
}

// IsOperand reports whether the token can stand alone as an expression value.
func (t Token) IsOperand() bool {
	switch t.Type {
	case NUMBER, STRING, NULL, VARIABLE, GAME_OBJECT, SCRIPT_OBJECT, PLACEHOLDER:
		return true
	default:
		return false
	}
}

// IsOperator reports whether the token is an expression operator.
func (t Token) IsOperator() bool {
	return t.Type == UNARY_OP || t.Type == BINARY_OP
}

// Is reports whether the token has the given type and text.
func (t Token) Is(typ TokenType, text string) bool {
	return t.Type == typ && t.Text == text
}

// keywords is the case-sensitive statement keyword set
var keywords = map[string]bool{
	"if":       true,
	"not":      true,
	"while":    true,
	"skip":     true,
	"else":     true,
	"end":      true,
	"break":    true,
	"continue": true,
	"return":   true,
	"start":    true,
	"goto":     true,
	"gosub":    true,
	"endsub":   true,
}

// wordOperators are binary operators spelled as words
var wordOperators = map[string]bool{
	"AND": true,
	"OR":  true,
	"mod": true,
}

// IsKeyword reports whether word is a statement keyword.
func IsKeyword(word string) bool {
	return keywords[word]
}
