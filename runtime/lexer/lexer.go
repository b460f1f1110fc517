// Package lexer tokenizes single lines of MSCI source.
//
// A line is lexed in isolation: the lexer never fails, it preserves every
// character sequence it cannot classify as a TEXT token so later stages can
// report the problem with an exact offset.
package lexer

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Mode selects how the lexer treats keywords and '$' references
type Mode int

const (
	ModeCommand    Mode = iota // a full command line: keywords, labels and comments
	ModeExpression             // an expression or syntax template: $0 lexes as a placeholder
)

// Option configures a Lexer
type Option func(*config)

type config struct {
	mode   Mode
	logger *slog.Logger
}

// WithMode sets the lexing mode (default ModeCommand)
func WithMode(m Mode) Option {
	return func(c *config) {
		c.mode = m
	}
}

// WithLogger enables debug tracing of produced tokens
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// ASCII lookup tables for character classification
var (
	isSpace    [128]bool
	isDigit    [128]bool
	isNameChar [128]bool // $variable names
	isWordStop [128]bool // characters that end a bare word
)

func init() {
	for _, ch := range " \t\r\n\v\f" {
		isSpace[ch] = true
	}
	for ch := '0'; ch <= '9'; ch++ {
		isDigit[ch] = true
		isNameChar[ch] = true
	}
	for ch := 'a'; ch <= 'z'; ch++ {
		isNameChar[ch] = true
	}
	for ch := 'A'; ch <= 'Z'; ch++ {
		isNameChar[ch] = true
	}
	isNameChar['_'] = true
	isNameChar['.'] = true

	for ch := range isSpace {
		if isSpace[ch] {
			isWordStop[ch] = true
		}
	}
	for _, ch := range "${}[]'\"()=!<>&|+-*/%^~,:" {
		isWordStop[ch] = true
	}
}

// Lexer produces the tokens of one line. It is not restartable: once it has
// returned EOF it keeps returning EOF.
type Lexer struct {
	input  string
	pos    int
	mode   Mode
	prev   TokenType
	done   bool
	logger *slog.Logger
	queue  []Token // whole-line tokens (comment, label) decided up front
}

// New creates a lexer for one line
func New(line string, opts ...Option) *Lexer {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	l := &Lexer{
		input:  strings.TrimRight(line, "\r\n"),
		mode:   cfg.mode,
		prev:   EOF,
		logger: cfg.logger,
	}
	if l.mode == ModeCommand {
		l.lexWholeLine()
	}
	return l
}

// Tokenize lexes a whole line, returning every token including the final EOF.
func Tokenize(line string, opts ...Option) []Token {
	return New(line, opts...).Tokens()
}

// Tokens drains the lexer, returning the remaining tokens including EOF.
func (l *Lexer) Tokens() []Token {
	var tokens []Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}

// Next returns the next token.
func (l *Lexer) Next() Token {
	tok := l.next()
	if tok.Type != EOF {
		l.prev = tok.Type
	}
	if l.logger != nil {
		l.logger.Debug("token", "type", tok.Type.String(), "text", tok.Text, "start", tok.Start, "end", tok.End)
	}
	return tok
}

// lexWholeLine recognises comment and label lines, which become one token.
func (l *Lexer) lexWholeLine() {
	trimmed := strings.TrimLeft(l.input, " \t")
	offset := len(l.input) - len(trimmed)

	if strings.HasPrefix(trimmed, "*") {
		text := strings.TrimPrefix(trimmed, "*")
		l.queue = append(l.queue, Token{Type: COMMENT, Text: text, Start: offset, End: len(l.input)})
		l.pos = len(l.input)
		return
	}

	// label: a single name followed by ':' and nothing else
	body := strings.TrimRight(trimmed, " \t")
	if strings.HasSuffix(body, ":") {
		name := strings.TrimSuffix(body, ":")
		if name != "" && isLabelName(name) {
			l.queue = append(l.queue, Token{Type: LABEL, Text: name, Start: offset, End: offset + len(body)})
			l.pos = len(l.input)
		}
	}
}

func isLabelName(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= utf8.RuneSelf || !(isNameChar[ch] || ch == '-') {
			return false
		}
	}
	return true
}

func (l *Lexer) next() Token {
	if len(l.queue) > 0 {
		tok := l.queue[0]
		l.queue = l.queue[1:]
		return tok
	}

	l.skipWhitespace()
	if l.done || l.pos >= len(l.input) {
		l.done = true
		return Token{Type: EOF, Start: len(l.input), End: len(l.input)}
	}

	start := l.pos
	ch := l.input[l.pos]

	switch ch {
	case '$':
		return l.lexDollar(start)
	case '{':
		return l.lexEnclosed(start, '}', GAME_OBJECT)
	case '[':
		return l.lexEnclosed(start, ']', SCRIPT_OBJECT)
	case '\'', '"':
		return l.lexString(start, ch)
	case '(':
		l.pos++
		return Token{Type: LBRACKET, Text: "(", Start: start, End: l.pos}
	case ')':
		l.pos++
		return Token{Type: RBRACKET, Text: ")", Start: start, End: l.pos}
	case '=':
		if l.peekIs(1, '=') {
			return l.emit(BINARY_OP, start, 2)
		}
		return l.emit(TEXT, start, 1)
	case '!':
		if l.peekIs(1, '=') {
			return l.emit(BINARY_OP, start, 2)
		}
		return l.emit(UNARY_OP, start, 1)
	case '<', '>':
		if l.peekIs(1, '=') {
			return l.emit(BINARY_OP, start, 2)
		}
		return l.emit(BINARY_OP, start, 1)
	case '&':
		if l.peekIs(1, '&') {
			return l.emit(BINARY_OP, start, 2)
		}
		return l.emit(BINARY_OP, start, 1)
	case '|':
		if l.peekIs(1, '|') {
			return l.emit(BINARY_OP, start, 2)
		}
		return l.emit(BINARY_OP, start, 1)
	case '-':
		if l.peekIs(1, '>') {
			return l.emit(TEXT, start, 2)
		}
		if l.pos+1 < len(l.input) && isDigitAt(l.input, l.pos+1) && !l.prevIsOperand() {
			l.pos++
			return l.lexNumber(start)
		}
		return l.emit(BINARY_OP, start, 1)
	case '+', '*', '/', '%', '^':
		return l.emit(BINARY_OP, start, 1)
	case '~':
		return l.emit(UNARY_OP, start, 1)
	case ',', ':':
		return l.emit(TEXT, start, 1)
	}

	if ch < utf8.RuneSelf && isDigit[ch] {
		return l.lexNumber(start)
	}
	return l.lexWord(start)
}

func (l *Lexer) emit(typ TokenType, start, n int) Token {
	l.pos = start + n
	return Token{Type: typ, Text: l.input[start:l.pos], Start: start, End: l.pos}
}

func (l *Lexer) peekIs(offset int, ch byte) bool {
	i := l.pos + offset
	return i < len(l.input) && l.input[i] == ch
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch >= utf8.RuneSelf || !isSpace[ch] {
			return
		}
		l.pos++
	}
}

// prevIsOperand reports whether the previous token ends a value, in which
// case a following '-' is a binary minus rather than a sign.
func (l *Lexer) prevIsOperand() bool {
	switch l.prev {
	case NUMBER, STRING, NULL, VARIABLE, GAME_OBJECT, SCRIPT_OBJECT, PLACEHOLDER, RBRACKET:
		return true
	default:
		return false
	}
}

func isDigitAt(s string, i int) bool {
	return s[i] < utf8.RuneSelf && isDigit[s[i]]
}

// lexDollar lexes $name variables, or $n placeholders in expression mode.
func (l *Lexer) lexDollar(start int) Token {
	l.pos++
	nameStart := l.pos
	for l.pos < len(l.input) && l.input[l.pos] < utf8.RuneSelf && isNameChar[l.input[l.pos]] {
		l.pos++
	}
	name := l.input[nameStart:l.pos]
	if name == "" {
		return Token{Type: TEXT, Text: "$", Start: start, End: l.pos, Unrecognised: true}
	}

	if l.mode == ModeExpression && isAllDigits(name) {
		return Token{Type: PLACEHOLDER, Text: name, Start: start, End: l.pos}
	}
	return Token{Type: VARIABLE, Text: name, Start: start, End: l.pos}
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigitAt(s, i) {
			return false
		}
	}
	return s != ""
}

// lexEnclosed lexes {game objects} and [script objects]. The token text is
// the name between the delimiters. A missing closing delimiter makes the
// rest of the line literal text.
func (l *Lexer) lexEnclosed(start int, closing byte, typ TokenType) Token {
	end := strings.IndexByte(l.input[start+1:], closing)
	if end < 0 {
		l.pos = len(l.input)
		return Token{Type: TEXT, Text: l.input[start:], Start: start, End: l.pos, Unrecognised: true}
	}
	l.pos = start + 1 + end + 1
	return Token{Type: typ, Text: l.input[start+1 : l.pos-1], Start: start, End: l.pos}
}

// lexString lexes a quoted string. A backslash escapes the quote character.
// The token text is the unescaped content.
func (l *Lexer) lexString(start int, quote byte) Token {
	var b strings.Builder
	i := start + 1
	for i < len(l.input) {
		ch := l.input[i]
		if ch == '\\' && i+1 < len(l.input) && l.input[i+1] == quote {
			b.WriteByte(quote)
			i += 2
			continue
		}
		if ch == quote {
			l.pos = i + 1
			return Token{Type: STRING, Text: b.String(), Start: start, End: l.pos}
		}
		b.WriteByte(ch)
		i++
	}
	l.pos = len(l.input)
	return Token{Type: TEXT, Text: l.input[start:], Start: start, End: l.pos, Unrecognised: true}
}

// lexNumber lexes an integer or decimal. The caller has consumed any sign.
func (l *Lexer) lexNumber(start int) Token {
	for l.pos < len(l.input) && isDigitAt(l.input, l.pos) {
		l.pos++
	}
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigitAt(l.input, l.pos+1) {
		l.pos++
		for l.pos < len(l.input) && isDigitAt(l.input, l.pos) {
			l.pos++
		}
	}

	// digits running into letters (12abc) are a word, not a number
	if l.pos < len(l.input) && !l.atWordStop() {
		if l.input[start] == '-' {
			return l.emit(BINARY_OP, start, 1)
		}
		return l.lexWord(start)
	}
	return Token{Type: NUMBER, Text: l.input[start:l.pos], Start: start, End: l.pos}
}

func (l *Lexer) atWordStop() bool {
	ch := l.input[l.pos]
	return ch < utf8.RuneSelf && isWordStop[ch]
}

// lexWord lexes a bare word and classifies keywords, null and word operators.
func (l *Lexer) lexWord(start int) Token {
	l.pos = start
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch < utf8.RuneSelf && isWordStop[ch] {
			// allow hyphenated words such as 'auto-jump', but not '->'
			if ch == '-' && l.pos > start && l.pos+1 < len(l.input) && isLetter(l.input[l.pos+1]) {
				l.pos++
				continue
			}
			break
		}
		l.pos++
	}

	if l.pos == start {
		// a lone character no other rule claims
		_, size := utf8.DecodeRuneInString(l.input[start:])
		l.pos = start + size
		return Token{Type: TEXT, Text: l.input[start:l.pos], Start: start, End: l.pos, Unrecognised: true}
	}

	word := l.input[start:l.pos]
	tok := Token{Type: TEXT, Text: word, Start: start, End: l.pos}
	switch {
	case word == "null":
		tok.Type = NULL
	case wordOperators[word]:
		tok.Type = BINARY_OP
	case l.mode == ModeCommand && keywords[word]:
		tok.Type = KEYWORD
	}
	return tok
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
