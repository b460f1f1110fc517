// Package expr parses MSCI expressions.
//
// Parsing is precedence climbing over ten levels. Every grammar rule is a
// pure function of (tokens, cursor) returning the parsed node and the advanced
// cursor, so rules can be exercised in isolation.
package expr

import (
	"fmt"

	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/runtime/lexer"
)

// NodeKind discriminates expression tree nodes
type NodeKind int

const (
	NodeOperand NodeKind = iota
	NodeUnary
	NodeBinary
	NodeGroup // bracketed sub-expression, kept for display
)

// Node is one expression tree node.
type Node struct {
	Kind  NodeKind
	Op    Operator    // NodeUnary, NodeBinary
	Token lexer.Token // operand, operator or opening bracket token
	Close lexer.Token // closing bracket (NodeGroup)
	Left  *Node       // NodeBinary; NodeUnary and NodeGroup use Left as their only child
	Right *Node       // NodeBinary
}

// ItemKind discriminates entries of the infix and postfix streams
type ItemKind int

const (
	ItemOperand ItemKind = iota
	ItemOperator
	ItemOpenBracket
	ItemCloseBracket
)

// Item is one entry of a linear expression stream.
type Item struct {
	Kind  ItemKind
	Op    Operator
	Token lexer.Token
}

// Expression is a parsed expression with its display and evaluation orders.
type Expression struct {
	Root    *Node
	Infix   []Item // as written, brackets included
	Postfix []Item // evaluation order for the legacy evaluator
}

// Error is an expression syntax error. Offset and Length locate the
// offending token within the line.
type Error struct {
	Message string
	Offset  int
	Length  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Message, e.Offset)
}

// Cursor is an immutable position in a token range.
type Cursor struct {
	tokens []lexer.Token
	pos    int
}

// NewCursor positions a cursor at the start of tokens. The range is treated
// as ending at its first EOF token or its last token, whichever comes first.
func NewCursor(tokens []lexer.Token) Cursor {
	end := len(tokens)
	for i, tok := range tokens {
		if tok.Type == lexer.EOF {
			end = i
			break
		}
	}
	eofAt := 0
	if end > 0 {
		eofAt = tokens[end-1].End
	}
	if end < len(tokens) {
		eofAt = tokens[end].Start
	}

	// copy so the appended EOF never aliases the caller's slice
	buf := make([]lexer.Token, end, end+1)
	copy(buf, tokens[:end])
	buf = append(buf, lexer.Token{Type: lexer.EOF, Start: eofAt, End: eofAt})
	return Cursor{tokens: buf}
}

// Peek returns the current token
func (c Cursor) Peek() lexer.Token {
	return c.tokens[c.pos]
}

// AtEOF reports whether the cursor has consumed every token
func (c Cursor) AtEOF() bool {
	return c.tokens[c.pos].Type == lexer.EOF
}

// Advance returns a cursor one token further on. It never moves past EOF.
func (c Cursor) Advance() Cursor {
	if !c.AtEOF() {
		c.pos++
	}
	return c
}

// Pos returns the number of tokens consumed
func (c Cursor) Pos() int {
	return c.pos
}

// Parse parses a complete expression from a token range.
func Parse(tokens []lexer.Token) (*Expression, error) {
	c := NewCursor(tokens)
	root, c, err := ParseExpression(c)
	if err != nil {
		return nil, err
	}
	if !c.AtEOF() {
		return nil, errorAt(c.Peek(), "Unexpected token")
	}

	expr := &Expression{Root: root}
	expr.Infix = appendInfix(nil, root)
	expr.Postfix = appendPostfix(nil, root)
	return expr, nil
}

// ParseExpression is the top grammar rule: the lowest precedence level.
func ParseExpression(c Cursor) (*Node, Cursor, error) {
	return parseLevel(c, levelLogicalOr)
}

// parseLevel parses one binary precedence level, recursing to the next higher
// level for operands and left-folding operators of this level.
func parseLevel(c Cursor, level int) (*Node, Cursor, error) {
	invariant.InRange(level, levelLogicalOr, levelUnary, "precedence level")
	if level == levelUnary {
		return ParseUnary(c)
	}

	left, c, err := parseLevel(c, level+1)
	if err != nil {
		return nil, c, err
	}

	for {
		tok := c.Peek()
		if tok.Type != lexer.BINARY_OP {
			return left, c, nil
		}
		op, opLevel, ok := binaryOperator(tok.Text)
		invariant.Invariant(ok, "binary operator %q missing from precedence table", tok.Text)
		if opLevel != level {
			return left, c, nil
		}

		prev := c
		c = c.Advance()
		right, next, err := parseLevel(c, level+1)
		if err != nil {
			return nil, next, err
		}
		invariant.Invariant(next.pos > prev.pos, "cursor must advance")
		c = next
		left = &Node{Kind: NodeBinary, Op: op, Token: tok, Left: left, Right: right}
	}
}

// ParseUnary parses prefix operators. A '-' lexed as binary minus in operand
// position is a unary minus.
func ParseUnary(c Cursor) (*Node, Cursor, error) {
	tok := c.Peek()
	if tok.Type == lexer.UNARY_OP || tok.Is(lexer.BINARY_OP, "-") {
		op, ok := unaryOperators[tok.Text]
		invariant.Invariant(ok, "unary operator %q missing from operator table", tok.Text)
		tok.Type = lexer.UNARY_OP

		operand, next, err := ParseUnary(c.Advance())
		if err != nil {
			return nil, next, err
		}
		return &Node{Kind: NodeUnary, Op: op, Token: tok, Left: operand}, next, nil
	}
	return ParseValue(c)
}

// ParseValue parses an operand or a bracketed sub-expression.
func ParseValue(c Cursor) (*Node, Cursor, error) {
	tok := c.Peek()
	switch {
	case tok.IsOperand():
		return &Node{Kind: NodeOperand, Token: tok}, c.Advance(), nil

	case tok.Type == lexer.LBRACKET:
		inner, next, err := ParseExpression(c.Advance())
		if err != nil {
			return nil, next, err
		}
		closing := next.Peek()
		switch {
		case closing.Type == lexer.RBRACKET:
			return &Node{Kind: NodeGroup, Token: tok, Close: closing, Left: inner}, next.Advance(), nil
		case closing.Type == lexer.EOF:
			return nil, next, errorAt(closing, "Missing closing bracket")
		default:
			return nil, next, errorAt(closing, fmt.Sprintf("Unexpected '%s'", closing.Text))
		}

	case tok.Type == lexer.EOF:
		return nil, c, errorAt(tok, "Missing operand")

	default:
		return nil, c, errorAt(tok, fmt.Sprintf("Unexpected '%s'", tok.Text))
	}
}

func errorAt(tok lexer.Token, msg string) *Error {
	return &Error{Message: msg, Offset: tok.Start, Length: tok.Len()}
}

func appendInfix(out []Item, n *Node) []Item {
	switch n.Kind {
	case NodeOperand:
		out = append(out, Item{Kind: ItemOperand, Token: n.Token})
	case NodeUnary:
		out = append(out, Item{Kind: ItemOperator, Op: n.Op, Token: n.Token})
		out = appendInfix(out, n.Left)
	case NodeBinary:
		out = appendInfix(out, n.Left)
		out = append(out, Item{Kind: ItemOperator, Op: n.Op, Token: n.Token})
		out = appendInfix(out, n.Right)
	case NodeGroup:
		out = append(out, Item{Kind: ItemOpenBracket, Token: n.Token})
		out = appendInfix(out, n.Left)
		out = append(out, Item{Kind: ItemCloseBracket, Token: n.Close})
	}
	return out
}

func appendPostfix(out []Item, n *Node) []Item {
	switch n.Kind {
	case NodeOperand:
		out = append(out, Item{Kind: ItemOperand, Token: n.Token})
	case NodeUnary:
		out = appendPostfix(out, n.Left)
		out = append(out, Item{Kind: ItemOperator, Op: n.Op, Token: n.Token})
	case NodeBinary:
		out = appendPostfix(out, n.Left)
		out = appendPostfix(out, n.Right)
		out = append(out, Item{Kind: ItemOperator, Op: n.Op, Token: n.Token})
	case NodeGroup:
		out = appendPostfix(out, n.Left)
	}
	return out
}

// String renders the tree fully bracketed, for tests and debugging.
func (n *Node) String() string {
	switch n.Kind {
	case NodeOperand:
		return n.Token.Text
	case NodeUnary:
		return "(" + n.Op.String() + n.Left.String() + ")"
	case NodeBinary:
		return "(" + n.Left.String() + " " + n.Op.String() + " " + n.Right.String() + ")"
	case NodeGroup:
		return n.Left.String()
	default:
		return "?"
	}
}
