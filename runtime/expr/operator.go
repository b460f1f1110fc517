package expr

import (
	"fmt"

	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/core/types"
)

// Operator is an expression operator.
type Operator int

const (
	OpNone Operator = iota
	OpOr
	OpAnd
	OpBitOr
	OpBitXor
	OpBitAnd
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpNegate
	OpLogicalNot
	OpBitNot
)

// Precedence levels, low to high
const (
	levelLogicalOr = iota
	levelLogicalAnd
	levelBitwiseOr
	levelBitwiseXor
	levelBitwiseAnd
	levelEquality
	levelRelational
	levelAdditive
	levelMultiplicative
	levelUnary
	levelCount
)

// binaryLevels lists the binary operators of every precedence level below
// unary. Each spelling maps to exactly one level.
var binaryLevels = [levelUnary][]struct {
	text string
	op   Operator
}{
	levelLogicalOr:      {{"||", OpOr}, {"OR", OpOr}},
	levelLogicalAnd:     {{"&&", OpAnd}, {"AND", OpAnd}},
	levelBitwiseOr:      {{"|", OpBitOr}},
	levelBitwiseXor:     {{"^", OpBitXor}},
	levelBitwiseAnd:     {{"&", OpBitAnd}},
	levelEquality:       {{"==", OpEqual}, {"!=", OpNotEqual}},
	levelRelational:     {{"<", OpLess}, {"<=", OpLessEqual}, {">", OpGreater}, {">=", OpGreaterEqual}},
	levelAdditive:       {{"+", OpAdd}, {"-", OpSubtract}},
	levelMultiplicative: {{"*", OpMultiply}, {"/", OpDivide}, {"%", OpModulo}, {"mod", OpModulo}},
}

var unaryOperators = map[string]Operator{
	"-": OpNegate,
	"!": OpLogicalNot,
	"~": OpBitNot,
}

// binaryLookup maps spelling to (operator, level); built and checked in init
var binaryLookup = map[string]struct {
	op    Operator
	level int
}{}

func init() {
	invariant.Invariant(len(binaryLevels) == levelUnary, "precedence table must have %d binary levels, got %d", levelUnary, len(binaryLevels))
	for level, ops := range binaryLevels {
		invariant.Invariant(len(ops) > 0, "precedence level %d has no operators", level)
		for _, entry := range ops {
			_, dup := binaryLookup[entry.text]
			invariant.Invariant(!dup, "operator %q appears on more than one precedence level", entry.text)
			binaryLookup[entry.text] = struct {
				op    Operator
				level int
			}{entry.op, level}
		}
	}
}

// binaryOperator returns the operator and precedence level for a spelling.
func binaryOperator(text string) (Operator, int, bool) {
	entry, ok := binaryLookup[text]
	return entry.op, entry.level, ok
}

// IsUnary reports whether the operator takes a single operand.
func (o Operator) IsUnary() bool {
	return o == OpNegate || o == OpLogicalNot || o == OpBitNot
}

var operatorText = [...]string{
	OpNone:         "",
	OpOr:           "OR",
	OpAnd:          "AND",
	OpBitOr:        "|",
	OpBitXor:       "^",
	OpBitAnd:       "&",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpAdd:          "+",
	OpSubtract:     "-",
	OpMultiply:     "*",
	OpDivide:       "/",
	OpModulo:       "mod",
	OpNegate:       "-",
	OpLogicalNot:   "!",
	OpBitNot:       "~",
}

// String returns the canonical spelling
func (o Operator) String() string {
	if o >= 0 && int(o) < len(operatorText) {
		return operatorText[o]
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Spelling returns how the operator is written for a game release. X2 spells
// the logical and modulo operators symbolically; the X3 releases use words.
func (o Operator) Spelling(g types.GameVersion) string {
	if g == types.GameX2 {
		switch o {
		case OpOr:
			return "||"
		case OpAnd:
			return "&&"
		case OpModulo:
			return "%"
		}
	}
	return o.String()
}

// Code returns the operator code stored in compiled postfix expressions.
// Bracket codes are used by the infix stream only.
func (o Operator) Code() int {
	return int(o) - 1
}

// Bracket codes in the compiled infix stream
const (
	CodeOpenBracket  = 0x20
	CodeCloseBracket = 0x21
)
