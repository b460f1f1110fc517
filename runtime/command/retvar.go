package command

import (
	"fmt"

	"github.com/opal-lang/msci/core/invariant"
)

// ReturnKind is the decoded meaning of a command's return-value parameter.
type ReturnKind int

const (
	ReturnNone        ReturnKind = iota // the syntax has no return-value parameter
	ReturnAssign                        // $x = ...
	ReturnDiscard                       // result ignored
	ReturnStart                         // start ... (run concurrently, result ignored)
	ReturnConditional                   // if/while/skip if/else if, jump on result
)

// Conditional is the branch flavour of a conditional return value.
type Conditional int

const (
	CondNone Conditional = iota
	CondIf
	CondIfNot
	CondWhile
	CondWhileNot
	CondSkipIf
	CondSkipIfNot
	CondElseIf
	CondElseIfNot
)

var conditionalPrefix = [...]string{
	CondNone:      "",
	CondIf:        "if",
	CondIfNot:     "if not",
	CondWhile:     "while",
	CondWhileNot:  "while not",
	CondSkipIf:    "skip if",
	CondSkipIfNot: "skip if not",
	CondElseIf:    "else if",
	CondElseIfNot: "else if not",
}

func (c Conditional) String() string {
	if c >= 0 && int(c) < len(conditionalPrefix) {
		return conditionalPrefix[c]
	}
	return fmt.Sprintf("Conditional(%d)", int(c))
}

// JumpIfTrue reports whether the compiled test jumps when its condition holds.
// 'if', 'while' and 'else if' skip their body when the condition fails;
// 'skip if' skips the next command when it holds. 'not' inverts either.
func (c Conditional) JumpIfTrue() bool {
	switch c {
	case CondIfNot, CondWhileNot, CondElseIfNot, CondSkipIf:
		return true
	default:
		return false
	}
}

// ReturnValue is the decoded return-value parameter of a command.
type ReturnValue struct {
	Kind     ReturnKind
	Variable string      // ReturnAssign
	Cond     Conditional // ReturnConditional
}

// Prefix returns the source text of the return value ("$x =", "if not", ...).
func (r ReturnValue) Prefix() string {
	switch r.Kind {
	case ReturnAssign:
		return "$" + r.Variable + " ="
	case ReturnStart:
		return "start"
	case ReturnConditional:
		return r.Cond.String()
	default:
		return ""
	}
}

// Packed return values: a non-negative value assigns to that variable ID;
// a negative value is -(code<<24 | jump) where code identifies discard,
// start or a conditional and jump is the 24-bit target index.
const (
	codeDiscard = 1
	codeStart   = 10
	codeShift   = 24
	jumpMask    = 1<<codeShift - 1
)

// Encode packs the return value. varID is used for assignments, jump for
// conditionals.
func (r ReturnValue) Encode(varID, jump int) int {
	switch r.Kind {
	case ReturnAssign:
		invariant.Precondition(varID >= 0, "assignment needs a variable ID, got %d", varID)
		return varID
	case ReturnDiscard, ReturnNone:
		return -(codeDiscard << codeShift)
	case ReturnStart:
		return -(codeStart << codeShift)
	case ReturnConditional:
		invariant.InRange(jump, 0, jumpMask, "jump index")
		code := int(r.Cond) + codeDiscard
		return -(code<<codeShift | jump)
	default:
		invariant.Invariant(false, "unknown return kind %d", r.Kind)
		return 0
	}
}

// DecodeReturnValue unpacks a return value. Assignments report the variable
// ID; conditionals report their jump index.
func DecodeReturnValue(packed int) (r ReturnValue, varID, jump int) {
	if packed >= 0 {
		return ReturnValue{Kind: ReturnAssign}, packed, 0
	}
	v := -packed
	code := v >> codeShift
	jump = v & jumpMask
	switch {
	case code == codeDiscard:
		return ReturnValue{Kind: ReturnDiscard}, -1, 0
	case code == codeStart:
		return ReturnValue{Kind: ReturnStart}, -1, 0
	case code > codeDiscard && code-codeDiscard <= int(CondElseIfNot):
		return ReturnValue{Kind: ReturnConditional, Cond: Conditional(code - codeDiscard)}, -1, jump
	default:
		return ReturnValue{Kind: ReturnDiscard}, -1, 0
	}
}

// Branch is the branch-logic category of a command.
type Branch int

const (
	BranchNone Branch = iota
	BranchNOP
	BranchIf
	BranchWhile
	BranchSkipIf
	BranchElse
	BranchElseIf
	BranchEnd
	BranchBreak
	BranchContinue
)

var branchNames = [...]string{
	BranchNone:     "None",
	BranchNOP:      "NOP",
	BranchIf:       "If",
	BranchWhile:    "While",
	BranchSkipIf:   "SkipIf",
	BranchElse:     "Else",
	BranchElseIf:   "ElseIf",
	BranchEnd:      "End",
	BranchBreak:    "Break",
	BranchContinue: "Continue",
}

func (b Branch) String() string {
	if b >= 0 && int(b) < len(branchNames) {
		return branchNames[b]
	}
	return fmt.Sprintf("Branch(%d)", int(b))
}

// conditionalBranch maps a conditional to its branch category.
func conditionalBranch(c Conditional) Branch {
	switch c {
	case CondIf, CondIfNot:
		return BranchIf
	case CondWhile, CondWhileNot:
		return BranchWhile
	case CondSkipIf, CondSkipIfNot:
		return BranchSkipIf
	case CondElseIf, CondElseIfNot:
		return BranchElseIf
	default:
		return BranchNone
	}
}
