// Package syntax defines MSCI command syntaxes and the trie that matches
// source lines against them.
//
// A Table is an immutable snapshot: it is built once (usually from a YAML
// document, see Load) and shared read-only by every compile.
package syntax

import (
	"fmt"
	"strconv"

	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/lexer"
)

// Command IDs the compiler treats specially. Every other ID is opaque data
// from the syntax table.
const (
	CmdUnrecognised  = 0
	CmdComment       = 1
	CmdNOP           = 2
	CmdDefineLabel   = 100
	CmdGotoLabel     = 101
	CmdGotoSub       = 102
	CmdEndSub        = 103
	CmdReturn        = 104
	CmdElse          = 105
	CmdEnd           = 106
	CmdBreak         = 107
	CmdContinue      = 108
	CmdJump          = 109 // synthesized unconditional jump
	CmdExpression    = 110
	CmdDim           = 111 // macro: array declaration
	CmdArrayAlloc    = 112
	CmdSetArrayValue = 113
	CmdCallScript    = 114 // variable-argument script call
	CmdReturnNull    = 115 // 'return' without a value
)

// IsReturn reports whether id is one of the return commands that may end a
// script.
func IsReturn(id int) bool {
	return id == CmdReturn || id == CmdReturnNull
}

// RequiredIDs are the commands every loaded table must define: the compiler
// builds them itself for comments, blank lines, labels, branch keywords,
// jumps, expressions and the dim macro.
var RequiredIDs = []int{
	CmdComment, CmdNOP, CmdDefineLabel, CmdElse, CmdEnd, CmdBreak, CmdContinue,
	CmdJump, CmdExpression, CmdArrayAlloc, CmdSetArrayValue,
}

// Param describes one parameter slot of a command syntax.
type Param struct {
	Physical int // index in compiled output
	Display  int // index in source text
	Type     types.ParameterType
	Usage    types.ParameterUsage
}

// Syntax is an immutable command syntax definition.
type Syntax struct {
	ID        int
	Text      string  // template, $n refers to the parameter with physical index n
	Params    []Param // physical order
	Versions  types.VersionMask
	Class     types.CommandClass
	Execution types.ExecutionMode
	VarArgs   bool   // trailing tokens are variable arguments
	Group     string // display grouping, informational only

	// template tokens with the leading return-value placeholder removed;
	// computed by Prepare
	keys     []templateKey
	prepared bool
}

type templateKey struct {
	literal  string
	wildcard bool
	param    int // physical index for wildcards
}

// Unrecognised is returned wherever no syntax applies. It is valid but
// meaningless: no parameters, no versions, standard class.
var Unrecognised = &Syntax{ID: CmdUnrecognised, Text: "", Class: types.ClassStandard}

// IsUnrecognised reports whether s is the Unrecognised sentinel (or nil).
func (s *Syntax) IsUnrecognised() bool {
	return s == nil || s.ID == CmdUnrecognised
}

// String returns the template text
func (s *Syntax) String() string {
	if s.IsUnrecognised() {
		return "<unrecognised>"
	}
	return s.Text
}

// RetVar returns the return-value parameter, if the syntax has one.
func (s *Syntax) RetVar() (Param, bool) {
	if s == nil {
		return Param{}, false
	}
	for _, p := range s.Params {
		if p.Type == types.ParamRetVar {
			return p, true
		}
	}
	return Param{}, false
}

// HasRetVar reports whether the syntax has a return-value parameter.
func (s *Syntax) HasRetVar() bool {
	_, ok := s.RetVar()
	return ok
}

// IsExpression reports whether the syntax is the expression command, which
// is matched by parsing rather than through the trie.
func (s *Syntax) IsExpression() bool {
	return s != nil && s.ID == CmdExpression
}

// Supports reports whether the syntax is available in a game release.
func (s *Syntax) Supports(g types.GameVersion) bool {
	return s != nil && s.Versions.Supports(g)
}

// DisplayOrder returns the parameters ordered by display index. The display
// indices must form a permutation of the physical ones; anything else is a
// defect in the syntax table.
func (s *Syntax) DisplayOrder() []Param {
	out := make([]Param, len(s.Params))
	seen := make([]bool, len(s.Params))
	for _, p := range s.Params {
		invariant.Invariant(p.Display >= 0 && p.Display < len(s.Params),
			"syntax %d: display index %d out of range", s.ID, p.Display)
		invariant.Invariant(!seen[p.Display],
			"syntax %d: display index %d used twice", s.ID, p.Display)
		seen[p.Display] = true
		out[p.Display] = p
	}
	return out
}

// Prepare analyses the template: it assigns display indices from placeholder
// order and computes the trie keys. It must be called once before the syntax
// is inserted into a trie.
func (s *Syntax) Prepare() error {
	tokens := lexer.Tokenize(s.Text, lexer.WithMode(lexer.ModeExpression))

	seen := make(map[int]bool)
	display := 0
	var keys []templateKey
	for i, tok := range tokens {
		if tok.Type == lexer.EOF {
			break
		}
		if tok.Type != lexer.PLACEHOLDER {
			keys = append(keys, templateKey{literal: tok.Text})
			continue
		}

		n, err := strconv.Atoi(tok.Text)
		if err != nil || n >= len(s.Params) {
			return fmt.Errorf("syntax %d: placeholder $%s has no parameter", s.ID, tok.Text)
		}
		if seen[n] {
			return fmt.Errorf("syntax %d: placeholder $%d used twice", s.ID, n)
		}
		seen[n] = true
		s.Params[n].Physical = n
		s.Params[n].Display = display
		display++

		// the return value prefix is stripped before matching
		if s.Params[n].Type == types.ParamRetVar {
			if i != 0 {
				return fmt.Errorf("syntax %d: return value $%d must lead the template", s.ID, n)
			}
			continue
		}
		keys = append(keys, templateKey{wildcard: true, param: n})
	}
	if len(seen) != len(s.Params) {
		return fmt.Errorf("syntax %d: template references %d of %d parameters", s.ID, len(seen), len(s.Params))
	}
	s.keys = keys
	s.prepared = true
	return nil
}
