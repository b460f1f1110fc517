package syntax

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/lexer"
)

// ErrDuplicateSyntax is returned when two syntaxes share a token path.
var ErrDuplicateSyntax = errors.New("duplicate command syntax")

// Trie maps token sequences to command syntaxes. Edges are keyed by literal
// token text, plus one wildcard edge per node for parameter slots.
type Trie struct {
	root trieNode
	size int
}

type trieNode struct {
	children map[string]*trieNode
	wildcard *trieNode
	syntax   *Syntax
}

// Match is the result of a trie lookup.
type Match struct {
	Syntax *Syntax       // matched syntax, or Unrecognised
	Slots  []lexer.Token // tokens filling wildcard slots, in display order
	Params []int         // physical parameter index of each slot
	Rest   []lexer.Token // variable arguments after a var-args syntax

	// Unsupported is the syntax whose path matched but whose version mask
	// excludes the target game. Nil otherwise.
	Unsupported *Syntax
}

// Len returns the number of syntaxes in the trie
func (t *Trie) Len() int {
	return t.size
}

// Insert adds a prepared syntax. Two syntaxes with the same key path are a
// load-time consistency error.
func (t *Trie) Insert(s *Syntax) error {
	invariant.NotNil(s, "syntax")
	invariant.Precondition(s.prepared, "syntax %d must be prepared before insertion", s.ID)

	n := &t.root
	for _, key := range s.keys {
		if key.wildcard {
			if n.wildcard == nil {
				n.wildcard = &trieNode{}
			}
			n = n.wildcard
			continue
		}
		if n.children == nil {
			n.children = make(map[string]*trieNode)
		}
		child, ok := n.children[key.literal]
		if !ok {
			child = &trieNode{}
			n.children[key.literal] = child
		}
		n = child
	}

	if n.syntax != nil {
		return fmt.Errorf("%w: %d %q and %d %q", ErrDuplicateSyntax, n.syntax.ID, n.syntax.Text, s.ID, s.Text)
	}
	n.syntax = s
	t.size++
	return nil
}

// Lookup matches tokens against the trie for a target game. Literal edges are
// preferred; the wildcard edge is tried when a literal path dead-ends. When a
// node's syntax takes variable arguments matching stops there and the
// remaining tokens are returned as Rest.
func (t *Trie) Lookup(tokens []lexer.Token, game types.GameVersion) Match {
	tokens = trimEOF(tokens)

	m, ok := t.root.lookup(tokens, nil)
	if !ok {
		return Match{Syntax: Unrecognised}
	}
	if !m.Syntax.Supports(game) {
		return Match{Syntax: Unrecognised, Unsupported: m.Syntax}
	}

	// slot i fills the i-th wildcard of the matched template
	for _, key := range m.Syntax.keys {
		if key.wildcard {
			m.Params = append(m.Params, key.param)
		}
	}
	invariant.Postcondition(len(m.Params) == len(m.Slots), "syntax %d: %d slots for %d wildcards", m.Syntax.ID, len(m.Slots), len(m.Params))
	return m
}

func (n *trieNode) lookup(tokens []lexer.Token, slots []lexer.Token) (Match, bool) {
	if n.syntax != nil && n.syntax.VarArgs {
		return Match{Syntax: n.syntax, Slots: slots, Rest: tokens}, true
	}
	if len(tokens) == 0 {
		if n.syntax == nil {
			return Match{}, false
		}
		return Match{Syntax: n.syntax, Slots: slots}, true
	}

	tok := tokens[0]
	if literalKey(tok) {
		if child, ok := n.children[tok.Text]; ok {
			if m, ok := child.lookup(tokens[1:], slots); ok {
				return m, true
			}
		}
	}
	if n.wildcard != nil && wildcardToken(tok) {
		if m, ok := n.wildcard.lookup(tokens[1:], append(slots[:len(slots):len(slots)], tok)); ok {
			return m, true
		}
	}
	return Match{}, false
}

// literalKey reports whether a token can match a literal template word.
func literalKey(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.TEXT, lexer.KEYWORD, lexer.NUMBER, lexer.BINARY_OP, lexer.UNARY_OP, lexer.LBRACKET, lexer.RBRACKET:
		return !tok.Unrecognised
	default:
		return false
	}
}

// wildcardToken reports whether a token can fill a parameter slot.
func wildcardToken(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.EOF, lexer.COMMENT, lexer.LABEL, lexer.LBRACKET, lexer.RBRACKET, lexer.BINARY_OP, lexer.UNARY_OP:
		return false
	default:
		return true
	}
}

func trimEOF(tokens []lexer.Token) []lexer.Token {
	if n := len(tokens); n > 0 && tokens[n-1].Type == lexer.EOF {
		return tokens[:n-1]
	}
	return tokens
}

// Paths returns the key path of every syntax, for diagnostics and tests.
// Wildcards are written as '*'.
func (t *Trie) Paths() []string {
	var out []string
	var walk func(n *trieNode, prefix []string)
	walk = func(n *trieNode, prefix []string) {
		if n.syntax != nil {
			out = append(out, strings.Join(prefix, " "))
		}
		for key, child := range n.children {
			walk(child, append(prefix[:len(prefix):len(prefix)], key))
		}
		if n.wildcard != nil {
			walk(n.wildcard, append(prefix[:len(prefix):len(prefix)], "*"))
		}
	}
	walk(&t.root, nil)
	sort.Strings(out)
	return out
}
