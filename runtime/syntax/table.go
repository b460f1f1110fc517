package syntax

import (
	"fmt"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/lexer"
)

// Table is an immutable snapshot of every command syntax for all releases.
// It is safe for concurrent use once built.
type Table struct {
	trie   Trie
	byID   map[int]*Syntax
	all    []*Syntax
	format string
}

// NewTable prepares every syntax and builds the lookup trie. Duplicate IDs
// and duplicate token paths are reported as errors.
func NewTable(syntaxes []*Syntax) (*Table, error) {
	t := &Table{byID: make(map[int]*Syntax, len(syntaxes))}
	for _, s := range syntaxes {
		if s.IsUnrecognised() {
			return nil, fmt.Errorf("syntax id %d is reserved", CmdUnrecognised)
		}
		if _, dup := t.byID[s.ID]; dup {
			return nil, fmt.Errorf("syntax id %d defined twice", s.ID)
		}
		if err := s.Prepare(); err != nil {
			return nil, err
		}
		t.byID[s.ID] = s
		t.all = append(t.all, s)

		if !matchable(s.ID) {
			continue
		}
		if err := t.trie.Insert(s); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// matchable reports whether a syntax is found through the trie. Comments,
// blank lines and labels are recognised by the lexer, expressions by
// parsing, and jumps are only ever synthesized.
func matchable(id int) bool {
	switch id {
	case CmdComment, CmdNOP, CmdDefineLabel, CmdJump, CmdExpression:
		return false
	default:
		return true
	}
}

// Format returns the document format version the table was loaded from.
func (t *Table) Format() string {
	return t.format
}

// Len returns the number of syntaxes
func (t *Table) Len() int {
	return len(t.all)
}

// Get returns the syntax with the given ID, or Unrecognised.
func (t *Table) Get(id int) *Syntax {
	if s, ok := t.byID[id]; ok {
		return s
	}
	return Unrecognised
}

// Syntaxes returns every syntax in load order.
func (t *Table) Syntaxes() []*Syntax {
	out := make([]*Syntax, len(t.all))
	copy(out, t.all)
	return out
}

// Match looks tokens up in the trie for a target game.
func (t *Table) Match(tokens []lexer.Token, game types.GameVersion) Match {
	return t.trie.Lookup(tokens, game)
}

// Paths returns the trie key paths, sorted.
func (t *Table) Paths() []string {
	return t.trie.Paths()
}

// Suggest returns the template closest to text among the syntaxes available
// in a game release, or "" if nothing is close.
func (t *Table) Suggest(text string, game types.GameVersion) string {
	var candidates []string
	for _, s := range t.all {
		if s.Supports(game) && matchable(s.ID) {
			candidates = append(candidates, s.Text)
		}
	}
	return Closest(text, candidates)
}

// Closest returns the candidate nearest to target: a fuzzy subsequence match
// if there is one, otherwise the smallest edit distance within a third of the
// target's length.
func Closest(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}

	if ranks := fuzzy.RankFindFold(target, candidates); len(ranks) > 0 {
		best := ranks[0]
		for _, r := range ranks[1:] {
			if r.Distance < best.Distance {
				best = r
			}
		}
		return best.Target
	}

	limit := len(target)/3 + 1
	best, bestDist := "", limit+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(target, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist > limit {
		return ""
	}
	return best
}
