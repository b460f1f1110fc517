// Package diag collects compiler diagnostics.
//
// Every user-facing problem the compiler finds is a Diagnostic: a message, a
// 1-based line number, a character range within that line and the offending
// line text. Diagnostics accumulate; finding one never stops compilation of the
// remaining lines.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a diagnostic.
type Kind int

const (
	LexicalAmbiguity    Kind = iota // unrecognised character sequence kept as literal text
	ExpressionSyntax                // malformed expression
	SyntaxMatch                     // no command syntax matches for the target game
	BranchLogic                     // structural if/while/else/break/continue/skip-if violation
	UnresolvedReference             // missing label, variable, game object or script object
)

func (k Kind) String() string {
	switch k {
	case LexicalAmbiguity:
		return "lexical"
	case ExpressionSyntax:
		return "expression"
	case SyntaxMatch:
		return "syntax"
	case BranchLogic:
		return "branch-logic"
	case UnresolvedReference:
		return "reference"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Diagnostic is a single problem found while compiling a script.
type Diagnostic struct {
	Kind       Kind
	Message    string
	Line       int    // 1-based line number
	Start      int    // 0-based character offset within the line
	Length     int    // characters to underline
	LineText   string // offending line, as written
	Suggestion string // optional "did you mean" hint
}

// Error implements error so a single diagnostic can travel as one.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d:%d: %s", d.Line, d.Start+1, d.Message)
}

// Format renders the diagnostic with the offending line and an underline.
func (d Diagnostic) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d: %s", d.Line, d.Start+1, d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean '%s'?)", d.Suggestion)
	}
	if d.LineText != "" {
		b.WriteString("\n    ")
		b.WriteString(d.LineText)
		b.WriteString("\n    ")
		start := d.Start
		if start > len(d.LineText) {
			start = len(d.LineText)
		}
		b.WriteString(strings.Repeat(" ", start))
		length := d.Length
		if length < 1 {
			length = 1
		}
		b.WriteString(strings.Repeat("^", length))
	}
	return b.String()
}

// List is an ordered collection of diagnostics.
type List struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	l.items = append(l.items, d)
}

// Addf appends a diagnostic covering [start, start+length) of a line.
func (l *List) Addf(kind Kind, line int, lineText string, start, length int, format string, args ...interface{}) {
	l.items = append(l.items, Diagnostic{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Start:    start,
		Length:   length,
		LineText: lineText,
	})
}

// Len returns the number of diagnostics.
func (l *List) Len() int {
	return len(l.items)
}

// Empty reports whether no diagnostics were recorded.
func (l *List) Empty() bool {
	return len(l.items) == 0
}

// Items returns the diagnostics ordered by line then start offset. Diagnostics
// on the same position keep the order they were recorded in.
func (l *List) Items() []Diagnostic {
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Start < out[j].Start
	})
	return out
}

// Messages returns just the messages, in Items order. Handy in tests.
func (l *List) Messages() []string {
	items := l.Items()
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, d := range items {
		out[i] = d.Message
	}
	return out
}

// Count returns the number of diagnostics of the given kind.
func (l *List) Count(kind Kind) int {
	n := 0
	for _, d := range l.items {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
