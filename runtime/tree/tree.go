// Package tree arranges parsed commands by branch logic, verifies the
// structure and linearizes it into the standard and auxiliary streams.
//
// Nodes live in an arena and refer to each other by Handle. Handle 0 is the
// root sentinel, which has no command.
package tree

import (
	"fmt"
	"strings"

	"github.com/opal-lang/msci/core/invariant"
	"github.com/opal-lang/msci/runtime/command"
)

// Handle identifies a node in a tree
type Handle int

// Root is the sentinel every top-level command hangs off.
const Root Handle = 0

// None marks a missing handle.
const None Handle = -1

type node struct {
	cmd      *command.Command
	parent   Handle
	children []Handle
	jump     Handle // owning If/While for else, else-if, end, break and continue
	index    int    // standard-stream index, -1 for auxiliary commands
}

// Tree is the branch structure of one script.
type Tree struct {
	nodes    []node
	verified bool
}

// Build arranges commands by branch logic. It never fails: misplaced
// keywords are attached where they occur and reported by Verify.
//
// If and While open a block. Else and ElseIf leave a sibling Else/ElseIf,
// attach to the If and open their own block. End leaves an Else/ElseIf,
// attaches to the If or While and closes it. SkipIf adopts the following
// command as its only child when that is a plain standard command.
func Build(cmds []*command.Command) *Tree {
	t := &Tree{nodes: []node{{parent: None, jump: None, index: -1}}}
	current := Root
	skip := None

	for _, cmd := range cmds {
		invariant.NotNil(cmd, "command")
		h := t.add(cmd)

		if skip != None {
			adopt := cmd.Branch() == command.BranchNone && !cmd.IsAuxiliary()
			if adopt {
				t.attach(h, skip)
			}
			skip = None
			if adopt {
				continue
			}
		}

		switch cmd.Branch() {
		case command.BranchIf, command.BranchWhile:
			t.attach(h, current)
			current = h
		case command.BranchSkipIf:
			t.attach(h, current)
			skip = h
		case command.BranchElse, command.BranchElseIf:
			current = t.leaveAlternative(current)
			t.attach(h, current)
			current = h
		case command.BranchEnd:
			current = t.leaveAlternative(current)
			t.attach(h, current)
			if current != Root {
				current = t.nodes[current].parent
			}
		default:
			t.attach(h, current)
		}
	}
	return t
}

// leaveAlternative steps out of an Else/ElseIf block to its If.
func (t *Tree) leaveAlternative(h Handle) Handle {
	switch t.Branch(h) {
	case command.BranchElse, command.BranchElseIf:
		return t.nodes[h].parent
	}
	return h
}

func (t *Tree) add(cmd *command.Command) Handle {
	t.nodes = append(t.nodes, node{cmd: cmd, parent: None, jump: None, index: -1})
	return Handle(len(t.nodes) - 1)
}

func (t *Tree) attach(child, parent Handle) {
	invariant.Precondition(t.nodes[child].parent == None, "node %d already has a parent", child)
	invariant.Precondition(child != parent, "node %d cannot be its own parent", child)
	t.nodes[child].parent = parent
	t.nodes[parent].children = append(t.nodes[parent].children, child)
}

// Len returns the number of command nodes, excluding the root
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Command returns the command of a node; nil for the root.
func (t *Tree) Command(h Handle) *command.Command {
	return t.nodes[h].cmd
}

// Branch returns the branch category of a node. The root is a NOP.
func (t *Tree) Branch(h Handle) command.Branch {
	if h == Root {
		return command.BranchNOP
	}
	return t.nodes[h].cmd.Branch()
}

// Parent returns the parent handle, None for the root.
func (t *Tree) Parent(h Handle) Handle {
	return t.nodes[h].parent
}

// Children returns the child handles in source order.
func (t *Tree) Children(h Handle) []Handle {
	return t.nodes[h].children
}

// Jump returns the If or While a keyword node belongs to, once verified.
func (t *Tree) Jump(h Handle) Handle {
	return t.nodes[h].jump
}

// Index returns the standard-stream index of a node, -1 if it has none.
func (t *Tree) Index(h Handle) int {
	return t.nodes[h].index
}

// Walk visits every command node in source (pre-)order.
func (t *Tree) Walk(fn func(h Handle)) {
	var walk func(h Handle)
	walk = func(h Handle) {
		for _, c := range t.nodes[h].children {
			fn(c)
			walk(c)
		}
	}
	walk(Root)
}

// String renders the structure, one node per line, for tests and debugging.
func (t *Tree) String() string {
	var b strings.Builder
	var walk func(h Handle, depth int)
	walk = func(h Handle, depth int) {
		for _, c := range t.nodes[h].children {
			cmd := t.nodes[c].cmd
			fmt.Fprintf(&b, "%s%s %d\n", strings.Repeat("  ", depth), cmd.Branch(), cmd.Line)
			walk(c, depth+1)
		}
	}
	walk(Root, 0)
	return b.String()
}
