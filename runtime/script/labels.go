package script

import "sort"

// Label is a jump target defined by a 'name:' line.
type Label struct {
	Name  string
	Line  int // 1-based source line
	Index int // standard-stream index of the command it precedes; -1 until linearized
}

// Labels is the set of labels of one script. Names are unique.
type Labels struct {
	byName map[string]*Label
}

// NewLabels returns an empty label set
func NewLabels() *Labels {
	return &Labels{byName: make(map[string]*Label)}
}

// Define adds a label. It returns the existing label and false when the name
// is already taken.
func (l *Labels) Define(name string, line int) (*Label, bool) {
	if existing, ok := l.byName[name]; ok {
		return existing, false
	}
	label := &Label{Name: name, Line: line, Index: -1}
	l.byName[name] = label
	return label, true
}

// Get looks a label up by name.
func (l *Labels) Get(name string) (*Label, bool) {
	label, ok := l.byName[name]
	return label, ok
}

// Names returns the label names, sorted.
func (l *Labels) Names() []string {
	out := make([]string, 0, len(l.byName))
	for name := range l.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns the labels in source order.
func (l *Labels) All() []*Label {
	out := make([]*Label, 0, len(l.byName))
	for _, label := range l.byName {
		out = append(out, label)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// Len returns the number of labels
func (l *Labels) Len() int {
	return len(l.byName)
}
