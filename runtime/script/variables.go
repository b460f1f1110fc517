package script

import "fmt"

// Variables maps variable names to dense IDs in order of first use. It
// implements command.Scope.
type Variables struct {
	names []string
	ids   map[string]int
}

// NewVariables returns an empty variable table
func NewVariables() *Variables {
	return &Variables{ids: make(map[string]int)}
}

// Declare returns the ID of name, assigning the next free ID on first use.
func (v *Variables) Declare(name string) int {
	if id, ok := v.ids[name]; ok {
		return id
	}
	id := len(v.names)
	v.names = append(v.names, name)
	v.ids[name] = id
	return id
}

// ID looks a variable up without declaring it.
func (v *Variables) ID(name string) (int, bool) {
	id, ok := v.ids[name]
	return id, ok
}

// Name returns the name of a variable ID.
func (v *Variables) Name(id int) (string, error) {
	if id < 0 || id >= len(v.names) {
		return "", fmt.Errorf("no variable with id %d", id)
	}
	return v.names[id], nil
}

// Names returns the names in ID order.
func (v *Variables) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Len returns the number of variables
func (v *Variables) Len() int {
	return len(v.names)
}
