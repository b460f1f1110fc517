// Package script holds the compiled form of one MSCI script: its header,
// variables and arguments, labels, and the three command streams.
package script

import (
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/command"
)

// Argument describes one script argument. Arguments are the first
// variables of a script.
type Argument struct {
	Name        string
	Type        types.ParameterType
	Description string
}

// File is one script. Input holds a command per source line; StdOutput and
// AuxOutput are filled by linearization.
type File struct {
	Name        string
	Description string
	Version     int
	Game        types.GameVersion
	LiveData    bool
	CommandID   string // object command the script implements, if any

	Arguments []Argument
	Variables *Variables
	Labels    *Labels
	Calls     *CallCache

	Input     []*command.Command
	StdOutput []*command.Command
	AuxOutput []*command.Command
}

// New creates an empty script for a game release.
func New(name string, game types.GameVersion) *File {
	f := &File{
		Name:  name,
		Game:  game,
		Calls: NewCallCache(),
	}
	f.Reset()
	return f
}

// Reset clears everything a compile produces, keeping the header, the
// arguments and the call cache. Arguments are declared first so they keep
// IDs 0..len(Arguments)-1. A File without a call cache gets an empty one.
func (f *File) Reset() {
	if f.Calls == nil {
		f.Calls = NewCallCache()
	}
	f.Variables = NewVariables()
	for _, arg := range f.Arguments {
		f.Variables.Declare(arg.Name)
	}
	f.Labels = NewLabels()
	f.Input = nil
	f.StdOutput = nil
	f.AuxOutput = nil
}

// ArgumentNames returns the argument names in order
func (f *File) ArgumentNames() []string {
	out := make([]string, len(f.Arguments))
	for i, arg := range f.Arguments {
		out[i] = arg.Name
	}
	return out
}

// Lines returns the source text of the script.
func (f *File) Lines() []string {
	out := make([]string, len(f.Input))
	for i, c := range f.Input {
		out[i] = c.Text
	}
	return out
}

// Clone returns an empty script with the same header and arguments,
// sharing the call cache. Compiling the clone leaves f untouched.
func (f *File) Clone() *File {
	c := &File{
		Name:        f.Name,
		Description: f.Description,
		Version:     f.Version,
		Game:        f.Game,
		LiveData:    f.LiveData,
		CommandID:   f.CommandID,
		Arguments:   append([]Argument(nil), f.Arguments...),
		Calls:       f.Calls,
	}
	c.Reset()
	return c
}
