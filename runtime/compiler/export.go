package compiler

import (
	"github.com/opal-lang/msci/core/scriptfmt"
	"github.com/opal-lang/msci/runtime/command"
	"github.com/opal-lang/msci/runtime/script"
)

// Export converts a compiled script to its serialized form.
func Export(f *script.File) *scriptfmt.Script {
	s := &scriptfmt.Script{
		Header: scriptfmt.Header{
			Name:        f.Name,
			Description: f.Description,
			Version:     f.Version,
			Game:        int(f.Game.Mask()),
			LiveData:    f.LiveData,
			CommandID:   f.CommandID,
			Arguments:   make([]scriptfmt.Argument, len(f.Arguments)),
		},
		Body: scriptfmt.Body{
			Variables: f.Variables.Names(),
			Standard:  make([]scriptfmt.Command, len(f.StdOutput)),
			Auxiliary: make([]scriptfmt.Command, len(f.AuxOutput)),
		},
	}
	for i, arg := range f.Arguments {
		s.Header.Arguments[i] = scriptfmt.Argument{Name: arg.Name, Type: int(arg.Type), Description: arg.Description}
	}
	for i, c := range f.StdOutput {
		s.Body.Standard[i] = exportCommand(c, 0)
	}
	for i, c := range f.AuxOutput {
		s.Body.Auxiliary[i] = exportCommand(c, c.RefIndex)
	}
	return s
}

func exportCommand(c *command.Command, ref int) scriptfmt.Command {
	values := c.Output()
	out := scriptfmt.Command{ID: c.ID(), Ref: ref, Line: c.Line, Values: make([]scriptfmt.Value, len(values))}
	for i, v := range values {
		out.Values[i] = scriptfmt.Value{Type: int(v.Type), Int: v.Int, Str: v.Str, Float: v.Float}
	}
	return out
}
