package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/opal-lang/msci/runtime/command"
	"github.com/opal-lang/msci/runtime/script"
	"github.com/opal-lang/msci/runtime/syntax"
)

// DisplayScript lists the compiled streams. Each auxiliary command is shown
// just before the standard command it refers to:
//
//	lib.count (X3TC)
//	   2  110  if $i == 1
//	      108  continue
//	   3  109  jump 1
func DisplayScript(w io.Writer, f *script.File, useColor bool) {
	fprintf(w, "%s (%s)\n", f.Name, f.Game)

	aux := f.AuxOutput
	for i, c := range f.StdOutput {
		for len(aux) > 0 && aux[0].RefIndex <= i {
			displayAux(w, aux[0], f, useColor)
			aux = aux[1:]
		}
		fprintf(w, "%4d  %3d  %s\n", i, c.ID(), command.Render(c, f.Game))
	}
	for _, c := range aux {
		displayAux(w, c, f, useColor)
	}
}

func displayAux(w io.Writer, c *command.Command, f *script.File, useColor bool) {
	fprintf(w, "      %3d  %s\n", c.ID(), Colorize(command.Render(c, f.Game), ColorGray, useColor))
}

func newSyntaxCmd(flags *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "syntax",
		Short: "List the command syntaxes of the target game",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include syntaxes of every game release")

	cmd.RunE = run(flags, func(cmd *cobra.Command, args []string) error {
		e, err := flags.env(cmd)
		if err != nil {
			return err
		}
		DisplaySyntax(cmd.OutOrStdout(), e.snap.Table, func(s *syntax.Syntax) bool {
			return all || s.Supports(e.game)
		})
		return nil
	})
	return cmd
}

// DisplaySyntax lists the syntaxes accepted by keep, in table order.
func DisplaySyntax(w io.Writer, table *syntax.Table, keep func(*syntax.Syntax) bool) {
	for _, s := range table.Syntaxes() {
		if keep(s) {
			fprintf(w, "%4d  %s\n", s.ID, s.Text)
		}
	}
}
