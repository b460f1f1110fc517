package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/compiler"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	game    string
	syntax  string
	objects string
	debug   bool
	noColor bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "msci",
		Short:         "Compile MSCI scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&flags.game, "game", "g", "X3TC", "Target game release (X2, X3R, X3TC, X3AP)")
	rootCmd.PersistentFlags().StringVar(&flags.syntax, "syntax", "", "Path to a syntax table (default: builtin)")
	rootCmd.PersistentFlags().StringVar(&flags.objects, "objects", "", "Path to object name tables (default: builtin)")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newCompileCmd(flags),
		newCheckCmd(flags),
		newWatchCmd(flags),
		newSyntaxCmd(flags),
	)
	return rootCmd
}

// run wraps a subcommand body so its error is formatted on stderr.
func run(flags *globalFlags, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err != nil {
			FormatError(cmd.ErrOrStderr(), err, ShouldUseColor(flags.noColor))
		}
		return err
	}
}

// env is what a subcommand needs to compile.
type env struct {
	game   types.GameVersion
	snap   compiler.Snapshot
	logger *slog.Logger
	color  bool
}

func (f *globalFlags) env(cmd *cobra.Command) (*env, error) {
	game, err := types.ParseGameVersion(f.game)
	if err != nil {
		return nil, &CLIError{
			Type:    "usage",
			Message: err.Error(),
			Hint:    "Pass --game X2, X3R, X3TC or X3AP",
		}
	}
	snap, err := compiler.LoadSnapshot(f.syntax, f.objects)
	if err != nil {
		return nil, err
	}
	return &env{
		game:   game,
		snap:   snap,
		logger: createLogger(cmd.ErrOrStderr(), f.debug),
		color:  ShouldUseColor(f.noColor),
	}, nil
}

// createLogger returns a debug logger without time and level noise, or nil
// when debugging is off.
func createLogger(w io.Writer, debug bool) *slog.Logger {
	if !debug {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove timestamp for cleaner output
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			// Remove level since everything logged here is debug
			if a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func (e *env) options() []compiler.Option {
	if e.logger == nil {
		return nil
	}
	return []compiler.Option{compiler.WithLogger(e.logger), compiler.WithTelemetry(compiler.TelemetryTiming)}
}

func fprintf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
