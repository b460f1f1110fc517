package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opal-lang/msci/core/scriptfmt"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/compiler"
	"github.com/opal-lang/msci/runtime/script"
)

// OutputExt is the extension of compiled scripts
const OutputExt = ".msco"

// source is one script given on the command line
type source struct {
	path  string
	file  *script.File
	lines []string
}

func newCompileCmd(flags *globalFlags) *cobra.Command {
	var (
		outDir string
		digest bool
		dump   bool
	)

	cmd := &cobra.Command{
		Use:   "compile FILE...",
		Short: "Compile scripts to binary form",
		Long: `Compile one or more scripts. A script's header and arguments are read from
a YAML manifest next to it (same name, .yaml extension) when one exists.
Scripts compiled together know each other's arguments.`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: next to each script)")
	cmd.Flags().BoolVar(&digest, "digest", false, "Print the digest of each compiled script")
	cmd.Flags().BoolVar(&dump, "dump", false, "Print the compiled command streams")

	cmd.RunE = run(flags, func(cmd *cobra.Command, args []string) error {
		e, err := flags.env(cmd)
		if err != nil {
			return err
		}
		sources, err := loadSources(args, e.game)
		if err != nil {
			return err
		}
		results, err := compileAll(cmd.Context(), e, sources)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := false
		for i, res := range results {
			src := sources[i]
			if !res.OK() {
				FormatDiagnostics(cmd.ErrOrStderr(), src.path, res.Diagnostics, e.color)
				failed = true
				continue
			}
			target := outputPath(src.path, outDir)
			sum, err := writeScript(target, res)
			if err != nil {
				return err
			}
			fprintf(out, "%s %s -> %s (%d standard, %d auxiliary)\n",
				Colorize("compiled", ColorGreen, e.color), src.path, target,
				len(res.Script.StdOutput), len(res.Script.AuxOutput))
			if digest {
				fprintf(out, "  blake2b:%x\n", sum)
			}
			if dump {
				DisplayScript(out, res.Script, e.color)
			}
		}
		if failed {
			return errDiagnostics
		}
		return nil
	})
	return cmd
}

func newCheckCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Report diagnostics without writing output",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = run(flags, func(cmd *cobra.Command, args []string) error {
		e, err := flags.env(cmd)
		if err != nil {
			return err
		}
		sources, err := loadSources(args, e.game)
		if err != nil {
			return err
		}
		results, err := compileAll(cmd.Context(), e, sources)
		if err != nil {
			return err
		}

		failed := false
		for i, res := range results {
			if res.OK() {
				fprintf(cmd.OutOrStdout(), "%s: %s\n", sources[i].path, Colorize("ok", ColorGreen, e.color))
				continue
			}
			FormatDiagnostics(cmd.ErrOrStderr(), sources[i].path, res.Diagnostics, e.color)
			failed = true
		}
		if failed {
			return errDiagnostics
		}
		return nil
	})
	return cmd
}

// loadSources reads scripts and their manifests. All scripts share one call
// cache holding every script's arguments.
func loadSources(paths []string, game types.GameVersion) ([]*source, error) {
	calls := script.NewCallCache()
	names := make(map[string]string, len(paths))
	sources := make([]*source, 0, len(paths))

	for _, path := range paths {
		lines, err := readLines(path)
		if err != nil {
			return nil, err
		}

		f := script.New(scriptName(path), game)
		f.Calls = calls
		manifest := strings.TrimSuffix(path, filepath.Ext(path)) + ".yaml"
		if _, err := os.Stat(manifest); err == nil {
			m, err := script.LoadManifestFile(manifest)
			if err != nil {
				return nil, ioError("load", manifest, err)
			}
			if err := m.Apply(f); err != nil {
				return nil, &CLIError{Type: "usage", Message: fmt.Sprintf("invalid manifest %s", manifest), Details: err.Error()}
			}
		}

		if other, dup := names[f.Name]; dup {
			return nil, &CLIError{
				Type:    "usage",
				Message: fmt.Sprintf("script name %s used by both %s and %s", f.Name, other, path),
				Hint:    "Give one of them a different name in its manifest",
			}
		}
		names[f.Name] = path
		sources = append(sources, &source{path: path, file: f, lines: lines})
	}

	for _, src := range sources {
		calls.Put(src.file.Name, src.file.Arguments)
	}
	return sources, nil
}

// compileAll compiles sources concurrently against one snapshot. Results
// are in source order. An internal error stops the remaining compiles.
func compileAll(ctx context.Context, e *env, sources []*source) ([]*compiler.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]*compiler.Result, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := compiler.Compile(src.file, src.lines, e.snap, e.options()...)
			if err != nil {
				return fmt.Errorf("compile %s: %w", src.path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError("read", path, err)
	}
	return compiler.SplitLines(string(data)), nil
}

// scriptName derives a script name from its file name.
func scriptName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func outputPath(path, outDir string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + OutputExt
	if outDir == "" {
		return filepath.Join(filepath.Dir(path), name)
	}
	return filepath.Join(outDir, name)
}

func writeScript(path string, res *compiler.Result) (sum [32]byte, err error) {
	f, err := os.Create(path)
	if err != nil {
		return sum, ioError("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ioError("write", path, cerr)
		}
	}()

	sum, err = scriptfmt.Write(f, compiler.Export(res.Script))
	if err != nil {
		return sum, ioError("write", path, err)
	}
	return sum, nil
}
