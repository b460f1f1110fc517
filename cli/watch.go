package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/opal-lang/msci/runtime/compiler"
)

func newWatchCmd(flags *globalFlags) *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Re-check scripts whenever they change",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().DurationVar(&delay, "delay", 300*time.Millisecond, "Quiet period after an edit before compiling")

	cmd.RunE = run(flags, func(cmd *cobra.Command, args []string) error {
		e, err := flags.env(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watch(ctx, e, cmd.OutOrStdout(), cmd.ErrOrStderr(), args, delay)
	})
	return cmd
}

// watch compiles every script once, then again after each change, until
// ctx is done. Directories are watched rather than files so editors that
// replace files on save are followed.
func watch(ctx context.Context, e *env, stdout, stderr io.Writer, paths []string, delay time.Duration) error {
	sources, err := loadSources(paths, e.game)
	if err != nil {
		return err
	}

	byPath := make(map[string]*source, len(sources))
	pathOf := make(map[string]string, len(sources))
	for _, src := range sources {
		abs, err := filepath.Abs(src.path)
		if err != nil {
			return ioError("resolve", src.path, err)
		}
		byPath[abs] = src
		pathOf[src.file.Name] = src.path
	}

	var mu sync.Mutex // one report at a time
	bg := compiler.NewBackground(e.snap, delay, func(name string, res *compiler.Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		report(stdout, stderr, pathOf[name], res, err, e.color)
	}, e.options()...)
	defer bg.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dirs := make(map[string]bool)
	for abs, src := range byPath {
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return ioError("watch", dir, err)
			}
			dirs[dir] = true
		}
		if err := bg.Submit(src.file, src.lines); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			src := byPath[filepath.Clean(event.Name)]
			if src == nil {
				continue
			}
			lines, err := readLines(src.path)
			if err != nil {
				// the file may be mid-replace; the next event catches up
				if e.logger != nil {
					e.logger.Debug("reread failed", "path", src.path, "error", err)
				}
				continue
			}
			if err := bg.Submit(src.file, lines); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			mu.Lock()
			FormatError(stderr, err, e.color)
			mu.Unlock()
		}
	}
}

func report(stdout, stderr io.Writer, path string, res *compiler.Result, err error, useColor bool) {
	switch {
	case err != nil:
		FormatError(stderr, err, useColor)
	case !res.OK():
		FormatDiagnostics(stderr, path, res.Diagnostics, useColor)
	default:
		sum, derr := res.Digest()
		if derr != nil {
			FormatError(stderr, derr, useColor)
			return
		}
		fprintf(stdout, "%s: %s %s\n", path, Colorize("ok", ColorGreen, useColor), Colorize(sum, ColorGray, useColor))
	}
}
