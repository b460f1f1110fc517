package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/msci/core/scriptfmt"
	"github.com/opal-lang/msci/core/types"
	"github.com/opal-lang/msci/runtime/compiler"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.msc", "$a = 1\nreturn $a\n")
	bad := writeFile(t, dir, "bad.msc", "break\nreturn null\n")

	stdout, stderr, err := execute("check", good, bad)
	require.ErrorIs(t, err, errDiagnostics)
	assert.Contains(t, stdout, good+": ok")
	assert.Contains(t, stderr, bad+":1:1: break/continue outside 'while' conditional [branch-logic]")
	assert.Contains(t, stderr, "    break\n    ^^^^^")
}

func TestCompileWritesScripts(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	path := writeFile(t, dir, "count.msc", strings.Join([]string{
		"$i = 0",
		"while $i < 3",
		"  $i = $i + 1",
		"end",
		"return $i",
	}, "\n"))

	stdout, stderr, err := execute("compile", "--digest", "--dump", "-o", out, path)
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "compiled "+path)
	assert.Contains(t, stdout, "while $i < 3")
	assert.Contains(t, stdout, "jump 1")

	target := filepath.Join(out, "count"+OutputExt)
	f, err := os.Open(target)
	require.NoError(t, err)
	defer f.Close()
	s, sum, err := scriptfmt.Read(f)
	require.NoError(t, err)

	assert.Equal(t, "count", s.Header.Name)
	assert.Equal(t, int(types.GameX3TC.Mask()), s.Header.Game)
	assert.Equal(t, []string{"i"}, s.Body.Variables)
	assert.Len(t, s.Body.Standard, 5)
	assert.Contains(t, stdout, fmt.Sprintf("  blake2b:%x\n", sum))
}

func TestCompileUsesManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.yaml", "name: lib.add\ngame: X3AP\narguments:\n  - {name: a, type: number}\n  - {name: b, type: number}\n")
	lib := writeFile(t, dir, "lib.msc", "$r = $a + $b\nreturn $r\n")
	main := writeFile(t, dir, "main.msc", "$x = null -> call script 'lib.add' : a=1 c=2\nreturn $x\n")

	_, stderr, err := execute("check", "--game", "X3AP", lib, main)
	require.ErrorIs(t, err, errDiagnostics)
	assert.Contains(t, stderr, "Script 'lib.add' has no argument 'c' at position 2")
	assert.NotContains(t, stderr, lib+":")
}

func TestDuplicateScriptNames(t *testing.T) {
	one := writeFile(t, t.TempDir(), "same.msc", "return null\n")
	two := writeFile(t, t.TempDir(), "same.msc", "return null\n")

	_, stderr, err := execute("check", one, two)
	require.Error(t, err)
	assert.Contains(t, stderr, "script name same used by both")
	assert.Contains(t, stderr, "Hint:")
}

func TestUnknownGame(t *testing.T) {
	path := writeFile(t, t.TempDir(), "s.msc", "return null\n")

	_, stderr, err := execute("check", "--game", "X4", path)
	require.Error(t, err)
	assert.Contains(t, stderr, `unknown game version "X4"`)
}

func TestMissingFile(t *testing.T) {
	_, stderr, err := execute("check", filepath.Join(t.TempDir(), "nope.msc"))
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: cannot read")
}

func TestSyntaxListing(t *testing.T) {
	stdout, _, err := execute("syntax", "--game", "X2")
	require.NoError(t, err)
	assert.Contains(t, stdout, " 104  return $0\n")
	assert.Contains(t, stdout, " 115  return\n")
}

func TestDebugLogging(t *testing.T) {
	path := writeFile(t, t.TempDir(), "s.msc", "return null\n")

	_, stderr, err := execute("check", "--debug", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "msg=\"compiled script\"")
	assert.NotContains(t, stderr, "level=")
	assert.NotContains(t, stderr, "time=")
}

// syncBuffer is a bytes.Buffer safe for the watcher's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchRecompilesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "w.msc", "return null\n")

	e := &env{game: types.GameX3TC, snap: compiler.Builtin()}
	var stdout, stderr syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watch(ctx, e, &stdout, &stderr, []string{path}, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), path+": ok")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("else\nreturn null\n"), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "else/else-if outside 'if' conditional")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
