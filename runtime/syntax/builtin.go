package syntax

import (
	_ "embed"
	"sync"

	"github.com/opal-lang/msci/core/invariant"
)

//go:embed builtin/syntax.yaml
var builtinSyntax []byte

//go:embed builtin/objects.yaml
var builtinObjectsYAML []byte

var (
	builtinOnce  sync.Once
	builtinTable *Table
	builtinObjs  *Objects
)

// Builtin returns the embedded syntax table and object name tables. They
// are loaded once and shared.
func Builtin() (*Table, *Objects) {
	builtinOnce.Do(func() {
		var err error
		builtinTable, err = LoadTable("<builtin>", builtinSyntax)
		invariant.ExpectNoError(err, "loading builtin syntax table")
		builtinObjs, err = LoadObjects("<builtin>", builtinObjectsYAML)
		invariant.ExpectNoError(err, "loading builtin object tables")
	})
	return builtinTable, builtinObjs
}
