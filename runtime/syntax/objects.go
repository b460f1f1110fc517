package syntax

import (
	"sort"

	"github.com/opal-lang/msci/core/types"
)

// Object is one entry of a game-object or script-object name table.
type Object struct {
	Name     string
	Type     types.DataType
	ID       int
	Versions types.VersionMask
}

// Objects holds the two name tables the compiler resolves references
// against: {game objects} such as wares and sectors, and [script objects]
// such as constants, races and relations. Immutable once built.
type Objects struct {
	game   map[string]Object
	script map[string]Object
}

// NewObjects builds name tables. Later entries replace earlier ones with the
// same name.
func NewObjects(game, script []Object) *Objects {
	o := &Objects{
		game:   make(map[string]Object, len(game)),
		script: make(map[string]Object, len(script)),
	}
	for _, obj := range game {
		o.game[obj.Name] = obj
	}
	for _, obj := range script {
		o.script[obj.Name] = obj
	}
	return o
}

// GameObject looks up a {game object} by name for a release.
func (o *Objects) GameObject(name string, g types.GameVersion) (Object, bool) {
	return lookupObject(o.game, name, g)
}

// ScriptObject looks up a [script object] by name for a release.
func (o *Objects) ScriptObject(name string, g types.GameVersion) (Object, bool) {
	return lookupObject(o.script, name, g)
}

// GameObjectNames returns the sorted game-object names, for suggestions.
func (o *Objects) GameObjectNames() []string {
	return sortedNames(o.game)
}

// ScriptObjectNames returns the sorted script-object names, for suggestions.
func (o *Objects) ScriptObjectNames() []string {
	return sortedNames(o.script)
}

func lookupObject(table map[string]Object, name string, g types.GameVersion) (Object, bool) {
	if table == nil {
		return Object{}, false
	}
	obj, ok := table[name]
	if !ok || (obj.Versions != 0 && !obj.Versions.Supports(g)) {
		return Object{}, false
	}
	return obj, true
}

func sortedNames(table map[string]Object) []string {
	out := make([]string, 0, len(table))
	for name := range table {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
