package script

import (
	"sort"
	"sync"
)

// CallCache holds the arguments of scripts that other scripts call. It is
// filled from outside (manifests, previously compiled scripts) and read by
// compiles under a lock; a lookup never waits for a script to load. Scripts
// that are not cached get generic argument names.
type CallCache struct {
	mu      sync.RWMutex
	scripts map[string][]Argument
}

// NewCallCache returns an empty cache
func NewCallCache() *CallCache {
	return &CallCache{scripts: make(map[string][]Argument)}
}

// Put records the arguments of a script, replacing earlier entries.
func (c *CallCache) Put(name string, args []Argument) {
	cp := make([]Argument, len(args))
	copy(cp, args)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[name] = cp
}

// Get returns the cached arguments of a script. A nil cache holds nothing.
func (c *CallCache) Get(name string) ([]Argument, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	args, ok := c.scripts[name]
	return args, ok
}

// ArgumentNames implements command.ScriptLookup.
func (c *CallCache) ArgumentNames(name string) ([]string, bool) {
	args, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	names := make([]string, len(args))
	for i, arg := range args {
		names[i] = arg.Name
	}
	return names, true
}

// Names returns the cached script names, sorted.
func (c *CallCache) Names() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.scripts))
	for name := range c.scripts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
