package script

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opal-lang/msci/core/types"
)

// Manifest is the YAML sidecar describing a script's header and the
// arguments of the scripts it calls:
//
//	name: plugin.trade.run
//	description: Runs a trade loop
//	version: 3
//	game: X3TC
//	arguments:
//	  - {name: ship, type: refobj, description: Ship to trade with}
//	calls:
//	  lib.log: [{name: text, type: string}]
type Manifest struct {
	Name        string                        `yaml:"name"`
	Description string                        `yaml:"description"`
	Version     int                           `yaml:"version"`
	Game        string                        `yaml:"game"`
	LiveData    bool                          `yaml:"live_data"`
	CommandID   string                        `yaml:"command"`
	Arguments   []manifestArgument            `yaml:"arguments"`
	Calls       map[string][]manifestArgument `yaml:"calls"`
}

type manifestArgument struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// LoadManifestFile reads a manifest from disk.
func LoadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening manifest: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadManifest(f)
}

// LoadManifest decodes a manifest. Unknown fields are rejected.
func LoadManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error decoding manifest: %w", err)
	}
	return &m, nil
}

// Apply copies the header and arguments into f and fills its call cache.
// A game named in the manifest overrides f.Game.
func (m *Manifest) Apply(f *File) error {
	if m.Name != "" {
		f.Name = m.Name
	}
	f.Description = m.Description
	f.Version = m.Version
	f.LiveData = m.LiveData
	f.CommandID = m.CommandID
	if m.Game != "" {
		g, err := types.ParseGameVersion(m.Game)
		if err != nil {
			return err
		}
		f.Game = g
	}

	args, err := convertArguments(m.Arguments)
	if err != nil {
		return fmt.Errorf("script %s: %w", f.Name, err)
	}
	f.Arguments = args

	for name, entries := range m.Calls {
		args, err := convertArguments(entries)
		if err != nil {
			return fmt.Errorf("called script %s: %w", name, err)
		}
		f.Calls.Put(name, args)
	}
	f.Reset()
	return nil
}

func convertArguments(entries []manifestArgument) ([]Argument, error) {
	out := make([]Argument, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("argument %d has no name", i+1)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("argument %q defined twice", e.Name)
		}
		seen[e.Name] = true

		typ := types.ParamValue
		if e.Type != "" {
			t, err := types.ParseParameterType(e.Type)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", e.Name, err)
			}
			typ = t
		}
		out = append(out, Argument{Name: e.Name, Type: typ, Description: e.Description})
	}
	return out, nil
}
