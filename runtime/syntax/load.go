package syntax

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/opal-lang/msci/core/types"
)

// LoadError reports a problem with one entry of a table document.
type LoadError struct {
	Source string // file name or "<builtin>"
	Entry  int    // 0-based entry index, -1 for document-level errors
	Err    error
}

func (e *LoadError) Error() string {
	if e.Entry < 0 {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: entry %d: %v", e.Source, e.Entry, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type tableDocument struct {
	Format   string         `yaml:"format"`
	Commands []commandEntry `yaml:"commands"`
}

type commandEntry struct {
	ID        int          `yaml:"id"`
	Text      string       `yaml:"text"`
	Versions  []string     `yaml:"versions"`
	Class     string       `yaml:"class"`
	Execution string       `yaml:"execution"`
	VarArgs   bool         `yaml:"varargs"`
	Group     string       `yaml:"group"`
	Params    []paramEntry `yaml:"params"`
}

type paramEntry struct {
	Type    string `yaml:"type"`
	Usage   string `yaml:"usage"`
	Display *int   `yaml:"display"`
}

type objectsDocument struct {
	Format        string        `yaml:"format"`
	GameObjects   []objectEntry `yaml:"game_objects"`
	ScriptObjects []objectEntry `yaml:"script_objects"`
}

type objectEntry struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	ID       int      `yaml:"id"`
	Versions []string `yaml:"versions"`
}

// LoadTableFile reads a syntax table document from disk.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading syntax table %s: %w", path, err)
	}
	return LoadTable(path, data)
}

// LoadTable parses and validates a YAML syntax table document.
func LoadTable(source string, data []byte) (*Table, error) {
	if err := validateDocument(source, data, tableSchema); err != nil {
		return nil, err
	}

	var doc tableDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Source: source, Entry: -1, Err: err}
	}

	syntaxes := make([]*Syntax, 0, len(doc.Commands))
	for i, entry := range doc.Commands {
		s, err := entry.syntax()
		if err != nil {
			return nil, &LoadError{Source: source, Entry: i, Err: err}
		}
		syntaxes = append(syntaxes, s)
	}

	table, err := NewTable(syntaxes)
	if err != nil {
		return nil, &LoadError{Source: source, Entry: -1, Err: err}
	}

	// explicit display indices must agree with the template
	for i, entry := range doc.Commands {
		for j, p := range entry.Params {
			if p.Display != nil && *p.Display != syntaxes[i].Params[j].Display {
				return nil, &LoadError{Source: source, Entry: i, Err: fmt.Errorf(
					"parameter %d: display index %d disagrees with template position %d",
					j, *p.Display, syntaxes[i].Params[j].Display)}
			}
		}
	}

	for _, id := range RequiredIDs {
		if table.Get(id).IsUnrecognised() {
			return nil, &LoadError{Source: source, Entry: -1, Err: fmt.Errorf("missing required command %d", id)}
		}
	}

	table.format = doc.Format
	return table, nil
}

func (e commandEntry) syntax() (*Syntax, error) {
	s := &Syntax{
		ID:      e.ID,
		Text:    e.Text,
		VarArgs: e.VarArgs,
		Group:   e.Group,
	}

	var err error
	if s.Versions, err = parseVersions(e.Versions); err != nil {
		return nil, err
	}

	switch e.Class {
	case "", "standard":
		s.Class = types.ClassStandard
	case "auxiliary":
		s.Class = types.ClassAuxiliary
	case "macro":
		s.Class = types.ClassMacro
	default:
		return nil, fmt.Errorf("unknown command class %q", e.Class)
	}

	switch e.Execution {
	case "", "serial":
		s.Execution = types.ExecSerial
	case "concurrent":
		s.Execution = types.ExecConcurrent
	case "either":
		s.Execution = types.ExecEither
	default:
		return nil, fmt.Errorf("unknown execution mode %q", e.Execution)
	}

	for i, p := range e.Params {
		pt, err := types.ParseParameterType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		param := Param{Physical: i, Type: pt}
		switch p.Usage {
		case "", "plain":
			param.Usage = types.UsagePlain
		case "script-name":
			param.Usage = types.UsageScriptName
		case "string-id":
			param.Usage = types.UsageStringID
		default:
			return nil, fmt.Errorf("parameter %d: unknown usage %q", i, p.Usage)
		}
		s.Params = append(s.Params, param)
	}
	return s, nil
}

// parseVersions converts release acronyms to a mask; empty means all.
func parseVersions(names []string) (types.VersionMask, error) {
	if len(names) == 0 {
		return types.MaskAll, nil
	}
	var mask types.VersionMask
	for _, name := range names {
		g, err := types.ParseGameVersion(name)
		if err != nil {
			return 0, err
		}
		mask |= g.Mask()
	}
	return mask, nil
}

// LoadObjectsFile reads an object name table document from disk.
func LoadObjectsFile(path string) (*Objects, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading object table %s: %w", path, err)
	}
	return LoadObjects(path, data)
}

// LoadObjects parses and validates a YAML object name table document.
func LoadObjects(source string, data []byte) (*Objects, error) {
	if err := validateDocument(source, data, objectsSchema); err != nil {
		return nil, err
	}

	var doc objectsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Source: source, Entry: -1, Err: err}
	}

	game, err := convertObjects(source, doc.GameObjects)
	if err != nil {
		return nil, err
	}
	script, err := convertObjects(source, doc.ScriptObjects)
	if err != nil {
		return nil, err
	}
	return NewObjects(game, script), nil
}

func convertObjects(source string, entries []objectEntry) ([]Object, error) {
	out := make([]Object, 0, len(entries))
	for i, e := range entries {
		dt, err := types.ParseDataType(e.Type)
		if err != nil {
			return nil, &LoadError{Source: source, Entry: i, Err: err}
		}
		mask, err := parseVersions(e.Versions)
		if err != nil {
			return nil, &LoadError{Source: source, Entry: i, Err: err}
		}
		out = append(out, Object{Name: e.Name, Type: dt, ID: e.ID, Versions: mask})
	}
	return out, nil
}

// validateDocument checks a YAML document against a JSON schema. The YAML is
// converted to JSON first so the validator sees JSON numbers.
func validateDocument(source string, data []byte, schemaText string) error {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &LoadError{Source: source, Entry: -1, Err: err}
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return &LoadError{Source: source, Entry: -1, Err: fmt.Errorf("document is not JSON compatible: %w", err)}
	}
	dec := json.NewDecoder(bytes.NewReader(asJSON))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return &LoadError{Source: source, Entry: -1, Err: err}
	}

	schema, err := schemas.compile(schemaText)
	if err != nil {
		return &LoadError{Source: source, Entry: -1, Err: fmt.Errorf("schema compilation failed: %w", err)}
	}
	if err := schema.Validate(doc); err != nil {
		return &LoadError{Source: source, Entry: -1, Err: convertValidationError(err)}
	}
	return nil
}

// schemaCache holds compiled schemas keyed by the hash of their text
type schemaCache struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

var schemas = &schemaCache{cache: make(map[string]*jsonschema.Schema)}

// compile returns the cached schema for schemaText, compiling it on first use.
// Failed compilations are not cached.
func (c *schemaCache) compile(schemaText string) (*jsonschema.Schema, error) {
	hash := sha256.Sum256([]byte(schemaText))
	key := hex.EncodeToString(hash[:])

	c.mu.RLock()
	schema, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	schema, err := compileSchema(schemaText)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = schema
	c.mu.Unlock()
	return schema, nil
}

// len reports the number of cached schemas
func (c *schemaCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func compileSchema(schemaText string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	compiler.Formats["semver"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		// semver.IsValid requires the "v" prefix
		if !strings.HasPrefix(s, "v") {
			s = "v" + s
		}
		return semver.IsValid(s)
	}

	url := "schema://table.json"
	if err := compiler.AddResource(url, strings.NewReader(schemaText)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// convertValidationError flattens a jsonschema validation error to its
// innermost causes.
func convertValidationError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return fmt.Errorf("invalid document: %s", strings.Join(msgs, "; "))
}

// Both documents share the version format check.
var tableSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["format", "commands"],
  "additionalProperties": false,
  "properties": {
    "format": {"type": "string", "format": "semver"},
    "commands": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "text"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "text": {"type": "string"},
          "versions": {"type": "array", "items": {"enum": ["X2", "X3R", "X3TC", "X3AP"]}},
          "class": {"enum": ["standard", "auxiliary", "macro"]},
          "execution": {"enum": ["serial", "concurrent", "either"]},
          "varargs": {"type": "boolean"},
          "group": {"type": "string"},
          "params": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["type"],
              "additionalProperties": false,
              "properties": {
                "type": {"type": "string"},
                "usage": {"enum": ["plain", "script-name", "string-id"]},
                "display": {"type": "integer", "minimum": 0}
              }
            }
          }
        }
      }
    }
  }
}`

var objectsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["format"],
  "additionalProperties": false,
  "properties": {
    "format": {"type": "string", "format": "semver"},
    "game_objects": {"$ref": "#/$defs/objects"},
    "script_objects": {"$ref": "#/$defs/objects"}
  },
  "$defs": {
    "objects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type", "id"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "id": {"type": "integer"},
          "versions": {"type": "array", "items": {"enum": ["X2", "X3R", "X3TC", "X3AP"]}}
        }
      }
    }
  }
}`
