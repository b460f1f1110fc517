package types

import (
	"fmt"
	"strings"
)

// GameVersion identifies one release of the game. Each release supports its
// own subset of commands.
type GameVersion int

const (
	GameX2 GameVersion = iota
	GameX3R
	GameX3TC
	GameX3AP
)

// AllGameVersions lists every supported release, oldest first.
var AllGameVersions = []GameVersion{GameX2, GameX3R, GameX3TC, GameX3AP}

// String returns the release acronym
func (g GameVersion) String() string {
	switch g {
	case GameX2:
		return "X2"
	case GameX3R:
		return "X3R"
	case GameX3TC:
		return "X3TC"
	case GameX3AP:
		return "X3AP"
	default:
		return fmt.Sprintf("GameVersion(%d)", int(g))
	}
}

// Mask returns the compatibility bit for this release.
func (g GameVersion) Mask() VersionMask {
	return VersionMask(1) << uint(g)
}

// ParseGameVersion parses a release acronym, case-insensitively.
func ParseGameVersion(s string) (GameVersion, error) {
	for _, g := range AllGameVersions {
		if strings.EqualFold(s, g.String()) {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown game version %q (expected X2, X3R, X3TC or X3AP)", s)
}

// VersionMask is a bitmask of compatible releases.
type VersionMask uint8

// MaskAll is compatible with every release.
const MaskAll = VersionMask(0x0F)

// Supports reports whether the mask includes the release.
func (m VersionMask) Supports(g GameVersion) bool {
	return m&g.Mask() != 0
}

// Versions returns the releases included in the mask.
func (m VersionMask) Versions() []GameVersion {
	var out []GameVersion
	for _, g := range AllGameVersions {
		if m.Supports(g) {
			out = append(out, g)
		}
	}
	return out
}

// DataType is the value category stored with every compiled parameter.
type DataType int

const (
	DTNull DataType = iota
	DTUnknown
	DTVariable
	DTConstant
	DTInteger
	DTString
	DTFloat
	DTWare
	DTSector
	DTObjectClass
	DTRace
	DTRelation
	DTDataType
	DTFlightReturn
	DTObjectCommand
	DTOperator
)

var dataTypeNames = [...]string{
	DTNull:          "null",
	DTUnknown:       "unknown",
	DTVariable:      "variable",
	DTConstant:      "constant",
	DTInteger:       "integer",
	DTString:        "string",
	DTFloat:         "float",
	DTWare:          "ware",
	DTSector:        "sector",
	DTObjectClass:   "object class",
	DTRace:          "race",
	DTRelation:      "relation",
	DTDataType:      "data type",
	DTFlightReturn:  "flight return",
	DTObjectCommand: "object command",
	DTOperator:      "operator",
}

func (d DataType) String() string {
	if d >= 0 && int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// ParseDataType parses a data type name as written in syntax and object tables.
func ParseDataType(s string) (DataType, error) {
	for i, name := range dataTypeNames {
		if strings.EqualFold(s, name) || strings.EqualFold(strings.ReplaceAll(name, " ", "_"), s) {
			return DataType(i), nil
		}
	}
	return DTUnknown, fmt.Errorf("unknown data type %q", s)
}

// ParameterType is the category of values a parameter slot accepts.
type ParameterType int

const (
	ParamValue ParameterType = iota
	ParamNumber
	ParamString
	ParamVariable
	ParamRetVar
	ParamRefObj
	ParamLabel
	ParamScriptName
	ParamExpression
	ParamComment
	ParamWare
	ParamSector
	ParamRace
	ParamRelation
	ParamObjectClass
	ParamConstant
)

var parameterTypeNames = [...]string{
	ParamValue:       "value",
	ParamNumber:      "number",
	ParamString:      "string",
	ParamVariable:    "variable",
	ParamRetVar:      "retvar",
	ParamRefObj:      "refobj",
	ParamLabel:       "label",
	ParamScriptName:  "script",
	ParamExpression:  "expression",
	ParamComment:     "comment",
	ParamWare:        "ware",
	ParamSector:      "sector",
	ParamRace:        "race",
	ParamRelation:    "relation",
	ParamObjectClass: "class",
	ParamConstant:    "constant",
}

func (p ParameterType) String() string {
	if p >= 0 && int(p) < len(parameterTypeNames) {
		return parameterTypeNames[p]
	}
	return fmt.Sprintf("ParameterType(%d)", int(p))
}

// ParseParameterType parses a parameter type name as written in syntax tables.
func ParseParameterType(s string) (ParameterType, error) {
	for i, name := range parameterTypeNames {
		if strings.EqualFold(s, name) {
			return ParameterType(i), nil
		}
	}
	return ParamValue, fmt.Errorf("unknown parameter type %q", s)
}

// Accepts reports whether a value of data type d may fill a slot of type p.
// Variables are accepted everywhere a runtime value is; the game resolves
// them when the script runs.
func (p ParameterType) Accepts(d DataType) bool {
	switch p {
	case ParamValue, ParamExpression:
		return d != DTOperator && d != DTUnknown
	case ParamNumber:
		return d == DTInteger || d == DTFloat || d == DTVariable || d == DTNull
	case ParamString:
		return d == DTString || d == DTVariable || d == DTNull
	case ParamVariable, ParamRetVar:
		return d == DTVariable
	case ParamRefObj:
		return d == DTVariable || d == DTConstant || d == DTNull
	case ParamLabel:
		return d == DTString || d == DTInteger
	case ParamScriptName, ParamComment:
		return d == DTString
	case ParamWare:
		return d == DTWare || d == DTVariable
	case ParamSector:
		return d == DTSector || d == DTVariable
	case ParamRace:
		return d == DTRace || d == DTVariable
	case ParamRelation:
		return d == DTRelation || d == DTVariable
	case ParamObjectClass:
		return d == DTObjectClass || d == DTVariable
	case ParamConstant:
		return d == DTConstant || d == DTDataType || d == DTFlightReturn || d == DTObjectCommand || d == DTVariable
	default:
		return false
	}
}

// ParameterUsage tags how a parameter's value is interpreted by the game.
type ParameterUsage int

const (
	UsagePlain      ParameterUsage = iota
	UsageScriptName                // names another script; drives argument lookups
	UsageStringID                  // string or language page ID reference
)

func (u ParameterUsage) String() string {
	switch u {
	case UsagePlain:
		return "plain"
	case UsageScriptName:
		return "script-name"
	case UsageStringID:
		return "string-id"
	default:
		return fmt.Sprintf("ParameterUsage(%d)", int(u))
	}
}

// CommandClass selects the output stream a command compiles into.
type CommandClass int

const (
	ClassStandard CommandClass = iota
	ClassAuxiliary
	ClassMacro
)

func (c CommandClass) String() string {
	switch c {
	case ClassStandard:
		return "standard"
	case ClassAuxiliary:
		return "auxiliary"
	case ClassMacro:
		return "macro"
	default:
		return fmt.Sprintf("CommandClass(%d)", int(c))
	}
}

// ExecutionMode controls whether a command may be launched with 'start'.
type ExecutionMode int

const (
	ExecSerial ExecutionMode = iota
	ExecConcurrent
	ExecEither
)

func (e ExecutionMode) String() string {
	switch e {
	case ExecSerial:
		return "serial"
	case ExecConcurrent:
		return "concurrent"
	case ExecEither:
		return "either"
	default:
		return fmt.Sprintf("ExecutionMode(%d)", int(e))
	}
}

// AllowsStart reports whether the command may be prefixed with 'start'.
func (e ExecutionMode) AllowsStart() bool {
	return e == ExecConcurrent || e == ExecEither
}
