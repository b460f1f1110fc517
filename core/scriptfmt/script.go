// Package scriptfmt is the binary form of a compiled script.
//
// A file is a fixed preamble followed by two canonical CBOR documents:
//
//	MAGIC(4) | VERSION(2) | FLAGS(2) | HEADER_LEN(4) | BODY_LEN(8) | HEADER | BODY
//
// The header carries metadata (description, version, game, arguments). The
// body carries the variable table and both command streams. The digest
// covers the script name and the body, so two compiles of the same source
// for the same game produce the same digest.
package scriptfmt

const (
	// Magic is the file magic number "MSCI"
	Magic = "MSCI"

	// Version is the format version, major.minor in one uint16 (0x0001 = 1.0)
	Version uint16 = 0x0001
)

// Format limits, enforced by the reader
const (
	maxHeaderLen = 64 * 1024
	maxBodyLen   = 32 * 1024 * 1024
)

// Script is the serialized form of a compiled script.
type Script struct {
	Header Header
	Body   Body
}

// Header is script metadata. It does not take part in the digest, except
// for the name.
type Header struct {
	Name        string     `cbor:"1,keyasint"`
	Description string     `cbor:"2,keyasint,omitempty"`
	Version     int        `cbor:"3,keyasint"`
	Game        int        `cbor:"4,keyasint"` // game release bitmask
	LiveData    bool       `cbor:"5,keyasint,omitempty"`
	CommandID   string     `cbor:"6,keyasint,omitempty"`
	Arguments   []Argument `cbor:"7,keyasint"`
}

// Argument is one script argument
type Argument struct {
	Name        string `cbor:"1,keyasint"`
	Type        int    `cbor:"2,keyasint"`
	Description string `cbor:"3,keyasint,omitempty"`
}

// Body is the compiled code.
type Body struct {
	Variables []string  `cbor:"1,keyasint"`
	Standard  []Command `cbor:"2,keyasint"`
	Auxiliary []Command `cbor:"3,keyasint"`
}

// Command is one compiled command. Ref is the standard-stream index an
// auxiliary command is attached to; it is unused for standard commands.
type Command struct {
	ID     int     `cbor:"1,keyasint"`
	Ref    int     `cbor:"2,keyasint,omitempty"`
	Line   int     `cbor:"3,keyasint"`
	Values []Value `cbor:"4,keyasint"`
}

// Value is one {type, value} pair of a command.
type Value struct {
	Type  int     `cbor:"1,keyasint"`
	Int   int     `cbor:"2,keyasint,omitempty"`
	Str   string  `cbor:"3,keyasint,omitempty"`
	Float float64 `cbor:"4,keyasint,omitempty"`
}
