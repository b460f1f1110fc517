package scriptfmt

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/opal-lang/msci/core/invariant"
)

var decMode cbor.DecMode

func init() {
	mode, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	invariant.ExpectNoError(err, "CBOR decoder")
	decMode = mode
}

// Read reads a script from r and returns it with its digest.
func Read(r io.Reader) (*Script, [32]byte, error) {
	var preamble [20]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, [32]byte{}, fmt.Errorf("read preamble: %w", err)
	}

	if magic := string(preamble[0:4]); magic != Magic {
		return nil, [32]byte{}, fmt.Errorf("invalid magic: got %q, expected %q", magic, Magic)
	}
	if version := binary.LittleEndian.Uint16(preamble[4:6]); version != Version {
		return nil, [32]byte{}, fmt.Errorf("unsupported version: got 0x%04x, expected 0x%04x", version, Version)
	}
	if flags := binary.LittleEndian.Uint16(preamble[6:8]); flags != 0 {
		return nil, [32]byte{}, fmt.Errorf("unsupported flags: 0x%04x", flags)
	}

	headerLen := binary.LittleEndian.Uint32(preamble[8:12])
	bodyLen := binary.LittleEndian.Uint64(preamble[12:20])
	if headerLen > maxHeaderLen {
		return nil, [32]byte{}, fmt.Errorf("header length %d exceeds maximum %d", headerLen, maxHeaderLen)
	}
	if bodyLen > maxBodyLen {
		return nil, [32]byte{}, fmt.Errorf("body length %d exceeds maximum %d", bodyLen, maxBodyLen)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, [32]byte{}, fmt.Errorf("read header: %w", err)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, [32]byte{}, fmt.Errorf("read body: %w", err)
	}

	s := &Script{}
	if err := decMode.Unmarshal(header, &s.Header); err != nil {
		return nil, [32]byte{}, fmt.Errorf("parse header: %w", err)
	}
	if err := decMode.Unmarshal(body, &s.Body); err != nil {
		return nil, [32]byte{}, fmt.Errorf("parse body: %w", err)
	}

	sum, err := digest(s.Header.Name, body)
	if err != nil {
		return nil, [32]byte{}, err
	}
	return s, sum, nil
}
