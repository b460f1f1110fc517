package scriptfmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/msci/core/invariant"
)

var encMode cbor.EncMode

func init() {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	invariant.ExpectNoError(err, "canonical CBOR encoder")
	encMode = mode
}

// Write writes s to w and returns its BLAKE2b-256 digest.
func Write(w io.Writer, s *Script) ([32]byte, error) {
	invariant.NotNil(s, "script")

	header, err := encMode.Marshal(&s.Header)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode header: %w", err)
	}
	body, err := encMode.Marshal(&s.Body)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode body: %w", err)
	}
	if len(header) > maxHeaderLen {
		return [32]byte{}, fmt.Errorf("header length %d exceeds maximum %d", len(header), maxHeaderLen)
	}
	if len(body) > maxBodyLen {
		return [32]byte{}, fmt.Errorf("body length %d exceeds maximum %d", len(body), maxBodyLen)
	}

	var preamble [20]byte
	copy(preamble[0:4], Magic)
	binary.LittleEndian.PutUint16(preamble[4:6], Version)
	binary.LittleEndian.PutUint16(preamble[6:8], 0)
	binary.LittleEndian.PutUint32(preamble[8:12], uint32(len(header)))
	binary.LittleEndian.PutUint64(preamble[12:20], uint64(len(body)))

	for _, part := range [][]byte{preamble[:], header, body} {
		if _, err := w.Write(part); err != nil {
			return [32]byte{}, fmt.Errorf("write: %w", err)
		}
	}
	return digest(s.Header.Name, body)
}

// Marshal returns the binary form of s.
func Marshal(s *Script) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := Write(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest returns the hex digest of s, "blake2b:<hex>".
func Digest(s *Script) (string, error) {
	body, err := encMode.Marshal(&s.Body)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	sum, err := digest(s.Header.Name, body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("blake2b:%x", sum), nil
}

func digest(name string, body []byte) ([32]byte, error) {
	hasher, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, fmt.Errorf("create hasher: %w", err)
	}
	hasher.Write([]byte(name))
	hasher.Write(body)

	var sum [32]byte
	copy(sum[:], hasher.Sum(nil))
	return sum, nil
}
