// Package chunk implements the PNG chunk wire format: the 8-byte signature,
// length/type/payload/CRC framing, and the IHDR payload layout, operating
// on an in-memory byte buffer so it can parse an HTTP response body
// directly.
package chunk

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/snksoft/crc"
)

// Signature is the fixed 8-byte PNG magic every valid datastream starts with.
var Signature = [8]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// ChunkType is a 4-byte ASCII chunk tag, e.g. IHDR, IDAT, IEND.
type ChunkType struct {
	slug string
}

func (t ChunkType) String() string { return t.slug }

// Bytes returns the 4 ASCII bytes of the chunk type.
func (t ChunkType) Bytes() []byte { return []byte(t.slug) }

var (
	Unknown = ChunkType{""}
	IHDR    = ChunkType{"IHDR"}
	IDAT    = ChunkType{"IDAT"}
	IEND    = ChunkType{"IEND"}
)

// FromString resolves a 4-character chunk tag to its ChunkType. Only the
// three mandatory chunks this system handles are recognized; any other tag
// is still returned, as a ChunkType carrying that tag, rather than erroring,
// since WrongChunk is reported by the caller based on expected chunk order,
// not on the registry.
func FromString(s string) ChunkType {
	switch s {
	case IHDR.slug:
		return IHDR
	case IDAT.slug:
		return IDAT
	case IEND.slug:
		return IEND
	}
	return ChunkType{s}
}

// RawChunk is the length/type/payload/crc framing of a single PNG chunk.
type RawChunk struct {
	Length  uint32
	Type    ChunkType
	Payload []byte
	Crc     uint32 // stored verbatim as read off the wire; verify with VerifyCRC
}

// IsPNG reports whether data begins with the 8-byte PNG signature.
func IsPNG(data []byte) bool {
	if len(data) < len(Signature) {
		return false
	}
	for i, b := range Signature {
		if data[i] != b {
			return false
		}
	}
	return true
}

// ReadChunk decodes one chunk starting at offset and returns the chunk plus
// the offset immediately following it. It fails with a Truncated error if
// any field would read past the end of buf; CRC verification is a separate
// step (VerifyCRC).
func ReadChunk(buf []byte, offset int) (RawChunk, int, error) {
	const headerLen = 8 // length (4) + type (4)
	if offset < 0 || offset+headerLen > len(buf) {
		return RawChunk{}, offset, errors.Wrapf(ErrTruncated, "chunk header at offset %d", offset)
	}
	length := binary.BigEndian.Uint32(buf[offset : offset+4])
	typ := FromString(string(buf[offset+4 : offset+8]))
	offset += headerLen

	if offset+int(length)+4 > len(buf) {
		return RawChunk{}, offset, errors.Wrapf(ErrTruncated, "chunk %s payload+crc (length %d) at offset %d", typ, length, offset)
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		copy(payload, buf[offset:offset+int(length)])
	}
	offset += int(length)

	crcVal := binary.BigEndian.Uint32(buf[offset : offset+4])
	offset += 4

	return RawChunk{Length: length, Type: typ, Payload: payload, Crc: crcVal}, offset, nil
}

// WriteChunk serializes length‖type‖payload‖crc into sink, recomputing the
// CRC over type‖payload rather than trusting any value already stored on c.
func WriteChunk(sink []byte, c RawChunk) []byte {
	var lenBuf, crcBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(c.Payload)))
	sink = append(sink, lenBuf[:]...)
	sink = append(sink, c.Type.Bytes()...)
	sink = append(sink, c.Payload...)
	binary.BigEndian.PutUint32(crcBuf[:], ComputeCRC(c.Type, c.Payload))
	sink = append(sink, crcBuf[:]...)
	return sink
}

// ComputeCRC computes the PNG CRC-32 (IEEE 802.3 polynomial) over
// type‖payload.
func ComputeCRC(t ChunkType, payload []byte) uint32 {
	data := make([]byte, 0, len(t.slug)+len(payload))
	data = append(data, t.Bytes()...)
	data = append(data, payload...)
	return uint32(crc.CalculateCRC(crc.CRC32, data))
}

// CrcMismatchError records a chunk whose stored CRC did not match the
// computed one. Per spec, this is non-fatal: the chunk's data is still used
// by the caller, and only the first mismatch per PNG is retained.
type CrcMismatchError struct {
	Type     ChunkType
	Expected uint32
	Computed uint32
}

func (e *CrcMismatchError) Error() string {
	return fmt.Sprintf("crc mismatch in %s chunk: stored %08x, computed %08x", e.Type, e.Expected, e.Computed)
}

// VerifyCRC recomputes the CRC over c.Type‖c.Payload and compares it against
// c.Crc. It returns a *CrcMismatchError (not a sentinel) on mismatch so
// callers can retain the expected/computed pair for reporting.
func VerifyCRC(c RawChunk) error {
	computed := ComputeCRC(c.Type, c.Payload)
	if computed != c.Crc {
		return &CrcMismatchError{Type: c.Type, Expected: c.Crc, Computed: computed}
	}
	return nil
}
