// Package pngdoc assembles and decomposes the three-chunk PNG documents this
// system exchanges: signature, IHDR, a single IDAT, IEND. It is a pure
// in-memory codec with no ancillary chunk support; full PNG conformance is
// out of scope.
package pngdoc

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"

	"stripfetch.adpollak.net/internal/chunk"
)

// SimplePNG is the three-chunk PNG document this system's fragments (and its
// own output) are composed of.
type SimplePNG struct {
	IHDR chunk.IHDR
	IDAT []byte // compressed (zlib/deflate) payload, retained verbatim

	// FirstCRCMismatch records the first chunk CRC mismatch encountered
	// while parsing, if any. Per spec this is non-fatal: the chunk's data
	// is still used, but the first mismatch is surfaced here.
	FirstCRCMismatch *chunk.CrcMismatchError
}

// ParsePNG consumes the 8-byte signature and exactly three chunks, in the
// order IHDR, IDAT, IEND. Any other chunk count or ordering is a WrongChunk
// error. CRC mismatches are non-fatal: the chunk is accepted and its data
// retained, with only the first mismatch recorded on the result.
func ParsePNG(data []byte) (*SimplePNG, error) {
	if !chunk.IsPNG(data) {
		return nil, chunk.ErrNotAPNG
	}

	doc := &SimplePNG{}
	offset := len(chunk.Signature)

	if offset == len(data) {
		return nil, errors.Wrap(chunk.ErrWrongChunk, "missing IHDR chunk")
	}
	ihdrChunk, offset, err := chunk.ReadChunk(data, offset)
	if err != nil {
		return nil, errors.Wrap(err, "reading IHDR chunk")
	}
	if ihdrChunk.Type != chunk.IHDR {
		return nil, errors.Wrapf(chunk.ErrWrongChunk, "expected IHDR first, got %s", ihdrChunk.Type)
	}
	doc.recordCRC(ihdrChunk)
	ihdr, err := chunk.DecodeIHDR(ihdrChunk.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "decoding IHDR payload")
	}
	if err := ihdr.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating IHDR")
	}
	doc.IHDR = ihdr

	if offset == len(data) {
		return nil, errors.Wrap(chunk.ErrWrongChunk, "missing IDAT chunk")
	}
	idatChunk, offset, err := chunk.ReadChunk(data, offset)
	if err != nil {
		return nil, errors.Wrap(err, "reading IDAT chunk")
	}
	if idatChunk.Type != chunk.IDAT {
		return nil, errors.Wrapf(chunk.ErrWrongChunk, "expected IDAT second, got %s", idatChunk.Type)
	}
	doc.recordCRC(idatChunk)
	doc.IDAT = idatChunk.Payload

	if offset == len(data) {
		return nil, errors.Wrap(chunk.ErrWrongChunk, "missing IEND chunk")
	}
	iendChunk, offset, err := chunk.ReadChunk(data, offset)
	if err != nil {
		return nil, errors.Wrap(err, "reading IEND chunk")
	}
	if iendChunk.Type != chunk.IEND {
		return nil, errors.Wrapf(chunk.ErrWrongChunk, "expected IEND third, got %s", iendChunk.Type)
	}
	doc.recordCRC(iendChunk)

	if offset != len(data) {
		return nil, errors.Wrapf(chunk.ErrWrongChunk, "trailing data after IEND: %d extra bytes", len(data)-offset)
	}

	return doc, nil
}

// recordCRC verifies c's CRC and, on the first mismatch seen for this
// document, stores it on doc.FirstCRCMismatch. Later mismatches in the same
// document are still non-fatal but are not separately recorded.
func (doc *SimplePNG) recordCRC(c chunk.RawChunk) {
	if err := chunk.VerifyCRC(c); err != nil {
		if doc.FirstCRCMismatch == nil {
			if mismatch, ok := err.(*chunk.CrcMismatchError); ok {
				doc.FirstCRCMismatch = mismatch
			}
		}
	}
}

// WritePNG emits signature‖IHDR-chunk‖IDAT-chunk‖IEND-chunk, each with a
// freshly computed CRC.
func WritePNG(w io.Writer, doc *SimplePNG) error {
	buf := make([]byte, 0, len(chunk.Signature)+IHDRChunkLen+len(doc.IDAT)+IENDChunkLen)
	buf = append(buf, chunk.Signature[:]...)
	buf = chunk.WriteChunk(buf, chunk.RawChunk{Type: chunk.IHDR, Payload: doc.IHDR.Encode()})
	buf = chunk.WriteChunk(buf, chunk.RawChunk{Type: chunk.IDAT, Payload: doc.IDAT})
	buf = chunk.WriteChunk(buf, chunk.RawChunk{Type: chunk.IEND, Payload: nil})
	_, err := w.Write(buf)
	return errors.Wrap(err, "writing png")
}

// IHDRChunkLen and IENDChunkLen are used only to size WritePNG's scratch
// buffer; they are not wire constants consumers should depend on.
const (
	IHDRChunkLen = 8 + chunk.IHDRLen + 4
	IENDChunkLen = 8 + 0 + 4
)

// InflateIDAT decompresses a single IDAT payload. On codec failure it
// returns a CompressionError-wrapped error; the consumer worker then does not
// place the fragment and requeues its sequence instead.
func InflateIDAT(idat []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(idat))
	if err != nil {
		return nil, &CompressionError{Cause: err}
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, &CompressionError{Cause: err}
	}
	return out, nil
}

// DeflateIntoPNG compresses raw at the given zlib level and returns a new
// SimplePNG with ihdr as its header and the compressed bytes as its sole
// IDAT payload.
func DeflateIntoPNG(raw []byte, level int, ihdr chunk.IHDR) (*SimplePNG, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, &CompressionError{Cause: err}
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, &CompressionError{Cause: err}
	}
	if err := zw.Close(); err != nil {
		return nil, &CompressionError{Cause: err}
	}
	return &SimplePNG{IHDR: ihdr, IDAT: buf.Bytes()}, nil
}

// ErrCompression is the sentinel CompressionError kind; test with errors.Is.
var ErrCompression = errors.New("compression error")

// CompressionError wraps an inflate/deflate codec failure. It satisfies
// errors.Is(err, ErrCompression) via Is, and errors.Unwrap for the
// underlying codec error.
type CompressionError struct {
	Cause error
}

func (e *CompressionError) Error() string { return "compression error: " + e.Cause.Error() }
func (e *CompressionError) Unwrap() error { return e.Cause }
func (e *CompressionError) Is(target error) bool { return target == ErrCompression }
