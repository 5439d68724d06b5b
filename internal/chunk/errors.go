package chunk

import "errors"

// Sentinel errors for the taxonomy kinds this package can produce. Higher
// layers (pngdoc, pipeline) wrap these with errors.Wrap/Wrapf for context
// and inspect them with errors.Is.
var (
	// ErrNotAPNG means the signature check failed.
	ErrNotAPNG = errors.New("not a png: bad signature")
	// ErrTruncated means a buffer was too short for a chunk's declared length.
	ErrTruncated = errors.New("truncated png: buffer too short for chunk")
	// ErrWrongChunk means chunk order/type/count violated the expected
	// IHDR, IDAT, IEND sequence.
	ErrWrongChunk = errors.New("wrong chunk: unexpected type or order")
)
