package chunk

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Color type values a PNG IHDR may declare, as specified in the PNG
// standard's 11.2.2. Full image reconstruction per color type is out of
// scope here; only the legality check is needed.
const (
	ColorGreyscale      = 0
	ColorTruecolor      = 2
	ColorIndexed        = 3
	ColorGreyscaleAlpha = 4
	ColorTruecolorAlpha = 6
)

// IHDRLen is the fixed size of a decoded IHDR payload.
const IHDRLen = 13

// IHDR is the decoded 13-byte IHDR payload.
type IHDR struct {
	Width             uint32
	Height            uint32
	BitDepth          uint8
	ColorType         uint8
	CompressionMethod uint8
	FilterMethod      uint8
	InterlaceMethod   uint8
}

// DecodeIHDR parses a 13-byte IHDR payload.
func DecodeIHDR(payload []byte) (IHDR, error) {
	if len(payload) != IHDRLen {
		return IHDR{}, errors.Wrapf(ErrWrongChunk, "IHDR payload length %d, want %d", len(payload), IHDRLen)
	}
	h := IHDR{
		Width:             binary.BigEndian.Uint32(payload[0:4]),
		Height:            binary.BigEndian.Uint32(payload[4:8]),
		BitDepth:          payload[8],
		ColorType:         payload[9],
		CompressionMethod: payload[10],
		FilterMethod:      payload[11],
		InterlaceMethod:   payload[12],
	}
	return h, nil
}

// Encode serializes the IHDR back into its 13-byte wire payload.
func (h IHDR) Encode() []byte {
	payload := make([]byte, IHDRLen)
	binary.BigEndian.PutUint32(payload[0:4], h.Width)
	binary.BigEndian.PutUint32(payload[4:8], h.Height)
	payload[8] = h.BitDepth
	payload[9] = h.ColorType
	payload[10] = h.CompressionMethod
	payload[11] = h.FilterMethod
	payload[12] = h.InterlaceMethod
	return payload
}

// Validate checks the IHDR field invariants from the data model: width and
// height must be nonzero, bit depth must be a legal PNG value, and color
// type must be one of the five PNG-defined color types.
func (h IHDR) Validate() error {
	if h.Width == 0 || h.Height == 0 {
		return errors.Wrapf(ErrWrongChunk, "IHDR width/height must be > 0, got %dx%d", h.Width, h.Height)
	}
	switch h.BitDepth {
	case 1, 2, 4, 8, 16:
	default:
		return errors.Wrapf(ErrWrongChunk, "IHDR bit depth %d is not legal", h.BitDepth)
	}
	switch h.ColorType {
	case ColorGreyscale, ColorTruecolor, ColorIndexed, ColorGreyscaleAlpha, ColorTruecolorAlpha:
	default:
		return errors.Wrapf(ErrWrongChunk, "IHDR color type %d is not legal", h.ColorType)
	}
	return nil
}
