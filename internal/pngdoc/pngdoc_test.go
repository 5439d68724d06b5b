package pngdoc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stripfetch.adpollak.net/internal/chunk"
)

func buildDoc(t *testing.T, raw []byte) *SimplePNG {
	t.Helper()
	ihdr := chunk.IHDR{Width: 2, Height: 2, BitDepth: 8, ColorType: chunk.ColorTruecolorAlpha}
	doc, err := DeflateIntoPNG(raw, 6, ihdr)
	require.NoError(t, err)
	return doc
}

func TestRoundTrip_ParseWrite(t *testing.T) {
	raw := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04, 0x05}, 4)
	doc := buildDoc(t, raw)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, doc))

	assert.True(t, chunk.IsPNG(buf.Bytes()))

	reparsed, err := ParsePNG(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, doc.IHDR, reparsed.IHDR)
	assert.Equal(t, doc.IDAT, reparsed.IDAT)
	assert.Nil(t, reparsed.FirstCRCMismatch)

	inflated, err := InflateIDAT(reparsed.IDAT)
	require.NoError(t, err)
	assert.Equal(t, raw, inflated)
}

func TestParsePNG_WrongChunkOrder(t *testing.T) {
	ihdr := chunk.IHDR{Width: 1, Height: 1, BitDepth: 8, ColorType: chunk.ColorTruecolorAlpha}
	var buf bytes.Buffer
	buf.Write(chunk.Signature[:])
	out := buf.Bytes()
	// IDAT before IHDR: wrong order.
	out = chunk.WriteChunk(out, chunk.RawChunk{Type: chunk.IDAT, Payload: []byte{1, 2, 3}})
	out = chunk.WriteChunk(out, chunk.RawChunk{Type: chunk.IHDR, Payload: ihdr.Encode()})
	out = chunk.WriteChunk(out, chunk.RawChunk{Type: chunk.IEND})

	_, err := ParsePNG(out)
	require.Error(t, err)
	assert.ErrorIs(t, err, chunk.ErrWrongChunk)
}

func TestParsePNG_NotAPNG(t *testing.T) {
	_, err := ParsePNG([]byte("definitely not a png"))
	assert.ErrorIs(t, err, chunk.ErrNotAPNG)
}

func TestParsePNG_ExtraChunkIsWrongChunk(t *testing.T) {
	ihdr := chunk.IHDR{Width: 1, Height: 1, BitDepth: 8, ColorType: chunk.ColorTruecolorAlpha}
	var buf bytes.Buffer
	buf.Write(chunk.Signature[:])
	out := buf.Bytes()
	out = chunk.WriteChunk(out, chunk.RawChunk{Type: chunk.IHDR, Payload: ihdr.Encode()})
	out = chunk.WriteChunk(out, chunk.RawChunk{Type: chunk.IDAT, Payload: []byte{1}})
	out = chunk.WriteChunk(out, chunk.RawChunk{Type: chunk.IEND})
	out = chunk.WriteChunk(out, chunk.RawChunk{Type: chunk.ChunkType{}, Payload: nil}) // trailing junk

	_, err := ParsePNG(out)
	require.Error(t, err)
	assert.ErrorIs(t, err, chunk.ErrWrongChunk)
}

func TestParsePNG_FirstCRCMismatchRecorded(t *testing.T) {
	doc := buildDoc(t, []byte{1, 2, 3, 4})
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, doc))

	data := buf.Bytes()
	// Corrupt IHDR's CRC (last byte of the chunk).
	ihdrCrcEnd := len(chunk.Signature) + 8 + chunk.IHDRLen + 4
	data[ihdrCrcEnd-1] ^= 0xFF

	reparsed, err := ParsePNG(data)
	require.NoError(t, err)
	require.NotNil(t, reparsed.FirstCRCMismatch)
	// Fields are still usable despite the mismatch.
	assert.Equal(t, doc.IHDR, reparsed.IHDR)
}

func TestInflateDeflate_Idempotent(t *testing.T) {
	for _, level := range []int{0, 1, 6, 9} {
		raw := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF}, 500)
		ihdr := chunk.IHDR{Width: 1, Height: 1, BitDepth: 8, ColorType: chunk.ColorTruecolorAlpha}
		doc, err := DeflateIntoPNG(raw, level, ihdr)
		require.NoError(t, err)

		inflated, err := InflateIDAT(doc.IDAT)
		require.NoError(t, err)
		assert.Equal(t, raw, inflated)
	}
}

func TestInflateIDAT_CompressionError(t *testing.T) {
	_, err := InflateIDAT([]byte{0x00, 0x01, 0x02})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompression)
}
