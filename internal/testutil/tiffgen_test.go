package testutil

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOMETIFFHeader(t *testing.T) {
	data := BuildOMETIFF(SlideSpec{})
	require.Greater(t, len(data), 8)
	assert.Equal(t, "II", string(data[:2]))
	assert.Equal(t, uint16(42), binary.LittleEndian.Uint16(data[2:4]))
	assert.NotZero(t, binary.LittleEndian.Uint32(data[4:8]))
}

func TestBuildOMETIFFBigTIFFHeader(t *testing.T) {
	data := BuildOMETIFF(SlideSpec{BigTIFF: true})
	require.Greater(t, len(data), 16)
	assert.Equal(t, "II", string(data[:2]))
	assert.Equal(t, uint16(43), binary.LittleEndian.Uint16(data[2:4]))
	assert.Equal(t, uint16(8), binary.LittleEndian.Uint16(data[4:6]))
	assert.Zero(t, binary.LittleEndian.Uint16(data[6:8]))
	assert.NotZero(t, binary.LittleEndian.Uint64(data[8:16]))
}

func TestSplitJPEGTables(t *testing.T) {
	block := make([]byte, 16*16)
	for i := range block {
		block[i] = byte(i)
	}
	full := encodeJPEGBlock(SlideSpec{Channels: 1, JPEGQuality: 90}, block, 16, 16)
	tables, abbrev := splitJPEGTables(full)

	// Tables become a standalone stream holding the DQT and DHT segments.
	assert.Equal(t, []byte{0xff, 0xd8}, tables[:2])
	assert.Equal(t, []byte{0xff, 0xd9}, tables[len(tables)-2:])
	assert.True(t, bytes.Contains(tables, []byte{0xff, 0xdb}))
	assert.True(t, bytes.Contains(tables, []byte{0xff, 0xc4}))

	// The abbreviated stream keeps everything else; only the extra
	// SOI/EOI pair around the tables is new.
	assert.Equal(t, []byte{0xff, 0xd8}, abbrev[:2])
	assert.Equal(t, len(full)+4, len(tables)+len(abbrev))
}

func TestOMEXMLReflectsSpec(t *testing.T) {
	xml := OMEXML(SlideSpec{Width: 640, Height: 480, Channels: 3, Unit: "mm"})
	assert.Contains(t, xml, `SizeX="640"`)
	assert.Contains(t, xml, `SizeY="480"`)
	assert.Contains(t, xml, `SizeC="3"`)
	assert.Contains(t, xml, `PhysicalSizeXUnit="mm"`)
	assert.Contains(t, xml, `Interleaved="true"`)
}

func TestPixelValueDeterministic(t *testing.T) {
	assert.Equal(t, PixelValue(0, 1, 2, 0), PixelValue(0, 1, 2, 0))
	assert.NotEqual(t, PixelValue(0, 1, 2, 0), PixelValue(1, 1, 2, 0))
}

func TestPackBitsRoundTripShape(t *testing.T) {
	src := make([]byte, 300)
	for i := range src {
		src[i] = byte(i)
	}
	enc := packBits(src)
	// Literal-run encoding adds one header byte per 128-byte chunk.
	assert.Len(t, enc, 300+3)
}
