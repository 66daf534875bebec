package ome

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOME = `<?xml version="1.0" encoding="UTF-8"?>
<OME xmlns="http://www.openmicroscopy.org/Schemas/OME/2016-06" Creator="test">
  <Image ID="Image:0" Name="slide">
    <Pixels ID="Pixels:0" DimensionOrder="XYCZT" Type="uint8"
            SizeX="2048" SizeY="1024" SizeZ="1" SizeC="3" SizeT="1"
            PhysicalSizeX="0.25" PhysicalSizeXUnit="µm"
            PhysicalSizeY="0.25" PhysicalSizeYUnit="µm"
            Interleaved="true">
      <Channel ID="Channel:0:0" Name="Red" SamplesPerPixel="3"/>
    </Pixels>
  </Image>
</OME>`

func TestParseSampleDocument(t *testing.T) {
	doc, err := Parse([]byte(sampleOME))
	require.NoError(t, err)
	require.Len(t, doc.Images, 1)

	px := doc.Images[0].Pixels
	assert.Equal(t, "XYCZT", px.DimensionOrder)
	assert.Equal(t, "uint8", px.Type)
	assert.Equal(t, 2048, px.SizeX)
	assert.Equal(t, 1024, px.SizeY)
	assert.Equal(t, 3, px.SizeC)
	assert.True(t, px.Interleaved)
	assert.InDelta(t, 0.25, px.PhysicalSizeX, 1e-9)
	require.Len(t, px.Channels, 1)
	assert.Equal(t, "Red", px.Channels[0].Name)
}

func TestParseRejectsNonOME(t *testing.T) {
	_, err := Parse([]byte(`<TiffData/>`))
	assert.ErrorIs(t, err, ErrNotOME)

	_, err = Parse([]byte(`not xml at all`))
	assert.ErrorIs(t, err, ErrNotOME)
}

func TestParseRejectsMissingImage(t *testing.T) {
	_, err := Parse([]byte(`<OME xmlns="http://www.openmicroscopy.org/Schemas/OME/2016-06"></OME>`))
	assert.ErrorIs(t, err, ErrNotOME)
}

func TestValidateSizes(t *testing.T) {
	px := Pixels{DimensionOrder: "XYZCT", SizeX: 10, SizeY: 10, SizeZ: 1, SizeC: 1, SizeT: 1}
	require.NoError(t, px.Validate())

	px.SizeC = 0
	err := px.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SizeC")
}

func TestValidateDimensionOrder(t *testing.T) {
	tests := []struct {
		order string
		ok    bool
	}{
		{"XYZCT", true},
		{"XYCZT", true},
		{"TCZYX", true},
		{"XYZC", false},
		{"XXZCT", false},
		{"XYZCQ", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("order=%q", tt.order), func(t *testing.T) {
			px := Pixels{DimensionOrder: tt.order, SizeX: 1, SizeY: 1, SizeZ: 1, SizeC: 1, SizeT: 1}
			err := px.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSizeByAxis(t *testing.T) {
	px := Pixels{SizeX: 5, SizeY: 6, SizeZ: 7, SizeC: 8, SizeT: 9}
	assert.Equal(t, 5, px.Size('X'))
	assert.Equal(t, 6, px.Size('y'))
	assert.Equal(t, 7, px.Size('Z'))
	assert.Equal(t, 8, px.Size('c'))
	assert.Equal(t, 9, px.Size('T'))
	assert.Equal(t, 0, px.Size('q'))
	assert.Equal(t, 7*8*9, px.PlaneCount())
}
