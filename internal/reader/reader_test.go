package reader

import (
	"strings"
	"testing"

	"github.com/osilab/ometiff/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOMETIFFPath(t *testing.T) {
	for _, p := range []string{
		"scan.ome.tif", "scan.ome.tiff", "scan.ome_tif", "scan.ome_tiff",
		"/data/slides/A1.OME.TIFF", "b.Ome.Tif",
	} {
		assert.True(t, IsOMETIFFPath(p), p)
	}
	for _, p := range []string{"scan.tif", "scan.tiff", "scan.png", "ome.tiff.txt", ""} {
		assert.False(t, IsOMETIFFPath(p), p)
	}
}

func TestGetReader(t *testing.T) {
	assert.Nil(t, GetReader())
	assert.Nil(t, GetReader("photo.jpg"))
	assert.NotNil(t, GetReader("slide.ome.tiff"))
	// Only the first path decides.
	assert.NotNil(t, GetReader("slide.ome.tif", "unrelated.bin"))
	assert.Nil(t, GetReader("unrelated.bin", "slide.ome.tif"))
}

func TestOpenPyramidalSlide(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{
		Width: 256, Height: 128, Channels: 3, Levels: 3, TileSize: 64,
		SubIFDPyramid: true,
	})
	s, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	levels := s.Levels()
	require.Len(t, levels, 3)
	assert.Equal(t, 256, levels[0].Width)
	assert.Equal(t, 64, levels[2].Width)
	assert.InDelta(t, 4.0, levels[2].Downsample, 1e-9)

	assert.Equal(t, "xyc", s.Axes().Order)
	assert.True(t, s.IsRGB())
	assert.Empty(t, s.Warnings())

	mppY, mppX := s.MicronsPerPixel()
	assert.InDelta(t, 0.25, mppX, 1e-9)
	assert.InDelta(t, 0.25, mppY, 1e-9)
}

func TestOpenTopLevelChainPyramid(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{
		Width: 128, Height: 128, Channels: 1, Levels: 2,
	})
	s, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Len(t, s.Levels(), 2)
	assert.False(t, s.IsRGB())
}

func TestOpenRejectsSingleLevelWhenStrict(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{Levels: 1})
	_, err := Open(path, DefaultOptions())
	assert.ErrorIs(t, err, ErrNotPyramidal)

	opts := DefaultOptions()
	opts.StrictPyramid = false
	s, err := Open(path, opts)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Len(t, s.Levels(), 1)
	assert.False(t, s.Layers()[0].Meta.Multiscale)
}

func TestOpenRejectsNonOME(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{OmitOME: true})
	_, err := Open(path, DefaultOptions())
	assert.ErrorIs(t, err, ErrNotOMETIFF)
}

func TestOpenRejectsMissingFile(t *testing.T) {
	_, err := Open("/nonexistent/slide.ome.tiff", DefaultOptions())
	assert.Error(t, err)
}

func TestOpenMillimeterUnits(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{
		Width: 128, Height: 128, Levels: 2, PhysicalSize: 0.001, Unit: "mm",
	})
	s, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, mppX := s.MicronsPerPixel()
	assert.InDelta(t, 1.0, mppX, 1e-9)
	assert.Empty(t, s.Warnings())
}

func TestOpenUnknownUnitWarnsAndContinues(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{
		Width: 128, Height: 128, Levels: 2, Unit: "furlong",
	})
	s, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NotEmpty(t, s.Warnings())
	assert.Contains(t, s.Warnings()[0], "furlong")
}

func TestOpenRejectsSeparateChannelPlanes(t *testing.T) {
	spec := testutil.SlideSpec{Width: 64, Height: 64, Channels: 1, Levels: 2}
	// Metadata claims three channels while the payload stores one sample
	// per pixel, i.e. channels would live on separate planes.
	spec.Description = strings.Replace(testutil.OMEXML(spec), `SizeC="1"`, `SizeC="3"`, 1)
	path := testutil.TempOMETIFF(t, spec)

	_, err := Open(path, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "separate planes")
}

func TestLayersMetadata(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{
		Width: 256, Height: 128, Channels: 3, Levels: 3, TileSize: 64,
	})
	s, err := Open(path, DefaultOptions())
	require.NoError(t, err)

	layers := s.Layers()
	require.Len(t, layers, 1)
	l := layers[0]
	assert.Equal(t, LayerTypeImage, l.Type)
	assert.True(t, l.Meta.RGB)
	assert.True(t, l.Meta.Multiscale)
	assert.Equal(t, [2]float64{0, 255}, l.Meta.ContrastLimits)
	assert.Equal(t, [2]float64{0.25, 0.25}, l.Meta.Scale)
	assert.Equal(t, "synthetic", l.Meta.Name)
	assert.Len(t, l.Levels, 3)

	require.NoError(t, l.Close())
	assert.NoError(t, l.Close()) // idempotent
}

func TestReaderFuncRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteOMETIFF(t, dir, "sample.ome.tif", testutil.SlideSpec{
		Width: 128, Height: 128, Levels: 2,
	})

	fn := GetReader(path)
	require.NotNil(t, fn)
	layers, err := fn(path)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	defer func() { _ = layers[0].Close() }()
	assert.Equal(t, 128, layers[0].Levels[0].Width)
}

func TestInfoSummary(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{
		Width: 256, Height: 128, Channels: 3, Levels: 2, TileSize: 64,
		Compression: testutil.CompressionDeflate,
	})
	s, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	info := s.Info()
	assert.Equal(t, path, info.Path)
	assert.Equal(t, "synthetic", info.Name)
	assert.Equal(t, 256, info.Width)
	assert.Equal(t, "XYCZT", info.DimensionOrder)
	assert.Equal(t, "uint8", info.PixelType)
	assert.Equal(t, "deflate", info.Compression)
	assert.Equal(t, 64, info.TileWidth)
	assert.False(t, info.BigTIFF)
	assert.Len(t, info.Levels, 2)
}
