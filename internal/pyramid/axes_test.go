package pyramid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sizer(sizes map[byte]int) func(byte) int {
	return func(axis byte) int { return sizes[axis] }
}

func TestNormalizeAxesDropsSingletons(t *testing.T) {
	ax, err := NormalizeAxes("XYCZT", sizer(map[byte]int{'X': 2048, 'Y': 1024, 'C': 3, 'Z': 1, 'T': 1}))
	require.NoError(t, err)
	assert.Equal(t, "xyc", ax.Order)
	assert.Equal(t, 1, ax.Y)
	assert.Equal(t, 0, ax.X)
	assert.Equal(t, 2, ax.C)
	assert.True(t, ax.HasChannels())
}

func TestNormalizeAxesGrayscale(t *testing.T) {
	ax, err := NormalizeAxes("XYZCT", sizer(map[byte]int{'X': 512, 'Y': 512, 'C': 1, 'Z': 1, 'T': 1}))
	require.NoError(t, err)
	assert.Equal(t, "xy", ax.Order)
	assert.False(t, ax.HasChannels())
	assert.Equal(t, -1, ax.C)
}

func TestNormalizeAxesStorageOrderPreserved(t *testing.T) {
	ax, err := NormalizeAxes("CYXZT", sizer(map[byte]int{'X': 100, 'Y': 100, 'C': 4, 'Z': 1, 'T': 1}))
	require.NoError(t, err)
	assert.Equal(t, "cyx", ax.Order)
	assert.Equal(t, 0, ax.C)
	assert.Equal(t, 1, ax.Y)
	assert.Equal(t, 2, ax.X)
}

func TestNormalizeAxesRejectsMissingSpatial(t *testing.T) {
	_, err := NormalizeAxes("XYZCT", sizer(map[byte]int{'X': 100, 'Y': 1, 'C': 3, 'Z': 1, 'T': 1}))
	assert.ErrorIs(t, err, ErrNoSpatialAxes)
}

func TestNormalizeAxesRejectsVaryingZorT(t *testing.T) {
	_, err := NormalizeAxes("XYZCT", sizer(map[byte]int{'X': 100, 'Y': 100, 'C': 1, 'Z': 5, 'T': 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "z axis")

	_, err = NormalizeAxes("XYZCT", sizer(map[byte]int{'X': 100, 'Y': 100, 'C': 1, 'Z': 1, 'T': 8}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t axis")
}
