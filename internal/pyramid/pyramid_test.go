package pyramid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFillsDownsample(t *testing.T) {
	levels, err := Validate([]Level{
		{Width: 4096, Height: 2048},
		{Width: 2048, Height: 1024},
		{Width: 1024, Height: 512},
	})
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.InDelta(t, 1.0, levels[0].Downsample, 1e-9)
	assert.InDelta(t, 2.0, levels[1].Downsample, 1e-9)
	assert.InDelta(t, 4.0, levels[2].Downsample, 1e-9)
	assert.Equal(t, 2, levels[2].Index)
}

func TestValidateToleratesOddRounding(t *testing.T) {
	// 4097 halves to 2048 (floor) or 2049 (ceil); both stay within the
	// aspect tolerance.
	_, err := Validate([]Level{
		{Width: 4097, Height: 2049},
		{Width: 2048, Height: 1024},
	})
	assert.NoError(t, err)
}

func TestValidateRejectsNonDecreasing(t *testing.T) {
	_, err := Validate([]Level{
		{Width: 1024, Height: 512},
		{Width: 1024, Height: 512},
	})
	assert.ErrorIs(t, err, ErrBadLevels)
}

func TestValidateRejectsAspectChange(t *testing.T) {
	_, err := Validate([]Level{
		{Width: 4096, Height: 2048},
		{Width: 2048, Height: 512},
	})
	assert.ErrorIs(t, err, ErrBadLevels)
}

func TestValidateRejectsEmptyAndZero(t *testing.T) {
	_, err := Validate(nil)
	assert.ErrorIs(t, err, ErrBadLevels)

	_, err = Validate([]Level{{Width: 0, Height: 100}})
	assert.ErrorIs(t, err, ErrBadLevels)
}

func TestBestLevelFor(t *testing.T) {
	levels, err := Validate([]Level{
		{Width: 4096, Height: 4096},
		{Width: 2048, Height: 2048},
		{Width: 1024, Height: 1024},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, BestLevelFor(levels, 1.0))
	assert.Equal(t, 1, BestLevelFor(levels, 2.5))
	assert.Equal(t, 2, BestLevelFor(levels, 100))
	assert.Equal(t, 0, BestLevelFor(levels, 0.5))
}
