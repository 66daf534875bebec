package pyramid

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotPyramidal = errors.New("pyramid: image has a single resolution level")
	ErrBadLevels    = errors.New("pyramid: malformed level sequence")
)

// Level is one resolution of a multiscale image.
type Level struct {
	Index  int `json:"index"`
	Width  int `json:"width"`
	Height int `json:"height"`
	// Downsample is the linear factor relative to the base level.
	Downsample float64 `json:"downsample"`
}

// Validate checks that levels are base-first with strictly decreasing
// extents and fills in per-level downsample factors. A tolerance of one
// pixel per halving step absorbs odd-dimension rounding.
func Validate(levels []Level) ([]Level, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: no levels", ErrBadLevels)
	}
	base := levels[0]
	if base.Width <= 0 || base.Height <= 0 {
		return nil, fmt.Errorf("%w: base level %dx%d", ErrBadLevels, base.Width, base.Height)
	}
	out := make([]Level, len(levels))
	for i, lv := range levels {
		if lv.Width <= 0 || lv.Height <= 0 {
			return nil, fmt.Errorf("%w: level %d is %dx%d", ErrBadLevels, i, lv.Width, lv.Height)
		}
		if i > 0 && (lv.Width >= levels[i-1].Width || lv.Height >= levels[i-1].Height) {
			return nil, fmt.Errorf("%w: level %d (%dx%d) not smaller than level %d (%dx%d)",
				ErrBadLevels, i, lv.Width, lv.Height, i-1, levels[i-1].Width, levels[i-1].Height)
		}
		dsX := float64(base.Width) / float64(lv.Width)
		dsY := float64(base.Height) / float64(lv.Height)
		if math.Abs(dsX-dsY)/dsX > 0.05 {
			return nil, fmt.Errorf("%w: level %d changes aspect ratio (x%.2f vs x%.2f)", ErrBadLevels, i, dsX, dsY)
		}
		lv.Index = i
		lv.Downsample = (dsX + dsY) / 2
		out[i] = lv
	}
	return out, nil
}

// BestLevelFor returns the index of the smallest level whose downsample
// factor does not exceed the requested one.
func BestLevelFor(levels []Level, downsample float64) int {
	best := 0
	for i, lv := range levels {
		if lv.Downsample <= downsample {
			best = i
		}
	}
	return best
}
