// Package pyramid models multiscale image structure: the ordered set of
// resolution levels and the normalized axis layout consumers index into.
package pyramid

import (
	"errors"
	"fmt"
	"strings"
)

// Axes is the effective axis layout of an image after singleton axes are
// dropped. Output data is always presented as (y, x) or (y, x, c).
type Axes struct {
	// Order is the lower-cased non-singleton axis string, e.g. "cyx".
	Order string
	// Y, X and C are the positions of those axes within Order. C is -1
	// for single-channel images.
	Y, X, C int
}

var (
	ErrNoSpatialAxes = errors.New("pyramid: image has no non-singleton X or Y axis")
)

// NormalizeAxes reduces an OME DimensionOrder to the axes that actually
// vary. size reports the extent along an axis letter. Axes whose extent is 1
// are dropped; the remainder keeps the storage order, lower-cased.
func NormalizeAxes(dimOrder string, size func(axis byte) int) (Axes, error) {
	var b strings.Builder
	for i := 0; i < len(dimOrder); i++ {
		if size(dimOrder[i]) > 1 {
			b.WriteByte(lower(dimOrder[i]))
		}
	}
	order := b.String()

	ax := Axes{Order: order, Y: -1, X: -1, C: -1}
	for i := 0; i < len(order); i++ {
		switch order[i] {
		case 'y':
			ax.Y = i
		case 'x':
			ax.X = i
		case 'c':
			ax.C = i
		case 'z', 't':
			return Axes{}, fmt.Errorf("pyramid: non-singleton %c axis not supported (order %q)", order[i], order)
		}
	}
	if ax.Y < 0 || ax.X < 0 {
		return Axes{}, fmt.Errorf("%w (order %q)", ErrNoSpatialAxes, dimOrder)
	}
	return ax, nil
}

// HasChannels reports whether a channel axis survived normalization.
func (a Axes) HasChannels() bool { return a.C >= 0 }

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
