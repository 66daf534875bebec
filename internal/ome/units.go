package ome

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// UnitError reports a physical-size unit the reader does not understand.
// Callers may treat it as a warning: the accompanying value is returned
// unscaled, assuming microns.
type UnitError struct {
	Axis string
	Unit string
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("ome: unknown unit %q for physical size (%s), assuming microns", e.Unit, e.Axis)
}

// normalizeUnit folds the micro-sign variants (U+00B5 MICRO SIGN, U+03BC
// GREEK SMALL LETTER MU, plain ASCII "u") into a canonical "µm".
func normalizeUnit(unit string) string {
	u := norm.NFKC.String(strings.TrimSpace(unit))
	switch u {
	case "μm", "um":
		return "µm"
	}
	return u
}

// MicronsPerPixel converts a physical pixel size in the given unit to
// microns per pixel. Micrometers pass through, millimeters scale by 1000.
// An unknown unit returns the value unscaled together with a *UnitError.
func MicronsPerPixel(axis string, value float64, unit string) (float64, error) {
	switch normalizeUnit(unit) {
	case "µm":
		return value, nil
	case "mm":
		return value * 1000.0, nil
	case "nm":
		return value / 1000.0, nil
	}
	return value, &UnitError{Axis: axis, Unit: unit}
}
