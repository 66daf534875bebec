package reader

import (
	"github.com/osilab/ometiff/internal/pyramid"
)

// LayerTypeImage is the only layer type an OME-TIFF slide produces.
const LayerTypeImage = "image"

// LayerMeta carries the display hints a viewer needs to add the layer.
type LayerMeta struct {
	Name string `json:"name"`
	// RGB marks interleaved 3/4-channel uint8 data renderable directly.
	RGB bool `json:"rgb"`
	// ContrastLimits is the display range for the pixel type.
	ContrastLimits [2]float64 `json:"contrast_limits"`
	// Multiscale marks pyramidal data.
	Multiscale bool `json:"multiscale"`
	// Scale is the physical pixel size in microns, (y, x) order.
	Scale [2]float64 `json:"scale"`
}

// Layer is one unit of data handed to a consumer: a lazily readable
// pyramid plus its display metadata.
type Layer struct {
	// Source owns the file handle; the consumer closes it when the layer
	// is no longer needed.
	Source *Slide          `json:"-"`
	Levels []pyramid.Level `json:"levels"`
	Meta   LayerMeta       `json:"metadata"`
	Type   string          `json:"layer_type"`
}

// Close releases the layer's underlying slide.
func (l *Layer) Close() error {
	if l.Source == nil {
		return nil
	}
	return l.Source.Close()
}

// ReaderFunc takes one or more paths and returns the layers of the first.
// It is the callable a GetReader handshake hands back.
type ReaderFunc func(paths ...string) ([]Layer, error)
