package reader

import (
	"fmt"

	"github.com/osilab/ometiff/internal/pyramid"
	"github.com/osilab/ometiff/internal/tiff"
)

// Info is a serializable summary of an open slide.
type Info struct {
	Path           string          `json:"path"`
	Name           string          `json:"name"`
	Width          int             `json:"width"`
	Height         int             `json:"height"`
	Levels         []pyramid.Level `json:"levels"`
	Axes           string          `json:"axes"`
	DimensionOrder string          `json:"dimension_order"`
	PixelType      string          `json:"pixel_type"`
	SizeC          int             `json:"size_c"`
	SizeZ          int             `json:"size_z"`
	SizeT          int             `json:"size_t"`
	Channels       []string        `json:"channels,omitempty"`
	RGB            bool            `json:"rgb"`
	MicronsPerPxX  float64         `json:"microns_per_pixel_x"`
	MicronsPerPxY  float64         `json:"microns_per_pixel_y"`
	TileWidth      int             `json:"tile_width"`
	TileHeight     int             `json:"tile_height"`
	Compression    string          `json:"compression"`
	BigTIFF        bool            `json:"bigtiff"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// Info summarizes the slide for display and serialization.
func (s *Slide) Info() Info {
	l := s.layouts[0]
	info := Info{
		Path:           s.path,
		Name:           s.doc.Images[0].Name,
		Width:          l.Width,
		Height:         l.Height,
		Levels:         s.levels,
		Axes:           s.axes.Order,
		DimensionOrder: s.px.DimensionOrder,
		PixelType:      s.px.Type,
		SizeC:          s.px.SizeC,
		SizeZ:          s.px.SizeZ,
		SizeT:          s.px.SizeT,
		RGB:            s.IsRGB(),
		MicronsPerPxX:  s.mppX,
		MicronsPerPxY:  s.mppY,
		TileWidth:      l.TileWidth,
		TileHeight:     l.TileHeight,
		Compression:    compressionName(l.Compression),
		BigTIFF:        s.tf.IsBigTIFF(),
		Warnings:       s.warnings,
	}
	for _, ch := range s.px.Channels {
		info.Channels = append(info.Channels, ch.Name)
	}
	return info
}

func compressionName(code uint16) string {
	switch code {
	case tiff.CompressionNone:
		return "none"
	case tiff.CompressionLZW:
		return "lzw"
	case tiff.CompressionJPEG:
		return "jpeg"
	case tiff.CompressionDeflate, tiff.CompressionDeflateOld:
		return "deflate"
	case tiff.CompressionPackBits:
		return "packbits"
	}
	return fmt.Sprintf("unknown(%d)", code)
}
