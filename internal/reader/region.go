package reader

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/osilab/ometiff/internal/tiff"
)

// ReadRegion decodes the requested rectangle of a pyramid level into an
// image. Coordinates are in level pixels; the rectangle is clamped to the
// level bounds. Tiles touched by the read are served from or added to the
// slide's cache.
func (s *Slide) ReadRegion(level int, r image.Rectangle) (image.Image, error) {
	if level < 0 || level >= len(s.levels) {
		return nil, fmt.Errorf("reader: level %d out of range [0,%d)", level, len(s.levels))
	}
	l := s.layouts[level]
	bounds := image.Rect(0, 0, l.Width, l.Height)
	r = r.Intersect(bounds)
	if r.Empty() {
		return nil, fmt.Errorf("reader: region outside level %d bounds %v", level, bounds)
	}

	switch {
	case l.SamplesPerPixel >= 3 && l.BitsPerSample == 8:
		return s.readRegionRGBA(level, l, r)
	case l.SamplesPerPixel == 1 && l.BitsPerSample == 8:
		return s.readRegionGray(level, l, r)
	case l.SamplesPerPixel == 1 && l.BitsPerSample == 16:
		return s.readRegionGray16(level, l, r)
	}
	return nil, fmt.Errorf("reader: %d samples at %d bits per pixel not supported",
		l.SamplesPerPixel, l.BitsPerSample)
}

// tile returns the decoded tile, consulting the cache first.
func (s *Slide) tile(level int, l *tiff.Layout, index int) ([]byte, error) {
	k := tileKey{level: level, index: index}
	if buf, ok := s.cache.get(k); ok {
		return buf, nil
	}
	buf, err := s.ifds[level].DecodeTile(l, index)
	if err != nil {
		return nil, err
	}
	s.cache.add(k, buf)
	return buf, nil
}

// forEachTile visits every tile intersecting r and hands the callback the
// tile bytes together with the intersection rectangle.
func (s *Slide) forEachTile(level int, l *tiff.Layout, r image.Rectangle,
	fn func(buf []byte, tileOrigin image.Point, sect image.Rectangle),
) error {
	tx0, ty0 := r.Min.X/l.TileWidth, r.Min.Y/l.TileHeight
	tx1, ty1 := (r.Max.X-1)/l.TileWidth, (r.Max.Y-1)/l.TileHeight
	across := l.TilesAcross()
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			buf, err := s.tile(level, l, ty*across+tx)
			if err != nil {
				return err
			}
			origin := image.Pt(tx*l.TileWidth, ty*l.TileHeight)
			tileRect := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(l.TileWidth, l.TileHeight))}
			fn(buf, origin, r.Intersect(tileRect))
		}
	}
	return nil
}

func (s *Slide) readRegionRGBA(level int, l *tiff.Layout, r image.Rectangle) (image.Image, error) {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	spp := l.SamplesPerPixel
	err := s.forEachTile(level, l, r, func(buf []byte, origin image.Point, sect image.Rectangle) {
		for y := sect.Min.Y; y < sect.Max.Y; y++ {
			srcRow := buf[((y-origin.Y)*l.TileWidth+(sect.Min.X-origin.X))*spp:]
			dstRow := dst.Pix[(y-r.Min.Y)*dst.Stride+(sect.Min.X-r.Min.X)*4:]
			for x := 0; x < sect.Dx(); x++ {
				dstRow[4*x+0] = srcRow[spp*x+0]
				dstRow[4*x+1] = srcRow[spp*x+1]
				dstRow[4*x+2] = srcRow[spp*x+2]
				if spp >= 4 {
					dstRow[4*x+3] = srcRow[spp*x+3]
				} else {
					dstRow[4*x+3] = 0xff
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

func (s *Slide) readRegionGray(level int, l *tiff.Layout, r image.Rectangle) (image.Image, error) {
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	err := s.forEachTile(level, l, r, func(buf []byte, origin image.Point, sect image.Rectangle) {
		for y := sect.Min.Y; y < sect.Max.Y; y++ {
			src := buf[(y-origin.Y)*l.TileWidth+(sect.Min.X-origin.X):]
			dstOff := (y-r.Min.Y)*dst.Stride + (sect.Min.X - r.Min.X)
			copy(dst.Pix[dstOff:dstOff+sect.Dx()], src[:sect.Dx()])
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

func (s *Slide) readRegionGray16(level int, l *tiff.Layout, r image.Rectangle) (image.Image, error) {
	dst := image.NewGray16(image.Rect(0, 0, r.Dx(), r.Dy()))
	order := s.tf.ByteOrder()
	err := s.forEachTile(level, l, r, func(buf []byte, origin image.Point, sect image.Rectangle) {
		for y := sect.Min.Y; y < sect.Max.Y; y++ {
			src := buf[((y-origin.Y)*l.TileWidth+(sect.Min.X-origin.X))*2:]
			dstRow := dst.Pix[(y-r.Min.Y)*dst.Stride+(sect.Min.X-r.Min.X)*2:]
			for x := 0; x < sect.Dx(); x++ {
				// Gray16 stores big-endian; samples are in file order.
				v := order.Uint16(src[2*x:])
				dstRow[2*x] = byte(v >> 8)
				dstRow[2*x+1] = byte(v)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// ReadLevel decodes a whole pyramid level.
func (s *Slide) ReadLevel(level int) (image.Image, error) {
	if level < 0 || level >= len(s.levels) {
		return nil, fmt.Errorf("reader: level %d out of range [0,%d)", level, len(s.levels))
	}
	return s.ReadRegion(level, image.Rect(0, 0, s.levels[level].Width, s.levels[level].Height))
}

// Thumbnail renders the smallest level and scales it to fit within
// maxEdge pixels on its longer side.
func (s *Slide) Thumbnail(maxEdge int) (image.Image, error) {
	if maxEdge <= 0 {
		return nil, fmt.Errorf("reader: thumbnail edge %d must be positive", maxEdge)
	}
	img, err := s.ReadLevel(len(s.levels) - 1)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= maxEdge && b.Dy() <= maxEdge {
		return img, nil
	}
	return imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos), nil
}
