package tiff

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/osilab/ometiff/internal/mempool"
	"golang.org/x/image/tiff/lzw"
)

// Layout describes how one IFD stores its pixel payload.
type Layout struct {
	Width, Height   int
	TileWidth       int
	TileHeight      int
	Tiled           bool
	BitsPerSample   int
	SamplesPerPixel int
	Compression     uint16
	Photometric     uint16
	PlanarConfig    uint16
	Predictor       uint16

	offsets []uint64
	counts  []uint64
	jpegTbl []byte
}

// Layout reads the geometry and storage tags of the directory. Stripped
// images are treated as full-width tiles so callers only deal with one
// addressing scheme.
func (d *IFD) Layout() (*Layout, error) {
	w, err := d.Uint(TagImageWidth)
	if err != nil {
		return nil, fmt.Errorf("tiff: missing ImageWidth: %w", err)
	}
	h, err := d.Uint(TagImageLength)
	if err != nil {
		return nil, fmt.Errorf("tiff: missing ImageLength: %w", err)
	}

	l := &Layout{
		Width:           int(w),
		Height:          int(h),
		BitsPerSample:   8,
		SamplesPerPixel: int(d.UintDefault(TagSamplesPerPixel, 1)),
		Compression:     uint16(d.UintDefault(TagCompression, uint64(CompressionNone))),
		Photometric:     uint16(d.UintDefault(TagPhotometric, uint64(PhotometricBlackIsZero))),
		PlanarConfig:    uint16(d.UintDefault(TagPlanarConfig, uint64(PlanarContiguous))),
		Predictor:       uint16(d.UintDefault(TagPredictor, 1)),
	}
	if bps, err := d.Uints(TagBitsPerSample); err == nil && len(bps) > 0 {
		l.BitsPerSample = int(bps[0])
		for _, b := range bps {
			if int(b) != l.BitsPerSample {
				return nil, fmt.Errorf("tiff: mixed bits-per-sample %v not supported", bps)
			}
		}
	}
	if l.BitsPerSample != 8 && l.BitsPerSample != 16 {
		return nil, fmt.Errorf("tiff: %d bits per sample not supported", l.BitsPerSample)
	}
	if l.PlanarConfig != PlanarContiguous {
		return nil, errors.New("tiff: separate planar configuration not supported")
	}

	if d.Has(TagTileOffsets) {
		l.Tiled = true
		tw, err := d.Uint(TagTileWidth)
		if err != nil {
			return nil, fmt.Errorf("tiff: tiled IFD missing TileWidth: %w", err)
		}
		th, err := d.Uint(TagTileLength)
		if err != nil {
			return nil, fmt.Errorf("tiff: tiled IFD missing TileLength: %w", err)
		}
		l.TileWidth, l.TileHeight = int(tw), int(th)
		if l.offsets, err = d.Uints(TagTileOffsets); err != nil {
			return nil, err
		}
		if l.counts, err = d.Uints(TagTileByteCounts); err != nil {
			return nil, err
		}
	} else {
		rps := d.UintDefault(TagRowsPerStrip, w64(l.Height))
		l.TileWidth = l.Width
		l.TileHeight = int(rps)
		if l.offsets, err = d.Uints(TagStripOffsets); err != nil {
			return nil, fmt.Errorf("tiff: missing strip offsets: %w", err)
		}
		if l.counts, err = d.Uints(TagStripByteCounts); err != nil {
			return nil, fmt.Errorf("tiff: missing strip byte counts: %w", err)
		}
	}
	if l.TileWidth <= 0 || l.TileHeight <= 0 {
		return nil, fmt.Errorf("%w: non-positive tile extents", ErrCorrupt)
	}
	if len(l.offsets) != len(l.counts) {
		return nil, fmt.Errorf("%w: %d offsets vs %d byte counts", ErrCorrupt, len(l.offsets), len(l.counts))
	}
	want := l.TilesAcross() * l.TilesDown()
	if len(l.offsets) < want {
		return nil, fmt.Errorf("%w: %d tiles declared, %d offsets present", ErrCorrupt, want, len(l.offsets))
	}

	if l.Compression == CompressionJPEG && d.Has(TagJPEGTables) {
		tbl, err := d.Bytes(TagJPEGTables)
		if err != nil {
			return nil, err
		}
		l.jpegTbl = tbl
	}
	return l, nil
}

func w64(v int) uint64 { return uint64(v) }

// TilesAcross returns the number of tile columns.
func (l *Layout) TilesAcross() int { return (l.Width + l.TileWidth - 1) / l.TileWidth }

// TilesDown returns the number of tile rows.
func (l *Layout) TilesDown() int { return (l.Height + l.TileHeight - 1) / l.TileHeight }

// BytesPerPixel returns the decoded size of one pixel.
func (l *Layout) BytesPerPixel() int { return l.SamplesPerPixel * l.BitsPerSample / 8 }

// TileSize returns the decoded byte size of one full tile.
func (l *Layout) TileSize() int { return l.TileWidth * l.TileHeight * l.BytesPerPixel() }

// DecodeTile reads and decompresses tile index (row-major) of the layout,
// returning exactly TileSize bytes of contiguous samples. Edge tiles are
// stored at full tile extents per the TIFF spec; a final strip holds only
// the remaining image rows, so its output is zero padded to full height.
func (d *IFD) DecodeTile(l *Layout, index int) ([]byte, error) {
	if index < 0 || index >= len(l.offsets) {
		return nil, fmt.Errorf("tiff: tile index %d out of range [0,%d)", index, len(l.offsets))
	}
	n := int(l.counts[index])
	raw := mempool.Get(n)
	defer mempool.Put(raw)
	if _, err := d.f.r.ReadAt(raw[:n], int64(l.offsets[index])); err != nil {
		return nil, fmt.Errorf("tiff: reading tile %d: %w", index, err)
	}

	out, err := l.decompress(raw[:n])
	if err != nil {
		return nil, fmt.Errorf("tiff: tile %d: %w", index, err)
	}
	rows := l.rowsInTile(index)
	want := rows * l.TileWidth * l.BytesPerPixel()
	if len(out) < want {
		return nil, fmt.Errorf("%w: tile %d decoded to %d bytes, want %d", ErrCorrupt, index, len(out), want)
	}
	out = out[:want]
	if l.Predictor == 2 {
		if l.BitsPerSample != 8 {
			return nil, fmt.Errorf("tiff: horizontal predictor on %d-bit samples not supported", l.BitsPerSample)
		}
		undoHorizontalPredictor(out, l.TileWidth, l.SamplesPerPixel, rows)
	}
	if want < l.TileSize() {
		padded := make([]byte, l.TileSize())
		copy(padded, out)
		out = padded
	}
	return out, nil
}

// rowsInTile reports how many image rows tile index actually stores. Tiles
// are always written at full extent; the last strip of a stripped image
// covers only the rows left below the preceding strips.
func (l *Layout) rowsInTile(index int) int {
	if l.Tiled {
		return l.TileHeight
	}
	ty := index / l.TilesAcross()
	if rem := l.Height - ty*l.TileHeight; rem > 0 && rem < l.TileHeight {
		return rem
	}
	return l.TileHeight
}

func (l *Layout) decompress(raw []byte) ([]byte, error) {
	switch l.Compression {
	case CompressionNone:
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	case CompressionLZW:
		rc := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer rc.Close()
		return readAllLimited(rc, l.TileSize())
	case CompressionDeflate, CompressionDeflateOld:
		rc, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return readAllLimited(rc, l.TileSize())
	case CompressionPackBits:
		return unpackBits(raw, l.TileSize())
	case CompressionJPEG:
		return l.decodeJPEGTile(raw)
	}
	return nil, fmt.Errorf("unsupported compression scheme %d", l.Compression)
}

// readAllLimited reads up to want bytes, tolerating streams that end early
// at exactly the expected size.
func readAllLimited(r io.Reader, want int) ([]byte, error) {
	out := make([]byte, want)
	n, err := io.ReadFull(r, out)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return out[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// unpackBits expands an Apple PackBits run-length stream. The x/image tiff
// package keeps its implementation unexported, so the 20-line scheme is
// inlined here.
func unpackBits(src []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	for i := 0; i < len(src); {
		h := int8(src[i])
		i++
		switch {
		case h >= 0:
			n := int(h) + 1
			if i+n > len(src) {
				return nil, errors.New("packbits literal run past end of data")
			}
			out = append(out, src[i:i+n]...)
			i += n
		case h > -128:
			if i >= len(src) {
				return nil, errors.New("packbits repeat run past end of data")
			}
			n := 1 - int(h)
			for j := 0; j < n; j++ {
				out = append(out, src[i])
			}
			i++
		default:
			// -128 is a no-op.
		}
	}
	return out, nil
}

// decodeJPEGTile decodes an old or new style JPEG tile into contiguous
// 8-bit samples. A JPEGTables tag, when present, supplies the shared
// quantization and Huffman tables that per-tile streams omit.
func (l *Layout) decodeJPEGTile(raw []byte) ([]byte, error) {
	stream := raw
	if len(l.jpegTbl) > 4 {
		// Abbreviated stream: splice tables (sans their SOI/EOI markers)
		// after the tile's SOI.
		if len(raw) < 2 || raw[0] != 0xff || raw[1] != 0xd8 {
			return nil, errors.New("jpeg tile missing SOI marker")
		}
		tbl := l.jpegTbl[2 : len(l.jpegTbl)-2]
		stream = make([]byte, 0, len(raw)+len(tbl))
		stream = append(stream, raw[:2]...)
		stream = append(stream, tbl...)
		stream = append(stream, raw[2:]...)
	}
	img, err := jpeg.Decode(bytes.NewReader(stream))
	if err != nil {
		return nil, fmt.Errorf("jpeg tile: %w", err)
	}
	return l.flattenJPEG(img)
}

func (l *Layout) flattenJPEG(img image.Image) ([]byte, error) {
	b := img.Bounds()
	out := make([]byte, l.TileSize())
	w := b.Dx()
	if w > l.TileWidth {
		w = l.TileWidth
	}
	h := b.Dy()
	if h > l.TileHeight {
		h = l.TileHeight
	}
	switch l.SamplesPerPixel {
	case 1:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				out[y*l.TileWidth+x] = g.Y
			}
		}
	case 3:
		for y := 0; y < h; y++ {
			row := out[y*l.TileWidth*3:]
			for x := 0; x < w; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				row[3*x+0] = uint8(r >> 8)
				row[3*x+1] = uint8(g >> 8)
				row[3*x+2] = uint8(bl >> 8)
			}
		}
	default:
		return nil, fmt.Errorf("jpeg tile with %d samples per pixel not supported", l.SamplesPerPixel)
	}
	return out, nil
}

// undoHorizontalPredictor reverses TIFF predictor 2 in place for 8-bit
// samples across the given number of rows.
func undoHorizontalPredictor(buf []byte, width, spp, rows int) {
	for y := 0; y < rows; y++ {
		row := buf[y*width*spp : (y+1)*width*spp]
		for x := spp; x < len(row); x++ {
			row[x] += row[x-spp]
		}
	}
}
