// Package testutil builds synthetic OME-TIFF files in memory so tests can
// exercise container parsing, pyramid resolution and region reads without
// binary fixtures.
package testutil

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"sort"
)

// Compression codes the generator can write.
const (
	CompressionNone     uint16 = 1
	CompressionLZW      uint16 = 5
	CompressionJPEG     uint16 = 7
	CompressionDeflate  uint16 = 8
	CompressionPackBits uint16 = 32773
)

// SlideSpec describes the synthetic slide to generate. Zero values pick
// sensible defaults via normalize.
type SlideSpec struct {
	Width, Height int
	Channels      int // 1 (gray) or 3 (interleaved RGB)
	BitsPerSample int // 8 or 16 (16 implies Channels == 1)
	Levels        int // pyramid depth including the base
	TileSize      int // 0 writes strips instead of tiles
	RowsPerStrip  int // strip height when TileSize == 0
	Compression   uint16

	DimensionOrder string
	PhysicalSize   float64
	Unit           string

	// BigTIFF writes the 64-bit container layout (magic 43).
	BigTIFF bool
	// JPEGTables moves the quantization and Huffman tables of JPEG
	// payloads into a shared JPEGTables tag, leaving abbreviated
	// per-block streams.
	JPEGTables  bool
	JPEGQuality int // defaults to 90

	// SubIFDPyramid stores reduced levels under IFD0's SubIFDs tag;
	// otherwise they are appended as further top-level IFDs.
	SubIFDPyramid bool
	// OmitOME leaves out the ImageDescription document entirely.
	OmitOME bool
	// Description overrides the generated OME-XML when non-empty.
	Description string
}

func (s SlideSpec) normalize() SlideSpec {
	if s.Width == 0 {
		s.Width = 128
	}
	if s.Height == 0 {
		s.Height = 96
	}
	if s.Channels == 0 {
		s.Channels = 3
	}
	if s.BitsPerSample == 0 {
		s.BitsPerSample = 8
	}
	if s.Levels == 0 {
		s.Levels = 3
	}
	if s.RowsPerStrip == 0 {
		s.RowsPerStrip = 16
	}
	if s.Compression == 0 {
		s.Compression = CompressionNone
	}
	if s.JPEGQuality == 0 {
		s.JPEGQuality = 90
	}
	if s.DimensionOrder == "" {
		s.DimensionOrder = "XYCZT"
	}
	if s.PhysicalSize == 0 {
		s.PhysicalSize = 0.25
	}
	if s.Unit == "" {
		s.Unit = "µm"
	}
	return s
}

// PixelValue is the deterministic sample generator; tests assert decoded
// regions against it.
func PixelValue(level, x, y, c int) byte {
	return byte(x*3 + y*5 + c*7 + level*11)
}

// PixelValue16 is the 16-bit analogue.
func PixelValue16(level, x, y int) uint16 {
	return uint16(x*251 + y*127 + level*1021)
}

// OMEXML renders a minimal OME document for the spec.
func OMEXML(s SlideSpec) string {
	s = s.normalize()
	interleaved := "false"
	if s.Channels > 1 {
		interleaved = "true"
	}
	pxType := "uint8"
	if s.BitsPerSample == 16 {
		pxType = "uint16"
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<OME xmlns="http://www.openmicroscopy.org/Schemas/OME/2016-06" Creator="testutil">
  <Image ID="Image:0" Name="synthetic">
    <Pixels ID="Pixels:0" DimensionOrder=%q Type=%q SizeX="%d" SizeY="%d" SizeZ="1" SizeC="%d" SizeT="1" PhysicalSizeX="%g" PhysicalSizeXUnit=%q PhysicalSizeY="%g" PhysicalSizeYUnit=%q Interleaved=%q>
      <Channel ID="Channel:0:0" SamplesPerPixel="%d"/>
    </Pixels>
  </Image>
</OME>`, s.DimensionOrder, pxType, s.Width, s.Height, s.Channels,
		s.PhysicalSize, s.Unit, s.PhysicalSize, s.Unit, interleaved, s.Channels)
}

// BuildOMETIFF renders the spec as a little-endian TIFF byte slice, using
// the classic or BigTIFF layout as requested.
func BuildOMETIFF(spec SlideSpec) []byte {
	spec = spec.normalize()
	w := &tiffWriter{big: spec.BigTIFF}
	w.writeHeader()

	type levelIFD struct {
		ifdOff  int64
		nextPos int64
	}

	// Sub-IFD levels are written first so IFD0 can reference their offsets.
	var subOffsets []uint32
	levelDims := levelSizes(spec)
	if spec.SubIFDPyramid {
		for lv := 1; lv < spec.Levels; lv++ {
			off := w.writeLevelIFD(spec, lv, levelDims[lv], "", nil)
			subOffsets = append(subOffsets, uint32(off))
		}
	}

	var prev levelIFD
	topLevels := 1
	if !spec.SubIFDPyramid {
		topLevels = spec.Levels
	}
	for lv := 0; lv < topLevels; lv++ {
		var desc string
		if lv == 0 && !spec.OmitOME {
			desc = spec.Description
			if desc == "" {
				desc = OMEXML(spec)
			}
		}
		var subs []uint32
		if lv == 0 {
			subs = subOffsets
		}
		off := w.writeLevelIFD(spec, lv, levelDims[lv], desc, subs)
		if lv == 0 {
			w.patchOffset(w.firstIFDPos(), uint64(off))
		} else {
			w.patchOffset(prev.nextPos, uint64(off))
		}
		prev = levelIFD{ifdOff: off, nextPos: w.lastNextPos}
	}
	return w.buf.Bytes()
}

func levelSizes(s SlideSpec) [][2]int {
	out := make([][2]int, s.Levels)
	wd, ht := s.Width, s.Height
	for i := 0; i < s.Levels; i++ {
		out[i] = [2]int{wd, ht}
		wd /= 2
		ht /= 2
		if wd < 1 {
			wd = 1
		}
		if ht < 1 {
			ht = 1
		}
	}
	return out
}

// tiffWriter accumulates a little-endian TIFF, classic or BigTIFF.
type tiffWriter struct {
	buf         bytes.Buffer
	big         bool
	lastNextPos int64
}

func (w *tiffWriter) writeHeader() {
	w.buf.WriteString("II")
	if w.big {
		_ = binary.Write(&w.buf, binary.LittleEndian, uint16(43))
		_ = binary.Write(&w.buf, binary.LittleEndian, uint16(8))
		_ = binary.Write(&w.buf, binary.LittleEndian, uint16(0))
		_ = binary.Write(&w.buf, binary.LittleEndian, uint64(0)) // patched to IFD0
		return
	}
	_ = binary.Write(&w.buf, binary.LittleEndian, uint16(42))
	_ = binary.Write(&w.buf, binary.LittleEndian, uint32(0)) // patched to IFD0
}

// firstIFDPos is where the header stores the offset of IFD0.
func (w *tiffWriter) firstIFDPos() int64 {
	if w.big {
		return 8
	}
	return 4
}

// patchOffset overwrites an offset slot written earlier as zero.
func (w *tiffWriter) patchOffset(pos int64, v uint64) {
	b := w.buf.Bytes()
	if w.big {
		binary.LittleEndian.PutUint64(b[pos:], v)
		return
	}
	binary.LittleEndian.PutUint32(b[pos:], uint32(v))
}

func (w *tiffWriter) align2() {
	if w.buf.Len()%2 == 1 {
		w.buf.WriteByte(0)
	}
}

// field is one IFD entry plus its encoded value bytes.
type field struct {
	id    uint16
	typ   uint16
	count uint32
	data  []byte
}

func shortField(id uint16, vals ...uint16) field {
	var b bytes.Buffer
	for _, v := range vals {
		_ = binary.Write(&b, binary.LittleEndian, v)
	}
	return field{id: id, typ: 3, count: uint32(len(vals)), data: b.Bytes()}
}

func longField(id uint16, vals ...uint32) field {
	var b bytes.Buffer
	for _, v := range vals {
		_ = binary.Write(&b, binary.LittleEndian, v)
	}
	return field{id: id, typ: 4, count: uint32(len(vals)), data: b.Bytes()}
}

func asciiField(id uint16, s string) field {
	return field{id: id, typ: 2, count: uint32(len(s) + 1), data: append([]byte(s), 0)}
}

func rationalField(id uint16, num, den uint32) field {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.LittleEndian, num)
	_ = binary.Write(&b, binary.LittleEndian, den)
	return field{id: id, typ: 5, count: 1, data: b.Bytes()}
}

func undefinedField(id uint16, b []byte) field {
	return field{id: id, typ: 7, count: uint32(len(b)), data: b}
}

// writeIFD writes value blocks then the directory itself, returning the
// directory offset. The next-IFD pointer is zero; its position is stored
// for chaining. BigTIFF directories use 8-byte counts, inline slots and
// pointers, classic ones 4-byte.
func (w *tiffWriter) writeIFD(fields []field) int64 {
	sort.Slice(fields, func(i, j int) bool { return fields[i].id < fields[j].id })

	inlineMax := 4
	if w.big {
		inlineMax = 8
	}
	offsets := make([]uint32, len(fields))
	for i, f := range fields {
		if len(f.data) > inlineMax {
			w.align2()
			offsets[i] = uint32(w.buf.Len())
			w.buf.Write(f.data)
		}
	}

	w.align2()
	ifdOff := int64(w.buf.Len())
	if w.big {
		_ = binary.Write(&w.buf, binary.LittleEndian, uint64(len(fields)))
	} else {
		_ = binary.Write(&w.buf, binary.LittleEndian, uint16(len(fields)))
	}
	for i, f := range fields {
		_ = binary.Write(&w.buf, binary.LittleEndian, f.id)
		_ = binary.Write(&w.buf, binary.LittleEndian, f.typ)
		if w.big {
			_ = binary.Write(&w.buf, binary.LittleEndian, uint64(f.count))
		} else {
			_ = binary.Write(&w.buf, binary.LittleEndian, f.count)
		}
		inline := make([]byte, inlineMax)
		if len(f.data) > inlineMax {
			if w.big {
				binary.LittleEndian.PutUint64(inline, uint64(offsets[i]))
			} else {
				binary.LittleEndian.PutUint32(inline, offsets[i])
			}
		} else {
			copy(inline, f.data)
		}
		w.buf.Write(inline)
	}
	w.lastNextPos = int64(w.buf.Len())
	if w.big {
		_ = binary.Write(&w.buf, binary.LittleEndian, uint64(0))
	} else {
		_ = binary.Write(&w.buf, binary.LittleEndian, uint32(0))
	}
	return ifdOff
}

func (w *tiffWriter) writeLevelIFD(spec SlideSpec, level int, dims [2]int, desc string, subs []uint32) int64 {
	width, height := dims[0], dims[1]
	offsets, counts, jpegTables := w.writePayload(spec, level, width, height)

	photometric := uint16(1)
	if spec.Channels >= 3 {
		photometric = 2
	}
	bps := make([]uint16, spec.Channels)
	for i := range bps {
		bps[i] = uint16(spec.BitsPerSample)
	}

	fields := []field{
		longField(256, uint32(width)),
		longField(257, uint32(height)),
		shortField(258, bps...),
		shortField(259, spec.Compression),
		shortField(262, photometric),
		shortField(277, uint16(spec.Channels)),
		shortField(284, 1),
		rationalField(282, 72, 1),
		rationalField(283, 72, 1),
	}
	if spec.TileSize > 0 {
		fields = append(fields,
			shortField(322, uint16(spec.TileSize)),
			shortField(323, uint16(spec.TileSize)),
			longField(324, offsets...),
			longField(325, counts...),
		)
	} else {
		fields = append(fields,
			longField(278, uint32(spec.RowsPerStrip)),
			longField(273, offsets...),
			longField(279, counts...),
		)
	}
	if len(jpegTables) > 0 {
		fields = append(fields, undefinedField(347, jpegTables))
	}
	if desc != "" {
		fields = append(fields, asciiField(270, desc))
	}
	if len(subs) > 0 {
		fields = append(fields, longField(330, subs...))
	}
	return w.writeIFD(fields)
}

// writePayload generates and writes the pixel blocks of one level,
// returning their offsets and byte counts plus the shared JPEGTables blob
// when abbreviated JPEG streams were requested.
func (w *tiffWriter) writePayload(spec SlideSpec, level, width, height int) (offsets, counts []uint32, jpegTables []byte) {
	bpp := spec.Channels * spec.BitsPerSample / 8
	emit := func(block []byte, bw, bh int) {
		var enc []byte
		if spec.Compression == CompressionJPEG {
			enc = encodeJPEGBlock(spec, block, bw, bh)
			if spec.JPEGTables {
				var tbl []byte
				tbl, enc = splitJPEGTables(enc)
				// Same quality for every block means identical tables.
				if jpegTables == nil {
					jpegTables = tbl
				}
			}
		} else {
			enc = encodeBlock(block, spec.Compression)
		}
		w.align2()
		offsets = append(offsets, uint32(w.buf.Len()))
		counts = append(counts, uint32(len(enc)))
		w.buf.Write(enc)
	}

	if spec.TileSize > 0 {
		ts := spec.TileSize
		across := (width + ts - 1) / ts
		down := (height + ts - 1) / ts
		for ty := 0; ty < down; ty++ {
			for tx := 0; tx < across; tx++ {
				block := make([]byte, ts*ts*bpp)
				for y := 0; y < ts; y++ {
					for x := 0; x < ts; x++ {
						fillPixel(block[(y*ts+x)*bpp:], spec, level, tx*ts+x, ty*ts+y)
					}
				}
				emit(block, ts, ts)
			}
		}
		return offsets, counts, jpegTables
	}

	for y0 := 0; y0 < height; y0 += spec.RowsPerStrip {
		rows := spec.RowsPerStrip
		if y0+rows > height {
			rows = height - y0
		}
		block := make([]byte, rows*width*bpp)
		for y := 0; y < rows; y++ {
			for x := 0; x < width; x++ {
				fillPixel(block[(y*width+x)*bpp:], spec, level, x, y0+y)
			}
		}
		emit(block, width, rows)
	}
	return offsets, counts, jpegTables
}

// fillPixel writes one pixel's samples. Coordinates past the level edge
// (tile padding) still get deterministic values.
func fillPixel(dst []byte, spec SlideSpec, level, x, y int) {
	if spec.BitsPerSample == 16 {
		binary.LittleEndian.PutUint16(dst, PixelValue16(level, x, y))
		return
	}
	for c := 0; c < spec.Channels; c++ {
		dst[c] = PixelValue(level, x, y, c)
	}
}

func encodeBlock(block []byte, compression uint16) []byte {
	switch compression {
	case CompressionLZW:
		return compressLZW(block)
	case CompressionDeflate:
		var b bytes.Buffer
		zw := zlib.NewWriter(&b)
		_, _ = zw.Write(block)
		_ = zw.Close()
		return b.Bytes()
	case CompressionPackBits:
		return packBits(block)
	}
	return block
}

// encodeJPEGBlock renders one pixel block as a complete JPEG stream.
// JPEG payloads require 8-bit samples.
func encodeJPEGBlock(spec SlideSpec, block []byte, w, h int) []byte {
	var img image.Image
	if spec.Channels == 1 {
		g := image.NewGray(image.Rect(0, 0, w, h))
		copy(g.Pix, block)
		img = g
	} else {
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			rgba.Pix[4*i+0] = block[3*i+0]
			rgba.Pix[4*i+1] = block[3*i+1]
			rgba.Pix[4*i+2] = block[3*i+2]
			rgba.Pix[4*i+3] = 0xff
		}
		img = rgba
	}
	var b bytes.Buffer
	_ = jpeg.Encode(&b, img, &jpeg.Options{Quality: spec.JPEGQuality})
	return b.Bytes()
}

// splitJPEGTables moves the DQT and DHT segments of a complete JPEG
// stream into a standalone tables stream, leaving an abbreviated image
// stream the way TIFF writers with a JPEGTables tag store their blocks.
func splitJPEGTables(stream []byte) (tables, abbrev []byte) {
	tables = append(tables, 0xff, 0xd8)
	abbrev = append(abbrev, 0xff, 0xd8)
	i := 2
	for i+4 <= len(stream) && stream[i] == 0xff {
		marker := stream[i+1]
		if marker == 0xda {
			// Start of scan; entropy-coded data runs to the end.
			abbrev = append(abbrev, stream[i:]...)
			tables = append(tables, 0xff, 0xd9)
			return tables, abbrev
		}
		segLen := int(binary.BigEndian.Uint16(stream[i+2:])) + 2
		if i+segLen > len(stream) {
			break
		}
		if marker == 0xdb || marker == 0xc4 {
			tables = append(tables, stream[i:i+segLen]...)
		} else {
			abbrev = append(abbrev, stream[i:i+segLen]...)
		}
		i += segLen
	}
	tables = append(tables, 0xff, 0xd9)
	return tables, abbrev
}

// packBits emits literal runs only, which is valid if not compact.
func packBits(src []byte) []byte {
	var out []byte
	for len(src) > 0 {
		n := len(src)
		if n > 128 {
			n = 128
		}
		out = append(out, byte(n-1))
		out = append(out, src[:n]...)
		src = src[n:]
	}
	return out
}
