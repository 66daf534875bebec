package tiff

// Baseline and extension tag IDs used by OME-TIFF files.
const (
	TagImageWidth       uint16 = 256
	TagImageLength      uint16 = 257
	TagBitsPerSample    uint16 = 258
	TagCompression      uint16 = 259
	TagPhotometric      uint16 = 262
	TagImageDescription uint16 = 270
	TagStripOffsets     uint16 = 273
	TagSamplesPerPixel  uint16 = 277
	TagRowsPerStrip     uint16 = 278
	TagStripByteCounts  uint16 = 279
	TagPlanarConfig     uint16 = 284
	TagPredictor        uint16 = 317
	TagTileWidth        uint16 = 322
	TagTileLength       uint16 = 323
	TagTileOffsets      uint16 = 324
	TagTileByteCounts   uint16 = 325
	TagSubIFDs          uint16 = 330
	TagJPEGTables       uint16 = 347
	TagSampleFormat     uint16 = 339
)

// Compression scheme codes.
const (
	CompressionNone     uint16 = 1
	CompressionLZW      uint16 = 5
	CompressionJPEG     uint16 = 7
	CompressionDeflate  uint16 = 8
	CompressionPackBits uint16 = 32773
	// Legacy code emitted by some writers for zlib streams.
	CompressionDeflateOld uint16 = 32946
)

// Photometric interpretation codes.
const (
	PhotometricWhiteIsZero uint16 = 0
	PhotometricBlackIsZero uint16 = 1
	PhotometricRGB         uint16 = 2
	PhotometricPalette     uint16 = 3
	PhotometricYCbCr       uint16 = 6
)

// Planar configuration codes.
const (
	PlanarContiguous uint16 = 1
	PlanarSeparate   uint16 = 2
)

// fieldType is the TIFF on-disk value type of a directory entry.
type fieldType uint16

const (
	typeByte      fieldType = 1
	typeASCII     fieldType = 2
	typeShort     fieldType = 3
	typeLong      fieldType = 4
	typeRational  fieldType = 5
	typeSByte     fieldType = 6
	typeUndefined fieldType = 7
	typeSShort    fieldType = 8
	typeSLong     fieldType = 9
	typeSRational fieldType = 10
	typeFloat     fieldType = 11
	typeDouble    fieldType = 12
	typeIFD       fieldType = 13
	typeLong8     fieldType = 16
	typeSLong8    fieldType = 17
	typeIFD8      fieldType = 18
)

// size returns the byte width of a single value of the type, or 0 when the
// type code is unknown.
func (ft fieldType) size() uint64 {
	switch ft {
	case typeByte, typeASCII, typeSByte, typeUndefined:
		return 1
	case typeShort, typeSShort:
		return 2
	case typeLong, typeSLong, typeFloat, typeIFD:
		return 4
	case typeRational, typeSRational, typeDouble, typeLong8, typeSLong8, typeIFD8:
		return 8
	}
	return 0
}
