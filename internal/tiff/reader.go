// Package tiff provides lazy, read-only access to TIFF and BigTIFF
// containers: byte-order detection, IFD chain traversal including SubIFD
// pyramids, typed tag access and tile/strip payload decoding. It decodes
// only what a caller asks for; pixel data stays on disk until a tile is
// requested.
package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	magicClassic = 42
	magicBig     = 43

	// Walks stop after this many directories so a corrupt next-IFD pointer
	// cannot loop forever.
	DefaultMaxIFDs = 4096
)

var (
	ErrNotTIFF       = errors.New("tiff: not a TIFF file")
	ErrCorrupt       = errors.New("tiff: corrupt structure")
	ErrTagNotPresent = errors.New("tiff: tag not present")
)

// File is an open TIFF container. It keeps a reference to the underlying
// io.ReaderAt and never reads payload bytes until asked.
type File struct {
	r       io.ReaderAt
	order   binary.ByteOrder
	big     bool
	ifds    []*IFD
	maxIFDs int
}

// IFD is a single image file directory with lazily readable entries.
type IFD struct {
	f       *File
	offset  int64
	entries map[uint16]entry
	subs    []*IFD
}

// entry mirrors one directory slot. Values short enough to fit the inline
// field stay in raw; longer values are read from valueOff on demand.
type entry struct {
	typ      fieldType
	count    uint64
	raw      [8]byte
	inline   bool
	valueOff int64
}

// Options tune container traversal.
type Options struct {
	// MaxIFDs bounds the total number of directories walked, SubIFDs
	// included. Zero means DefaultMaxIFDs.
	MaxIFDs int
}

// Open parses the container header and walks every IFD chain. Tag values and
// pixel payloads are not read.
func Open(r io.ReaderAt, opts Options) (*File, error) {
	f := &File{r: r, maxIFDs: opts.MaxIFDs}
	if f.maxIFDs <= 0 {
		f.maxIFDs = DefaultMaxIFDs
	}

	var hdr [16]byte
	if _, err := r.ReadAt(hdr[:8], 0); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrNotTIFF, err)
	}
	switch string(hdr[:2]) {
	case "II":
		f.order = binary.LittleEndian
	case "MM":
		f.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad byte-order mark %q", ErrNotTIFF, hdr[:2])
	}

	var first int64
	switch f.order.Uint16(hdr[2:4]) {
	case magicClassic:
		first = int64(f.order.Uint32(hdr[4:8]))
	case magicBig:
		if _, err := r.ReadAt(hdr[8:16], 8); err != nil {
			return nil, fmt.Errorf("%w: reading BigTIFF header: %v", ErrNotTIFF, err)
		}
		if f.order.Uint16(hdr[4:6]) != 8 || f.order.Uint16(hdr[6:8]) != 0 {
			return nil, fmt.Errorf("%w: malformed BigTIFF header", ErrNotTIFF)
		}
		f.big = true
		first = int64(f.order.Uint64(hdr[8:16]))
	default:
		return nil, fmt.Errorf("%w: bad magic", ErrNotTIFF)
	}
	if first <= 0 {
		return nil, fmt.Errorf("%w: zero first IFD offset", ErrCorrupt)
	}

	seen := make(map[int64]bool)
	total := 0
	chain, err := f.walkChain(first, seen, &total)
	if err != nil {
		return nil, err
	}
	f.ifds = chain
	return f, nil
}

// walkChain follows next-IFD pointers starting at offset, recursing into
// SubIFD trees. seen and total are shared across the whole file.
func (f *File) walkChain(offset int64, seen map[int64]bool, total *int) ([]*IFD, error) {
	var chain []*IFD
	for offset != 0 {
		if seen[offset] {
			return nil, fmt.Errorf("%w: IFD offset cycle at %#x", ErrCorrupt, offset)
		}
		seen[offset] = true
		if *total++; *total > f.maxIFDs {
			return nil, fmt.Errorf("%w: more than %d IFDs", ErrCorrupt, f.maxIFDs)
		}
		d, next, err := f.parseIFD(offset)
		if err != nil {
			return nil, err
		}
		if err := f.attachSubIFDs(d, seen, total); err != nil {
			return nil, err
		}
		chain = append(chain, d)
		offset = next
	}
	return chain, nil
}

func (f *File) parseIFD(offset int64) (*IFD, int64, error) {
	var buf [8]byte
	var n uint64
	entrySize := int64(12)
	pos := offset
	if f.big {
		entrySize = 20
		if _, err := f.r.ReadAt(buf[:8], pos); err != nil {
			return nil, 0, fmt.Errorf("%w: IFD count at %#x: %v", ErrCorrupt, offset, err)
		}
		n = f.order.Uint64(buf[:8])
		pos += 8
	} else {
		if _, err := f.r.ReadAt(buf[:2], pos); err != nil {
			return nil, 0, fmt.Errorf("%w: IFD count at %#x: %v", ErrCorrupt, offset, err)
		}
		n = uint64(f.order.Uint16(buf[:2]))
		pos += 2
	}
	if n > 65535 {
		return nil, 0, fmt.Errorf("%w: implausible entry count %d", ErrCorrupt, n)
	}

	d := &IFD{f: f, offset: offset, entries: make(map[uint16]entry, n)}
	raw := make([]byte, entrySize)
	for i := uint64(0); i < n; i++ {
		if _, err := f.r.ReadAt(raw, pos); err != nil {
			return nil, 0, fmt.Errorf("%w: IFD entry at %#x: %v", ErrCorrupt, pos, err)
		}
		id := f.order.Uint16(raw[0:2])
		e := entry{typ: fieldType(f.order.Uint16(raw[2:4]))}
		var valueField []byte
		if f.big {
			e.count = f.order.Uint64(raw[4:12])
			valueField = raw[12:20]
		} else {
			e.count = uint64(f.order.Uint32(raw[4:8]))
			valueField = raw[8:12]
		}
		size := e.typ.size() * e.count
		if size > 0 && size <= uint64(len(valueField)) {
			e.inline = true
			copy(e.raw[:], valueField)
		} else {
			if f.big {
				e.valueOff = int64(f.order.Uint64(valueField))
			} else {
				e.valueOff = int64(f.order.Uint32(valueField))
			}
		}
		d.entries[id] = e
		pos += entrySize
	}

	if f.big {
		if _, err := f.r.ReadAt(buf[:8], pos); err != nil {
			return nil, 0, fmt.Errorf("%w: next-IFD pointer at %#x: %v", ErrCorrupt, pos, err)
		}
		return d, int64(f.order.Uint64(buf[:8])), nil
	}
	if _, err := f.r.ReadAt(buf[:4], pos); err != nil {
		return nil, 0, fmt.Errorf("%w: next-IFD pointer at %#x: %v", ErrCorrupt, pos, err)
	}
	return d, int64(f.order.Uint32(buf[:4])), nil
}

// attachSubIFDs resolves the SubIFDs tag. Each listed offset heads its own
// chain; OME-TIFF writers store pyramid levels this way.
func (f *File) attachSubIFDs(d *IFD, seen map[int64]bool, total *int) error {
	offs, err := d.Uints(TagSubIFDs)
	if errors.Is(err, ErrTagNotPresent) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, o := range offs {
		if o == 0 {
			continue
		}
		chain, err := f.walkChain(int64(o), seen, total)
		if err != nil {
			return err
		}
		d.subs = append(d.subs, chain...)
	}
	return nil
}

// IFDs returns the top-level directory chain in file order.
func (f *File) IFDs() []*IFD { return f.ifds }

// ByteOrder reports the container's byte order.
func (f *File) ByteOrder() binary.ByteOrder { return f.order }

// IsBigTIFF reports whether the container uses the BigTIFF layout.
func (f *File) IsBigTIFF() bool { return f.big }

// SubIFDs returns the directories referenced by this IFD's SubIFDs tag.
func (d *IFD) SubIFDs() []*IFD { return d.subs }

// Has reports whether the directory carries the tag.
func (d *IFD) Has(id uint16) bool {
	_, ok := d.entries[id]
	return ok
}

// valueBytes reads the raw value bytes of an entry.
func (d *IFD) valueBytes(e entry) ([]byte, error) {
	size := e.typ.size() * e.count
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-size value", ErrCorrupt)
	}
	if e.inline {
		return e.raw[:size], nil
	}
	buf := make([]byte, size)
	if _, err := d.f.r.ReadAt(buf, e.valueOff); err != nil {
		return nil, fmt.Errorf("%w: value at %#x: %v", ErrCorrupt, e.valueOff, err)
	}
	return buf, nil
}

// Uints returns all values of an integer-typed tag widened to uint64.
func (d *IFD) Uints(id uint16) ([]uint64, error) {
	e, ok := d.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTagNotPresent, id)
	}
	data, err := d.valueBytes(e)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, e.count)
	order := d.f.order
	switch e.typ {
	case typeByte:
		for i := range out {
			out[i] = uint64(data[i])
		}
	case typeShort:
		for i := range out {
			out[i] = uint64(order.Uint16(data[2*i:]))
		}
	case typeLong, typeIFD:
		for i := range out {
			out[i] = uint64(order.Uint32(data[4*i:]))
		}
	case typeLong8, typeIFD8:
		for i := range out {
			out[i] = order.Uint64(data[8*i:])
		}
	default:
		return nil, fmt.Errorf("tiff: tag %d has non-integer type %d", id, e.typ)
	}
	return out, nil
}

// Uint returns the first value of an integer-typed tag.
func (d *IFD) Uint(id uint16) (uint64, error) {
	vs, err := d.Uints(id)
	if err != nil {
		return 0, err
	}
	if len(vs) == 0 {
		return 0, fmt.Errorf("%w: empty tag %d", ErrCorrupt, id)
	}
	return vs[0], nil
}

// UintDefault returns the first value of the tag, or def when absent.
func (d *IFD) UintDefault(id uint16, def uint64) uint64 {
	v, err := d.Uint(id)
	if err != nil {
		return def
	}
	return v
}

// ASCII returns the tag's value as a string with the trailing NUL trimmed.
func (d *IFD) ASCII(id uint16) (string, error) {
	e, ok := d.entries[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrTagNotPresent, id)
	}
	if e.typ != typeASCII && e.typ != typeUndefined && e.typ != typeByte {
		return "", fmt.Errorf("tiff: tag %d has non-text type %d", id, e.typ)
	}
	data, err := d.valueBytes(e)
	if err != nil {
		return "", err
	}
	for len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	return string(data), nil
}

// Bytes returns the tag's raw value bytes.
func (d *IFD) Bytes(id uint16) ([]byte, error) {
	e, ok := d.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTagNotPresent, id)
	}
	return d.valueBytes(e)
}
