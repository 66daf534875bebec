package testutil

// TIFF LZW parameters: 8-bit literals, clear and end codes above them,
// MSB-first bit packing and the Aldus "off by one" code-width change.
const (
	lzwClearCode = 256
	lzwEOICode   = 257
	lzwMaxWidth  = 12
)

// compressLZW encodes src as a TIFF LZW stream. The code width grows one
// code earlier than standard LZW, matching what TIFF readers expect, and
// the string table is flushed with a clear code before it can overflow.
func compressLZW(src []byte) []byte {
	w := &msbWriter{}
	width := uint(9)
	hi := uint16(lzwEOICode)
	overflow := uint16(1) << width
	table := make(map[uint32]uint16)

	reset := func() {
		table = make(map[uint32]uint16)
		width = 9
		hi = lzwEOICode
		overflow = 1 << width
	}

	w.write(lzwClearCode, width)
	var cur uint16
	havePrefix := false
	for _, b := range src {
		if !havePrefix {
			cur = uint16(b)
			havePrefix = true
			continue
		}
		key := uint32(cur)<<8 | uint32(b)
		if next, ok := table[key]; ok {
			cur = next
			continue
		}
		w.write(cur, width)
		hi++
		table[key] = hi
		if hi+1 >= overflow {
			if width == lzwMaxWidth {
				w.write(lzwClearCode, width)
				reset()
			} else {
				width++
				overflow <<= 1
			}
		}
		cur = uint16(b)
	}
	if havePrefix {
		w.write(cur, width)
		hi++
		if hi+1 >= overflow && width < lzwMaxWidth {
			width++
			overflow <<= 1
		}
	}
	w.write(lzwEOICode, width)
	return w.flush()
}

// msbWriter packs variable-width codes most significant bit first.
type msbWriter struct {
	out  []byte
	bits uint32
	n    uint
}

func (w *msbWriter) write(code uint16, width uint) {
	w.bits |= uint32(code) << (32 - width - w.n)
	w.n += width
	for w.n >= 8 {
		w.out = append(w.out, byte(w.bits>>24))
		w.bits <<= 8
		w.n -= 8
	}
}

func (w *msbWriter) flush() []byte {
	if w.n > 0 {
		w.out = append(w.out, byte(w.bits>>24))
	}
	return w.out
}
