package decode

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// payload reads little-endian fields out of an event's data block. Reads past
// the end return zero so a short payload never stops decoding.
type payload []byte

func (p payload) u8(off int) uint64 {
	if off < 0 || off >= len(p) {
		return 0
	}
	return uint64(p[off])
}

func (p payload) u16(off int) uint64 {
	if off < 0 || off+2 > len(p) {
		return 0
	}
	return uint64(binary.LittleEndian.Uint16(p[off:]))
}

func (p payload) u32(off int) uint64 {
	if off < 0 || off+4 > len(p) {
		return 0
	}
	return uint64(binary.LittleEndian.Uint32(p[off:]))
}

func (p payload) u64(off int) uint64 {
	if off < 0 || off+8 > len(p) {
		return 0
	}
	return binary.LittleEndian.Uint64(p[off:])
}

// slice returns p[off:off+n] clipped to the available bytes.
func (p payload) slice(off, n int) payload {
	if off >= len(p) {
		return nil
	}
	end := off + n
	if end > len(p) {
		end = len(p)
	}
	return p[off:end]
}

const hexDigits = "0123456789ABCDEF"

// hexDump renders b as space-separated uppercase byte pairs.
func hexDump(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0F])
	}
	return sb.String()
}

// hexBlob renders b as contiguous uppercase hex, for embedding in a key=value line.
func hexBlob(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, c := range b {
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0F])
	}
	return sb.String()
}

// Field constructors. u renders decimal, x lowercase hex, xw zero-padded
// lowercase hex, xu zero-padded uppercase hex.

func u(key string, v uint64) Field {
	return Field{Key: key, Value: strconv.FormatUint(v, 10)}
}

func x(key string, v uint64) Field {
	return Field{Key: key, Value: strconv.FormatUint(v, 16)}
}

func xw(key string, v uint64, width int) Field {
	return Field{Key: key, Value: fmt.Sprintf("%0*x", width, v)}
}

func xu(key string, v uint64, width int) Field {
	return Field{Key: key, Value: fmt.Sprintf("%0*X", width, v)}
}
