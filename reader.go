package apkres

import (
	"encoding/binary"
	"unicode/utf16"
	"unicode/utf8"
)

// BinReader is a random-access little-endian accessor over a byte slice.
// Every read takes an absolute offset into the underlying buffer rather than
// advancing an internal cursor, because the chunked formats here are full of
// sparse offset tables (string pool offsets, type-chunk entry offsets) that
// are addressed out of order. Reads that fall outside the buffer return the
// zero value instead of an error: the formats use 0xFFFFFFFF sentinels and
// optional trailing fields liberally, and a hard error on every one of those
// would drown the real structural failures (caught separately via
// ChunkHeader.ChunkSize bounds checks) in noise.
type BinReader struct {
	data []byte
}

func NewBinReader(data []byte) *BinReader {
	return &BinReader{data: data}
}

func (r *BinReader) Len() int { return len(r.data) }

func (r *BinReader) Bytes() []byte { return r.data }

func (r *BinReader) u8(off uint32) uint8 {
	if uint64(off) >= uint64(len(r.data)) {
		return 0
	}
	return r.data[off]
}

func (r *BinReader) u16le(off uint32) uint16 {
	if uint64(off)+2 > uint64(len(r.data)) {
		return 0
	}
	return binary.LittleEndian.Uint16(r.data[off:])
}

func (r *BinReader) u32le(off uint32) uint32 {
	if uint64(off)+4 > uint64(len(r.data)) {
		return 0
	}
	return binary.LittleEndian.Uint32(r.data[off:])
}

// strUTF8 reads len bytes at off and decodes them as UTF-8.
func (r *BinReader) strUTF8(off, length uint32) string {
	end := uint64(off) + uint64(length)
	if uint64(off) > uint64(len(r.data)) || end > uint64(len(r.data)) {
		return ""
	}
	b := r.data[off:end]
	if !utf8.Valid(b) {
		return ""
	}
	return string(b)
}

// strUTF16LE reads byteLen bytes at off and decodes them as UTF-16LE.
func (r *BinReader) strUTF16LE(off, byteLen uint32) string {
	end := uint64(off) + uint64(byteLen)
	if uint64(off) > uint64(len(r.data)) || end > uint64(len(r.data)) {
		return ""
	}
	b := r.data[off:end]
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}

// slice returns data[off:end], or nil if either bound is out of range.
func (r *BinReader) slice(off, end uint32) []byte {
	if uint64(off) > uint64(len(r.data)) || uint64(end) > uint64(len(r.data)) || end < off {
		return nil
	}
	return r.data[off:end]
}
