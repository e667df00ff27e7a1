package schema

import (
	"bytes"
	"encoding/binary"
	"math"
)

// EncodeCoordValue converts a Go number into this kind's order-preserving
// byte encoding: the representation `bytes.Compare` on two encoded values
// agrees with the numeric order of the values. Integers are encoded as
// sign-flipped big-endian two's complement; floats use the standard
// order-preserving IEEE-754 transform (flip the sign bit for positives,
// flip every bit for negatives). This lets the merge iterator's tie and
// ordering tests reduce to a single bytes.Compare across the whole
// coordinate tuple instead of a per-type numeric compare.
func (k CoordKind) EncodeCoordValue(v float64) []byte {
	buf := make([]byte, k.Size())
	switch k {
	case I32:
		u := uint32(int32(v)) ^ 0x80000000
		binary.BigEndian.PutUint32(buf, u)
	case I64:
		u := uint64(int64(v)) ^ 0x8000000000000000
		binary.BigEndian.PutUint64(buf, u)
	case F32:
		bits := math.Float32bits(float32(v))
		if bits&0x80000000 != 0 {
			bits = ^bits
		} else {
			bits |= 0x80000000
		}
		binary.BigEndian.PutUint32(buf, bits)
	case F64:
		bits := math.Float64bits(v)
		if bits&0x8000000000000000 != 0 {
			bits = ^bits
		} else {
			bits |= 0x8000000000000000
		}
		binary.BigEndian.PutUint64(buf, bits)
	}
	return buf
}

// DecodeOrderedCoord inverts EncodeCoordValue.
func (k CoordKind) DecodeOrderedCoord(buf []byte) float64 {
	switch k {
	case I32:
		u := binary.BigEndian.Uint32(buf) ^ 0x80000000
		return float64(int32(u))
	case I64:
		u := binary.BigEndian.Uint64(buf) ^ 0x8000000000000000
		return float64(int64(u))
	case F32:
		bits := binary.BigEndian.Uint32(buf)
		if bits&0x80000000 != 0 {
			bits &^= 0x80000000
		} else {
			bits = ^bits
		}
		return float64(math.Float32frombits(bits))
	case F64:
		bits := binary.BigEndian.Uint64(buf)
		if bits&0x8000000000000000 != 0 {
			bits &^= 0x8000000000000000
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits)
	}
	return 0
}

// EncodeNativeValue converts v into this kind's plain (non order-preserving)
// in-memory byte layout: the layout stored inside tile payloads and MBRs.
// Native layout is little endian; order-preserving encoding is reserved
// strictly for the comparator.
func (k CoordKind) EncodeNativeValue(v float64) []byte {
	buf := make([]byte, k.Size())
	switch k {
	case I32:
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
	case I64:
		binary.LittleEndian.PutUint64(buf, uint64(int64(v)))
	case F32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case F64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	}
	return buf
}

// DecodeNativeValue inverts EncodeNativeValue.
func (k CoordKind) DecodeNativeValue(buf []byte) float64 {
	switch k {
	case I32:
		return float64(int32(binary.LittleEndian.Uint32(buf)))
	case I64:
		return float64(int64(binary.LittleEndian.Uint64(buf)))
	case F32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	case F64:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
	return 0
}

// NativeToOrdered re-encodes a native-layout coordinate tuple (dimNum
// consecutive values of kind.Size() bytes each, as stored in a tile payload) into
// its order-preserving form for comparison, one dimension at a time.
func NativeToOrdered(kind CoordKind, native []byte, dimNum int) []byte {
	sz := kind.Size()
	out := make([]byte, dimNum*sz)
	for d := 0; d < dimNum; d++ {
		v := kind.DecodeNativeValue(native[d*sz : (d+1)*sz])
		copy(out[d*sz:(d+1)*sz], kind.EncodeCoordValue(v))
	}
	return out
}

// Order is the global cell order comparator induced by a schema. For
// regular tiling, cells are ordered lexicographically by (tile_id, in-tile
// coordinate); for irregular tiling the order is the coordinate comparator
// directly.
type Order struct {
	Regime Regime
}

// Precedes reports whether cell a comes strictly before cell b in the
// global order. Coordinates must already be in order-preserving encoding
// (see NativeToOrdered); comparing them with bytes.Compare is valid only
// because that encoding removes type-specific sign/exponent quirks and
// coordinates are plain fixed-width values without padding.
func (o Order) Precedes(aTileID uint64, aCoord []byte, bTileID uint64, bCoord []byte) bool {
	if o.Regime == Regular && aTileID != bTileID {
		return aTileID < bTileID
	}
	return bytes.Compare(aCoord, bCoord) < 0
}

// Succeeds is the mirror of Precedes, used by reverse iteration: for
// regular tiling the cell with the greater tile_id succeeds (is consumed
// first in reverse), and within a tile the coordinate order governs.
func (o Order) Succeeds(aTileID uint64, aCoord []byte, bTileID uint64, bCoord []byte) bool {
	if o.Regime == Regular && aTileID != bTileID {
		return aTileID > bTileID
	}
	return bytes.Compare(aCoord, bCoord) > 0
}

// Equal reports whether a and b occupy the same position in the global
// order (same tile id when that matters, and byte-identical coordinates).
func (o Order) Equal(aTileID uint64, aCoord []byte, bTileID uint64, bCoord []byte) bool {
	if o.Regime == Regular && aTileID != bTileID {
		return false
	}
	return bytes.Equal(aCoord, bCoord)
}
