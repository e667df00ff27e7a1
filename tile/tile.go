// Package tile implements the tile payload and bounding model. A Tile is
// an opaque, fixed-capacity payload of one attribute's cells (or of
// coordinates) for a single fragment. Tiles are handed out by a
// storage.Manager as already-materialized values; this package only
// interprets the bytes, it never performs I/O.
package tile

import (
	"fmt"

	"github.com/quietcells/tilestore/schema"
)

// Tile is an observer over a contiguous byte payload representing either
// dim_num coordinates per cell (a coordinate tile, dim_num > 0) or one
// attribute's values (dim_num == 0). The payload memory belongs to the
// storage manager; the Tile holds a reference to it, and iterators
// (package cell) in turn only ever borrow from the Tile, never copy.
type Tile struct {
	id     uint64
	dimNum int

	coordKind schema.CoordKind
	attrKind  schema.AttrKind

	valNum  int // fixed elements-per-cell count; schema.VarSize for variable attributes
	cellNum int

	payload []byte
	offsets []int // cumulative cell-start byte offsets, len cellNum+1; nil for fixed-size tiles

	mbr                   []byte // 2*dimNum*elemSize, coordinate tiles only
	boundFirst, boundLast []byte // dimNum*elemSize each, coordinate tiles only
}

// NewCoordsTile constructs an empty coordinate tile. dimNum must match the
// owning schema's DimNum(); coordinate tiles only exist with dim_num > 0.
func NewCoordsTile(id uint64, dimNum int, kind schema.CoordKind) (*Tile, error) {
	if dimNum <= 0 {
		return nil, ErrCoordsZeroDims
	}
	return &Tile{id: id, dimNum: dimNum, coordKind: kind}, nil
}

// NewAttrTile constructs an empty attribute tile. valNum is the number of
// elements per cell, or schema.VarSize for variable-length cells.
func NewAttrTile(id uint64, kind schema.AttrKind, valNum int) (*Tile, error) {
	if valNum != schema.VarSize && valNum <= 0 {
		return nil, fmt.Errorf("tile: invalid valNum %d", valNum)
	}
	return &Tile{id: id, dimNum: 0, attrKind: kind, valNum: valNum}, nil
}

// IsCoords reports whether this is a coordinate tile.
func (t *Tile) IsCoords() bool { return t.dimNum > 0 }

// DimNum is 0 for attribute tiles, the schema's dimension count for
// coordinate tiles.
func (t *Tile) DimNum() int { return t.dimNum }

// TileID returns this tile's 64-bit monotonic (within fragment+attribute) id.
func (t *Tile) TileID() uint64 { return t.id }

// CellNum is the number of cells materialized in this tile.
func (t *Tile) CellNum() int { return t.cellNum }

// TileSize is the payload's total byte length.
func (t *Tile) TileSize() int { return len(t.payload) }

// IsVar reports whether this tile holds variable-length cells. Only
// attribute tiles can be variable; coordinate tiles are always fixed-size.
func (t *Tile) IsVar() bool { return !t.IsCoords() && t.valNum == schema.VarSize }

func (t *Tile) elemSize() int {
	if t.IsCoords() {
		return t.coordKind.Size()
	}
	return t.attrKind.Size()
}

// fixedCellSize returns the constant per-cell size for non-variable tiles.
// Coordinate tiles hold dimNum elements per cell; attribute tiles hold
// valNum.
func (t *Tile) fixedCellSize() int {
	if t.IsCoords() {
		return t.dimNum * t.elemSize()
	}
	return t.valNum * t.elemSize()
}

// SetPayload finalizes a fixed-size tile's content. cellNum is derived from
// the payload length and the fixed cell size; the payload must be an exact
// multiple of the cell size.
func (t *Tile) SetPayload(payload []byte) error {
	if t.IsVar() {
		return fmt.Errorf("tile: use SetPayloadVar for variable-length tiles")
	}
	cellSize := t.fixedCellSize()
	if cellSize == 0 || len(payload)%cellSize != 0 {
		return ErrSizeMismatch
	}
	t.payload = payload
	t.cellNum = len(payload) / cellSize
	return nil
}

// SetPayloadVar finalizes a variable-length attribute tile's content.
// offsets holds cellNum+1 strictly increasing cumulative byte offsets into
// payload, with offsets[0] == 0 and offsets[len(offsets)-1] == len(payload).
func (t *Tile) SetPayloadVar(payload []byte, offsets []int) error {
	if !t.IsVar() {
		return fmt.Errorf("tile: SetPayloadVar requires a variable-length attribute tile")
	}
	if len(offsets) < 1 || offsets[0] != 0 || offsets[len(offsets)-1] != len(payload) {
		return ErrBadOffsets
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] <= offsets[i-1] {
			return ErrBadOffsets
		}
	}
	t.payload = payload
	t.offsets = offsets
	t.cellNum = len(offsets) - 1
	return nil
}

// SetMBR finalizes the tile's minimum bounding rectangle, laid out as
// [dim#1_lo, dim#1_hi, dim#2_lo, dim#2_hi, ...] in native coordinate byte
// layout. Only valid for coordinate tiles.
func (t *Tile) SetMBR(mbr []byte) error {
	if !t.IsCoords() {
		return ErrNotCoords
	}
	want := 2 * t.dimNum * t.elemSize()
	if len(mbr) != want {
		return fmt.Errorf("tile: MBR length %d, want %d", len(mbr), want)
	}
	t.mbr = mbr
	return nil
}

// SetBoundingCoordinates finalizes the first/last cell coordinates stored
// in this tile under the global order. Only valid for coordinate tiles.
func (t *Tile) SetBoundingCoordinates(first, last []byte) error {
	if !t.IsCoords() {
		return ErrNotCoords
	}
	want := t.dimNum * t.elemSize()
	if len(first) != want || len(last) != want {
		return fmt.Errorf("tile: bounding coordinate length mismatch, want %d", want)
	}
	t.boundFirst, t.boundLast = first, last
	return nil
}

// Cell returns the raw bytes of the cell at pos: for fixed-size tiles this
// is exactly cell_size bytes; for variable tiles it includes the leading
// u32 element-count prefix followed by the element data.
func (t *Tile) Cell(pos int) ([]byte, error) {
	if pos < 0 || pos >= t.cellNum {
		return nil, ErrOutOfRange
	}
	if t.IsVar() {
		return t.payload[t.offsets[pos]:t.offsets[pos+1]], nil
	}
	sz := t.fixedCellSize()
	return t.payload[pos*sz : (pos+1)*sz], nil
}

// CellSize returns the byte size of the cell at pos.
func (t *Tile) CellSize(pos int) (int, error) {
	if pos < 0 || pos >= t.cellNum {
		return 0, ErrOutOfRange
	}
	if t.IsVar() {
		return t.offsets[pos+1] - t.offsets[pos], nil
	}
	return t.fixedCellSize(), nil
}

// MBR returns the tile's minimum bounding rectangle bytes.
func (t *Tile) MBR() ([]byte, error) {
	if !t.IsCoords() {
		return nil, ErrNotCoords
	}
	return t.mbr, nil
}

// BoundingCoordinates returns the first/last stored cell coordinates.
func (t *Tile) BoundingCoordinates() (first, last []byte, err error) {
	if !t.IsCoords() {
		return nil, nil, ErrNotCoords
	}
	return t.boundFirst, t.boundLast, nil
}

// CellInsideRange reports whether the coordinates at pos lie within rng, a
// dimension-wise inclusive hyper-rectangle encoded as 2*dimNum native
// values ([lo0,hi0,lo1,hi1,...]). Only valid for coordinate tiles.
func (t *Tile) CellInsideRange(pos int, rng []byte) (bool, error) {
	if !t.IsCoords() {
		return false, ErrNotCoords
	}
	sz := t.elemSize()
	if len(rng) != 2*t.dimNum*sz {
		return false, ErrRangeDims
	}
	cellBytes, err := t.Cell(pos)
	if err != nil {
		return false, err
	}
	for d := 0; d < t.dimNum; d++ {
		v := t.coordKind.DecodeNativeValue(cellBytes[d*sz : (d+1)*sz])
		lo := t.coordKind.DecodeNativeValue(rng[2*d*sz : (2*d+1)*sz])
		hi := t.coordKind.DecodeNativeValue(rng[(2*d+1)*sz : (2*d+2)*sz])
		if v < lo || v > hi {
			return false, nil
		}
	}
	return true, nil
}

// MBROverlap reports whether the tile's MBR lies entirely within rng
// (full) and whether it intersects rng at all (overlaps). The merge
// iterator uses full containment to elide per-cell range checks.
func (t *Tile) MBROverlap(rng []byte) (full bool, overlaps bool, err error) {
	if !t.IsCoords() {
		return false, false, ErrNotCoords
	}
	return MBROverlap(t.coordKind, t.dimNum, t.mbr, rng)
}

// MBROverlap is the free-function form of (*Tile).MBROverlap, usable
// against raw MBR bytes fetched cheaply (without materializing a Tile) —
// the shape fragment.TileIterator.MBR() and the array package's tile-skip
// loop need.
func MBROverlap(kind schema.CoordKind, dimNum int, mbr, rng []byte) (full bool, overlaps bool, err error) {
	sz := kind.Size()
	if len(rng) != 2*dimNum*sz || len(mbr) != 2*dimNum*sz {
		return false, false, ErrRangeDims
	}
	full = true
	overlaps = true
	for d := 0; d < dimNum; d++ {
		mbrLo := kind.DecodeNativeValue(mbr[2*d*sz : (2*d+1)*sz])
		mbrHi := kind.DecodeNativeValue(mbr[(2*d+1)*sz : (2*d+2)*sz])
		rngLo := kind.DecodeNativeValue(rng[2*d*sz : (2*d+1)*sz])
		rngHi := kind.DecodeNativeValue(rng[(2*d+1)*sz : (2*d+2)*sz])
		if mbrHi < rngLo || mbrLo > rngHi {
			return false, false, nil
		}
		if mbrLo < rngLo || mbrHi > rngHi {
			full = false
		}
	}
	return full, overlaps, nil
}

// IsNull reports whether the cell at pos carries the reserved NULL
// sentinel on this attribute tile's element type.
func (t *Tile) IsNull(pos int) (bool, error) {
	if t.IsCoords() {
		return false, ErrNotCoords
	}
	c, err := t.Cell(pos)
	if err != nil {
		return false, err
	}
	if t.IsVar() {
		c = c[4:]
	}
	return schema.IsNull(t.attrKind, c[:t.attrKind.Size()]), nil
}

// IsDel reports whether the cell at pos carries the reserved deletion
// tombstone sentinel.
func (t *Tile) IsDel(pos int) (bool, error) {
	if t.IsCoords() {
		return false, ErrNotCoords
	}
	c, err := t.Cell(pos)
	if err != nil {
		return false, err
	}
	if t.IsVar() {
		c = c[4:]
	}
	return schema.IsDel(t.attrKind, c[:t.attrKind.Size()]), nil
}
