package array

import (
	"encoding/binary"

	"github.com/quietcells/tilestore/schema"
)

// DenseIterator is the dense-simulation variant of the merge iterator: it
// walks every coordinate in the schema's domain, in the schema's global
// cell order, and for each one either forwards the backing sparse
// MergeIterator's stored cell (when its coordinates match) or synthesizes a
// zero cell. The emitted stream always has length equal to the product of
// per-dimension extents, regardless of how sparse the backing fragments are.
//
// The cursor walks tiles in row-major tile-index order (ascending tile id)
// and cells row-major within each tile, which for regular tiling is the
// (tile_id, in-tile coordinate) order the sparse stream emits in. Under
// irregular tiling the whole domain is treated as one tile, degenerating to
// a plain row-major walk — again the coordinate order the sparse stream
// follows.
type DenseIterator struct {
	sparse *MergeIterator
	sch    *schema.Schema

	reverse bool
	extents []uint64 // domain size per dimension
	tileExt []uint64 // tile extent per dimension; the full domain size under irregular tiling
	tileNum []uint64 // tile count per dimension
	tileIdx []uint64 // current tile index per dimension
	within  []uint64 // offset within the current tile per dimension

	exhausted bool
	end       bool
	err       error

	cellBuffer  []byte
	coordsMatch bool
}

// NewDense constructs a DenseIterator over arr under cfg. cfg.Range is not
// supported for dense traversal (the domain is always walked in full) and
// must be nil.
func NewDense(arr *Array, cfg Config) (*DenseIterator, error) {
	if !arr.Schema.CoordKind().Integral() {
		return nil, ErrDenseNonIntegral
	}
	if cfg.Range != nil {
		return nil, ErrDenseRanged
	}
	extents, err := arr.Schema.DenseDomainExtents()
	if err != nil {
		return nil, err
	}
	sparse, err := New(arr, cfg)
	if err != nil {
		return nil, err
	}
	d := &DenseIterator{
		sparse:  sparse,
		sch:     arr.Schema,
		reverse: cfg.Reverse,
		extents: extents,
		tileExt: make([]uint64, len(extents)),
		tileNum: make([]uint64, len(extents)),
		tileIdx: make([]uint64, len(extents)),
		within:  make([]uint64, len(extents)),
	}
	for _, e := range extents {
		if e == 0 {
			d.exhausted = true
		}
	}
	if !d.exhausted {
		for i, dim := range arr.Schema.Dimensions {
			if arr.Schema.Regime == schema.Regular {
				d.tileExt[i] = dim.Extent
			} else {
				d.tileExt[i] = extents[i]
			}
			d.tileNum[i] = (extents[i] + d.tileExt[i] - 1) / d.tileExt[i]
		}
		if d.reverse {
			for i := range extents {
				d.tileIdx[i] = d.tileNum[i] - 1
			}
			for i := range extents {
				d.within[i] = d.limit(i) - 1
			}
		}
	}
	if !sparse.Next() {
		if sparse.Err() != nil {
			return nil, sparse.Err()
		}
	}
	return d, nil
}

// limit is the cell count of the current tile along dim: the tile extent,
// clipped at the domain edge for the last tile of a dimension.
func (d *DenseIterator) limit(dim int) uint64 {
	lim := d.extents[dim] - d.tileIdx[dim]*d.tileExt[dim]
	if lim > d.tileExt[dim] {
		lim = d.tileExt[dim]
	}
	return lim
}

func (d *DenseIterator) currentCoords() []byte {
	sz := d.sch.CoordKind().Size()
	out := make([]byte, d.sch.DimNum()*sz)
	for i, dim := range d.sch.Dimensions {
		lo := dim.Kind.DecodeNativeValue(dim.Low)
		v := lo + float64(d.tileIdx[i]*d.tileExt[i]+d.within[i])
		copy(out[i*sz:(i+1)*sz], dim.Kind.EncodeNativeValue(v))
	}
	return out
}

// advanceCursor moves the cursor to the next (forward) or previous
// (reverse) coordinate in the global cell order: row-major within the
// current tile, then row-major over tile indices (ascending tile id).
func (d *DenseIterator) advanceCursor() {
	if d.reverse {
		d.retreatCursor()
		return
	}
	for dim := d.sch.DimNum() - 1; dim >= 0; dim-- {
		if d.within[dim]+1 < d.limit(dim) {
			d.within[dim]++
			return
		}
		d.within[dim] = 0
	}
	for dim := d.sch.DimNum() - 1; dim >= 0; dim-- {
		if d.tileIdx[dim]+1 < d.tileNum[dim] {
			d.tileIdx[dim]++
			return
		}
		d.tileIdx[dim] = 0
	}
	d.exhausted = true
}

func (d *DenseIterator) retreatCursor() {
	for dim := d.sch.DimNum() - 1; dim >= 0; dim-- {
		if d.within[dim] > 0 {
			d.within[dim]--
			return
		}
		d.within[dim] = d.limit(dim) - 1
	}
	moved := false
	for dim := d.sch.DimNum() - 1; dim >= 0; dim-- {
		if d.tileIdx[dim] > 0 {
			d.tileIdx[dim]--
			moved = true
			break
		}
		d.tileIdx[dim] = d.tileNum[dim] - 1
	}
	if !moved {
		d.exhausted = true
		return
	}
	// Tile limits may have changed with the tile move; land on the new
	// tile's last cell.
	for i := range d.within {
		d.within[i] = d.limit(i) - 1
	}
}

func (d *DenseIterator) zeroCell(coords []byte) []byte {
	attrs := d.sparse.Attributes()
	attrBytes := make([][]byte, len(attrs))
	anyVar := false
	for i, id := range attrs {
		attr := d.sch.Attributes[id]
		if attr.IsVar() {
			anyVar = true
			null := schema.NullBytes(attr.Kind)
			b := make([]byte, 4+len(null))
			binary.LittleEndian.PutUint32(b, 1)
			copy(b[4:], null)
			attrBytes[i] = b
		} else {
			sz, _ := attr.CellSize()
			attrBytes[i] = make([]byte, sz)
		}
	}
	buf := make([]byte, 0, len(coords)+8+len(attrBytes)*8)
	buf = append(buf, coords...)
	if anyVar {
		total := len(coords) + 8
		for _, b := range attrBytes {
			total += len(b)
		}
		lenPrefix := make([]byte, 8)
		binary.LittleEndian.PutUint64(lenPrefix, uint64(total))
		buf = append(buf, lenPrefix...)
	}
	for _, b := range attrBytes {
		buf = append(buf, b...)
	}
	return buf
}

// Next advances to the next domain coordinate and reports whether it is
// valid (false once the full domain has been walked).
func (d *DenseIterator) Next() bool {
	if d.end || d.err != nil {
		return false
	}
	if d.exhausted {
		d.end = true
		return false
	}

	cur := d.currentCoords()
	curOrdered := schema.NativeToOrdered(d.sch.CoordKind(), cur, d.sch.DimNum())

	matched := false
	if !d.sparse.End() {
		sparseOrdered := schema.NativeToOrdered(d.sch.CoordKind(), d.sparse.Coords(), d.sch.DimNum())
		matched = string(sparseOrdered) == string(curOrdered)
	}

	if matched {
		d.cellBuffer = append([]byte(nil), d.sparse.Cell()...)
		d.coordsMatch = true
		if !d.sparse.Next() {
			if err := d.sparse.Err(); err != nil {
				d.err = err
				return false
			}
		}
	} else {
		d.cellBuffer = d.zeroCell(cur)
		d.coordsMatch = false
	}

	d.advanceCursor()
	return true
}

// Cell returns the current cell's bytes: either a stored cell forwarded
// verbatim from the backing sparse iterator, or a synthesized zero cell.
func (d *DenseIterator) Cell() []byte { return d.cellBuffer }

// CoordsMatch reports whether the current cell came from the sparse backing
// (true) or was a synthesized zero-fill (false).
func (d *DenseIterator) CoordsMatch() bool { return d.coordsMatch }

// End reports whether the domain has been fully walked.
func (d *DenseIterator) End() bool { return d.end }

// Err returns the first error encountered, if any.
func (d *DenseIterator) Err() error {
	if d.err != nil {
		return d.err
	}
	return d.sparse.Err()
}
