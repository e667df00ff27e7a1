// Package query implements the query-processor operators — Filter,
// Subarray, Join, and k-NN — built from the schema/tile/cell/fragment/
// array components plus the shared result-tile-set output path described
// here.
package query

import (
	"fmt"
	"math"

	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage"
)

// ResultBuilder is the output path every operator in this package shares:
// a per-attribute tile set, flushed to a storage.Manager as a group
// whenever the irregular-tiling capacity is reached or, for regular
// tiling, whenever the driver tile id changes.
type ResultBuilder struct {
	mgr        storage.Manager
	desc       storage.Descriptor
	sch        *schema.Schema
	fragmentID uint64
	attrIDs    []int

	coordBuf    []byte
	attrBuf     map[int][]byte
	attrOffsets map[int][]int

	count      int
	curTileID  uint64
	haveTileID bool
	nextTileID uint64
}

// NewResultBuilder constructs a ResultBuilder writing coordinates plus the
// given attribute ids to (mgr, desc, fragmentID). attrIDs need not cover
// every attribute in sch — Filter's projection list, for instance, is
// typically a strict subset.
func NewResultBuilder(mgr storage.Manager, desc storage.Descriptor, sch *schema.Schema, fragmentID uint64, attrIDs []int) *ResultBuilder {
	rb := &ResultBuilder{mgr: mgr, desc: desc, sch: sch, fragmentID: fragmentID, attrIDs: attrIDs}
	rb.resetBuffers()
	return rb
}

func (rb *ResultBuilder) resetBuffers() {
	rb.coordBuf = nil
	rb.attrBuf = make(map[int][]byte, len(rb.attrIDs))
	rb.attrOffsets = make(map[int][]int, len(rb.attrIDs))
	for _, id := range rb.attrIDs {
		rb.attrOffsets[id] = []int{0}
	}
	rb.count = 0
}

// Append adds one output cell. coords is native-layout coordinate bytes;
// attrs supplies the raw bytes for each id in rb.attrIDs.
func (rb *ResultBuilder) Append(coords []byte, attrs map[int][]byte) error {
	if rb.sch.Regime == schema.Regular {
		tileID, err := rb.sch.TileID(coords)
		if err != nil {
			return err
		}
		if rb.haveTileID && tileID != rb.curTileID {
			if err := rb.Flush(); err != nil {
				return err
			}
		}
		rb.curTileID = tileID
		rb.haveTileID = true
	}

	rb.coordBuf = append(rb.coordBuf, coords...)
	for _, id := range rb.attrIDs {
		b, ok := attrs[id]
		if !ok {
			return fmt.Errorf("query: result builder missing attribute %d for appended cell", id)
		}
		rb.attrBuf[id] = append(rb.attrBuf[id], b...)
		rb.attrOffsets[id] = append(rb.attrOffsets[id], len(rb.attrBuf[id]))
	}
	rb.count++

	if rb.sch.Regime == schema.Irregular && uint64(rb.count) >= rb.sch.Capacity {
		return rb.Flush()
	}
	return nil
}

// Flush commits the currently-buffered cells as one tile per attribute (plus
// coordinates) and resets the buffers. A no-op when nothing is buffered.
func (rb *ResultBuilder) Flush() error {
	if rb.count == 0 {
		return nil
	}

	var tileID uint64
	if rb.sch.Regime == schema.Regular {
		tileID = rb.curTileID
	} else {
		tileID = rb.nextTileID
		rb.nextTileID++
	}

	coordsID := rb.sch.CoordsID()
	ct, err := rb.mgr.NewTile(rb.desc, rb.fragmentID, coordsID, tileID)
	if err != nil {
		return err
	}
	if err := ct.SetPayload(rb.coordBuf); err != nil {
		return err
	}
	mbr, first, last, err := coordBounds(rb.sch, rb.coordBuf)
	if err != nil {
		return err
	}
	if err := ct.SetMBR(mbr); err != nil {
		return err
	}
	if err := ct.SetBoundingCoordinates(first, last); err != nil {
		return err
	}
	if err := rb.mgr.AppendTile(rb.desc, rb.fragmentID, coordsID, ct); err != nil {
		return err
	}

	for _, id := range rb.attrIDs {
		attr, err := rb.sch.Attribute(id)
		if err != nil {
			return err
		}
		t, err := rb.mgr.NewTile(rb.desc, rb.fragmentID, id, tileID)
		if err != nil {
			return err
		}
		if attr.IsVar() {
			err = t.SetPayloadVar(rb.attrBuf[id], rb.attrOffsets[id])
		} else {
			err = t.SetPayload(rb.attrBuf[id])
		}
		if err != nil {
			return err
		}
		if err := rb.mgr.AppendTile(rb.desc, rb.fragmentID, id, t); err != nil {
			return err
		}
	}

	rb.haveTileID = false
	rb.resetBuffers()
	return nil
}

// Close flushes any remaining buffered cells. Callers must call Close once
// done appending.
func (rb *ResultBuilder) Close() error { return rb.Flush() }

// coordBounds computes a tile's MBR plus first/last stored coordinates
// from a coordinate payload buffer, in insertion order. The MBR is laid
// out [lo0,hi0,lo1,hi1,...] in native coordinate byte layout.
func coordBounds(sch *schema.Schema, coordBuf []byte) (mbr, first, last []byte, err error) {
	sz := sch.CoordKind().Size()
	dimNum := sch.DimNum()
	cellSize := dimNum * sz
	if cellSize == 0 || len(coordBuf) == 0 || len(coordBuf)%cellSize != 0 {
		return nil, nil, nil, fmt.Errorf("query: invalid coordinate buffer length %d", len(coordBuf))
	}
	n := len(coordBuf) / cellSize

	los := make([]float64, dimNum)
	his := make([]float64, dimNum)
	for d := 0; d < dimNum; d++ {
		los[d] = math.Inf(1)
		his[d] = math.Inf(-1)
	}
	for i := 0; i < n; i++ {
		cell := coordBuf[i*cellSize : (i+1)*cellSize]
		for d := 0; d < dimNum; d++ {
			v := sch.CoordKind().DecodeNativeValue(cell[d*sz : (d+1)*sz])
			if v < los[d] {
				los[d] = v
			}
			if v > his[d] {
				his[d] = v
			}
		}
	}

	mbr = make([]byte, 2*dimNum*sz)
	for d := 0; d < dimNum; d++ {
		copy(mbr[2*d*sz:(2*d+1)*sz], sch.CoordKind().EncodeNativeValue(los[d]))
		copy(mbr[(2*d+1)*sz:(2*d+2)*sz], sch.CoordKind().EncodeNativeValue(his[d]))
	}
	first = append([]byte(nil), coordBuf[:cellSize]...)
	last = append([]byte(nil), coordBuf[(n-1)*cellSize:n*cellSize]...)
	return mbr, first, last, nil
}
