package tile

import (
	"encoding/binary"
	"testing"

	"github.com/quietcells/tilestore/schema"
)

func TestCoordsTileFixedInvariant(t *testing.T) {
	tl, err := NewCoordsTile(7, 2, schema.I32)
	if err != nil {
		t.Fatal(err)
	}
	// two cells of (x,y) int32 coords: (1,1) and (1,2)
	payload := append(schema.I32.EncodeNativeValue(1), schema.I32.EncodeNativeValue(1)...)
	payload = append(payload, schema.I32.EncodeNativeValue(1)...)
	payload = append(payload, schema.I32.EncodeNativeValue(2)...)
	if err := tl.SetPayload(payload); err != nil {
		t.Fatal(err)
	}
	if tl.CellNum() != 2 {
		t.Fatalf("CellNum() = %d, want 2", tl.CellNum())
	}
	sz, err := tl.CellSize(0)
	if err != nil || sz != 8 {
		t.Fatalf("CellSize(0) = %d, %v, want 8, nil", sz, err)
	}
	if tl.TileSize() != tl.CellNum()*sz {
		t.Fatalf("tile_size invariant violated: %d != %d*%d", tl.TileSize(), tl.CellNum(), sz)
	}
}

func TestCoordsTileMBRContainsEveryCell(t *testing.T) {
	tl, _ := NewCoordsTile(1, 2, schema.I32)
	coords := [][2]int32{{1, 1}, {1, 2}, {2, 1}}
	payload := make([]byte, 0, len(coords)*8)
	for _, c := range coords {
		payload = append(payload, schema.I32.EncodeNativeValue(float64(c[0]))...)
		payload = append(payload, schema.I32.EncodeNativeValue(float64(c[1]))...)
	}
	if err := tl.SetPayload(payload); err != nil {
		t.Fatal(err)
	}
	mbr := append(schema.I32.EncodeNativeValue(1), schema.I32.EncodeNativeValue(2)...)
	mbr = append(mbr, schema.I32.EncodeNativeValue(1)...)
	mbr = append(mbr, schema.I32.EncodeNativeValue(2)...)
	if err := tl.SetMBR(mbr); err != nil {
		t.Fatal(err)
	}
	mbrBytes, _ := tl.MBR()
	for pos := range coords {
		inside, err := tl.CellInsideRange(pos, mbrBytes)
		if err != nil {
			t.Fatal(err)
		}
		if !inside {
			t.Fatalf("cell %d not inside its own tile's MBR", pos)
		}
	}
}

// encInt32 is a tiny test-local helper for building raw int32 attribute
// element bytes (little endian, matching schema's native layout).
func encInt32(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func buildVarPayload(cells [][]int32) []byte {
	out := make([]byte, 0)
	for _, c := range cells {
		n := uint32(len(c))
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, n)
		out = append(out, lenBuf...)
		for _, v := range c {
			out = append(out, encInt32(v)...)
		}
	}
	return out
}

func TestVariableTileOffsetsSumToTileSize(t *testing.T) {
	tl, err := NewAttrTile(3, schema.Int32, schema.VarSize)
	if err != nil {
		t.Fatal(err)
	}
	payload := buildVarPayload([][]int32{{1, 2}, {9}})
	offsets := []int{0, 4 + 2*4, 4 + 2*4 + 4 + 1*4}
	if err := tl.SetPayloadVar(payload, offsets); err != nil {
		t.Fatal(err)
	}
	total := 0
	for pos := 0; pos < tl.CellNum(); pos++ {
		sz, err := tl.CellSize(pos)
		if err != nil {
			t.Fatal(err)
		}
		total += sz
	}
	if total != tl.TileSize() {
		t.Fatalf("sum of cell sizes %d != tile_size %d", total, tl.TileSize())
	}
}

func TestOutOfRangePositionIsCheckedError(t *testing.T) {
	tl, _ := NewCoordsTile(1, 1, schema.I32)
	_ = tl.SetPayload(schema.I32.EncodeNativeValue(5))
	if _, err := tl.Cell(5); err != ErrOutOfRange {
		t.Fatalf("Cell(5) error = %v, want ErrOutOfRange", err)
	}
}
