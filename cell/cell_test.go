package cell

import (
	"encoding/binary"
	"testing"

	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/tile"
)

func encInt32Attr(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func buildCoordsTile(t *testing.T, coords [][2]int32) *tile.Tile {
	t.Helper()
	tl, err := tile.NewCoordsTile(1, 2, schema.I32)
	if err != nil {
		t.Fatal(err)
	}
	payload := make([]byte, 0, len(coords)*8)
	for _, c := range coords {
		payload = append(payload, schema.I32.EncodeNativeValue(float64(c[0]))...)
		payload = append(payload, schema.I32.EncodeNativeValue(float64(c[1]))...)
	}
	if err := tl.SetPayload(payload); err != nil {
		t.Fatal(err)
	}
	return tl
}

func TestForwardTraversalOrder(t *testing.T) {
	tl := buildCoordsTile(t, [][2]int32{{0, 0}, {0, 1}, {0, 2}})
	it := Begin(tl, false)
	var positions []int
	for !it.End() {
		positions = append(positions, it.Pos())
		it.Next()
	}
	want := []int{0, 1, 2}
	if len(positions) != len(want) {
		t.Fatalf("got %v, want %v", positions, want)
	}
	for i := range want {
		if positions[i] != want[i] {
			t.Fatalf("got %v, want %v", positions, want)
		}
	}
}

func TestReverseTraversalOrder(t *testing.T) {
	tl := buildCoordsTile(t, [][2]int32{{0, 0}, {0, 1}, {0, 2}})
	it := Begin(tl, true)
	var positions []int
	for !it.End() {
		positions = append(positions, it.Pos())
		it.Next()
	}
	want := []int{2, 1, 0}
	if len(positions) != len(want) {
		t.Fatalf("got %v, want %v", positions, want)
	}
	for i := range want {
		if positions[i] != want[i] {
			t.Fatalf("got %v, want %v", positions, want)
		}
	}
}

func TestSeekRepositions(t *testing.T) {
	tl := buildCoordsTile(t, [][2]int32{{0, 0}, {0, 1}, {0, 2}})
	f := NewForward(tl, 0)
	if err := f.Seek(2); err != nil {
		t.Fatal(err)
	}
	if f.Pos() != 2 || f.End() {
		t.Fatalf("Seek(2): pos=%d end=%v", f.Pos(), f.End())
	}
	if err := f.Seek(3); err != nil {
		t.Fatal(err)
	}
	if !f.End() {
		t.Fatalf("Seek(3) should land past the last cell")
	}
}

func TestSizeMatchesCoordCellSize(t *testing.T) {
	tl := buildCoordsTile(t, [][2]int32{{0, 0}, {1, 1}})
	f := NewForward(tl, 0)
	if f.Size() != 8 {
		t.Fatalf("Size() = %d, want 8 (two int32 dims)", f.Size())
	}
}

func TestInsideRangeDelegatesToTile(t *testing.T) {
	tl := buildCoordsTile(t, [][2]int32{{0, 0}, {5, 5}, {10, 10}})
	rng := append(schema.I32.EncodeNativeValue(0), schema.I32.EncodeNativeValue(6)...)
	rng = append(rng, schema.I32.EncodeNativeValue(0)...)
	rng = append(rng, schema.I32.EncodeNativeValue(6)...)

	f := NewForward(tl, 0)
	inside, err := f.InsideRange(rng)
	if err != nil || !inside {
		t.Fatalf("cell 0 should be inside range: %v %v", inside, err)
	}
	f.Seek(2)
	inside, err = f.InsideRange(rng)
	if err != nil || inside {
		t.Fatalf("cell 2 should be outside range: %v %v", inside, err)
	}
}

func TestIsDelAndIsNullOnAttributeTile(t *testing.T) {
	tl, err := tile.NewAttrTile(1, schema.Int32, 1)
	if err != nil {
		t.Fatal(err)
	}
	payload := append(encInt32Attr(42), schema.NullBytes(schema.Int32)...)
	payload = append(payload, schema.DelBytes(schema.Int32)...)
	if err := tl.SetPayload(payload); err != nil {
		t.Fatal(err)
	}
	f := NewForward(tl, 0)
	if isNull, _ := f.IsNull(); isNull {
		t.Fatalf("cell 0 should not be NULL")
	}
	f.Next()
	if isNull, err := f.IsNull(); err != nil || !isNull {
		t.Fatalf("cell 1 should be NULL: %v %v", isNull, err)
	}
	f.Next()
	if isDel, err := f.IsDel(); err != nil || !isDel {
		t.Fatalf("cell 2 should be DEL: %v %v", isDel, err)
	}
}

func TestEndIteratorReturnsNilCell(t *testing.T) {
	tl := buildCoordsTile(t, [][2]int32{{0, 0}})
	f := NewForward(tl, 0)
	f.Next()
	if !f.End() {
		t.Fatalf("expected end after single-cell tile exhausted")
	}
	if f.Cell() != nil {
		t.Fatalf("Cell() at end should be nil")
	}
}
