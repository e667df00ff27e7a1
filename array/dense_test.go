package array

import (
	"testing"

	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage/memsm"
)

func denseTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	dims := []schema.Dimension{
		{Name: "x", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(2)},
		{Name: "y", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(1)},
	}
	attrs := []schema.Attribute{{Name: "value", Kind: schema.Int32, ValNum: 1}}
	sch, err := schema.New(dims, attrs, 4, schema.Irregular)
	if err != nil {
		t.Fatal(err)
	}
	return sch
}

func TestDenseIteratorZeroFillsMissingCoordinates(t *testing.T) {
	sch := denseTestSchema(t)
	mgr := memsm.New(memsm.Config{})
	arr, err := Open(mgr, sch)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.RegisterFragment(arr.Desc, 0); err != nil {
		t.Fatal(err)
	}
	writeFragment(t, mgr, arr, 0, []testCell{{x: 1, y: 0, value: 42}})

	di, err := NewDense(arr, Config{})
	if err != nil {
		t.Fatal(err)
	}
	var n int
	var matches, zeros int
	for di.Next() {
		x, y, v := decodeValue(arr.Schema, di.Cell())
		n++
		if di.CoordsMatch() {
			matches++
			if x != 1 || y != 0 || v != 42 {
				t.Fatalf("matched cell has wrong payload: (%d,%d)=%d", x, y, v)
			}
		} else {
			zeros++
			if v != 0 {
				t.Fatalf("zero-filled cell (%d,%d) has nonzero value %d", x, y, v)
			}
		}
	}
	if err := di.Err(); err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Fatalf("got %d cells, want 6 (3x2 domain)", n)
	}
	if matches != 1 || zeros != 5 {
		t.Fatalf("got %d matches and %d zeros, want 1 and 5", matches, zeros)
	}
}

func TestDenseIteratorFollowsTileOrderUnderRegularTiling(t *testing.T) {
	dims := []schema.Dimension{
		{Name: "x", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(3), Extent: 2},
		{Name: "y", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(3), Extent: 2},
	}
	attrs := []schema.Attribute{{Name: "value", Kind: schema.Int32, ValNum: 1}}
	sch, err := schema.New(dims, attrs, 4, schema.Regular)
	if err != nil {
		t.Fatal(err)
	}
	mgr := memsm.New(memsm.Config{})
	arr, err := Open(mgr, sch)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.RegisterFragment(arr.Desc, 0); err != nil {
		t.Fatal(err)
	}
	// (1,0) lives in tile 0, (0,2) in tile 1: the sparse stream emits
	// (1,0) before (0,2) even though row-major coordinate order says
	// otherwise. The dense cursor must follow the tile order.
	writeFragmentTile(t, mgr, arr, 0, 0, []testCell{{x: 1, y: 0, value: 7}})
	writeFragmentTile(t, mgr, arr, 0, 1, []testCell{{x: 0, y: 2, value: 9}})

	di, err := NewDense(arr, Config{})
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]int32{
		{0, 0}, {0, 1}, {1, 0}, {1, 1}, // tile 0
		{0, 2}, {0, 3}, {1, 2}, {1, 3}, // tile 1
		{2, 0}, {2, 1}, {3, 0}, {3, 1}, // tile 2
		{2, 2}, {2, 3}, {3, 2}, {3, 3}, // tile 3
	}
	var got [][2]int32
	values := map[[2]int32]int32{}
	matches := 0
	for di.Next() {
		x, y, v := decodeValue(sch, di.Cell())
		got = append(got, [2]int32{x, y})
		values[[2]int32{x, y}] = v
		if di.CoordsMatch() {
			matches++
		}
	}
	if err := di.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d cells, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cell %d emitted at %v, want %v", i, got[i], want[i])
		}
	}
	if matches != 2 {
		t.Fatalf("got %d stored-cell matches, want 2", matches)
	}
	if values[[2]int32{1, 0}] != 7 || values[[2]int32{0, 2}] != 9 {
		t.Fatalf("stored cells lost in dense walk: %v", values)
	}
	for coord, v := range values {
		if coord != [2]int32{1, 0} && coord != [2]int32{0, 2} && v != 0 {
			t.Fatalf("zero-filled cell %v has nonzero value %d", coord, v)
		}
	}
}

func TestDenseIteratorReverseWalksDomainBackward(t *testing.T) {
	sch := denseTestSchema(t)
	mgr := memsm.New(memsm.Config{})
	arr, err := Open(mgr, sch)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.RegisterFragment(arr.Desc, 0); err != nil {
		t.Fatal(err)
	}
	writeFragment(t, mgr, arr, 0, []testCell{{x: 2, y: 1, value: 7}})

	di, err := NewDense(arr, Config{Reverse: true})
	if err != nil {
		t.Fatal(err)
	}
	var coords [][2]int32
	for di.Next() {
		x, y, _ := decodeValue(arr.Schema, di.Cell())
		coords = append(coords, [2]int32{x, y})
	}
	if err := di.Err(); err != nil {
		t.Fatal(err)
	}
	if len(coords) != 6 {
		t.Fatalf("got %d cells, want 6", len(coords))
	}
	if coords[0] != [2]int32{2, 1} || coords[5] != [2]int32{0, 0} {
		t.Fatalf("reverse dense walk out of order: first %v last %v", coords[0], coords[5])
	}
	for i := 1; i < len(coords); i++ {
		prev, cur := coords[i-1], coords[i]
		if cur[0] > prev[0] || (cur[0] == prev[0] && cur[1] >= prev[1]) {
			t.Fatalf("reverse dense walk not strictly descending at %d: %v -> %v", i, prev, cur)
		}
	}
}

func TestDenseIteratorRejectsRangeRestriction(t *testing.T) {
	sch := denseTestSchema(t)
	mgr := memsm.New(memsm.Config{})
	arr, err := Open(mgr, sch)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.RegisterFragment(arr.Desc, 0); err != nil {
		t.Fatal(err)
	}
	writeFragment(t, mgr, arr, 0, []testCell{{x: 0, y: 0, value: 1}})

	rng := append(append([]byte{}, schema.I32.EncodeNativeValue(0)...), schema.I32.EncodeNativeValue(1)...)
	rng = append(rng, schema.I32.EncodeNativeValue(0)...)
	rng = append(rng, schema.I32.EncodeNativeValue(1)...)
	if _, err := NewDense(arr, Config{Range: rng}); err != ErrDenseRanged {
		t.Fatalf("got err=%v, want ErrDenseRanged", err)
	}
}
