package query

import (
	"testing"

	"github.com/quietcells/tilestore/array"
	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage/memsm"
)

func joinOutSchema(t *testing.T) *schema.Schema {
	t.Helper()
	dims := []schema.Dimension{
		{Name: "x", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(9)},
		{Name: "y", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(9)},
	}
	attrs := []schema.Attribute{
		{Name: "a_value", Kind: schema.Int32, ValNum: 1},
		{Name: "a_tag", Kind: schema.Int32, ValNum: 1},
		{Name: "b_value", Kind: schema.Int32, ValNum: 1},
		{Name: "b_tag", Kind: schema.Int32, ValNum: 1},
	}
	sch, err := schema.New(dims, attrs, 4, schema.Irregular)
	if err != nil {
		t.Fatal(err)
	}
	return sch
}

func TestJoinMatchesOnSharedCoordinates(t *testing.T) {
	_, arrA := newQueryArray(t, []qCell{
		{x: 0, y: 0, value: 1, tag: 11},
		{x: 1, y: 1, value: 2, tag: 22},
	})
	_, arrB := newQueryArray(t, []qCell{
		{x: 1, y: 1, value: 200, tag: 2200},
		{x: 9, y: 9, value: 300, tag: 3300},
	})

	outMgr := memsm.New(memsm.Config{})
	outSch := joinOutSchema(t)
	outArr, err := array.Open(outMgr, outSch)
	if err != nil {
		t.Fatal(err)
	}
	builder := NewResultBuilder(outMgr, outArr.Desc, outSch, 0, outSch.AllAttrIDs())

	if err := Join(arrA, arrB, []int{0, 1}, []int{2, 3}, builder); err != nil {
		t.Fatal(err)
	}
	if err := builder.Close(); err != nil {
		t.Fatal(err)
	}

	mi, err := array.New(outArr, array.Config{})
	if err != nil {
		t.Fatal(err)
	}
	var n int
	for mi.Next() {
		x, y, _ := decodeQCell(outSch, mi.Cell())
		if x != 1 || y != 1 {
			t.Fatalf("unexpected join output cell (%d,%d), want only (1,1)", x, y)
		}
		n++
	}
	if err := mi.Err(); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("got %d joined cells, want 1 (only (1,1) is shared)", n)
	}
}

func TestSelfJoinConcatenatesAttributes(t *testing.T) {
	_, arr := newQueryArray(t, []qCell{
		{x: 0, y: 0, value: 1, tag: 11},
		{x: 1, y: 1, value: 2, tag: 22},
	})

	outMgr := memsm.New(memsm.Config{})
	outSch := joinOutSchema(t)
	outArr, err := array.Open(outMgr, outSch)
	if err != nil {
		t.Fatal(err)
	}
	builder := NewResultBuilder(outMgr, outArr.Desc, outSch, 0, outSch.AllAttrIDs())
	if err := Join(arr, arr, []int{0, 1}, []int{2, 3}, builder); err != nil {
		t.Fatal(err)
	}
	if err := builder.Close(); err != nil {
		t.Fatal(err)
	}

	mi, err := array.New(outArr, array.Config{})
	if err != nil {
		t.Fatal(err)
	}
	var n int
	for mi.Next() {
		cell := mi.Cell()
		sz := outSch.CoordKind().Size()
		attrs := cell[2*sz:]
		if string(attrs[0:8]) != string(attrs[8:16]) {
			t.Fatalf("self-join cell %d: left attributes differ from right", n)
		}
		n++
	}
	if err := mi.Err(); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("got %d self-joined cells, want 2", n)
	}
}

func TestJoinRejectsOverlappingAttributeRemap(t *testing.T) {
	_, arrA := newQueryArray(t, []qCell{{x: 0, y: 0, value: 1, tag: 11}})
	_, arrB := newQueryArray(t, []qCell{{x: 0, y: 0, value: 2, tag: 22}})

	outMgr := memsm.New(memsm.Config{})
	outSch := joinOutSchema(t)
	outArr, err := array.Open(outMgr, outSch)
	if err != nil {
		t.Fatal(err)
	}
	builder := NewResultBuilder(outMgr, outArr.Desc, outSch, 0, outSch.AllAttrIDs())

	err = Join(arrA, arrB, []int{0, 1}, []int{0, 3}, builder)
	if err != ErrJoinAttrConflict {
		t.Fatalf("got err=%v, want ErrJoinAttrConflict", err)
	}
}
