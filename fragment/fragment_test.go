package fragment

import (
	"testing"

	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage/memsm"
)

func setupFragment(t *testing.T) (*memsm.Manager, interface{}, *schema.Schema) {
	t.Helper()
	dims := []schema.Dimension{
		{Name: "x", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(99), Extent: 10},
	}
	attrs := []schema.Attribute{{Name: "a", Kind: schema.Int32, ValNum: 1}}
	sch, err := schema.New(dims, attrs, 4, schema.Regular)
	if err != nil {
		t.Fatal(err)
	}
	mgr := memsm.New(memsm.Config{})
	d, err := mgr.OpenArray(sch)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.RegisterFragment(d, 1); err != nil {
		t.Fatal(err)
	}
	coordsID := sch.CoordsID()
	for i, tid := range []uint64{0, 1, 2} {
		ct, err := mgr.NewTile(d, 1, coordsID, tid)
		if err != nil {
			t.Fatal(err)
		}
		v := int32(i * 10)
		if err := ct.SetPayload(schema.I32.EncodeNativeValue(float64(v))); err != nil {
			t.Fatal(err)
		}
		mbr := append(schema.I32.EncodeNativeValue(float64(v)), schema.I32.EncodeNativeValue(float64(v))...)
		if err := ct.SetMBR(mbr); err != nil {
			t.Fatal(err)
		}
		if err := ct.SetBoundingCoordinates(schema.I32.EncodeNativeValue(float64(v)), schema.I32.EncodeNativeValue(float64(v))); err != nil {
			t.Fatal(err)
		}
		if err := mgr.AppendTile(d, 1, coordsID, ct); err != nil {
			t.Fatal(err)
		}
	}
	return mgr, d, sch
}

func TestForwardOrdinalTraversal(t *testing.T) {
	mgr, d, sch := setupFragment(t)
	it, err := Begin(mgr, d, 1, sch.CoordsID(), true, false)
	if err != nil {
		t.Fatal(err)
	}
	var ids []uint64
	for !it.End() {
		id, err := it.TileID()
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
		it.Next()
	}
	want := []uint64{0, 1, 2}
	if len(ids) != len(want) {
		t.Fatalf("got %v want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v want %v", ids, want)
		}
	}
}

func TestReverseOrdinalTraversal(t *testing.T) {
	mgr, d, sch := setupFragment(t)
	it, err := Begin(mgr, d, 1, sch.CoordsID(), true, true)
	if err != nil {
		t.Fatal(err)
	}
	var ids []uint64
	for !it.End() {
		id, _ := it.TileID()
		ids = append(ids, id)
		it.Next()
	}
	want := []uint64{2, 1, 0}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v want %v", ids, want)
		}
	}
}

func TestMBRAccessorDoesNotRequireMaterialization(t *testing.T) {
	mgr, d, sch := setupFragment(t)
	it, err := Begin(mgr, d, 1, sch.CoordsID(), true, false)
	if err != nil {
		t.Fatal(err)
	}
	mbr, err := it.MBR()
	if err != nil {
		t.Fatal(err)
	}
	if schema.I32.DecodeNativeValue(mbr[:4]) != 0 {
		t.Fatalf("unexpected mbr lo: %v", schema.I32.DecodeNativeValue(mbr[:4]))
	}
}

func TestSeekRepositionsOrdinal(t *testing.T) {
	mgr, d, sch := setupFragment(t)
	f, err := NewForward(mgr, d, 1, sch.CoordsID(), true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Seek(2); err != nil {
		t.Fatal(err)
	}
	id, err := f.TileID()
	if err != nil {
		t.Fatal(err)
	}
	if id != 2 {
		t.Fatalf("TileID() = %d, want 2", id)
	}
}
