package query

import (
	"encoding/binary"
	"testing"

	"github.com/quietcells/tilestore/array"
	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage/memsm"
	"github.com/quietcells/tilestore/tile"
)

type qCell struct {
	x, y       int32
	value, tag int32
}

// twoAttrSchema is the two-dimension, two-attribute ("value", "tag") schema
// the filter/subarray/join/knn tests share.
func twoAttrSchema(t *testing.T) *schema.Schema {
	t.Helper()
	dims := []schema.Dimension{
		{Name: "x", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(9)},
		{Name: "y", Kind: schema.I32, Low: schema.I32.EncodeNativeValue(0), High: schema.I32.EncodeNativeValue(9)},
	}
	attrs := []schema.Attribute{
		{Name: "value", Kind: schema.Int32, ValNum: 1},
		{Name: "tag", Kind: schema.Int32, ValNum: 1},
	}
	sch, err := schema.New(dims, attrs, 4, schema.Irregular)
	if err != nil {
		t.Fatal(err)
	}
	return sch
}

func writeQFragment(t *testing.T, mgr *memsm.Manager, arr *array.Array, fragmentID uint64, cells []qCell) {
	t.Helper()
	sch := arr.Schema
	sz := sch.CoordKind().Size()

	var coordBuf, valueBuf, tagBuf []byte
	loX, hiX := cells[0].x, cells[0].x
	loY, hiY := cells[0].y, cells[0].y
	for _, c := range cells {
		coordBuf = append(coordBuf, schema.I32.EncodeNativeValue(float64(c.x))...)
		coordBuf = append(coordBuf, schema.I32.EncodeNativeValue(float64(c.y))...)
		var v, g [4]byte
		binary.LittleEndian.PutUint32(v[:], uint32(c.value))
		binary.LittleEndian.PutUint32(g[:], uint32(c.tag))
		valueBuf = append(valueBuf, v[:]...)
		tagBuf = append(tagBuf, g[:]...)
		if c.x < loX {
			loX = c.x
		}
		if c.x > hiX {
			hiX = c.x
		}
		if c.y < loY {
			loY = c.y
		}
		if c.y > hiY {
			hiY = c.y
		}
	}

	ct, err := tile.NewCoordsTile(0, sch.DimNum(), sch.CoordKind())
	if err != nil {
		t.Fatal(err)
	}
	if err := ct.SetPayload(coordBuf); err != nil {
		t.Fatal(err)
	}
	mbr := append(append([]byte{}, schema.I32.EncodeNativeValue(float64(loX))...), schema.I32.EncodeNativeValue(float64(hiX))...)
	mbr = append(mbr, schema.I32.EncodeNativeValue(float64(loY))...)
	mbr = append(mbr, schema.I32.EncodeNativeValue(float64(hiY))...)
	if err := ct.SetMBR(mbr); err != nil {
		t.Fatal(err)
	}
	if err := ct.SetBoundingCoordinates(coordBuf[:2*sz], coordBuf[len(coordBuf)-2*sz:]); err != nil {
		t.Fatal(err)
	}
	if err := mgr.AppendTile(arr.Desc, fragmentID, sch.CoordsID(), ct); err != nil {
		t.Fatal(err)
	}

	valTile, err := tile.NewAttrTile(0, schema.Int32, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := valTile.SetPayload(valueBuf); err != nil {
		t.Fatal(err)
	}
	if err := mgr.AppendTile(arr.Desc, fragmentID, 0, valTile); err != nil {
		t.Fatal(err)
	}

	tagTile, err := tile.NewAttrTile(0, schema.Int32, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := tagTile.SetPayload(tagBuf); err != nil {
		t.Fatal(err)
	}
	if err := mgr.AppendTile(arr.Desc, fragmentID, 1, tagTile); err != nil {
		t.Fatal(err)
	}
}

func newQueryArray(t *testing.T, cells []qCell) (*memsm.Manager, *array.Array) {
	t.Helper()
	sch := twoAttrSchema(t)
	mgr := memsm.New(memsm.Config{})
	arr, err := array.Open(mgr, sch)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.RegisterFragment(arr.Desc, 0); err != nil {
		t.Fatal(err)
	}
	writeQFragment(t, mgr, arr, 0, cells)
	return mgr, arr
}

func decodeQCell(sch *schema.Schema, buf []byte) (x, y, value int32) {
	sz := sch.CoordKind().Size()
	x = int32(sch.CoordKind().DecodeNativeValue(buf[0:sz]))
	y = int32(sch.CoordKind().DecodeNativeValue(buf[sz : 2*sz]))
	value = int32(binary.LittleEndian.Uint32(buf[2*sz : 2*sz+4]))
	return
}
