package query

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/quietcells/tilestore/array"
	"github.com/quietcells/tilestore/schema"
)

// Join equi-joins arrA and arrB on coordinates: the two per-array merge
// streams are walked as a two-way merge, and on equality a cell carrying
// every attribute of A followed by every attribute of B is appended to
// out. The schemas must be JoinCompatible.
//
// attrA/attrB map arrA's/arrB's own attribute ids (in AllAttrIDs() order)
// onto the output schema's attribute ids; they must be disjoint, so that a
// self-join remaps both sides into disjoint ranges of out's schema rather
// than colliding.
func Join(arrA, arrB *array.Array, attrA, attrB []int, out *ResultBuilder) error {
	if err := schema.JoinCompatible(arrA.Schema, arrB.Schema); err != nil {
		return err
	}
	if len(attrA) != arrA.Schema.AttrNum() || len(attrB) != arrB.Schema.AttrNum() {
		return fmt.Errorf("query: join attribute remap length mismatch")
	}
	combined := append(append([]int{}, attrA...), attrB...)
	if len(lo.Uniq(combined)) != len(combined) {
		return ErrJoinAttrConflict
	}

	mA, err := array.New(arrA, array.Config{})
	if err != nil {
		return err
	}
	mB, err := array.New(arrB, array.Config{})
	if err != nil {
		return err
	}

	ord := arrA.Schema.Order
	okA := mA.Next()
	okB := mB.Next()
	for okA && okB {
		tA, err := mA.TileID()
		if err != nil {
			return err
		}
		tB, err := mB.TileID()
		if err != nil {
			return err
		}
		cA := schema.NativeToOrdered(arrA.Schema.CoordKind(), mA.Coords(), arrA.Schema.DimNum())
		cB := schema.NativeToOrdered(arrB.Schema.CoordKind(), mB.Coords(), arrB.Schema.DimNum())

		switch {
		case ord.Equal(tA, cA, tB, cB):
			attrs := make(map[int][]byte, len(attrA)+len(attrB))
			for i, srcID := range arrA.Schema.AllAttrIDs() {
				b, err := mA.AttrCell(srcID)
				if err != nil {
					return err
				}
				attrs[attrA[i]] = b
			}
			for i, srcID := range arrB.Schema.AllAttrIDs() {
				b, err := mB.AttrCell(srcID)
				if err != nil {
					return err
				}
				attrs[attrB[i]] = b
			}
			if err := out.Append(mA.Coords(), attrs); err != nil {
				return err
			}
			okA = mA.Next()
			okB = mB.Next()
		case ord.Precedes(tA, cA, tB, cB):
			okA = mA.Next()
		default:
			okB = mB.Next()
		}
	}
	if err := mA.Err(); err != nil {
		return err
	}
	return mB.Err()
}
