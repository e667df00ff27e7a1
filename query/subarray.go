package query

import (
	"github.com/quietcells/tilestore/array"
)

// Subarray restricts arr to rng and copies every projected attribute of
// every surviving cell to out. The storage manager's overlapping-tile-id
// listing prunes whole fragments up front: a fragment none of whose
// coordinate tiles intersect rng never has an iterator built over it.
// Within the surviving fragments, tiles fully contained in rng skip the
// per-cell range test entirely; that elision lives in
// array.MergeIterator's fullOverlap tracking, so the scan itself is a
// straight copy over the range-restricted merge stream.
func Subarray(arr *array.Array, rng []byte, project []int, out *ResultBuilder) error {
	fragIDs, err := arr.FragmentIDs()
	if err != nil {
		return err
	}
	var overlapping []uint64
	for _, fid := range fragIDs {
		refs, err := arr.Manager.GetOverlappingTileIDs(arr.Desc, fid, rng)
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			overlapping = append(overlapping, fid)
		}
	}
	if len(overlapping) == 0 {
		return nil
	}

	mi, err := array.New(arr, array.Config{Fragments: overlapping, Range: rng, Attributes: project})
	if err != nil {
		return err
	}
	for mi.Next() {
		attrs := make(map[int][]byte, len(project))
		for _, id := range project {
			b, err := mi.AttrCell(id)
			if err != nil {
				return err
			}
			attrs[id] = b
		}
		if err := out.Append(mi.Coords(), attrs); err != nil {
			return err
		}
	}
	return mi.Err()
}
