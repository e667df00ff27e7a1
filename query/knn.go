package query

import (
	"container/heap"
	"math"
	"sort"

	"github.com/alitto/pond"

	"github.com/quietcells/tilestore/fragment"
	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage"
)

// KNNHit is one result of a k-NN scan.
type KNNHit struct {
	FragmentID uint64
	TileID     uint64
	Pos        int
	Dist       float64
}

type tileCandidate struct {
	fragmentID uint64
	tileID     uint64
	dist       float64
}

// KNN is a two-level nearest-neighbor scan: score every coordinate tile's
// MBR distance to q, sort tiles by that distance, and walk them
// maintaining a bounded max-heap of the k closest points seen so far,
// stopping once the next tile's MBR distance exceeds the heap's current
// worst member. The tile-scoring pass runs on a bounded worker pool since
// it touches each tile's MBR independently; the merge iterator itself is
// never parallelized. workers <= 0 falls back to a single worker.
func KNN(mgr storage.Manager, desc storage.Descriptor, sch *schema.Schema, fragmentIDs []uint64, q []float64, k int, workers int) ([]KNNHit, error) {
	if k <= 0 {
		return nil, ErrBadK
	}
	if len(q) != sch.DimNum() {
		return nil, ErrBadQueryDims
	}

	type ref struct {
		fragmentID uint64
		tileID     uint64
	}
	var refs []ref
	for _, fid := range fragmentIDs {
		it, err := fragment.Begin(mgr, desc, fid, sch.CoordsID(), true, false)
		if err != nil {
			return nil, err
		}
		for !it.End() {
			tid, err := it.TileID()
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref{fid, tid})
			it.Next()
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}

	if workers <= 0 {
		workers = 1
	}
	type scoreResult struct {
		cand tileCandidate
		err  error
	}
	results := make([]scoreResult, len(refs))
	pool := pond.New(workers, 0)
	for i, r := range refs {
		i, r := i, r
		pool.Submit(func() {
			mbr, err := mgr.TileMBR(desc, r.fragmentID, r.tileID)
			if err != nil {
				results[i] = scoreResult{err: err}
				return
			}
			results[i] = scoreResult{cand: tileCandidate{r.fragmentID, r.tileID, mbrMinDist(sch, mbr, q)}}
		})
	}
	pool.StopAndWait()

	cands := make([]tileCandidate, len(results))
	for i, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		cands[i] = r.cand
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	h := &maxHeap{}
	heap.Init(h)
	for _, c := range cands {
		if h.Len() >= k && c.dist > h.items[0].Dist {
			break
		}
		t, err := mgr.GetTile(desc, c.fragmentID, sch.CoordsID(), c.tileID)
		if err != nil {
			return nil, err
		}
		for pos := 0; pos < t.CellNum(); pos++ {
			cell, err := t.Cell(pos)
			if err != nil {
				return nil, err
			}
			d := pointDist(sch, cell, q)
			if h.Len() < k {
				heap.Push(h, KNNHit{FragmentID: c.fragmentID, TileID: c.tileID, Pos: pos, Dist: d})
			} else if d < h.items[0].Dist {
				heap.Pop(h)
				heap.Push(h, KNNHit{FragmentID: c.fragmentID, TileID: c.tileID, Pos: pos, Dist: d})
			}
		}
	}

	out := h.items
	sort.Slice(out, func(i, j int) bool {
		if out[i].TileID != out[j].TileID {
			return out[i].TileID < out[j].TileID
		}
		return out[i].Pos < out[j].Pos
	})
	return out, nil
}

func mbrMinDist(sch *schema.Schema, mbr []byte, q []float64) float64 {
	sz := sch.CoordKind().Size()
	var sum float64
	for d := 0; d < sch.DimNum(); d++ {
		lo := sch.CoordKind().DecodeNativeValue(mbr[2*d*sz : (2*d+1)*sz])
		hi := sch.CoordKind().DecodeNativeValue(mbr[(2*d+1)*sz : (2*d+2)*sz])
		v := q[d]
		var diff float64
		switch {
		case v < lo:
			diff = lo - v
		case v > hi:
			diff = v - hi
		}
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func pointDist(sch *schema.Schema, cell []byte, q []float64) float64 {
	sz := sch.CoordKind().Size()
	var sum float64
	for d := 0; d < sch.DimNum(); d++ {
		v := sch.CoordKind().DecodeNativeValue(cell[d*sz : (d+1)*sz])
		diff := v - q[d]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// maxHeap is a bounded max-heap on KNNHit.Dist.
type maxHeap struct {
	items []KNNHit
}

func (h maxHeap) Len() int          { return len(h.items) }
func (h maxHeap) Less(i, j int) bool { return h.items[i].Dist > h.items[j].Dist }
func (h maxHeap) Swap(i, j int)     { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *maxHeap) Push(x any) { h.items = append(h.items, x.(KNNHit)) }

func (h *maxHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
