package cell

import "github.com/quietcells/tilestore/tile"

// Reverse traverses a tile's cells from pos downward toward 0. Symmetric to
// Forward in every respect but direction: End() becomes true once pos drops
// below 0 rather than once it reaches cellNum.
type Reverse struct {
	t    *tile.Tile
	pos  int
	end  bool
	size int
	err  error
}

// NewReverse constructs a Reverse iterator over t, initially positioned at
// pos. pos == -1 (or t == nil) yields an immediate end-sentinel iterator.
func NewReverse(t *tile.Tile, pos int) *Reverse {
	r := &Reverse{t: t, pos: pos}
	r.sync()
	return r
}

func (r *Reverse) sync() {
	r.end = r.t == nil || r.pos < 0 || r.pos >= r.t.CellNum()
	if r.end {
		r.size = 0
		return
	}
	sz, err := r.t.CellSize(r.pos)
	if err != nil {
		r.err = err
		r.end = true
		return
	}
	r.size = sz
}

// Next moves to the next lower cell index.
func (r *Reverse) Next() bool {
	if r.end || r.err != nil {
		return false
	}
	r.pos--
	r.sync()
	return !r.end && r.err == nil
}

// Seek repositions at an absolute cell index.
func (r *Reverse) Seek(pos int) error {
	r.pos = pos
	r.sync()
	return r.err
}

// Advance moves pos backward by delta cells.
func (r *Reverse) Advance(delta int) error {
	return r.Seek(r.pos - delta)
}

func (r *Reverse) Cell() []byte {
	if r.end {
		return nil
	}
	b, err := r.t.Cell(r.pos)
	if err != nil {
		r.err = err
		return nil
	}
	return b
}

func (r *Reverse) Pos() int         { return r.pos }
func (r *Reverse) End() bool        { return r.end }
func (r *Reverse) Size() int        { return r.size }
func (r *Reverse) Tile() *tile.Tile { return r.t }
func (r *Reverse) Err() error       { return r.err }

func (r *Reverse) InsideRange(rng []byte) (bool, error) {
	if r.end {
		return false, nil
	}
	return r.t.CellInsideRange(r.pos, rng)
}

func (r *Reverse) IsDel() (bool, error) {
	if r.end {
		return false, nil
	}
	return r.t.IsDel(r.pos)
}

func (r *Reverse) IsNull() (bool, error) {
	if r.end {
		return false, nil
	}
	return r.t.IsNull(r.pos)
}
