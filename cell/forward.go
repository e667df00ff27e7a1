package cell

import "github.com/quietcells/tilestore/tile"

// Forward traverses a tile's cells from pos upward. It is constructed
// already pointing at pos; past the last valid position it sets its end
// flag rather than panicking.
type Forward struct {
	t    *tile.Tile
	pos  int
	end  bool
	size int
	err  error
}

// NewForward constructs a Forward iterator over t, initially positioned at
// pos. pos == t.CellNum() (or t == nil) yields an immediate end-sentinel
// iterator.
func NewForward(t *tile.Tile, pos int) *Forward {
	f := &Forward{t: t, pos: pos}
	f.sync()
	return f
}

func (f *Forward) sync() {
	f.end = f.t == nil || f.pos < 0 || f.pos >= f.t.CellNum()
	if f.end {
		f.size = 0
		return
	}
	sz, err := f.t.CellSize(f.pos)
	if err != nil {
		f.err = err
		f.end = true
		return
	}
	f.size = sz
}

// Next advances by one cell.
func (f *Forward) Next() bool {
	if f.end || f.err != nil {
		return false
	}
	f.pos++
	f.sync()
	return !f.end && f.err == nil
}

// Seek repositions at an absolute cell index.
func (f *Forward) Seek(pos int) error {
	f.pos = pos
	f.sync()
	return f.err
}

// Advance moves pos forward by delta cells in place.
func (f *Forward) Advance(delta int) error {
	return f.Seek(f.pos + delta)
}

func (f *Forward) Cell() []byte {
	if f.end {
		return nil
	}
	b, err := f.t.Cell(f.pos)
	if err != nil {
		f.err = err
		return nil
	}
	return b
}

func (f *Forward) Pos() int         { return f.pos }
func (f *Forward) End() bool        { return f.end }
func (f *Forward) Size() int        { return f.size }
func (f *Forward) Tile() *tile.Tile { return f.t }
func (f *Forward) Err() error       { return f.err }

func (f *Forward) InsideRange(rng []byte) (bool, error) {
	if f.end {
		return false, nil
	}
	return f.t.CellInsideRange(f.pos, rng)
}

func (f *Forward) IsDel() (bool, error) {
	if f.end {
		return false, nil
	}
	return f.t.IsDel(f.pos)
}

func (f *Forward) IsNull() (bool, error) {
	if f.end {
		return false, nil
	}
	return f.t.IsNull(f.pos)
}
