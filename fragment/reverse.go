package fragment

import (
	"github.com/quietcells/tilestore/storage"
	"github.com/quietcells/tilestore/tile"
)

// Reverse walks the tiles of one (fragment, attribute) from TileCount()-1
// down toward -1.
type Reverse struct{ *base }

// NewReverse constructs a Reverse iterator positioned at pos.
func NewReverse(mgr storage.Manager, desc storage.Descriptor, fragmentID uint64, attributeID int, isCoords bool, pos int) (*Reverse, error) {
	b, err := newBase(mgr, desc, fragmentID, attributeID, isCoords, pos)
	if err != nil {
		return nil, err
	}
	return &Reverse{b}, nil
}

func (r *Reverse) Next() bool {
	if r.end() {
		return false
	}
	r.pos--
	return !r.end()
}

func (r *Reverse) Seek(pos int) error {
	r.pos = pos
	return nil
}

func (r *Reverse) Pos() int   { return r.pos }
func (r *Reverse) End() bool  { return r.end() }
func (r *Reverse) Err() error { return r.err }

func (r *Reverse) Tile() (*tile.Tile, error) {
	t, err := r.tile()
	if err != nil {
		r.err = err
	}
	return t, err
}

func (r *Reverse) TileID() (uint64, error) { return r.tileID() }
func (r *Reverse) MBR() ([]byte, error)    { return r.mbr() }
func (r *Reverse) BoundingCoordinates() ([]byte, []byte, error) {
	return r.boundingCoordinates()
}

var _ TileIterator = (*Reverse)(nil)
