package fragment

import (
	"github.com/quietcells/tilestore/storage"
	"github.com/quietcells/tilestore/tile"
)

// Forward walks the tiles of one (fragment, attribute) from pos 0 toward
// TileCount()-1.
type Forward struct{ *base }

// NewForward constructs a Forward iterator positioned at pos; pos ==
// TileCount() is the end. isCoords selects whether MBR/
// BoundingCoordinates are meaningful for this attribute.
func NewForward(mgr storage.Manager, desc storage.Descriptor, fragmentID uint64, attributeID int, isCoords bool, pos int) (*Forward, error) {
	b, err := newBase(mgr, desc, fragmentID, attributeID, isCoords, pos)
	if err != nil {
		return nil, err
	}
	return &Forward{b}, nil
}

func (f *Forward) Next() bool {
	if f.end() {
		return false
	}
	f.pos++
	return !f.end()
}

func (f *Forward) Seek(pos int) error {
	f.pos = pos
	return nil
}

func (f *Forward) Pos() int   { return f.pos }
func (f *Forward) End() bool  { return f.end() }
func (f *Forward) Err() error { return f.err }

func (f *Forward) Tile() (*tile.Tile, error) {
	t, err := f.tile()
	if err != nil {
		f.err = err
	}
	return t, err
}

func (f *Forward) TileID() (uint64, error) { return f.tileID() }
func (f *Forward) MBR() ([]byte, error)    { return f.mbr() }
func (f *Forward) BoundingCoordinates() ([]byte, []byte, error) {
	return f.boundingCoordinates()
}

var _ TileIterator = (*Forward)(nil)
