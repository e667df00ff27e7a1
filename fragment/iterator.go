// Package fragment implements the per-(fragment, attribute) tile iterator:
// a thin, random-access ordinal cursor over a storage manager's tiles.
// Dereferencing it materializes (and discards on the next advance) a
// tile.Tile, so callers must not retain a tile pointer across a call to
// Next/Seek.
package fragment

import (
	"github.com/quietcells/tilestore/storage"
	"github.com/quietcells/tilestore/tile"
)

// TileIterator is the contract shared by Forward and Reverse.
type TileIterator interface {
	// Next advances by one tile and reports whether the new position is
	// valid.
	Next() bool
	// Tile materializes and returns the tile at the current position.
	// Successive calls may return distinct *tile.Tile values for the same
	// logical tile; callers must not hold on to the result across Next.
	Tile() (*tile.Tile, error)
	// Pos returns the current ordinal position.
	Pos() int
	// End reports whether the iterator is exhausted.
	End() bool
	// Seek repositions to an absolute ordinal position.
	Seek(pos int) error
	// TileID returns the tile id at the current position without
	// materializing the tile's payload.
	TileID() (uint64, error)
	// MBR returns the current coordinate tile's MBR without
	// materializing its payload. Valid only for the coordinate
	// attribute.
	MBR() ([]byte, error)
	// BoundingCoordinates returns the current coordinate tile's
	// first/last cells without materializing its payload. Valid only
	// for the coordinate attribute.
	BoundingCoordinates() (first, last []byte, err error)
	// Err returns the first error encountered, if any.
	Err() error
}

// base holds the state shared by Forward and Reverse.
type base struct {
	mgr          storage.Manager
	desc         storage.Descriptor
	fragmentID   uint64
	attributeID  int
	isCoords     bool
	pos          int
	tileNum      int
	err          error
}

func newBase(mgr storage.Manager, desc storage.Descriptor, fragmentID uint64, attributeID int, isCoords bool, pos int) (*base, error) {
	n, err := mgr.TileCount(desc, fragmentID, attributeID)
	if err != nil {
		return nil, err
	}
	return &base{mgr: mgr, desc: desc, fragmentID: fragmentID, attributeID: attributeID, isCoords: isCoords, pos: pos, tileNum: n}, nil
}

func (b *base) end() bool { return b.pos < 0 || b.pos >= b.tileNum || b.err != nil }

func (b *base) tile() (*tile.Tile, error) {
	if b.end() {
		return nil, ErrBadPos
	}
	return b.mgr.GetTileByRank(b.desc, b.fragmentID, b.attributeID, b.pos)
}

func (b *base) tileID() (uint64, error) {
	if b.end() {
		return 0, ErrBadPos
	}
	return b.mgr.TileIDByRank(b.desc, b.fragmentID, b.attributeID, b.pos)
}

func (b *base) mbr() ([]byte, error) {
	if !b.isCoords {
		return nil, ErrNotCoords
	}
	id, err := b.tileID()
	if err != nil {
		return nil, err
	}
	return b.mgr.TileMBR(b.desc, b.fragmentID, id)
}

// Begin constructs a TileIterator positioned at the first tile in the
// given direction: rank 0 for forward, TileCount()-1 for reverse.
func Begin(mgr storage.Manager, desc storage.Descriptor, fragmentID uint64, attributeID int, isCoords bool, reverse bool) (TileIterator, error) {
	n, err := mgr.TileCount(desc, fragmentID, attributeID)
	if err != nil {
		return nil, err
	}
	if reverse {
		return NewReverse(mgr, desc, fragmentID, attributeID, isCoords, n-1)
	}
	return NewForward(mgr, desc, fragmentID, attributeID, isCoords, 0)
}

func (b *base) boundingCoordinates() (first, last []byte, err error) {
	if !b.isCoords {
		return nil, nil, ErrNotCoords
	}
	id, err := b.tileID()
	if err != nil {
		return nil, nil, err
	}
	return b.mgr.TileBoundingCoordinates(b.desc, b.fragmentID, id)
}
