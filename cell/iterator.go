// Package cell implements the per-tile cell iterators. Forward and Reverse
// are linear traversals over one tile's cells with random seek,
// range-membership testing, and null/deleted predicates. An iterator never
// copies cell bytes: Cell() borrows directly from the owning tile's
// payload.
package cell

import "github.com/quietcells/tilestore/tile"

// Iterator is the contract shared by Forward and Reverse, letting the
// array package's merge iterator treat both directions uniformly.
type Iterator interface {
	// Next advances to the next cell in this iterator's direction and
	// reports whether the new position is valid (false at end or on error).
	Next() bool
	// Cell returns the current cell's raw bytes, including the
	// variable-length count prefix where applicable. nil at end.
	Cell() []byte
	// Pos returns the current within-tile cell position.
	Pos() int
	// End reports whether the iterator has been exhausted.
	End() bool
	// Seek repositions the iterator at an absolute cell position.
	Seek(pos int) error
	// Size returns the current cell's byte size, computed once per
	// position rather than re-derived on every call.
	Size() int
	// InsideRange reports whether the current cell's coordinates lie in
	// rng. Only valid over coordinate tiles.
	InsideRange(rng []byte) (bool, error)
	// IsDel reports whether the current cell carries the deletion
	// tombstone sentinel. Only valid over attribute tiles.
	IsDel() (bool, error)
	// IsNull reports whether the current cell carries the NULL sentinel.
	// Only valid over attribute tiles.
	IsNull() (bool, error)
	// Tile returns the tile this iterator observes.
	Tile() *tile.Tile
	// Err returns the first error encountered, if any.
	Err() error
}

// Begin returns an Iterator positioned at a tile's first cell in the given
// direction: position 0 for forward, cellNum-1 for reverse. Fragment and
// array iterators use this to start a per-tile traversal without knowing
// the tile's cell count themselves.
func Begin(t *tile.Tile, reverse bool) Iterator {
	if reverse {
		return NewReverse(t, t.CellNum()-1)
	}
	return NewForward(t, 0)
}

