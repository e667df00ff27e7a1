// Package storage declares the storage-manager contract the iterator core
// consumes. The core (tile, cell, fragment, array, query) never performs
// I/O or owns a file format directly: it asks a Manager for
// already-materialized tile.Tile values and trusts the stability guarantee
// that pointers returned by GetTile*/GetOverlappingTileIDs remain valid
// until CloseArray.
package storage

import (
	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/tile"
)

// Descriptor is an opaque handle a Manager hands back from OpenArray. Each
// Manager implementation defines its own concrete type; callers only ever
// pass it back to the same Manager.
type Descriptor interface{}

// TileRef is one entry of GetOverlappingTileIDs' result: a candidate tile
// id plus whether the tile's MBR lies entirely within the queried range.
// query.Subarray uses the listing only to drop fragments with no
// overlapping tile and does not read FullyContained; per-cell range tests
// are elided by the merge iterator's own MBR check.
type TileRef struct {
	TileID         uint64
	FullyContained bool
}

// Manager is the storage-manager contract. attributeID follows
// schema.Schema's convention: 0..AttrNum()-1 for real attributes,
// schema.Schema.CoordsID() for the coordinate column.
type Manager interface {
	// OpenArray registers sch with this manager and returns a descriptor
	// for subsequent calls.
	OpenArray(sch *schema.Schema) (Descriptor, error)
	// CloseArray releases any resources held for d. Tiles handed out under
	// d must not be used afterward.
	CloseArray(d Descriptor) error

	// FragmentIDs lists the fragment ids currently registered under d, in
	// write (ascending, "later fragment wins") order.
	FragmentIDs(d Descriptor) ([]uint64, error)

	// TileCount returns the number of tiles materialized for
	// (fragmentID, attributeID).
	TileCount(d Descriptor, fragmentID uint64, attributeID int) (int, error)
	// TileIDByRank returns the tile id stored at the given 0-based ordinal
	// rank within (fragmentID, attributeID).
	TileIDByRank(d Descriptor, fragmentID uint64, attributeID int, rank int) (uint64, error)

	// GetTile returns the tile identified by (fragmentID, attributeID,
	// tileID).
	GetTile(d Descriptor, fragmentID uint64, attributeID int, tileID uint64) (*tile.Tile, error)
	// GetTileByRank returns the tile at the given ordinal rank within
	// (fragmentID, attributeID) — the primitive the fragment package's
	// ordinal iterator is built on.
	GetTileByRank(d Descriptor, fragmentID uint64, attributeID int, rank int) (*tile.Tile, error)

	// GetOverlappingTileIDs returns every coordinate tile of fragmentID
	// whose MBR intersects rng, annotated with full containment.
	GetOverlappingTileIDs(d Descriptor, fragmentID uint64, rng []byte) ([]TileRef, error)

	// TileMBR returns a coordinate tile's MBR without materializing its
	// full cell payload. The fragment package's ordinal iterator uses
	// this (and TileBoundingCoordinates) so that reporting tile metadata
	// never costs a payload load.
	TileMBR(d Descriptor, fragmentID uint64, tileID uint64) ([]byte, error)
	// TileBoundingCoordinates returns a coordinate tile's first/last
	// stored cell coordinates without materializing its full payload.
	TileBoundingCoordinates(d Descriptor, fragmentID uint64, tileID uint64) (first, last []byte, err error)

	// NewTile allocates an empty tile for result-building.
	NewTile(d Descriptor, fragmentID uint64, attributeID int, tileID uint64) (*tile.Tile, error)
	// AppendTile commits t as the next tile of (fragmentID, attributeID).
	AppendTile(d Descriptor, fragmentID uint64, attributeID int, t *tile.Tile) error
}
