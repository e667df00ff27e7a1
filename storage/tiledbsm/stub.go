//go:build !tiledb

// This file lets github.com/quietcells/tilestore/storage/tiledbsm be
// imported by default builds (cmd/tilestore in particular) without pulling
// in cgo/libtiledb; New always fails until the binary is rebuilt with
// `-tags tiledb`. Mirrors grailbio-bio's encoding/bgzf/writer_nocgo.go.
package tiledbsm

import (
	"errors"

	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage"
	"github.com/quietcells/tilestore/tile"
)

var errNotImplemented = errors.New("tiledbsm: built without the \"tiledb\" build tag")

// Config mirrors the tiledb-tagged variant's shape so callers don't need a
// build-tag switch of their own.
type Config struct {
	URI       string
	ConfigURI string
}

// Manager is a stand-in that always fails; present only so packages can
// reference tiledbsm.Manager's type without a build tag.
type Manager struct{}

// New always fails in a build without the "tiledb" tag.
func New(_ Config) (*Manager, error) {
	return nil, errNotImplemented
}

func (m *Manager) OpenArray(sch *schema.Schema) (storage.Descriptor, error) {
	return nil, errNotImplemented
}
func (m *Manager) CloseArray(d storage.Descriptor) error { return errNotImplemented }

func (m *Manager) FragmentIDs(d storage.Descriptor) ([]uint64, error) {
	return nil, errNotImplemented
}
func (m *Manager) TileCount(d storage.Descriptor, fragmentID uint64, attributeID int) (int, error) {
	return 0, errNotImplemented
}
func (m *Manager) TileIDByRank(d storage.Descriptor, fragmentID uint64, attributeID int, rank int) (uint64, error) {
	return 0, errNotImplemented
}
func (m *Manager) GetTile(d storage.Descriptor, fragmentID uint64, attributeID int, tileID uint64) (*tile.Tile, error) {
	return nil, errNotImplemented
}
func (m *Manager) GetTileByRank(d storage.Descriptor, fragmentID uint64, attributeID int, rank int) (*tile.Tile, error) {
	return nil, errNotImplemented
}
func (m *Manager) GetOverlappingTileIDs(d storage.Descriptor, fragmentID uint64, rng []byte) ([]storage.TileRef, error) {
	return nil, errNotImplemented
}
func (m *Manager) TileMBR(d storage.Descriptor, fragmentID uint64, tileID uint64) ([]byte, error) {
	return nil, errNotImplemented
}
func (m *Manager) TileBoundingCoordinates(d storage.Descriptor, fragmentID uint64, tileID uint64) ([]byte, []byte, error) {
	return nil, nil, errNotImplemented
}
func (m *Manager) NewTile(d storage.Descriptor, fragmentID uint64, attributeID int, tileID uint64) (*tile.Tile, error) {
	return nil, errNotImplemented
}
func (m *Manager) AppendTile(d storage.Descriptor, fragmentID uint64, attributeID int, t *tile.Tile) error {
	return errNotImplemented
}
