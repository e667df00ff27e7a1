// Package memsm is the reference in-memory storage.Manager: no file format,
// no cgo. It exists for tests and for the cmd/tilestore CLI shim, and to
// give the core something to run against without a real TileDB install.
// Tile payloads are snappy-compressed at rest and transparently
// decompressed on every GetTile*, so the iterator core always receives
// pre-decompressed, pre-materialized Tile objects.
package memsm

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/golang/snappy"

	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage"
	"github.com/quietcells/tilestore/tile"
)

// ErrDecompress wraps a snappy decode failure on a stored tile payload.
var ErrDecompress = errors.New("memsm: tile decompression failed")

// Config has no settings of its own today but keeps the constructor shape
// uniform with tiledbsm.Config so callers don't need to special-case it.
type Config struct{}

// Manager is a mutex-guarded in-memory implementation of storage.Manager.
type Manager struct {
	mu     sync.Mutex
	arrays map[*arrayState]bool
}

// New constructs an empty Manager.
func New(_ Config) *Manager {
	return &Manager{arrays: make(map[*arrayState]bool)}
}

var _ storage.Manager = (*Manager)(nil)

type arrayState struct {
	sch        *schema.Schema
	closed     bool
	fragOrder  []uint64
	fragments  map[uint64]*fragmentState
}

type fragmentState struct {
	tiles  map[int][]*storedTile   // attributeID -> tiles in rank order
	rankOf map[int]map[uint64]int // attributeID -> tileID -> rank
}

type storedTile struct {
	id         uint64
	isCoords   bool
	dimNum     int
	coordKind  schema.CoordKind
	attrKind   schema.AttrKind
	valNum     int
	compressed []byte
	offsets    []int // nil for fixed-size tiles
	mbr        []byte
	boundFirst []byte
	boundLast  []byte
}

func newFragmentState() *fragmentState {
	return &fragmentState{
		tiles:  make(map[int][]*storedTile),
		rankOf: make(map[int]map[uint64]int),
	}
}

func (m *Manager) state(d storage.Descriptor) (*arrayState, error) {
	as, ok := d.(*arrayState)
	if !ok || !m.arrays[as] {
		return nil, storage.ErrUnknownArray
	}
	if as.closed {
		return nil, storage.ErrArrayClosed
	}
	return as, nil
}

// OpenArray registers sch and returns a fresh descriptor.
func (m *Manager) OpenArray(sch *schema.Schema) (storage.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as := &arrayState{sch: sch, fragments: make(map[uint64]*fragmentState)}
	m.arrays[as] = true
	return as, nil
}

// CloseArray releases d. Any tile references handed out earlier become
// invalid, matching the stability guarantee's stated boundary.
func (m *Manager) CloseArray(d storage.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return err
	}
	as.closed = true
	delete(m.arrays, as)
	return nil
}

// FragmentIDs lists registered fragments in write order — the order
// array.MergeIterator relies on for "later fragment wins".
func (m *Manager) FragmentIDs(d storage.Descriptor) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(as.fragOrder))
	copy(out, as.fragOrder)
	return out, nil
}

// RegisterFragment creates an (initially empty) fragment with the given id
// if it doesn't already exist, appending it to the write order. Tests and
// the CLI shim call this before AppendTile.
func (m *Manager) RegisterFragment(d storage.Descriptor, fragmentID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return err
	}
	if _, ok := as.fragments[fragmentID]; ok {
		return nil
	}
	as.fragments[fragmentID] = newFragmentState()
	as.fragOrder = append(as.fragOrder, fragmentID)
	sort.Slice(as.fragOrder, func(i, j int) bool { return as.fragOrder[i] < as.fragOrder[j] })
	return nil
}

func (m *Manager) fragment(as *arrayState, fragmentID uint64) (*fragmentState, error) {
	fs, ok := as.fragments[fragmentID]
	if !ok {
		return nil, storage.ErrFragmentNotFound
	}
	return fs, nil
}

// TileCount returns how many tiles are stored for (fragmentID, attributeID).
func (m *Manager) TileCount(d storage.Descriptor, fragmentID uint64, attributeID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return 0, err
	}
	fs, err := m.fragment(as, fragmentID)
	if err != nil {
		return 0, err
	}
	return len(fs.tiles[attributeID]), nil
}

// TileIDByRank returns the tile id at the given ordinal rank.
func (m *Manager) TileIDByRank(d storage.Descriptor, fragmentID uint64, attributeID int, rank int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return 0, err
	}
	fs, err := m.fragment(as, fragmentID)
	if err != nil {
		return 0, err
	}
	list := fs.tiles[attributeID]
	if rank < 0 || rank >= len(list) {
		return 0, storage.ErrRankRange
	}
	return list[rank].id, nil
}

func (m *Manager) materialize(as *arrayState, st *storedTile) (*tile.Tile, error) {
	payload, err := snappy.Decode(nil, st.compressed)
	if err != nil {
		return nil, errors.Join(ErrDecompress, fmt.Errorf("tile %d", st.id), err)
	}
	var t *tile.Tile
	if st.isCoords {
		t, err = tile.NewCoordsTile(st.id, st.dimNum, st.coordKind)
	} else {
		t, err = tile.NewAttrTile(st.id, st.attrKind, st.valNum)
	}
	if err != nil {
		return nil, err
	}
	if st.offsets != nil {
		if err := t.SetPayloadVar(payload, st.offsets); err != nil {
			return nil, err
		}
	} else {
		if err := t.SetPayload(payload); err != nil {
			return nil, err
		}
	}
	if st.isCoords {
		if err := t.SetMBR(st.mbr); err != nil {
			return nil, err
		}
		if err := t.SetBoundingCoordinates(st.boundFirst, st.boundLast); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// GetTile looks up a tile by its id within (fragmentID, attributeID).
func (m *Manager) GetTile(d storage.Descriptor, fragmentID uint64, attributeID int, tileID uint64) (*tile.Tile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return nil, err
	}
	fs, err := m.fragment(as, fragmentID)
	if err != nil {
		return nil, err
	}
	rank, ok := fs.rankOf[attributeID][tileID]
	if !ok {
		return nil, storage.ErrTileNotFound
	}
	return m.materialize(as, fs.tiles[attributeID][rank])
}

// GetTileByRank looks up a tile by its 0-based ordinal position.
func (m *Manager) GetTileByRank(d storage.Descriptor, fragmentID uint64, attributeID int, rank int) (*tile.Tile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return nil, err
	}
	fs, err := m.fragment(as, fragmentID)
	if err != nil {
		return nil, err
	}
	list := fs.tiles[attributeID]
	if rank < 0 || rank >= len(list) {
		return nil, storage.ErrRankRange
	}
	return m.materialize(as, list[rank])
}

// GetOverlappingTileIDs scans the coordinate tiles of fragmentID for MBR
// overlap with rng. memsm has no spatial index — it is a reference
// implementation, not a performance one — so this is a linear scan.
func (m *Manager) GetOverlappingTileIDs(d storage.Descriptor, fragmentID uint64, rng []byte) ([]storage.TileRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return nil, err
	}
	fs, err := m.fragment(as, fragmentID)
	if err != nil {
		return nil, err
	}
	coordsID := as.sch.CoordsID()
	var out []storage.TileRef
	for _, st := range fs.tiles[coordsID] {
		t, err := m.materialize(as, st)
		if err != nil {
			return nil, err
		}
		full, overlaps, err := t.MBROverlap(rng)
		if err != nil {
			return nil, err
		}
		if overlaps {
			out = append(out, storage.TileRef{TileID: st.id, FullyContained: full})
		}
	}
	return out, nil
}

// TileMBR returns a coordinate tile's MBR directly from the stored record,
// without decompressing or reconstructing a tile.Tile.
func (m *Manager) TileMBR(d storage.Descriptor, fragmentID uint64, tileID uint64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return nil, err
	}
	fs, err := m.fragment(as, fragmentID)
	if err != nil {
		return nil, err
	}
	coordsID := as.sch.CoordsID()
	rank, ok := fs.rankOf[coordsID][tileID]
	if !ok {
		return nil, storage.ErrTileNotFound
	}
	return fs.tiles[coordsID][rank].mbr, nil
}

// TileBoundingCoordinates returns a coordinate tile's bounding coordinates
// directly from the stored record.
func (m *Manager) TileBoundingCoordinates(d storage.Descriptor, fragmentID uint64, tileID uint64) ([]byte, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return nil, nil, err
	}
	fs, err := m.fragment(as, fragmentID)
	if err != nil {
		return nil, nil, err
	}
	coordsID := as.sch.CoordsID()
	rank, ok := fs.rankOf[coordsID][tileID]
	if !ok {
		return nil, nil, storage.ErrTileNotFound
	}
	st := fs.tiles[coordsID][rank]
	return st.boundFirst, st.boundLast, nil
}

// NewTile allocates a fresh, unfinalized tile for attributeID. Callers fill
// it in (SetPayload/SetPayloadVar, and SetMBR/SetBoundingCoordinates for the
// coordinate attribute) and then call AppendTile to commit it.
func (m *Manager) NewTile(d storage.Descriptor, fragmentID uint64, attributeID int, tileID uint64) (*tile.Tile, error) {
	m.mu.Lock()
	as, err := m.state(d)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if attributeID == as.sch.CoordsID() {
		return tile.NewCoordsTile(tileID, as.sch.DimNum(), as.sch.CoordKind())
	}
	attr, err := as.sch.Attribute(attributeID)
	if err != nil {
		return nil, err
	}
	return tile.NewAttrTile(tileID, attr.Kind, attr.ValNum)
}

// AppendTile commits t as the next tile of (fragmentID, attributeID),
// snappy-compressing its payload at rest.
func (m *Manager) AppendTile(d storage.Descriptor, fragmentID uint64, attributeID int, t *tile.Tile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, err := m.state(d)
	if err != nil {
		return err
	}
	fs, ok := as.fragments[fragmentID]
	if !ok {
		fs = newFragmentState()
		as.fragments[fragmentID] = fs
		as.fragOrder = append(as.fragOrder, fragmentID)
		sort.Slice(as.fragOrder, func(i, j int) bool { return as.fragOrder[i] < as.fragOrder[j] })
	}

	payload := make([]byte, 0, t.TileSize())
	var offsets []int
	if t.IsVar() {
		offsets = make([]int, 0, t.CellNum()+1)
		offsets = append(offsets, 0)
	}
	for pos := 0; pos < t.CellNum(); pos++ {
		cell, err := t.Cell(pos)
		if err != nil {
			return err
		}
		payload = append(payload, cell...)
		if offsets != nil {
			offsets = append(offsets, len(payload))
		}
	}

	st := &storedTile{
		id:         t.TileID(),
		isCoords:   t.IsCoords(),
		dimNum:     t.DimNum(),
		valNum:     0,
		compressed: snappy.Encode(nil, payload),
		offsets:    offsets,
	}
	if st.isCoords {
		st.coordKind = as.sch.CoordKind()
		mbr, err := t.MBR()
		if err != nil {
			return err
		}
		first, last, err := t.BoundingCoordinates()
		if err != nil {
			return err
		}
		st.mbr, st.boundFirst, st.boundLast = mbr, first, last
	} else {
		attr, err := as.sch.Attribute(attributeID)
		if err != nil {
			return err
		}
		st.attrKind = attr.Kind
		st.valNum = attr.ValNum
	}

	rank := len(fs.tiles[attributeID])
	fs.tiles[attributeID] = append(fs.tiles[attributeID], st)
	if fs.rankOf[attributeID] == nil {
		fs.rankOf[attributeID] = make(map[uint64]int)
	}
	fs.rankOf[attributeID][st.id] = rank
	return nil
}
