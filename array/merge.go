package array

import (
	"encoding/binary"

	"github.com/quietcells/tilestore/cell"
	"github.com/quietcells/tilestore/fragment"
	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/stats"
	"github.com/quietcells/tilestore/storage"
	"github.com/quietcells/tilestore/tile"
)

// Config describes one merge iterator's construction inputs.
type Config struct {
	// Fragments restricts the merge to this subset; nil selects every
	// fragment currently registered on the array.
	Fragments []uint64
	// Attributes restricts projected (emitted) attributes to this subset
	// of real attribute ids; nil selects all of them. Coordinates are
	// always implicitly included and are never part of this list.
	Attributes []int
	// Range, if non-nil, restricts the stream to cells whose coordinates
	// lie inside this dimension-wise hyper-rectangle.
	Range []byte
	// Reverse selects the reverse traversal direction.
	Reverse bool
	// ReturnDel, if false, silently skips deletion-tombstone cells.
	ReturnDel bool
	// Stats, if non-nil, receives per-cell counters as the iterator runs.
	// Defaults to stats.Global() when nil, so every iterator contributes
	// to the process-wide registry unless a caller opts into a scoped
	// Collector instead.
	Stats *stats.Collector
}

// cellBufferSeed is the initial capacity of a merge iterator's private
// cell buffer. Variable-sized cells that outgrow it trigger a doubling
// reallocation; the buffer is otherwise reused across emissions.
const cellBufferSeed = 40 * 1024

// fragState holds one fragment's current position in the merge: a tile
// iterator and cell iterator over the coordinate column (the driver), plus
// whether the currently-pointed tile lies entirely inside the range.
type fragState struct {
	fragmentID  uint64
	coordsTile  fragment.TileIterator
	coordsCell  cell.Iterator
	fullOverlap bool
}

func (fs *fragState) exhausted() bool {
	return fs.coordsCell == nil || fs.coordsCell.End()
}

// MergeIterator is the array-level k-way merge over all selected fragments
// in global cell order. Unlike the lower-level cell and fragment
// iterators, which are positioned at construction, MergeIterator follows
// ordinary Go iterator idiom — call Next() to land on the first cell —
// since this is the type query operators actually range over with
// `for it.Next() { ... }`.
type MergeIterator struct {
	mgr    storage.Manager
	desc   storage.Descriptor
	schema *schema.Schema

	coordsID    int
	attributes  []int // projected real attribute ids, ascending
	tombstoneID int   // smallest real attribute id, or -1 if none
	rng         []byte
	reverse     bool
	returnDel   bool

	order  []uint64
	states map[uint64]*fragState

	hasPrev bool
	prevID  uint64

	cellBuffer []byte
	attrCells  [][]byte // parallel to m.attributes, the bytes last copied into cellBuffer
	isDel      bool
	end        bool
	err        error

	stats *stats.Collector
}

// New constructs a MergeIterator over arr under cfg.
func New(arr *Array, cfg Config) (*MergeIterator, error) {
	sch := arr.Schema
	if cfg.Range != nil && len(cfg.Range) != 2*sch.DimNum()*sch.CoordKind().Size() {
		return nil, ErrBadRangeLength
	}
	attrs := cfg.Attributes
	if attrs == nil {
		attrs = sch.AllAttrIDs()
	}
	for _, id := range attrs {
		if id < 0 || id >= sch.AttrNum() {
			return nil, ErrAttrOutOfRange
		}
	}

	fragIDs := cfg.Fragments
	if fragIDs == nil {
		var err error
		fragIDs, err = arr.FragmentIDs()
		if err != nil {
			return nil, err
		}
	}

	tombstoneID := -1
	if sch.AttrNum() > 0 {
		tombstoneID = 0
	}

	m := &MergeIterator{
		mgr:         arr.Manager,
		desc:        arr.Desc,
		schema:      sch,
		coordsID:    sch.CoordsID(),
		attributes:  attrs,
		tombstoneID: tombstoneID,
		rng:         cfg.Range,
		reverse:     cfg.Reverse,
		returnDel:   cfg.ReturnDel,
		order:       fragIDs,
		states:      make(map[uint64]*fragState, len(fragIDs)),
		stats:       cfg.Stats,
	}
	if m.stats == nil {
		m.stats = stats.Global()
	}
	// A fragment-less array is legal: the stream is simply empty.
	if len(fragIDs) == 0 {
		m.end = true
		return m, nil
	}
	for _, id := range fragIDs {
		fs, err := m.initFragment(id)
		if err != nil {
			return nil, err
		}
		m.states[id] = fs
	}
	return m, nil
}

func (m *MergeIterator) initFragment(fragmentID uint64) (*fragState, error) {
	tileIt, err := fragment.Begin(m.mgr, m.desc, fragmentID, m.coordsID, true, m.reverse)
	if err != nil {
		return nil, err
	}
	fs := &fragState{fragmentID: fragmentID, coordsTile: tileIt}
	if err := m.seekToOverlappingTile(fs); err != nil {
		return nil, err
	}
	return fs, nil
}

// seekToOverlappingTile advances fs's tile iterator, starting from its
// current position, until it finds a tile overlapping m.rng (or there is
// no range restriction), then positions fs.coordsCell at the first
// in-range cell of that tile.
func (m *MergeIterator) seekToOverlappingTile(fs *fragState) error {
	for !fs.coordsTile.End() {
		if m.rng == nil {
			fs.fullOverlap = true
			break
		}
		mbr, err := fs.coordsTile.MBR()
		if err != nil {
			return err
		}
		full, overlaps, err := tile.MBROverlap(m.schema.CoordKind(), m.schema.DimNum(), mbr, m.rng)
		if err != nil {
			return err
		}
		if overlaps {
			fs.fullOverlap = full
			break
		}
		fs.coordsTile.Next()
	}
	if fs.coordsTile.End() {
		fs.coordsCell = nil
		return nil
	}
	t, err := fs.coordsTile.Tile()
	if err != nil {
		return err
	}
	m.stats.TilesMaterialized.Add(1)
	fs.coordsCell = cell.Begin(t, m.reverse)
	return m.seekCellInRange(fs)
}

// seekCellInRange advances fs's cell iterator within its current tile
// until a cell lies in m.rng, rolling over to the next overlapping tile
// when the current one is exhausted.
func (m *MergeIterator) seekCellInRange(fs *fragState) error {
	for {
		if fs.coordsCell.End() {
			if !fs.coordsTile.Next() {
				fs.coordsCell = nil
				return nil
			}
			return m.seekToOverlappingTile(fs)
		}
		if m.rng == nil || fs.fullOverlap {
			return nil
		}
		inside, err := fs.coordsCell.InsideRange(m.rng)
		if err != nil {
			return err
		}
		if inside {
			return nil
		}
		fs.coordsCell.Next()
	}
}

// advance moves the given fragment's cursor to its next cell, crossing
// tile boundaries and re-applying the range restriction as needed.
func (m *MergeIterator) advance(fragmentID uint64) error {
	fs := m.states[fragmentID]
	if fs.coordsCell == nil {
		return nil
	}
	if !fs.coordsCell.Next() {
		if !fs.coordsTile.Next() {
			fs.coordsCell = nil
			return nil
		}
		return m.seekToOverlappingTile(fs)
	}
	return m.seekCellInRange(fs)
}

func (m *MergeIterator) orderedCoord(fs *fragState) ([]byte, uint64, error) {
	native := fs.coordsCell.Cell()
	ordered := schema.NativeToOrdered(m.schema.CoordKind(), native, m.schema.DimNum())
	tileID, err := fs.coordsTile.TileID()
	return ordered, tileID, err
}

type candidate struct {
	id     uint64
	coord  []byte
	tileID uint64
}

// pickWinner finds, among non-ended fragments, the minimum (or, in
// reverse, maximum) cell under the global order, breaks ties by consuming
// every tied fragment except the one with the greatest fragment id ("later
// fragment wins"), and returns that fragment's id.
func (m *MergeIterator) pickWinner() (uint64, bool, error) {
	var cands []candidate
	for _, id := range m.order {
		fs := m.states[id]
		if fs.exhausted() {
			continue
		}
		coord, tileID, err := m.orderedCoord(fs)
		if err != nil {
			return 0, false, err
		}
		cands = append(cands, candidate{id, coord, tileID})
	}
	if len(cands) == 0 {
		return 0, false, nil
	}

	extreme := cands[0]
	for _, c := range cands[1:] {
		var takesPriority bool
		if m.reverse {
			takesPriority = m.schema.Order.Succeeds(c.tileID, c.coord, extreme.tileID, extreme.coord)
		} else {
			takesPriority = m.schema.Order.Precedes(c.tileID, c.coord, extreme.tileID, extreme.coord)
		}
		if takesPriority {
			extreme = c
		}
	}

	var tied []candidate
	for _, c := range cands {
		if m.schema.Order.Equal(c.tileID, c.coord, extreme.tileID, extreme.coord) {
			tied = append(tied, c)
		}
	}
	winner := tied[0]
	for _, c := range tied[1:] {
		if c.id > winner.id {
			winner = c
		}
	}
	for _, c := range tied {
		if c.id == winner.id {
			continue
		}
		if err := m.advance(c.id); err != nil {
			return 0, false, err
		}
	}
	return winner.id, true, nil
}

// fetchAttrCell returns attribute attrID's raw cell bytes for the fragment
// state fs, at the same tile id and within-tile position as its current
// coordinate cell. Attribute columns are kept in sync with the driver by
// direct addressed reads rather than standing iterators, so there is no
// lagging state to catch up. Each call goes through Manager.GetTile anew:
// a manager without a tile cache pays one materialization per projected
// attribute per emitted cell.
func (m *MergeIterator) fetchAttrCell(fs *fragState, attrID int) ([]byte, error) {
	tileID, err := fs.coordsTile.TileID()
	if err != nil {
		return nil, err
	}
	t, err := m.mgr.GetTile(m.desc, fs.fragmentID, attrID, tileID)
	if err != nil {
		return nil, err
	}
	m.stats.TilesMaterialized.Add(1)
	return t.Cell(fs.coordsCell.Pos())
}

// emit materializes the winning fragment's current cell into m.cellBuffer
// — coordinates, then a u64 total-size prefix when any projected attribute
// is variable-sized, then each attribute's bytes in ascending id — and
// reports whether it is a deletion tombstone.
func (m *MergeIterator) emit(winner uint64) (bool, error) {
	fs := m.states[winner]
	coordsCell := fs.coordsCell.Cell()

	attrBytes := make([][]byte, len(m.attributes))
	anyVar := false
	for i, attrID := range m.attributes {
		b, err := m.fetchAttrCell(fs, attrID)
		if err != nil {
			return false, err
		}
		attrBytes[i] = b
		if m.schema.Attributes[attrID].IsVar() {
			anyVar = true
		}
	}

	total := len(coordsCell)
	if anyVar {
		total += 8
	}
	for _, b := range attrBytes {
		total += len(b)
	}
	m.growCellBuffer(total)

	buf := m.cellBuffer[:0]
	buf = append(buf, coordsCell...)
	if anyVar {
		lenPrefix := make([]byte, 8)
		binary.LittleEndian.PutUint64(lenPrefix, uint64(total))
		buf = append(buf, lenPrefix...)
	}
	for _, b := range attrBytes {
		buf = append(buf, b...)
	}
	m.cellBuffer = buf
	m.attrCells = attrBytes

	if m.tombstoneID < 0 {
		return false, nil
	}
	tb, err := m.fetchAttrCell(fs, m.tombstoneID)
	if err != nil {
		return false, err
	}
	kind := m.schema.Attributes[m.tombstoneID].Kind
	if m.schema.Attributes[m.tombstoneID].IsVar() {
		tb = tb[4:]
	}
	if len(tb) < kind.Size() {
		return false, nil
	}
	return schema.IsDel(kind, tb[:kind.Size()]), nil
}

// growCellBuffer ensures the private cell buffer can hold n bytes, doubling
// from the seed capacity until it fits. The buffer is reused across
// emissions: bytes returned by Cell() are only valid until the next call to
// Next.
func (m *MergeIterator) growCellBuffer(n int) {
	if cap(m.cellBuffer) >= n {
		return
	}
	newCap := cap(m.cellBuffer)
	if newCap < cellBufferSeed {
		newCap = cellBufferSeed
	}
	for newCap < n {
		newCap *= 2
	}
	m.cellBuffer = make([]byte, 0, newCap)
}

// Next advances to the next cell in global order and reports whether it is
// valid. Deletion tombstones are silently skipped unless ReturnDel was set.
func (m *MergeIterator) Next() bool {
	if m.end || m.err != nil {
		return false
	}
	if m.hasPrev {
		if err := m.advance(m.prevID); err != nil {
			m.err = err
			m.end = true
			return false
		}
	}
	for {
		winner, ok, err := m.pickWinner()
		if err != nil {
			m.err = err
			m.end = true
			return false
		}
		if !ok {
			m.end = true
			return false
		}
		del, err := m.emit(winner)
		if err != nil {
			m.err = err
			m.end = true
			return false
		}
		m.hasPrev = true
		m.prevID = winner
		if del && !m.returnDel {
			m.stats.DeletionsSkipped.Add(1)
			if err := m.advance(winner); err != nil {
				m.err = err
				m.end = true
				return false
			}
			continue
		}
		m.isDel = del
		m.stats.CellsEmitted.Add(1)
		m.stats.BytesBuffered.Add(int64(len(m.cellBuffer)))
		return true
	}
}

// Cell returns the current merged cell's bytes (see emit for the layout).
// The slice aliases the iterator's private buffer and is only valid until
// the next call to Next; callers that retain cells must copy.
func (m *MergeIterator) Cell() []byte { return m.cellBuffer }

// Coords returns the current cell's coordinate bytes (native layout), borrowed
// directly from the winning fragment's coordinate tile.
func (m *MergeIterator) Coords() []byte {
	if !m.hasPrev {
		return nil
	}
	return m.states[m.prevID].coordsCell.Cell()
}

// Attributes returns the real attribute ids this iterator eagerly fetches on
// every emitted cell (the set passed as Config.Attributes, or every
// attribute when that was nil).
func (m *MergeIterator) Attributes() []int { return m.attributes }

// AttrCell returns attrID's raw bytes for the current cell, as already
// copied into the merged buffer at emit time. attrID must be one of
// Attributes(); query.Filter uses this for expression-referenced attributes,
// which are always eagerly fetched since the predicate needs them regardless
// of outcome.
func (m *MergeIterator) AttrCell(attrID int) ([]byte, error) {
	for i, id := range m.attributes {
		if id == attrID {
			return m.attrCells[i], nil
		}
	}
	return nil, ErrAttrOutOfRange
}

// FetchAttr lazily fetches attrID's cell bytes for the current cell via a
// direct random-access read through the storage manager, independent of
// whether attrID is in Attributes(). query.Filter uses this for attributes
// outside the predicate's expression: the fetch only touches an
// attribute's bytes for cells the caller actually asks about.
func (m *MergeIterator) FetchAttr(attrID int) ([]byte, error) {
	if !m.hasPrev {
		return nil, ErrNoCurrentCell
	}
	return m.fetchAttrCell(m.states[m.prevID], attrID)
}

// TileID returns the coordinate tile id the current cell was emitted from,
// under the winning fragment's coordinate column.
func (m *MergeIterator) TileID() (uint64, error) {
	if !m.hasPrev {
		return 0, ErrNoCurrentCell
	}
	return m.states[m.prevID].coordsTile.TileID()
}

// IsDel reports whether the current cell is a deletion tombstone (only
// possible to observe when ReturnDel was set).
func (m *MergeIterator) IsDel() bool { return m.isDel }

// End reports whether the iterator is exhausted.
func (m *MergeIterator) End() bool { return m.end }

// Err returns the first error encountered, if any.
func (m *MergeIterator) Err() error { return m.err }
