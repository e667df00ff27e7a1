package schema

import (
	"errors"
	"fmt"
	"math"
)

// Schema is the immutable per-array type and layout descriptor. It never
// touches tile payloads; Array, Fragment, and the iterators in the
// cell/fragment/array packages all hold a *Schema by reference and consult
// it for comparisons and sizing only.
type Schema struct {
	Dimensions []Dimension
	Attributes []Attribute
	Capacity   uint64
	Regime     Regime
	Order      Order
}

// New validates and returns a Schema. Structural problems fail
// construction rather than surfacing later as iterator errors.
func New(dims []Dimension, attrs []Attribute, capacity uint64, regime Regime) (*Schema, error) {
	if len(dims) == 0 {
		return nil, ErrNoDimensions
	}
	if capacity == 0 {
		return nil, ErrBadCapacity
	}

	seen := make(map[string]bool, len(dims)+len(attrs))
	kind := dims[0].Kind
	for _, d := range dims {
		if seen[d.Name] {
			return nil, errors.Join(ErrDuplicateName, fmt.Errorf("dimension %q", d.Name))
		}
		seen[d.Name] = true
		if d.Kind != kind {
			return nil, errors.Join(ErrMixedCoordKinds, fmt.Errorf("dimension %q is %s, want %s", d.Name, d.Kind, kind))
		}
		if len(d.Low) != kind.Size() || len(d.High) != kind.Size() {
			return nil, errors.Join(ErrBadDomain, fmt.Errorf("dimension %q bound width", d.Name))
		}
		if d.Kind.DecodeNativeValue(d.Low) > d.Kind.DecodeNativeValue(d.High) {
			return nil, errors.Join(ErrBadDomain, fmt.Errorf("dimension %q", d.Name))
		}
		if regime == Regular && d.Extent == 0 {
			return nil, errors.Join(ErrBadExtent, fmt.Errorf("dimension %q", d.Name))
		}
	}
	for _, a := range attrs {
		if seen[a.Name] {
			return nil, errors.Join(ErrDuplicateName, fmt.Errorf("attribute %q", a.Name))
		}
		seen[a.Name] = true
		if a.ValNum != VarSize && a.ValNum <= 0 {
			return nil, errors.Join(ErrBadValNum, fmt.Errorf("attribute %q", a.Name))
		}
	}

	return &Schema{
		Dimensions: dims,
		Attributes: attrs,
		Capacity:   capacity,
		Regime:     regime,
		Order:      Order{Regime: regime},
	}, nil
}

// DimNum is the dimension count.
func (s *Schema) DimNum() int { return len(s.Dimensions) }

// AttrNum is the attribute count.
func (s *Schema) AttrNum() int { return len(s.Attributes) }

// CoordsID returns the reserved attribute id for the coordinate column:
// always one past the last real attribute index, i.e. equal to AttrNum().
func (s *Schema) CoordsID() int { return s.AttrNum() }

// CoordKind is the single coordinate type shared by every dimension.
func (s *Schema) CoordKind() CoordKind { return s.Dimensions[0].Kind }

// CoordsCellSize is the fixed byte size of one coordinate tuple.
func (s *Schema) CoordsCellSize() int { return s.DimNum() * s.CoordKind().Size() }

// Attribute looks up a real attribute by id (0-based, ascending). Any id
// outside [0, AttrNum()), CoordsID() included, yields ErrAttributeNotFound.
func (s *Schema) Attribute(id int) (Attribute, error) {
	if id < 0 || id >= len(s.Attributes) {
		return Attribute{}, errors.Join(ErrAttributeNotFound, fmt.Errorf("id %d", id))
	}
	return s.Attributes[id], nil
}

// AllAttrIDs returns every real attribute id in ascending order (excludes
// the coordinate column).
func (s *Schema) AllAttrIDs() []int {
	ids := make([]int, len(s.Attributes))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// DenseDomainExtents returns, for each dimension, the number of distinct
// integral coordinates in [Low, High]. Valid only when CoordKind().Integral().
func (s *Schema) DenseDomainExtents() ([]uint64, error) {
	if !s.CoordKind().Integral() {
		return nil, ErrDenseNonIntegral
	}
	extents := make([]uint64, s.DimNum())
	for i, d := range s.Dimensions {
		lo := d.Kind.DecodeNativeValue(d.Low)
		hi := d.Kind.DecodeNativeValue(d.High)
		extents[i] = uint64(hi-lo) + 1
	}
	return extents, nil
}

// DenseDomainSize is the product of per-dimension extents: the number of
// cells a dense-simulation iterator must emit.
func (s *Schema) DenseDomainSize() (uint64, error) {
	extents, err := s.DenseDomainExtents()
	if err != nil {
		return 0, err
	}
	total := uint64(1)
	for _, e := range extents {
		if e == 0 {
			return 0, nil
		}
		if total > math.MaxUint64/e {
			return 0, errors.New("schema: dense domain size overflows uint64")
		}
		total *= e
	}
	return total, nil
}

// DomainMin returns the native-layout coordinate tuple at the domain
// minimum under the global cell order — the dense iterator's start point.
func (s *Schema) DomainMin() []byte {
	sz := s.CoordKind().Size()
	out := make([]byte, s.DimNum()*sz)
	for i, d := range s.Dimensions {
		copy(out[i*sz:(i+1)*sz], d.Low)
	}
	return out
}

// TileID computes the deterministic tile id for a native-layout coordinate
// tuple under regular tiling. Dimensions are combined in row-major order,
// matching TILEDB_ROW_MAJOR tile ordering.
func (s *Schema) TileID(coords []byte) (uint64, error) {
	if s.Regime != Regular {
		return 0, errors.New("schema: TileID is only defined for regular tiling")
	}
	sz := s.CoordKind().Size()
	var id uint64
	for i, d := range s.Dimensions {
		v := d.Kind.DecodeNativeValue(coords[i*sz : (i+1)*sz])
		lo := d.Kind.DecodeNativeValue(d.Low)
		hi := d.Kind.DecodeNativeValue(d.High)
		extentCount := (uint64(hi-lo) + uint64(d.Extent)) / uint64(d.Extent)
		idx := uint64(v-lo) / d.Extent
		id = id*extentCount + idx
	}
	return id, nil
}

// JoinCompatible checks the equi-join precondition: matching dimension
// count, coordinate type, domain, cell order and tile regime.
func JoinCompatible(a, b *Schema) error {
	if a.DimNum() != b.DimNum() {
		return errors.Join(ErrIncompatibleJoin, fmt.Errorf("dim_num %d != %d", a.DimNum(), b.DimNum()))
	}
	if a.CoordKind() != b.CoordKind() {
		return errors.Join(ErrIncompatibleJoin, fmt.Errorf("coordinate kind %s != %s", a.CoordKind(), b.CoordKind()))
	}
	if a.Regime != b.Regime {
		return errors.Join(ErrIncompatibleJoin, fmt.Errorf("tiling regime %s != %s", a.Regime, b.Regime))
	}
	for i := range a.Dimensions {
		da, db := a.Dimensions[i], b.Dimensions[i]
		if string(da.Low) != string(db.Low) || string(da.High) != string(db.High) {
			return errors.Join(ErrIncompatibleJoin, fmt.Errorf("domain mismatch on dimension %d", i))
		}
		// Under regular tiling the extent determines tile ids and with
		// them the global cell order; differing extents would desync the
		// join's two-pointer merge.
		if a.Regime == Regular && da.Extent != db.Extent {
			return errors.Join(ErrIncompatibleJoin, fmt.Errorf("tile extent mismatch on dimension %d", i))
		}
	}
	return nil
}
