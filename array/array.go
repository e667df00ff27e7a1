// Package array implements the array-level merge iterator. It unifies
// every selected fragment's per-attribute tile/cell iterators into one
// logical stream in global cell order, with optional range restriction,
// later-fragment-wins duplicate suppression, and a dense-simulation
// wrapper.
package array

import (
	"github.com/quietcells/tilestore/schema"
	"github.com/quietcells/tilestore/storage"
)

// Array pairs a schema with the storage manager and descriptor backing it,
// and the set of fragments currently registered. Fragment ids are assumed
// assigned in ascending write order — the convention FragmentIDs are
// sorted under, and the one "later fragment wins" relies on.
type Array struct {
	Schema  *schema.Schema
	Manager storage.Manager
	Desc    storage.Descriptor
}

// Open registers sch with mgr and returns the resulting Array.
func Open(mgr storage.Manager, sch *schema.Schema) (*Array, error) {
	desc, err := mgr.OpenArray(sch)
	if err != nil {
		return nil, err
	}
	return &Array{Schema: sch, Manager: mgr, Desc: desc}, nil
}

// Close releases the array's storage descriptor.
func (a *Array) Close() error {
	return a.Manager.CloseArray(a.Desc)
}

// FragmentIDs returns every fragment currently registered, in ascending
// ("later wins") order.
func (a *Array) FragmentIDs() ([]uint64, error) {
	return a.Manager.FragmentIDs(a.Desc)
}

// Empty reports whether every registered fragment has zero coordinate
// tiles — the condition under which any iterator over this array ends
// immediately.
func (a *Array) Empty() (bool, error) {
	ids, err := a.FragmentIDs()
	if err != nil {
		return false, err
	}
	coordsID := a.Schema.CoordsID()
	for _, id := range ids {
		n, err := a.Manager.TileCount(a.Desc, id, coordsID)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}
