package query

import (
	"github.com/quietcells/tilestore/array"
)

// ExpressionTree is the opaque predicate capability Filter consumes; this
// package never parses or constructs one.
type ExpressionTree interface {
	// AttributeIDs lists the real attribute ids the expression reads.
	// Filter fetches exactly these eagerly for every candidate cell.
	AttributeIDs() []int
	// Eval evaluates the expression against one cell, fetching attribute
	// bytes on demand via get(attrID).
	Eval(get func(attrID int) ([]byte, error)) (bool, error)
}

// Filter streams arr in global cell order, evaluates expr against only its
// referenced attributes, and for cells that satisfy it fetches the
// projected attributes and appends to out. expr's attributes are fetched
// for every cell (the predicate needs them), but project's attributes are
// fetched only for cells that pass, via array.MergeIterator.FetchAttr's
// direct (fragment, attribute, tileID, pos) addressing rather than a
// sequential per-cell walk.
func Filter(arr *array.Array, cfg array.Config, expr ExpressionTree, project []int, out *ResultBuilder) error {
	cfg.Attributes = expr.AttributeIDs()
	mi, err := array.New(arr, cfg)
	if err != nil {
		return err
	}
	for mi.Next() {
		ok, err := expr.Eval(mi.AttrCell)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		attrs := make(map[int][]byte, len(project))
		for _, id := range project {
			b, err := mi.FetchAttr(id)
			if err != nil {
				return err
			}
			attrs[id] = b
		}
		if err := out.Append(mi.Coords(), attrs); err != nil {
			return err
		}
	}
	return mi.Err()
}
