package cell

import "errors"

var (
	ErrNilTile    = errors.New("cell: iterator constructed over a nil tile")
	ErrBadSeek    = errors.New("cell: seek position out of range")
	ErrNotInRange = errors.New("cell: range test on a non-coordinate tile")
)
