package fragment

import "errors"

var (
	ErrBadPos     = errors.New("fragment: tile position out of range")
	ErrNotCoords  = errors.New("fragment: mbr/bounding-coordinate access on a non-coordinate attribute")
)
