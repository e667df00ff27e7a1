package array

import "errors"

var (
	ErrBadRangeLength   = errors.New("array: range does not match schema dimensionality")
	ErrAttrOutOfRange   = errors.New("array: projected attribute id out of range")
	ErrNoCurrentCell    = errors.New("array: no current cell (call Next first)")
	ErrDenseNonIntegral = errors.New("array: dense simulation requires an integral coordinate type")
	ErrDenseRanged      = errors.New("array: dense simulation does not support range restriction")
)
