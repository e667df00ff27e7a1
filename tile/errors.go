package tile

import "errors"

var (
	ErrOutOfRange      = errors.New("tile: cell position out of range")
	ErrNotVariable     = errors.New("tile: cell size requires a position for variable-length tiles")
	ErrBadOffsets      = errors.New("tile: variable-length offsets are not strictly increasing")
	ErrSizeMismatch    = errors.New("tile: fixed-length tile_size does not match cell_num*cell_size")
	ErrNotCoords       = errors.New("tile: MBR/bounding coordinates are only defined for coordinate tiles")
	ErrCoordsZeroDims  = errors.New("tile: coordinate tiles require dim_num > 0")
	ErrAttrNonzeroDims = errors.New("tile: attribute tiles require dim_num == 0")
	ErrRangeDims       = errors.New("tile: range dimension count does not match tile dim_num")
	ErrNoPayload       = errors.New("tile: payload has not been set")
)
