package query

import "errors"

var (
	ErrBadK             = errors.New("query: k must be positive")
	ErrBadQueryDims     = errors.New("query: query point dimensionality mismatch")
	ErrEmptyResult      = errors.New("query: result builder has nothing buffered")
	ErrJoinAttrConflict = errors.New("query: join output attribute id collides across input schemas")
)
