package storage

import "errors"

var (
	ErrArrayClosed      = errors.New("storage: array descriptor is closed")
	ErrUnknownArray     = errors.New("storage: descriptor not recognized by this manager")
	ErrFragmentNotFound = errors.New("storage: fragment not found")
	ErrAttributeRange   = errors.New("storage: attribute id out of range")
	ErrTileNotFound     = errors.New("storage: tile not found")
	ErrRankRange        = errors.New("storage: rank out of range")
)
