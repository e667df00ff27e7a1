package schema

import "errors"

// Sentinel errors, composed with errors.Join at call sites.
var (
	ErrNoDimensions      = errors.New("schema: at least one dimension is required")
	ErrDuplicateName     = errors.New("schema: duplicate dimension or attribute name")
	ErrBadCapacity       = errors.New("schema: capacity must be positive")
	ErrBadExtent         = errors.New("schema: regular tiling requires a positive extent per dimension")
	ErrBadDomain         = errors.New("schema: dimension domain low must be <= high")
	ErrMixedCoordKinds   = errors.New("schema: all dimensions must share one coordinate kind")
	ErrDenseNonIntegral  = errors.New("schema: dense simulation requires an integral coordinate kind")
	ErrAttributeNotFound = errors.New("schema: attribute not found")
	ErrDimensionNotFound = errors.New("schema: dimension not found")
	ErrIncompatibleJoin  = errors.New("schema: schemas are not join-compatible")
	ErrBadValNum         = errors.New("schema: attribute ValNum must be positive or VarSize")
)
