package basis

import "errors"

var (
	// ErrDimensionMismatch reports inconsistent component counts between the
	// basis, the inner-product matrix and the requested K.
	ErrDimensionMismatch = errors.New("basis: dimension mismatch")

	// ErrNotPSD reports an inner-product block with a negative eigenvalue
	// beyond tolerance, or one whose eigen decomposition failed.
	ErrNotPSD = errors.New("basis: inner-product matrix is not positive semi-definite")

	// ErrVoxelIndex reports a voxel selection outside 1..V or with duplicates.
	ErrVoxelIndex = errors.New("basis: invalid voxel selection")

	// ErrNilInput reports a nil basis or inner-product matrix.
	ErrNilInput = errors.New("basis: nil input matrix")
)
