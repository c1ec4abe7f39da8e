// SPDX-License-Identifier: MIT

package matrix

import "errors"

// Sentinels are wrapped with the failing method and coordinates; match them
// with errors.Is.
var (
	// ErrInvalidDimensions reports a non-positive row or column count.
	ErrInvalidDimensions = errors.New("matrix: dimensions must be > 0")

	// ErrDimensionMismatch reports a buffer or block that does not fit the shape.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrOutOfRange reports a row or column index outside the matrix.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrNaNInf reports a NaN or ±Inf entry.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrAsymmetry reports |a_ij - a_ji| above the tolerance.
	ErrAsymmetry = errors.New("matrix: matrix is not symmetric within eps")
)
