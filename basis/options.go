package basis

import (
	"math"

	"github.com/katalvlaran/voxelgwas/matrix"
)

// DefaultBlockSize is the number of voxel rows per precompute block.
const DefaultBlockSize = 4096

const (
	panicBlockSize = "basis: WithBlockSize: size must be > 0"
	panicEpsilon   = "basis: WithEpsilon: eps must be finite, non-negative"
)

// Option configures New.
type Option func(*options)

type options struct {
	voxels    []int   // 1-based voxel ids; nil means all
	blockSize int     // voxel rows per block
	eps       float64 // symmetry and PSD tolerance
}

func defaultOptions() options {
	return options{blockSize: DefaultBlockSize, eps: matrix.DefaultEpsilon}
}

// WithVoxels restricts the store to the given 1-based voxel rows, in the
// given order. Validation happens in New.
func WithVoxels(ids []int) Option {
	cp := append([]int(nil), ids...)

	return func(o *options) { o.voxels = cp }
}

// WithBlockSize sets the number of voxel rows per precompute block.
// Panics on non-positive sizes.
func WithBlockSize(n int) Option {
	if n <= 0 {
		panic(panicBlockSize)
	}

	return func(o *options) { o.blockSize = n }
}

// WithEpsilon sets the symmetry and PSD tolerance. Panics on NaN, Inf or negatives.
func WithEpsilon(eps float64) Option {
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps < 0 {
		panic(panicEpsilon)
	}

	return func(o *options) { o.eps = eps }
}
