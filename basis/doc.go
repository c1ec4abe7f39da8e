// Package basis holds the read-only inputs shared by every SNP of a run:
// the voxel-by-component basis matrix B restricted to its first K columns and
// the leading K×K block Σ of the LDR inner-product matrix.
//
// A Store is validated once at construction (component counts, symmetry,
// positive semi-definiteness, finiteness) and is immutable afterwards, so any
// number of goroutines may read it without locking.
//
// Because every supported variance model scales the voxel quadratic form
// q_v = B[v,:]·Σ·B[v,:]ᵀ, the Store computes all q_v once, in voxel row
// blocks, instead of once per SNP.
//
//	store, err := basis.New(bases, inner, 19, basis.WithVoxels(ids))
//	if errors.Is(err, basis.ErrDimensionMismatch) { ... }
package basis
