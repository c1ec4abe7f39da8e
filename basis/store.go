package basis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/voxelgwas/matrix"
)

// Store is the immutable BasisStore: B (V×K) and Σ (K×K) plus the
// precomputed quadratic forms q_v = B[v,:]·Σ·B[v,:]ᵀ.
type Store struct {
	b     *matrix.Dense // V×K basis rows of the selected voxels
	g     *mat.Dense    // gonum view sharing b's storage
	sigma *mat.SymDense // leading K×K block of the inner-product matrix
	diag  []float64     // Σ_jj, j < K
	quad  []float64     // q_v for every selected voxel
	ids   []int         // 1-based voxel ids in the original basis
	k     int           // retained components
	total int           // components available in the inputs
	block int           // voxel rows per block
}

// New validates the inputs and builds a Store that retains the first k
// components.
//
// Stages:
//  1. Validate: non-nil inputs, square inner-product matrix, equal component
//     counts, 0 < k ≤ components. Entries are finite by construction of
//     matrix.Dense.
//  2. Slice: B to its first k columns (and the selected voxel rows), Σ to its
//     leading k×k block. k equal to the component count keeps full matrices.
//  3. Check Σ_K symmetric within eps and PSD (smallest eigenvalue ≥ -eps·max(1, λmax)).
//  4. Precompute q_v block by block.
func New(bases, inner *matrix.Dense, k int, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, set := range opts {
		set(&o)
	}

	// Stage 1: structure.
	if bases == nil || inner == nil {
		return nil, ErrNilInput
	}
	if inner.Rows() != inner.Cols() {
		return nil, fmt.Errorf("inner-product matrix is %dx%d: %w", inner.Rows(), inner.Cols(), ErrDimensionMismatch)
	}
	if bases.Cols() != inner.Rows() {
		return nil, fmt.Errorf("basis has %d components, inner-product matrix has %d: %w",
			bases.Cols(), inner.Rows(), ErrDimensionMismatch)
	}
	if k <= 0 || k > bases.Cols() {
		return nil, fmt.Errorf("n-ldrs %d outside 1..%d: %w", k, bases.Cols(), ErrDimensionMismatch)
	}

	// Stage 2: slicing.
	ids, err := voxelIDs(o.voxels, bases.Rows())
	if err != nil {
		return nil, err
	}
	b, err := sliceBasis(bases, k, o.voxels, ids)
	if err != nil {
		return nil, err
	}
	innerK, err := inner.LeadingBlock(k, k)
	if err != nil {
		return nil, fmt.Errorf("inner-product matrix: %w", err)
	}

	// Stage 3: symmetry and PSD.
	sigma, err := innerK.SymGonum(o.eps)
	if err != nil {
		return nil, fmt.Errorf("inner-product matrix: %w", err)
	}
	if err := checkPSD(sigma, o.eps); err != nil {
		return nil, err
	}

	s := &Store{
		b:     b,
		g:     b.Gonum(),
		sigma: sigma,
		diag:  make([]float64, k),
		ids:   ids,
		k:     k,
		total: bases.Cols(),
		block: o.blockSize,
	}
	for j := 0; j < k; j++ {
		s.diag[j] = sigma.At(j, j)
	}

	// Stage 4: quadratic forms.
	s.quad = s.quadForms()

	return s, nil
}

// voxelIDs resolves the 1-based ids of the selected rows.
func voxelIDs(sel []int, v int) ([]int, error) {
	if sel == nil {
		ids := make([]int, v)
		for i := range ids {
			ids[i] = i + 1
		}

		return ids, nil
	}
	if len(sel) == 0 {
		return nil, fmt.Errorf("empty voxel selection: %w", ErrVoxelIndex)
	}
	seen := make(map[int]struct{}, len(sel))
	for _, id := range sel {
		if id < 1 || id > v {
			return nil, fmt.Errorf("voxel %d outside 1..%d: %w", id, v, ErrVoxelIndex)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("voxel %d selected twice: %w", id, ErrVoxelIndex)
		}
		seen[id] = struct{}{}
	}

	return append([]int(nil), sel...), nil
}

// sliceBasis keeps the selected rows and the first k columns. The full
// matrix is shared, not copied, when nothing is dropped.
func sliceBasis(bases *matrix.Dense, k int, sel, ids []int) (*matrix.Dense, error) {
	if sel == nil && k == bases.Cols() {
		return bases, nil
	}
	if sel == nil {
		b, err := bases.LeadingBlock(bases.Rows(), k)
		if err != nil {
			return nil, fmt.Errorf("basis: %w", err)
		}

		return b, nil
	}
	rows := make([]int, len(ids))
	for i, id := range ids {
		rows[i] = id - 1
	}
	cols := make([]int, k)
	for j := range cols {
		cols[j] = j
	}
	b, err := bases.Induced(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("basis: %w", err)
	}

	return b, nil
}

// checkPSD rejects Σ with an eigenvalue below -eps·max(1, λmax).
func checkPSD(sigma *mat.SymDense, eps float64) error {
	var eig mat.EigenSym
	if ok := eig.Factorize(sigma, false); !ok {
		return fmt.Errorf("eigen decomposition failed: %w", ErrNotPSD)
	}
	vals := eig.Values(nil)
	lo, hi := floats.Min(vals), floats.Max(vals)
	if lo < -eps*math.Max(1, hi) {
		return fmt.Errorf("smallest eigenvalue %g: %w", lo, ErrNotPSD)
	}

	return nil
}

// quadForms computes q_v for all voxels in row blocks of s.block:
// P = B_blk·Σ, then q_v = P[v,:]·B[v,:].
func (s *Store) quadForms() []float64 {
	v := s.b.Rows()
	out := make([]float64, v)
	n := s.block
	if n > v {
		n = v
	}
	buf := mat.NewDense(n, s.k, nil)
	for i0 := 0; i0 < v; i0 += n {
		i1 := i0 + n
		if i1 > v {
			i1 = v
		}
		blk := s.Block(i0, i1)
		p := buf.Slice(0, i1-i0, 0, s.k).(*mat.Dense)
		p.Mul(blk, s.sigma)
		for r := 0; r < i1-i0; r++ {
			out[i0+r] = floats.Dot(p.RawRowView(r), blk.RawRowView(r))
		}
	}

	return out
}

// K returns the number of retained components.
func (s *Store) K() int { return s.k }

// Components returns the number of components available in the inputs.
func (s *Store) Components() int { return s.total }

// V returns the number of selected voxels.
func (s *Store) V() int { return s.b.Rows() }

// BlockSize returns the configured voxel rows per block.
func (s *Store) BlockSize() int { return s.block }

// VoxelID returns the 1-based id of voxel position i.
func (s *Store) VoxelID(i int) int { return s.ids[i] }

// Quad returns q_i = B[i,:]·Σ·B[i,:]ᵀ.
func (s *Store) Quad(i int) float64 { return s.quad[i] }

// SigmaDiag returns Σ_jj.
func (s *Store) SigmaDiag(j int) float64 { return s.diag[j] }

// Sigma returns Σ_K. Callers must not modify it.
func (s *Store) Sigma() *mat.SymDense { return s.sigma }

// Row returns basis row i without copying. Panics if i is out of range.
func (s *Store) Row(i int) []float64 { return s.g.RawRowView(i) }

// Block returns voxel rows [i0, i1) as a gonum view sharing storage.
// Panics if the range is out of bounds.
func (s *Store) Block(i0, i1 int) *mat.Dense {
	return s.g.Slice(i0, i1, 0, s.k).(*mat.Dense)
}

// Bases returns the retained basis as a matrix.Dense. Callers must not modify it.
func (s *Store) Bases() *matrix.Dense { return s.b }
