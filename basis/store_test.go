package basis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/voxelgwas/basis"
	"github.com/katalvlaran/voxelgwas/matrix"
)

func dense(t *testing.T, r, c int, data ...float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(r, c, data)
	require.NoError(t, err)

	return m
}

// fixture returns a 5×3 basis and a 3×3 correlated inner-product matrix.
func fixture(t *testing.T) (*matrix.Dense, *matrix.Dense) {
	b := dense(t, 5, 3,
		1, 0, 0.5,
		0, 1, -1,
		1, 1, 0,
		2, -1, 0.25,
		-0.5, 0.3, 2,
	)
	s := dense(t, 3, 3,
		2, 0.4, 0.1,
		0.4, 1, -0.2,
		0.1, -0.2, 0.5,
	)

	return b, s
}

func TestNewRejectsDimensionMismatch(t *testing.T) {
	b, s := fixture(t)

	cases := map[string]struct {
		bases, inner *matrix.Dense
		k            int
	}{
		"k too large":        {b, s, 4},
		"k zero":             {b, s, 0},
		"non-square inner":   {b, dense(t, 3, 2, 1, 0, 0, 1, 0, 0), 2},
		"component mismatch": {b, dense(t, 2, 2, 1, 0, 0, 1), 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := basis.New(tc.bases, tc.inner, tc.k)
			require.ErrorIs(t, err, basis.ErrDimensionMismatch)
		})
	}

	_, err := basis.New(nil, s, 1)
	require.ErrorIs(t, err, basis.ErrNilInput)
}

func TestNewRejectsAsymmetricAndIndefinite(t *testing.T) {
	b, _ := fixture(t)

	asym := dense(t, 3, 3, 1, 0.5, 0, 0, 1, 0, 0, 0, 1)
	_, err := basis.New(b, asym, 3)
	require.ErrorIs(t, err, matrix.ErrAsymmetry)

	// eigenvalues 3 and -1
	indef := dense(t, 3, 3, 1, 2, 0, 2, 1, 0, 0, 0, 1)
	_, err = basis.New(b, indef, 3)
	require.ErrorIs(t, err, basis.ErrNotPSD)

	// the indefinite part lies outside the leading 1×1 block
	_, err = basis.New(b, indef, 1)
	require.NoError(t, err)
}

// bruteQuad evaluates Σ_ab B[v,a]·Σ[a,b]·B[v,b] over the first k components
// with plain loops.
func bruteQuad(t *testing.T, b, s *matrix.Dense, k int) []float64 {
	t.Helper()
	q := make([]float64, b.Rows())
	for v := range q {
		for a := 0; a < k; a++ {
			for c := 0; c < k; c++ {
				ba, err := b.At(v, a)
				require.NoError(t, err)
				bc, err := b.At(v, c)
				require.NoError(t, err)
				sac, err := s.At(a, c)
				require.NoError(t, err)
				q[v] += ba * sac * bc
			}
		}
	}

	return q
}

// TestQuadMatchesBruteForce compares blocked q_v against diag(B Σ Bᵀ).
func TestQuadMatchesBruteForce(t *testing.T) {
	b, s := fixture(t)
	for _, k := range []int{1, 2, 3} {
		for _, blk := range []int{1, 2, 64} {
			store, err := basis.New(b, s, k, basis.WithBlockSize(blk))
			require.NoError(t, err)

			want := bruteQuad(t, b, s, k)

			require.Equal(t, k, store.K())
			require.Equal(t, 3, store.Components())
			for v := 0; v < store.V(); v++ {
				require.InDelta(t, want[v], store.Quad(v), 1e-12, "k=%d block=%d voxel=%d", k, blk, v)
			}
		}
	}
}

// TestFullRankIsNoOp checks k == components reproduces the full matrices.
func TestFullRankIsNoOp(t *testing.T) {
	b, s := fixture(t)
	store, err := basis.New(b, s, 3)
	require.NoError(t, err)

	require.Same(t, b, store.Bases())
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			want, _ := s.At(i, j)
			require.Equal(t, want, store.Sigma().At(i, j))
		}
	}
}

func TestVoxelSelection(t *testing.T) {
	b, s := fixture(t)
	store, err := basis.New(b, s, 2, basis.WithVoxels([]int{4, 2}))
	require.NoError(t, err)

	require.Equal(t, 2, store.V())
	require.Equal(t, 4, store.VoxelID(0))
	require.Equal(t, 2, store.VoxelID(1))
	require.Equal(t, []float64{2, -1}, store.Row(0))
	require.Equal(t, []float64{0, 1}, store.Row(1))

	require.Equal(t, "[2, -1]\n[0, 1]\n", store.Bases().String())

	_, err = basis.New(b, s, 2, basis.WithVoxels([]int{6}))
	require.ErrorIs(t, err, basis.ErrVoxelIndex)
	_, err = basis.New(b, s, 2, basis.WithVoxels([]int{1, 1}))
	require.ErrorIs(t, err, basis.ErrVoxelIndex)
	_, err = basis.New(b, s, 2, basis.WithVoxels([]int{}))
	require.ErrorIs(t, err, basis.ErrVoxelIndex)
}

func TestOptionPanics(t *testing.T) {
	require.Panics(t, func() { basis.WithBlockSize(0) })
	require.Panics(t, func() { basis.WithEpsilon(-1) })
}
