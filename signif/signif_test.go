package signif_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/voxelgwas/recovery"
	"github.com/katalvlaran/voxelgwas/signif"
)

func run(t *testing.T, f *signif.Filter, ps ...float64) []int {
	t.Helper()
	var got []int
	s := f.NewSelector()
	s.Begin(func(r recovery.VoxelResult) { got = append(got, r.Voxel) })
	for i, p := range ps {
		s.Offer(recovery.VoxelResult{Pos: i, Voxel: i + 1, P: p})
	}
	s.Finish()

	return got
}

// p-values of the 4×2 literal scenario
var literalP = []float64{0.617075, 0.841481, 0.832, 0.59148}

func TestPolicies(t *testing.T) {
	cases := []struct {
		policy signif.Policy
		tau    float64
		want   []int
	}{
		{signif.All, 0.3, nil},
		{signif.All, 0.62, []int{1, 4}},
		{signif.Best, 0.62, []int{4}},
		{signif.Ranked, 0.62, []int{4, 1}},
		{signif.Ranked, 1, []int{4, 1, 3, 2}},
		{signif.Best, 0.3, nil},
	}
	for _, tc := range cases {
		t.Run(tc.policy.String(), func(t *testing.T) {
			f, err := signif.NewFilter(tc.tau, tc.policy)
			require.NoError(t, err)
			require.Equal(t, tc.want, run(t, f, literalP...))
		})
	}
}

func TestThresholdInclusiveBoundary(t *testing.T) {
	p := 1.234e-10
	f, err := signif.NewFilter(p, signif.All)
	require.NoError(t, err)
	require.Equal(t, []int{1}, run(t, f, p))

	f, err = signif.NewFilter(math.Nextafter(p, 0), signif.All)
	require.NoError(t, err)
	require.Empty(t, run(t, f, p))
}

func TestTiesAreStable(t *testing.T) {
	f, err := signif.NewFilter(0.5, signif.Best)
	require.NoError(t, err)
	require.Equal(t, []int{2}, run(t, f, 0.3, 0.1, 0.2, 0.1))

	f, err = signif.NewFilter(0.5, signif.Ranked)
	require.NoError(t, err)
	require.Equal(t, []int{2, 4, 3, 1}, run(t, f, 0.3, 0.1, 0.2, 0.1))
}

func TestSelectorReuse(t *testing.T) {
	f, err := signif.NewFilter(0.5, signif.Ranked)
	require.NoError(t, err)
	s := f.NewSelector()

	var got []int
	emit := func(r recovery.VoxelResult) { got = append(got, r.Voxel) }
	s.Begin(emit)
	s.Offer(recovery.VoxelResult{Voxel: 1, P: 0.2})
	s.Finish()
	s.Begin(emit)
	s.Offer(recovery.VoxelResult{Voxel: 7, P: 0.9})
	s.Finish()
	require.Equal(t, []int{1}, got)
}

func TestNewFilterValidation(t *testing.T) {
	for _, tau := range []float64{0, -1, 1.0000001, math.NaN()} {
		_, err := signif.NewFilter(tau, signif.All)
		require.ErrorIs(t, err, signif.ErrThreshold)
	}
	_, err := signif.NewFilter(1, signif.All)
	require.NoError(t, err)
	_, err = signif.NewFilter(0.1, signif.Policy(9))
	require.Error(t, err)

	p, err := signif.ParsePolicy("RANKED")
	require.NoError(t, err)
	require.Equal(t, signif.Ranked, p)
	_, err = signif.ParsePolicy("top")
	require.Error(t, err)
}
