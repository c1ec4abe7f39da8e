package recovery

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/voxelgwas/basis"
	"github.com/katalvlaran/voxelgwas/sumstats"
)

// ErrMalformedRecord reports a record the engine cannot use. The caller
// skips it and counts it.
var ErrMalformedRecord = errors.New("recovery: malformed record")

// ErrNilStore is returned by NewEngine without a BasisStore.
var ErrNilStore = errors.New("recovery: nil basis store")

// VoxelResult is one recovered voxel statistic.
type VoxelResult struct {
	Pos   int // position in the store, 0-based
	Voxel int // 1-based voxel id
	Beta  float64
	SE    float64
	Z     float64
	P     float64
}

// Stats counts per-record outcomes.
type Stats struct {
	Voxels  int // voxels with valid statistics
	Invalid int // voxels excluded for non-positive or non-finite variance
}

// Engine holds the immutable recovery configuration.
type Engine struct {
	store *basis.Store
	opt   options
	block int
}

// NewEngine builds an Engine over store.
func NewEngine(store *basis.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	block := o.block
	if block == 0 {
		block = store.BlockSize()
	}
	if block > store.V() {
		block = store.V()
	}

	return &Engine{store: store, opt: o, block: block}, nil
}

// Store returns the engine's BasisStore.
func (e *Engine) Store() *basis.Store { return e.store }

// Model returns the configured variance model.
func (e *Engine) Model() VarianceModel { return e.opt.model }

// Distribution returns the configured reference distribution.
func (e *Engine) Distribution() Distribution { return e.opt.dist }

// NewWorker returns a Worker with its own scratch buffers.
func (e *Engine) NewWorker() *Worker {
	w := &Worker{
		e:   e,
		eff: make([]float64, e.block),
		bv:  make([]float64, e.store.K()),
	}
	w.beta.SetRawVector(unitVec(w.bv))

	return w
}

// Worker recovers records one at a time. Not safe for concurrent use.
type Worker struct {
	e    *Engine
	eff  []float64 // effects of one voxel block
	bv   []float64 // β truncated to K
	beta mat.VecDense
	effv mat.VecDense // over eff[:block length]
	row  mat.VecDense // repointed at B[v,:] for the explicit-covariance path
}

func unitVec(data []float64) blas64.Vector {
	return blas64.Vector{N: len(data), Inc: 1, Data: data}
}

// prepared holds the per-record quantities shared by every voxel.
type prepared struct {
	scale float64 // Scaled: c; InnerProduct: z
	df    float64
	t     distuv.StudentsT
}

// Recover computes statistics for every voxel of rec in store order and
// passes the valid ones to visit. The VoxelResult is only valid during the
// call.
//
// Stages:
//  1. Validate the record and derive the per-record scale and df.
//  2. For each voxel block, effect = B_blk·β (one gonum MulVec).
//  3. Per voxel, variance, z and p; non-positive variance is counted and skipped.
//
// Complexity: O(V·K) time. Scratch space is owned by the Worker, so the
// per-voxel loop does not allocate.
func (w *Worker) Recover(rec *sumstats.Record, visit func(VoxelResult)) (Stats, error) {
	var st Stats
	p, err := w.prepare(rec)
	if err != nil {
		return st, err
	}

	s := w.e.store
	for i0 := 0; i0 < s.V(); i0 += w.e.block {
		i1 := min(i0+w.e.block, s.V())
		w.effv.SetRawVector(unitVec(w.eff[:i1-i0]))
		w.effv.MulVec(s.Block(i0, i1), &w.beta)

		for i := i0; i < i1; i++ {
			b := w.eff[i-i0]
			v := w.variance(rec, &p, i, b)
			if !(v > 0) || math.IsInf(v, 0) {
				st.Invalid++
				continue
			}
			se := math.Sqrt(v)
			z := b / se
			visit(VoxelResult{
				Pos:   i,
				Voxel: s.VoxelID(i),
				Beta:  b,
				SE:    se,
				Z:     z,
				P:     w.e.pvalue(&p, z),
			})
			st.Voxels++
		}
	}

	return st, nil
}

func (w *Worker) variance(rec *sumstats.Record, p *prepared, i int, eff float64) float64 {
	s := w.e.store
	if rec.Cov != nil {
		w.row.SetRawVector(unitVec(s.Row(i)))

		return mat.Inner(&w.row, rec.Cov, &w.row)
	}
	switch w.e.opt.model {
	case InnerProduct:
		return (s.Quad(i)*p.scale - eff*eff) / p.df
	default:
		return p.scale * s.Quad(i)
	}
}

// pvalue is the two-sided upper tail of |z|.
func (e *Engine) pvalue(p *prepared, z float64) float64 {
	az := math.Abs(z)
	if e.opt.dist == StudentT {
		return 2 * p.t.Survival(az)
	}

	return 2 * distuv.UnitNormal.Survival(az)
}

// prepare validates rec against the engine and fills the Worker's β buffer.
func (w *Worker) prepare(rec *sumstats.Record) (prepared, error) {
	var p prepared
	if rec == nil {
		return p, fmt.Errorf("nil record: %w", ErrMalformedRecord)
	}
	s := w.e.store
	k := s.K()
	o := w.e.opt

	if len(rec.Beta) < k {
		return p, fmt.Errorf("%s: %d effects, need %d: %w", rec.SNP, len(rec.Beta), k, ErrMalformedRecord)
	}
	copy(w.bv, rec.Beta[:k])
	if !allFinite(w.bv) {
		return p, fmt.Errorf("%s: non-finite effect: %w", rec.SNP, ErrMalformedRecord)
	}

	needDF := o.dist == StudentT || (o.model == InnerProduct && rec.Cov == nil)
	if needDF {
		if !(rec.N > 0) || math.IsInf(rec.N, 0) {
			return p, fmt.Errorf("%s: sample size %g: %w", rec.SNP, rec.N, ErrMalformedRecord)
		}
		p.df = rec.N - float64(o.covariates+1)
		if !(p.df > 0) {
			return p, fmt.Errorf("%s: %g degrees of freedom: %w", rec.SNP, p.df, ErrMalformedRecord)
		}
		p.t = distuv.StudentsT{Mu: 0, Sigma: 1, Nu: p.df}
	}

	switch {
	case rec.Cov != nil:
		if r, c := rec.Cov.Dims(); r != k || c != k {
			return p, fmt.Errorf("%s: covariance %dx%d, need %dx%d: %w", rec.SNP, r, c, k, k, ErrMalformedRecord)
		}
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				if v := rec.Cov.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
					return p, fmt.Errorf("%s: non-finite covariance: %w", rec.SNP, ErrMalformedRecord)
				}
			}
		}
	case o.model == Scaled && rec.Scale != 0:
		if !(rec.Scale > 0) || math.IsInf(rec.Scale, 0) {
			return p, fmt.Errorf("%s: scale %g: %w", rec.SNP, rec.Scale, ErrMalformedRecord)
		}
		p.scale = rec.Scale
	default:
		if len(rec.SE) < k {
			return p, fmt.Errorf("%s: %d standard errors, need %d: %w", rec.SNP, len(rec.SE), k, ErrMalformedRecord)
		}
		se := rec.SE[:k]
		if !allFinite(se) {
			return p, fmt.Errorf("%s: non-finite standard error: %w", rec.SNP, ErrMalformedRecord)
		}
		p.scale = w.e.seScale(se, w.bv, p.df)
	}

	return p, nil
}

// seScale averages the per-component scale over components with Σ_jj > 0.
// It returns 0 when no component qualifies, which makes every voxel invalid.
func (e *Engine) seScale(se, beta []float64, df float64) float64 {
	var sum float64
	n := 0
	for j, sj := range se {
		d := e.store.SigmaDiag(j)
		if !(d > 0) {
			continue
		}
		if e.opt.model == InnerProduct {
			sum += (df*sj*sj + beta[j]*beta[j]) / d
		} else {
			sum += sj * sj / d
		}
		n++
	}
	if n == 0 {
		return 0
	}

	return sum / float64(n)
}

func allFinite(v []float64) bool {
	if floats.HasNaN(v) {
		return false
	}
	for _, x := range v {
		if math.IsInf(x, 0) {
			return false
		}
	}

	return true
}
