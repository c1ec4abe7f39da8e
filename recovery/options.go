package recovery

import (
	"fmt"
	"strings"
)

// VarianceModel selects how var(v) is obtained from a record.
type VarianceModel int

const (
	// Scaled assumes Cov(β) = c·Σ: var(v) = c·q_v. c is the record's Scale,
	// or mean_j(se_j²/Σ_jj) when Scale is zero.
	Scaled VarianceModel = iota
	// InnerProduct is the residual-based recovery used with inner products
	// of unnormalized LDRs:
	//   z = mean_j((df·se_j² + β_j²)/Σ_jj)
	//   var(v) = (q_v·z − effect(v)²)/df
	InnerProduct
)

func (m VarianceModel) String() string {
	switch m {
	case Scaled:
		return "scaled"
	case InnerProduct:
		return "inner-product"
	default:
		return fmt.Sprintf("VarianceModel(%d)", int(m))
	}
}

// ParseVarianceModel accepts the String forms.
func ParseVarianceModel(s string) (VarianceModel, error) {
	switch strings.ToLower(s) {
	case "scaled":
		return Scaled, nil
	case "inner-product", "inner_product":
		return InnerProduct, nil
	default:
		return 0, fmt.Errorf("recovery: unknown variance model %q", s)
	}
}

// Distribution selects the reference distribution of z.
type Distribution int

const (
	Normal Distribution = iota
	StudentT
)

func (d Distribution) String() string {
	switch d {
	case Normal:
		return "normal"
	case StudentT:
		return "t"
	default:
		return fmt.Sprintf("Distribution(%d)", int(d))
	}
}

// ParseDistribution accepts "normal" and "t".
func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(s) {
	case "normal", "z":
		return Normal, nil
	case "t", "student-t", "studentt":
		return StudentT, nil
	default:
		return 0, fmt.Errorf("recovery: unknown distribution %q", s)
	}
}

// DefaultCovariates is the number of covariates besides the intercept
// assumed when computing df = N − (covariates + 1).
const DefaultCovariates = 1

// Option configures NewEngine.
type Option func(*options)

type options struct {
	model      VarianceModel
	dist       Distribution
	covariates int
	block      int
}

func defaultOptions() options {
	return options{model: Scaled, dist: Normal, covariates: DefaultCovariates}
}

// WithVarianceModel selects the variance model. Panics on unknown values.
func WithVarianceModel(m VarianceModel) Option {
	if m != Scaled && m != InnerProduct {
		panic(fmt.Sprintf("recovery: WithVarianceModel(%d): unknown model", int(m)))
	}

	return func(o *options) { o.model = m }
}

// WithDistribution selects the reference distribution. Panics on unknown values.
func WithDistribution(d Distribution) Option {
	if d != Normal && d != StudentT {
		panic(fmt.Sprintf("recovery: WithDistribution(%d): unknown distribution", int(d)))
	}

	return func(o *options) { o.dist = d }
}

// WithCovariates sets the covariate count used for degrees of freedom.
// Panics on negative values.
func WithCovariates(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("recovery: WithCovariates(%d): must be ≥ 0", n))
	}

	return func(o *options) { o.covariates = n }
}

// WithVoxelBlockSize sets voxel rows per effect block. Zero uses the store's
// block size. Panics on negative values.
func WithVoxelBlockSize(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("recovery: WithVoxelBlockSize(%d): must be ≥ 0", n))
	}

	return func(o *options) { o.block = n }
}
