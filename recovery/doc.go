// Package recovery expands LDR summary statistics into voxel-level
// association statistics.
//
// For one SNP with LDR effects β (length K) the engine computes, for every
// voxel v of the BasisStore:
//
//	effect(v) = B[v,:]·β
//	var(v)    = variance model (see VarianceModel)
//	z(v)      = effect(v) / sqrt(var(v))
//	p(v)      = two-sided upper tail of N(0,1) or Student t(df)
//
// Tails are evaluated with Survival functions, never as 1 − CDF, so p-values
// far below 1e-10 keep their precision.
//
// A voxel whose variance is not strictly positive and finite is excluded and
// counted; the engine never reports NaN or infinite statistics. A record whose
// inputs cannot produce statistics at all fails with ErrMalformedRecord.
//
// An Engine is immutable and shared by all workers. Each goroutine owns a
// Worker holding its scratch buffers.
package recovery
