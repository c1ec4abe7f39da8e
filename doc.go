// Package voxelgwas recovers voxel-level GWAS summary statistics for an
// imaging phenotype from GWAS results on its low-dimensional representations
// (LDRs), and reports only the voxels that cross a significance threshold.
//
// For a SNP with LDR effects β and a basis B (voxels × LDRs):
//
//	effect(v) = B[v,:]·β
//	var(v)    = c·B[v,:] Σ B[v,:]ᵀ   (or the inner-product model)
//	p(v)      = two-sided tail of effect(v)/sqrt(var(v))
//
// The full voxel × SNP table is never materialized; SNPs stream through a
// worker pool and only significant rows reach the output.
//
// Packages, leaf first:
//
//	matrix/     dense row-major storage, validators, gonum bridge
//	basis/      BasisStore: truncated B and Σ, precomputed quadratic forms
//	dataio/     compressed files, text matrices and index lists
//	sumstats/   LDR summary-statistics stream, schema, reader, QC
//	recovery/   RecoveryEngine: effect, variance, z and p per voxel
//	signif/     SignificanceFilter: inclusive threshold, all/best/ranked
//	sink/       ResultSink: atomic TSV file, in-memory
//	pipeline/   reader, worker pool and ordered writer
//	config/     YAML configuration and validation
//	metrics/    Prometheus run counters
//	cmd/voxelgwas  command-line entry point
package voxelgwas
