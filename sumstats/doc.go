// Package sumstats defines the LDR summary-statistics stream consumed by the
// recovery engine and a text implementation of it.
//
// A Stream yields one Record per SNP, forward only, and is read exactly once.
// Each Record carries passthrough annotation (SNP, CHR, POS, A1, A2), the
// sample size N and one effect and one standard error per LDR, in the
// component order of the basis matrix.
//
// The text format is whitespace-delimited with a header line. Column names
// are described by an explicit Schema that is validated once against the
// header; per-record parsing never looks names up again.
//
//	SNP CHR POS A1 A2 N BETA1 BETA2 ... SE1 SE2 ...
//
// QC wraps any Stream and drops SNPs with the single-pass pruning rules of
// summary-statistics preprocessing (non-finite values, strand-ambiguous or non-SNP
// alleles, MAF/INFO/N minima, extract lists and position ranges), counting
// every drop by reason.
package sumstats
