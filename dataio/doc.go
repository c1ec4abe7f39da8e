// Package dataio opens plain or compressed text inputs and outputs and
// parses the dense whitespace-delimited matrices (basis, LDR inner product)
// and voxel index lists consumed by voxelgwas.
//
// Compression is chosen by file extension: ".gz" (gzip) and ".zst" (zstd)
// use klauspost/compress, ".bz2" is read-only.
package dataio
