// SPDX-License-Identifier: MIT

// Package matrix holds the dense inputs of voxelgwas: the V×K basis and the
// K×K LDR inner-product matrix.
//
// A Dense adopts its buffer without copying, rejects NaN/±Inf once at
// construction and is read-only from then on. Induced and LeadingBlock copy
// the voxel subset and the first K components; Gonum and SymGonum hand the
// result to gonum for the blocked products in package basis.
//
// Errors are sentinels wrapped with the failing call and matched with
// errors.Is. No routine panics on bad input.
package matrix
