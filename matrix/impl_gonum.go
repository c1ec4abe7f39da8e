// SPDX-License-Identifier: MIT

// Package matrix - gonum views.
//
// mat.NewDense adopts the slice it is given, so Gonum aliases the receiver.
// Treat the result as read-only.

package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultEpsilon is the symmetry tolerance used when callers have no
// better value.
const DefaultEpsilon = 1e-9

// Gonum returns a *mat.Dense over the receiver's storage.
func (m *Dense) Gonum() *mat.Dense {
	return mat.NewDense(m.r, m.c, m.data)
}

// SymGonum copies a square matrix into a *mat.SymDense once every
// off-diagonal pair agrees within eps. The upper triangle wins.
//
// Errors:
//   - ErrDimensionMismatch for a non-square receiver.
//   - ErrNaNInf for a non-finite eps.
//   - ErrAsymmetry naming the first offending pair.
func (m *Dense) SymGonum(eps float64) (*mat.SymDense, error) {
	if m.r != m.c {
		return nil, fmt.Errorf("Dense.SymGonum: %dx%d: %w", m.r, m.c, ErrDimensionMismatch)
	}
	if math.IsNaN(eps) || math.IsInf(eps, 0) {
		return nil, fmt.Errorf("Dense.SymGonum: eps %g: %w", eps, ErrNaNInf)
	}
	eps = math.Abs(eps)

	n := m.r
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			upper, lower := m.data[i*n+j], m.data[j*n+i]
			if math.Abs(upper-lower) > eps {
				return nil, fmt.Errorf("Dense.SymGonum: (%d,%d)=%g vs (%d,%d)=%g: %w",
					i, j, upper, j, i, lower, ErrAsymmetry)
			}
			sym.SetSym(i, j, upper)
		}
	}

	return sym, nil
}
