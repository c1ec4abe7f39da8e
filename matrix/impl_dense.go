// SPDX-License-Identifier: MIT

// Package matrix - row-major storage for basis and inner-product inputs.
//
// A Dense is always finite: NewDenseFrom scans the adopted buffer once and
// the type exposes no setters, so downstream code never re-checks entries.
// Submatrices (Induced, LeadingBlock) are copies; Gonum is a shared view.

package matrix

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dense is an immutable r×c matrix stored row-major (offset i*c + j).
type Dense struct {
	r, c int
	data []float64
}

var _ fmt.Stringer = (*Dense)(nil)

// NewDenseFrom takes ownership of data, which holds rows*cols entries in
// row-major order. The caller must not write to data afterwards.
//
// Errors:
//   - ErrInvalidDimensions for rows or cols ≤ 0.
//   - ErrDimensionMismatch when len(data) != rows*cols.
//   - ErrNaNInf naming the first non-finite cell.
func NewDenseFrom(rows, cols int, data []float64) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("NewDenseFrom(%d,%d): %w", rows, cols, ErrInvalidDimensions)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("NewDenseFrom(%d,%d): %d values: %w", rows, cols, len(data), ErrDimensionMismatch)
	}
	for off, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("NewDenseFrom: cell (%d,%d) = %g: %w", off/cols, off%cols, v, ErrNaNInf)
		}
	}

	return &Dense{r: rows, c: cols, data: data}, nil
}

// alloc returns a zeroed rows×cols matrix; callers have validated the shape.
func alloc(rows, cols int) *Dense {
	return &Dense{r: rows, c: cols, data: make([]float64, rows*cols)}
}

// Rows returns the row count.
func (m *Dense) Rows() int { return m.r }

// Cols returns the column count.
func (m *Dense) Cols() int { return m.c }

// At returns entry (i, j) or ErrOutOfRange.
func (m *Dense) At(i, j int) (float64, error) {
	if i < 0 || i >= m.r || j < 0 || j >= m.c {
		return 0, fmt.Errorf("Dense.At(%d,%d) of %dx%d: %w", i, j, m.r, m.c, ErrOutOfRange)
	}

	return m.data[i*m.c+j], nil
}

// String prints one bracketed row per line, e.g. "[1, 2]\n[3, 4]\n".
func (m *Dense) String() string {
	var sb strings.Builder
	for i := 0; i < m.r; i++ {
		row := m.data[i*m.c : (i+1)*m.c]
		sb.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		sb.WriteString("]\n")
	}

	return sb.String()
}

// Induced copies the entries at rows × cols, keeping the given order.
// Used to select voxel rows and truncate components in one pass.
func (m *Dense) Induced(rows, cols []int) (*Dense, error) {
	if len(rows) == 0 || len(cols) == 0 {
		return nil, fmt.Errorf("Dense.Induced: %d rows, %d cols: %w", len(rows), len(cols), ErrInvalidDimensions)
	}
	for _, j := range cols {
		if j < 0 || j >= m.c {
			return nil, fmt.Errorf("Dense.Induced: column %d of %d: %w", j, m.c, ErrOutOfRange)
		}
	}
	out := alloc(len(rows), len(cols))
	for oi, i := range rows {
		if i < 0 || i >= m.r {
			return nil, fmt.Errorf("Dense.Induced: row %d of %d: %w", i, m.r, ErrOutOfRange)
		}
		src := m.data[i*m.c : (i+1)*m.c]
		dst := out.data[oi*out.c : (oi+1)*out.c]
		for oj, j := range cols {
			dst[oj] = src[j]
		}
	}

	return out, nil
}

// LeadingBlock copies the top-left rows×cols block. Asking for the full
// shape still copies.
func (m *Dense) LeadingBlock(rows, cols int) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("Dense.LeadingBlock(%d,%d): %w", rows, cols, ErrInvalidDimensions)
	}
	if rows > m.r || cols > m.c {
		return nil, fmt.Errorf("Dense.LeadingBlock(%d,%d) of %dx%d: %w", rows, cols, m.r, m.c, ErrDimensionMismatch)
	}
	out := alloc(rows, cols)
	for i := 0; i < rows; i++ {
		copy(out.data[i*cols:(i+1)*cols], m.data[i*m.c:])
	}

	return out, nil
}
