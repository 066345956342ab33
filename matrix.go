// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Matrix is a strided, non-owning view over a float64 slice.
//
// Element (i, j) lives at Data[i*RowStride + j*ColStride]. The view never
// owns its storage: the caller owns Data for the lifetime of any call that
// uses the view, and mutating an element through one view mutates every
// view sharing the same backing slice.
//
// RowStride and ColStride are independent, so transposed and rectangular
// sub-matrix views cost nothing (see T and Slice).
type Matrix struct {
	Data       []float64
	Rows, Cols int

	// RowStride is the distance in Data between vertically adjacent
	// elements; ColStride between horizontally adjacent ones.
	RowStride, ColStride int
}

// FromFlatData wraps a caller-owned row-major slice as a rows x cols view.
// It returns an error if the dimensions are not positive or data cannot
// hold rows*cols elements. The slice is referenced, not copied.
func FromFlatData(data []float64, rows, cols int) (Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return Matrix{}, errors.Errorf("gemm.FromFlatData: invalid dimensions %dx%d, both must be positive", rows, cols)
	}
	if len(data) < rows*cols {
		return Matrix{}, errors.Errorf("gemm.FromFlatData: data holds %d values, %dx%d requires %d", len(data), rows, cols, rows*cols)
	}
	return Matrix{Data: data, Rows: rows, Cols: cols, RowStride: cols, ColStride: 1}, nil
}

// NewMatrix returns a zeroed rows x cols matrix backed by a freshly
// allocated row-major slice. It panics if a dimension is not positive,
// since that is a programming error rather than a data-dependent one.
func NewMatrix(rows, cols int) Matrix {
	if rows <= 0 || cols <= 0 {
		exceptions.Panicf("gemm.NewMatrix: invalid dimensions %dx%d, both must be positive", rows, cols)
	}
	return Matrix{
		Data:      make([]float64, rows*cols),
		Rows:      rows,
		Cols:      cols,
		RowStride: cols,
		ColStride: 1,
	}
}

// At returns element (i, j). It panics if the indices are out of bounds.
func (m Matrix) At(i, j int) float64 {
	if i < 0 || i >= m.Rows || j < 0 || j >= m.Cols {
		exceptions.Panicf("gemm: Matrix.At(%d, %d) out of bounds for %dx%d matrix", i, j, m.Rows, m.Cols)
	}
	return m.Data[i*m.RowStride+j*m.ColStride]
}

// Set assigns element (i, j). It panics if the indices are out of bounds.
func (m Matrix) Set(i, j int, v float64) {
	if i < 0 || i >= m.Rows || j < 0 || j >= m.Cols {
		exceptions.Panicf("gemm: Matrix.Set(%d, %d) out of bounds for %dx%d matrix", i, j, m.Rows, m.Cols)
	}
	m.Data[i*m.RowStride+j*m.ColStride] = v
}

// IsContiguousRows reports whether each row occupies consecutive slice
// positions, the layout fast copy paths can exploit.
func (m Matrix) IsContiguousRows() bool {
	return m.ColStride == 1
}

// T returns the transposed view: dimensions and strides swapped, zero
// copies. Writing through the transposed view writes the original.
func (m Matrix) T() Matrix {
	return Matrix{
		Data:      m.Data,
		Rows:      m.Cols,
		Cols:      m.Rows,
		RowStride: m.ColStride,
		ColStride: m.RowStride,
	}
}

// Slice returns the view of rows [i0, i1) and columns [j0, j1), sharing
// the receiver's backing slice. The range must be non-empty and within
// the receiver, otherwise Slice panics.
func (m Matrix) Slice(i0, i1, j0, j1 int) Matrix {
	if i0 < 0 || i1 > m.Rows || i0 >= i1 || j0 < 0 || j1 > m.Cols || j0 >= j1 {
		exceptions.Panicf("gemm: Matrix.Slice(%d, %d, %d, %d) out of range for %dx%d matrix", i0, i1, j0, j1, m.Rows, m.Cols)
	}
	return Matrix{
		Data:      m.Data[i0*m.RowStride+j0*m.ColStride:],
		Rows:      i1 - i0,
		Cols:      j1 - j0,
		RowStride: m.RowStride,
		ColStride: m.ColStride,
	}
}

// check validates that the view is internally consistent: positive
// dimensions, non-negative strides, non-nil data and a backing slice
// large enough to address the last element. name tags the operand in
// error messages ("A", "B", "C").
func (m Matrix) check(name string) error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return errors.Errorf("matrix %s has invalid dimensions %dx%d, both must be positive", name, m.Rows, m.Cols)
	}
	if m.Data == nil {
		return errors.Errorf("matrix %s has nil backing data", name)
	}
	if m.RowStride < 0 || m.ColStride < 0 {
		return errors.Errorf("matrix %s has negative strides (%d, %d)", name, m.RowStride, m.ColStride)
	}
	if m.Rows > 1 && m.RowStride == 0 && m.Cols > 1 && m.ColStride == 0 {
		return errors.Errorf("matrix %s has zero strides for both dimensions %dx%d", name, m.Rows, m.Cols)
	}
	maxOffset := (m.Rows-1)*m.RowStride + (m.Cols-1)*m.ColStride
	if maxOffset >= len(m.Data) {
		return errors.Errorf("matrix %s backing slice too short: view %dx%d with strides (%d, %d) addresses offset %d, data holds %d",
			name, m.Rows, m.Cols, m.RowStride, m.ColStride, maxOffset, len(m.Data))
	}
	return nil
}
