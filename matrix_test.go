// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/gemm/internal/xslices"
)

func TestFromFlatData(t *testing.T) {
	data := xslices.Iota(0.0, 6)
	m, err := FromFlatData(data, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 3, m.Cols)
	assert.Equal(t, 3, m.RowStride)
	assert.Equal(t, 1, m.ColStride)
	assert.Equal(t, 5.0, m.At(1, 2))

	// The view references the slice, it does not copy it.
	data[0] = 42
	assert.Equal(t, 42.0, m.At(0, 0))

	_, err = FromFlatData(data, 0, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both must be positive")

	_, err = FromFlatData(data, 3, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3x3 requires 9")
}

func TestNewMatrix(t *testing.T) {
	m := NewMatrix(3, 5)
	assert.Equal(t, 3, m.Rows)
	assert.Equal(t, 5, m.Cols)
	assert.Equal(t, 5, m.RowStride)
	assert.Equal(t, 1, m.ColStride)
	assert.Len(t, m.Data, 15)
	for _, v := range m.Data {
		assert.Zero(t, v)
	}
	assert.Panics(t, func() { NewMatrix(0, 5) })
	assert.Panics(t, func() { NewMatrix(3, -1) })
}

func TestMatrixAtSet(t *testing.T) {
	m := NewMatrix(2, 3)
	m.Set(1, 2, 7.5)
	assert.Equal(t, 7.5, m.At(1, 2))
	assert.Equal(t, 7.5, m.Data[1*3+2])

	assert.Panics(t, func() { m.At(2, 0) })
	assert.Panics(t, func() { m.At(0, 3) })
	assert.Panics(t, func() { m.Set(-1, 0, 0) })
	assert.Panics(t, func() { m.Set(0, -1, 0) })
}

func TestMatrixT(t *testing.T) {
	m, err := FromFlatData(xslices.Iota(1.0, 6), 2, 3)
	require.NoError(t, err)
	mt := m.T()
	assert.Equal(t, 3, mt.Rows)
	assert.Equal(t, 2, mt.Cols)
	assert.True(t, m.IsContiguousRows())
	assert.False(t, mt.IsContiguousRows())
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			assert.Equal(t, m.At(i, j), mt.At(j, i))
		}
	}

	// Transposing twice restores the original view.
	assert.Equal(t, m, mt.T())

	// Writes through the transpose land in the shared backing slice.
	mt.Set(2, 0, -1)
	assert.Equal(t, -1.0, m.At(0, 2))
}

func TestMatrixSlice(t *testing.T) {
	m, err := FromFlatData(xslices.Iota(0.0, 20), 4, 5)
	require.NoError(t, err)
	s := m.Slice(1, 3, 2, 5)
	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, 3, s.Cols)
	assert.Equal(t, m.RowStride, s.RowStride)
	assert.Equal(t, m.ColStride, s.ColStride)
	assert.Equal(t, m.At(1, 2), s.At(0, 0))
	assert.Equal(t, m.At(2, 4), s.At(1, 2))

	s.Set(0, 0, 99)
	assert.Equal(t, 99.0, m.At(1, 2), "slice must share the backing data")

	assert.Panics(t, func() { m.Slice(0, 5, 0, 5) })
	assert.Panics(t, func() { m.Slice(2, 2, 0, 5) })
	assert.Panics(t, func() { m.Slice(0, 4, -1, 5) })
}

func TestMatrixCheck(t *testing.T) {
	ok := NewMatrix(3, 4)
	require.NoError(t, ok.check("A"))
	require.NoError(t, ok.T().check("A"))

	cases := []struct {
		name        string
		m           Matrix
		errContains string
	}{
		{"zero rows", Matrix{Data: ok.Data, Cols: 4, RowStride: 4, ColStride: 1}, "invalid dimensions 0x4"},
		{"nil data", Matrix{Rows: 3, Cols: 4, RowStride: 4, ColStride: 1}, "nil backing data"},
		{"negative stride", Matrix{Data: ok.Data, Rows: 3, Cols: 4, RowStride: -4, ColStride: 1}, "negative strides"},
		{"both strides zero", Matrix{Data: ok.Data, Rows: 3, Cols: 4}, "zero strides for both dimensions"},
		{"short backing", Matrix{Data: ok.Data[:10], Rows: 3, Cols: 4, RowStride: 4, ColStride: 1}, "backing slice too short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.m.check("A")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
			assert.Contains(t, err.Error(), "matrix A")
		})
	}

	// A single zero stride is a legal broadcast view.
	broadcast := Matrix{Data: ok.Data[:4], Rows: 3, Cols: 4, RowStride: 0, ColStride: 1}
	require.NoError(t, broadcast.check("A"))
}
