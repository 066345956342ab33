// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelNames(t *testing.T) {
	names := KernelNames()
	assert.Contains(t, names, "generic")
	assert.Contains(t, names, "4x4")
	assert.True(t, slices.IsSorted(names), "names not sorted: %q", names)
}

func TestSelectKernel(t *testing.T) {
	p44 := Params{MR: 4, NR: 4, MC: 8, KC: 8, NC: 8}
	p23 := Params{MR: 2, NR: 3, MC: 8, KC: 8, NC: 9}

	name, kernel, err := selectKernel(p44, "")
	require.NoError(t, err)
	require.NotNil(t, kernel)
	assert.Equal(t, "4x4", name, "4x4 tiles must pick the unrolled kernel over the generic one")

	name, kernel, err = selectKernel(p23, "")
	require.NoError(t, err)
	require.NotNil(t, kernel)
	assert.Equal(t, "generic", name)

	name, _, err = selectKernel(p44, "generic")
	require.NoError(t, err)
	assert.Equal(t, "generic", name)

	_, _, err = selectKernel(p23, "4x4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support a 2x3 register tile")

	_, _, err = selectKernel(p44, "neon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown microkernel "neon"`)
	assert.Contains(t, err.Error(), "generic")
}

func TestRegisterKernel_DuplicatePanics(t *testing.T) {
	require.Panics(t, func() {
		registerKernel("generic", 50, func(Params) bool { return true }, buildGenericKernel)
	})
}

func fillInt(rng *rand.Rand, m Matrix) Matrix {
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Set(i, j, float64(rng.Intn(65)-32))
		}
	}
	return m
}

func cloneTile(m Matrix) Matrix {
	clone := NewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			clone.Set(i, j, m.At(i, j))
		}
	}
	return clone
}

func requireTileBits(t *testing.T, want, got Matrix, name string) {
	t.Helper()
	require.Equal(t, want.Rows, got.Rows)
	require.Equal(t, want.Cols, got.Cols)
	for i := 0; i < want.Rows; i++ {
		for j := 0; j < want.Cols; j++ {
			require.Equalf(t, math.Float64bits(want.At(i, j)), math.Float64bits(got.At(i, j)),
				"%s: C[%d, %d] = %g, want %g", name, i, j, got.At(i, j), want.At(i, j))
		}
	}
}

// TestKernel4x4_AgreesWithGeneric drives both kernels directly over the
// same packed panels. Integer-valued data keeps every operation exact, so
// the comparison is for identical bits across all dispatch paths of the
// 4x4 kernel: full contiguous tile, full strided tile and partial tiles.
func TestKernel4x4_AgreesWithGeneric(t *testing.T) {
	p := Params{MR: 4, NR: 4, MC: 8, KC: 32, NC: 8}
	generic := buildGenericKernel(p)
	rng := rand.New(rand.NewSource(42))
	const kc = 9

	pack := func(rows, cols int) ([]float64, []float64) {
		aBlock := fillInt(rng, NewMatrix(rows, kc))
		bBlock := fillInt(rng, NewMatrix(kc, cols))
		aPanel := make([]float64, 4*kc)
		bPanel := make([]float64, kc*4)
		packAPanels(aPanel, aBlock, 4)
		packBPanels(bPanel, bBlock, 4)
		return aPanel, bPanel
	}

	t.Run("full contiguous tile", func(t *testing.T) {
		aPanel, bPanel := pack(4, 4)
		c := fillInt(rng, NewMatrix(4, 4))
		want := cloneTile(c)
		kernel4x4(kc, aPanel, bPanel, c)
		generic(kc, aPanel, bPanel, want)
		requireTileBits(t, want, c, "4x4 contiguous")
	})

	t.Run("full strided tile", func(t *testing.T) {
		aPanel, bPanel := pack(4, 4)
		host := fillInt(rng, NewMatrix(8, 10))
		snapshot := slices.Clone(host.Data)
		c := host.Slice(2, 6, 3, 7)
		want := cloneTile(c)
		kernel4x4(kc, aPanel, bPanel, c)
		generic(kc, aPanel, bPanel, want)
		requireTileBits(t, want, c, "4x4 strided")

		// The kernel only writes the tile, never its surroundings.
		for i := 0; i < host.Rows; i++ {
			for j := 0; j < host.Cols; j++ {
				if i >= 2 && i < 6 && j >= 3 && j < 7 {
					continue
				}
				idx := i*host.RowStride + j
				assert.Equalf(t, snapshot[idx], host.Data[idx], "halo element (%d, %d) modified", i, j)
			}
		}
	})

	t.Run("column-strided tile", func(t *testing.T) {
		aPanel, bPanel := pack(4, 4)
		host := fillInt(rng, NewMatrix(6, 6))
		c := host.T().Slice(1, 5, 0, 4) // ColStride 6, edge dispatch
		want := cloneTile(c)
		kernel4x4(kc, aPanel, bPanel, c)
		generic(kc, aPanel, bPanel, want)
		requireTileBits(t, want, c, "4x4 column-strided")
	})

	t.Run("partial tile", func(t *testing.T) {
		aPanel, bPanel := pack(3, 2) // zero-padded to full panels
		c := fillInt(rng, NewMatrix(3, 2))
		want := cloneTile(c)
		kernel4x4(kc, aPanel, bPanel, c)
		generic(kc, aPanel, bPanel, want)
		requireTileBits(t, want, c, "3x2 partial")
	})

	t.Run("single element tile", func(t *testing.T) {
		aPanel, bPanel := pack(1, 1)
		c := fillInt(rng, NewMatrix(1, 1))
		want := cloneTile(c)
		kernel4x4(kc, aPanel, bPanel, c)
		generic(kc, aPanel, bPanel, want)
		requireTileBits(t, want, c, "1x1 partial")
	})
}

// TestGenericKernel_AccumulatesTile checks the generic kernel against a
// direct evaluation on a non-square register tile.
func TestGenericKernel_AccumulatesTile(t *testing.T) {
	p := Params{MR: 2, NR: 3, MC: 4, KC: 16, NC: 6}
	kernel := buildGenericKernel(p)
	rng := rand.New(rand.NewSource(7))
	const kc = 5

	aBlock := fillInt(rng, NewMatrix(2, kc))
	bBlock := fillInt(rng, NewMatrix(kc, 3))
	aPanel := make([]float64, 2*kc)
	bPanel := make([]float64, kc*3)
	packAPanels(aPanel, aBlock, 2)
	packBPanels(bPanel, bBlock, 3)

	c := fillInt(rng, NewMatrix(2, 3))
	want := cloneTile(c)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			sum := want.At(i, j)
			for k := 0; k < kc; k++ {
				sum += aBlock.At(i, k) * bBlock.At(k, j)
			}
			want.Set(i, j, sum)
		}
	}

	kernel(kc, aPanel, bPanel, c)
	requireTileBits(t, want, c, "2x3 tile")
}
