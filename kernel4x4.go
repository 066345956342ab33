// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

func init() {
	registerKernel("4x4", 100,
		func(p Params) bool { return p.MR == 4 && p.NR == 4 },
		func(Params) MicroKernel { return kernel4x4 })
}

// kernel4x4 is the fully unrolled microkernel for a 4x4 register tile:
// sixteen scalar accumulators standing in for four 4-lane vector
// registers, one register per output column. Per K step it loads the
// four A values of the step and folds each of the four B scalars into
// its column, the same fixed per-element multiply-add chain the generic
// kernel produces, so the two agree bit for bit.
func kernel4x4(kc int, aPanel, bPanel []float64, c Matrix) {
	if c.Rows == 4 && c.Cols == 4 && c.IsContiguousRows() {
		kernel4x4Full(kc, aPanel, bPanel, c.Data, c.RowStride)
		return
	}
	kernel4x4Edge(kc, aPanel, bPanel, c)
}

// kernel4x4Full handles the common case: a full 4x4 tile over contiguous
// rows, loaded and stored four values at a time.
func kernel4x4Full(kc int, aPanel, bPanel []float64, cData []float64, rowStride int) {
	row0 := cData[0 : 0+4]
	row1 := cData[rowStride : rowStride+4]
	row2 := cData[2*rowStride : 2*rowStride+4]
	row3 := cData[3*rowStride : 3*rowStride+4]

	c00, c01, c02, c03 := row0[0], row0[1], row0[2], row0[3]
	c10, c11, c12, c13 := row1[0], row1[1], row1[2], row1[3]
	c20, c21, c22, c23 := row2[0], row2[1], row2[2], row2[3]
	c30, c31, c32, c33 := row3[0], row3[1], row3[2], row3[3]

	idxA, idxB := 0, 0
	for range kc {
		aWindow := aPanel[idxA : idxA+4]
		_ = aWindow[3]
		bWindow := bPanel[idxB : idxB+4]
		_ = bWindow[3]
		a0, a1, a2, a3 := aWindow[0], aWindow[1], aWindow[2], aWindow[3]

		b := bWindow[0]
		c00 += a0 * b
		c10 += a1 * b
		c20 += a2 * b
		c30 += a3 * b

		b = bWindow[1]
		c01 += a0 * b
		c11 += a1 * b
		c21 += a2 * b
		c31 += a3 * b

		b = bWindow[2]
		c02 += a0 * b
		c12 += a1 * b
		c22 += a2 * b
		c32 += a3 * b

		b = bWindow[3]
		c03 += a0 * b
		c13 += a1 * b
		c23 += a2 * b
		c33 += a3 * b

		idxA += 4
		idxB += 4
	}

	row0[0], row0[1], row0[2], row0[3] = c00, c01, c02, c03
	row1[0], row1[1], row1[2], row1[3] = c10, c11, c12, c13
	row2[0], row2[1], row2[2], row2[3] = c20, c21, c22, c23
	row3[0], row3[1], row3[2], row3[3] = c30, c31, c32, c33
}

// kernel4x4Edge handles boundary tiles (fewer than 4 active rows or
// columns, or a strided C). Only active lanes are seeded from C and
// stored back; inactive lanes accumulate against the packing's zero
// padding and are discarded.
func kernel4x4Edge(kc int, aPanel, bPanel []float64, c Matrix) {
	var accum [16]float64
	for r := 0; r < c.Rows; r++ {
		rowIdx := r * c.RowStride
		for col := 0; col < c.Cols; col++ {
			accum[r*4+col] = c.Data[rowIdx+col*c.ColStride]
		}
	}

	idxA, idxB := 0, 0
	for range kc {
		aWindow := aPanel[idxA : idxA+4]
		_ = aWindow[3]
		bWindow := bPanel[idxB : idxB+4]
		_ = bWindow[3]
		a0, a1, a2, a3 := aWindow[0], aWindow[1], aWindow[2], aWindow[3]

		b := bWindow[0]
		accum[0] += a0 * b
		accum[4] += a1 * b
		accum[8] += a2 * b
		accum[12] += a3 * b

		b = bWindow[1]
		accum[1] += a0 * b
		accum[5] += a1 * b
		accum[9] += a2 * b
		accum[13] += a3 * b

		b = bWindow[2]
		accum[2] += a0 * b
		accum[6] += a1 * b
		accum[10] += a2 * b
		accum[14] += a3 * b

		b = bWindow[3]
		accum[3] += a0 * b
		accum[7] += a1 * b
		accum[11] += a2 * b
		accum[15] += a3 * b

		idxA += 4
		idxB += 4
	}

	for r := 0; r < c.Rows; r++ {
		rowIdx := r * c.RowStride
		for col := 0; col < c.Cols; col++ {
			c.Data[rowIdx+col*c.ColStride] = accum[r*4+col]
		}
	}
}
