// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// Packing converts strided operand blocks into contiguous register-tile
// panels so the microkernel streams memory linearly. Both routines are
// pure functions of the source block and tile width: packing the same
// block twice produces byte-identical buffers.

// packAPanels packs an mc x kc block of A into dst as consecutive strips
// of mr rows, each strip stored K-major: element (i, k) of the block
// lands at (i/mr)*kc*mr + k*mr + i%mr. When mc is not a multiple of mr,
// the last strip's missing rows are zero-filled, so the microkernel can
// always consume full mr-wide columns. dst must hold
// ceil(mc/mr)*mr*kc values.
func packAPanels(dst []float64, block Matrix, mr int) {
	mc, kc := block.Rows, block.Cols
	dstIdx := 0
	numFullStrips := mc / mr
	fullStripsRow := numFullStrips * mr

	if block.RowStride == 1 {
		// Vertically contiguous source (e.g. the transposed view of a
		// row-major matrix): each K-step of a strip is a single copy.
		for stripRowIdx := 0; stripRowIdx < fullStripsRow; stripRowIdx += mr {
			srcIdx := stripRowIdx
			for range kc {
				copy(dst[dstIdx:dstIdx+mr], block.Data[srcIdx:srcIdx+mr])
				dstIdx += mr
				srcIdx += block.ColStride
			}
		}
	} else {
		for stripRowIdx := 0; stripRowIdx < fullStripsRow; stripRowIdx += mr {
			rowBase := stripRowIdx * block.RowStride
			for k := 0; k < kc; k++ {
				srcIdx := rowBase + k*block.ColStride
				for r := 0; r < mr; r++ {
					dst[dstIdx] = block.Data[srcIdx+r*block.RowStride]
					dstIdx++
				}
			}
		}
	}

	// Last strip, with fewer than mr valid rows.
	validRows := mc - fullStripsRow
	if validRows == 0 {
		return
	}
	rowBase := fullStripsRow * block.RowStride
	for k := 0; k < kc; k++ {
		srcIdx := rowBase + k*block.ColStride
		for r := 0; r < validRows; r++ {
			dst[dstIdx] = block.Data[srcIdx+r*block.RowStride]
			dstIdx++
		}
		for r := validRows; r < mr; r++ {
			dst[dstIdx] = 0
			dstIdx++
		}
	}
}

// packBPanels packs a kc x nc block of B into dst as consecutive panels
// of nr columns, each panel stored K-major: element (k, j) of the block
// lands at (j/nr)*kc*nr + k*nr + j%nr. When nc is not a multiple of nr,
// the last panel's missing columns are zero-filled. dst must hold
// kc*ceil(nc/nr)*nr values.
func packBPanels(dst []float64, block Matrix, nr int) {
	kc, nc := block.Rows, block.Cols
	dstIdx := 0
	numFullPanels := nc / nr
	fullPanelsCol := numFullPanels * nr

	if block.IsContiguousRows() {
		// Horizontally contiguous source: each K-step of a panel is a
		// single copy.
		for panelColIdx := 0; panelColIdx < fullPanelsCol; panelColIdx += nr {
			srcIdx := panelColIdx
			for range kc {
				copy(dst[dstIdx:dstIdx+nr], block.Data[srcIdx:srcIdx+nr])
				dstIdx += nr
				srcIdx += block.RowStride
			}
		}
	} else {
		for panelColIdx := 0; panelColIdx < fullPanelsCol; panelColIdx += nr {
			colBase := panelColIdx * block.ColStride
			for k := 0; k < kc; k++ {
				srcIdx := colBase + k*block.RowStride
				for c := 0; c < nr; c++ {
					dst[dstIdx] = block.Data[srcIdx+c*block.ColStride]
					dstIdx++
				}
			}
		}
	}

	// Last panel, with fewer than nr valid columns.
	validCols := nc - fullPanelsCol
	if validCols == 0 {
		return
	}
	colBase := fullPanelsCol * block.ColStride
	for k := 0; k < kc; k++ {
		srcIdx := colBase + k*block.RowStride
		for c := 0; c < validCols; c++ {
			dst[dstIdx] = block.Data[srcIdx+c*block.ColStride]
			dstIdx++
		}
		for c := validCols; c < nr; c++ {
			dst[dstIdx] = 0
			dstIdx++
		}
	}
}
