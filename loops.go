// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"github.com/pkg/errors"
)

// blockedMulAdd runs the five partitioning loops around the microkernel.
//
// Loop order, outermost first (the GotoBLAS decomposition):
//
//	Loop 5 (jc): N split by NC, one packed B panel resident in L3.
//	Loop 4 (pc): K split by KC, packing the kc x nc block of B.
//	Loop 3 (ic): M split by MC, packing the mc x kc block of A into L2.
//	Loop 2 (jr): nc in NR-wide register panels of packed B.
//	Loop 1 (ir): mc in MR-tall register strips of packed A.
//
// Both scratch buffers are acquired up front, before the first pack or C
// write, so a failing allocator never leaves C partially updated. They are
// released on every exit path. C is accumulated in place through its own
// strides and is never packed.
func (e *Engine) blockedMulAdd(c, a, b Matrix) error {
	p := e.params
	m, n, k := c.Rows, c.Cols, a.Cols

	aRef, aBuf, err := e.alloc.Acquire(p.packedASize())
	if err != nil {
		return errors.WithMessagef(err, "gemm: acquiring the %d-value packed A block", p.packedASize())
	}
	defer e.alloc.Release(aRef)
	bRef, bBuf, err := e.alloc.Acquire(p.packedBSize())
	if err != nil {
		return errors.WithMessagef(err, "gemm: acquiring the %d-value packed B panel", p.packedBSize())
	}
	defer e.alloc.Release(bRef)

	// Loop 5 (jc): A passes through untouched, B and C are column-sliced.
	for colPanelStart := 0; colPanelStart < n; colPanelStart += p.NC {
		nc := min(p.NC, n-colPanelStart)

		// Loop 4 (pc): K chunks accumulate sequentially into the same C
		// region; their order is part of the numeric contract.
		for contractingStart := 0; contractingStart < k; contractingStart += p.KC {
			kc := min(p.KC, k-contractingStart)
			packBPanels(bBuf,
				b.Slice(contractingStart, contractingStart+kc, colPanelStart, colPanelStart+nc),
				p.NR)

			// Loop 3 (ic): C is row-sliced to match the M chunk.
			for rowPanelStart := 0; rowPanelStart < m; rowPanelStart += p.MC {
				mc := min(p.MC, m-rowPanelStart)
				packAPanels(aBuf,
					a.Slice(rowPanelStart, rowPanelStart+mc, contractingStart, contractingStart+kc),
					p.MR)

				// Loops 2 (jr) and 1 (ir): walk the packed buffers in
				// register tiles. Panel offsets are pure arithmetic: strip
				// s of packed A starts at s*kc*MR, panel t of packed B at
				// t*kc*NR.
				for microColStart := 0; microColStart < nc; microColStart += p.NR {
					activeCols := min(p.NR, nc-microColStart)
					bPanel := bBuf[(microColStart/p.NR)*(kc*p.NR):]
					for microRowStart := 0; microRowStart < mc; microRowStart += p.MR {
						activeRows := min(p.MR, mc-microRowStart)
						aPanel := aBuf[(microRowStart/p.MR)*(kc*p.MR):]
						cTile := c.Slice(
							rowPanelStart+microRowStart, rowPanelStart+microRowStart+activeRows,
							colPanelStart+microColStart, colPanelStart+microColStart+activeCols)
						e.kernel(kc, aPanel, bPanel, cTile)
					}
				}
			}
		}
	}
	return nil
}
