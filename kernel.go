// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"sort"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// MicroKernel computes c += aPanel · bPanel for one register tile.
//
// aPanel holds kc steps of MR values (one K-major strip of packed A) and
// bPanel kc steps of NR values (one K-major panel of packed B). Both are
// always full register-tile width: packing zero-pads matrix edges, so
// kernels never branch on remainders. c is the active output tile, with
// c.Rows <= MR and c.Cols <= NR and arbitrary strides; only active cells
// are read and written.
//
// Every floating-point operation of the engine happens in a MicroKernel:
// accumulators are seeded from the current C values, updated with one
// multiply-add chain per output element per K step in a fixed order
// (bit-for-bit deterministic for fixed inputs and kc), then stored back.
// The engine has no overwrite mode; zero C first for a plain product.
type MicroKernel func(kc int, aPanel, bPanel []float64, c Matrix)

// kernelRegistration describes one microkernel implementation. Engine
// construction picks the highest-priority registration whose predicate
// accepts the blocking params.
type kernelRegistration struct {
	name     string
	priority int
	matches  func(p Params) bool
	build    func(p Params) MicroKernel
}

var kernelRegistry []kernelRegistration

func registerKernel(name string, priority int, matches func(Params) bool, build func(Params) MicroKernel) {
	for _, reg := range kernelRegistry {
		if reg.name == name {
			exceptions.Panicf("gemm: microkernel %q registered twice", name)
		}
	}
	kernelRegistry = append(kernelRegistry, kernelRegistration{
		name:     name,
		priority: priority,
		matches:  matches,
		build:    build,
	})
}

// KernelNames lists the registered microkernels in alphabetical order.
func KernelNames() []string {
	names := make([]string, 0, len(kernelRegistry))
	for _, reg := range kernelRegistry {
		names = append(names, reg.name)
	}
	sort.Strings(names)
	return names
}

// selectKernel resolves the microkernel for p. A non-empty name forces
// that registration (erroring if it cannot serve p); otherwise the
// highest-priority match wins.
func selectKernel(p Params, name string) (string, MicroKernel, error) {
	if name != "" {
		for _, reg := range kernelRegistry {
			if reg.name != name {
				continue
			}
			if !reg.matches(p) {
				return "", nil, errors.Errorf("microkernel %q does not support a %dx%d register tile", name, p.MR, p.NR)
			}
			return reg.name, reg.build(p), nil
		}
		return "", nil, errors.Errorf("unknown microkernel %q, registered: %v", name, KernelNames())
	}
	best := -1
	for i, reg := range kernelRegistry {
		if !reg.matches(p) {
			continue
		}
		if best < 0 || reg.priority > kernelRegistry[best].priority {
			best = i
		}
	}
	if best < 0 {
		return "", nil, errors.Errorf("no registered microkernel supports a %dx%d register tile", p.MR, p.NR)
	}
	reg := kernelRegistry[best]
	return reg.name, reg.build(p), nil
}

func init() {
	registerKernel("generic", 0, func(Params) bool { return true }, buildGenericKernel)
}

// buildGenericKernel returns the portable microkernel for any register
// tile with MR*NR <= maxKernelAccumulators, closing over the tile shape.
func buildGenericKernel(p Params) MicroKernel {
	mr, nr := p.MR, p.NR
	return func(kc int, aPanel, bPanel []float64, c Matrix) {
		var accum [maxKernelAccumulators]float64

		// Seed active lanes from the current C tile; inactive lanes stay
		// zero and are never stored back.
		for r := 0; r < c.Rows; r++ {
			rowIdx := r * c.RowStride
			for col := 0; col < c.Cols; col++ {
				accum[r*nr+col] = c.Data[rowIdx+col*c.ColStride]
			}
		}

		idxA, idxB := 0, 0
		for range kc {
			// Early bound checks so the inner loops run check-free.
			aWindow := aPanel[idxA : idxA+mr]
			_ = aWindow[mr-1]
			bWindow := bPanel[idxB : idxB+nr]
			_ = bWindow[nr-1]
			for r := 0; r < mr; r++ {
				av := aWindow[r]
				rowBase := r * nr
				for col := 0; col < nr; col++ {
					accum[rowBase+col] += av * bWindow[col]
				}
			}
			idxA += mr
			idxB += nr
		}

		for r := 0; r < c.Rows; r++ {
			rowIdx := r * c.RowStride
			for col := 0; col < c.Cols; col++ {
				c.Data[rowIdx+col*c.ColStride] = accum[r*nr+col]
			}
		}
	}
}
