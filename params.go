// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"github.com/pkg/errors"

	"github.com/gomlx/gemm/internal/cpuid"
)

// Params holds the five blocking constants of the engine.
//
// MR and NR are the register-tile height and width consumed by the
// microkernel. MC, KC and NC are the cache tiles at which the M, K and N
// dimensions are split, sized so one packed MC x KC block of A stays
// resident in L2 and one packed KC x NC panel of B in L3, while each
// MR x KC / KC x NR strip streams through L1.
//
// Params are fixed per Engine at construction and shared read-only by
// every call. MC and NC do not have to be multiples of MR/NR (packing
// zero-pads partial panels), but DefaultParams always produces multiples.
type Params struct {
	MR, NR     int
	MC, KC, NC int
}

// maxKernelAccumulators bounds MR*NR: the generic microkernel keeps the
// whole register tile in a fixed 64-element accumulator array.
const maxKernelAccumulators = 64

// Validate reports whether the blocking constants can drive the engine.
func (p Params) Validate() error {
	if p.MR <= 0 || p.NR <= 0 {
		return errors.Errorf("register tile %dx%d invalid, MR and NR must be positive", p.MR, p.NR)
	}
	if p.MR*p.NR > maxKernelAccumulators {
		return errors.Errorf("register tile %dx%d needs %d accumulators, the microkernel holds at most %d",
			p.MR, p.NR, p.MR*p.NR, maxKernelAccumulators)
	}
	if p.KC <= 0 {
		return errors.Errorf("KC=%d invalid, must be positive", p.KC)
	}
	if p.MC < p.MR {
		return errors.Errorf("MC=%d invalid, must be at least MR=%d", p.MC, p.MR)
	}
	if p.NC < p.NR {
		return errors.Errorf("NC=%d invalid, must be at least NR=%d", p.NC, p.NR)
	}
	return nil
}

// DefaultParams derives blocking constants from the detected cache
// geometry, with a 4x4 register tile:
//
//   - KC so one MR x KC strip of A plus one KC x NR strip of B fill about
//     half of L1d;
//   - MC so the packed MC x KC block of A fills about half of L2;
//   - NC so the packed KC x NC panel of B fills about half of L3.
//
// On the fallback geometry (32KiB/256KiB/8MiB) this yields
// {MR: 4, NR: 4, MC: 64, KC: 256, NC: 2048}.
func DefaultParams() Params {
	return paramsForCaches(cpuid.Caches())
}

func paramsForCaches(caches cpuid.CacheInfo) Params {
	const mr, nr = 4, 4
	const bytesPerValue = 8 // float64
	const halfDenominator = 2 * bytesPerValue

	kc := clampTile(caches.L1D/(halfDenominator*(mr+nr)), 64, 1024)
	kc = roundDownMultiple(kc, 8)
	mc := roundDownMultiple(clampTile(caches.L2/(halfDenominator*kc), mr, 1024), mr)
	nc := roundDownMultiple(clampTile(caches.L3/(halfDenominator*kc), nr, 8192), nr)
	return Params{MR: mr, NR: nr, MC: mc, KC: kc, NC: nc}
}

// packedASize is the scratch float count for one packed A block: MC rows
// rounded up to whole MR strips, KC deep.
func (p Params) packedASize() int {
	return roundUpMultiple(p.MC, p.MR) * p.KC
}

// packedBSize is the scratch float count for one packed B panel: NC
// columns rounded up to whole NR panels, KC deep.
func (p Params) packedBSize() int {
	return p.KC * roundUpMultiple(p.NC, p.NR)
}

func clampTile(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundDownMultiple(v, m int) int {
	v -= v % m
	if v < m {
		return m
	}
	return v
}

func roundUpMultiple(v, m int) int {
	return (v + m - 1) / m * m
}
