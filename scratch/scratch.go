// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package scratch provides 64-byte-aligned float64 scratch buffers for
// the packing stages of the engine.
//
// Buffers follow a strictly scoped acquire/release pattern: acquired at
// call entry, released (usually with defer) on every exit path, never
// retained across calls. The alignment contract exists so vectorized
// microkernels can use aligned loads on packed panels; the pure-Go
// kernels do not depend on it but honor it for their SIMD siblings.
package scratch

import (
	"unsafe"
)

// Alignment, in bytes, of every buffer returned by the allocators in
// this package.
const Alignment = 64

const floatsPerAlignment = Alignment / 8

// Allocator hands out aligned scratch buffers.
//
// Acquire returns a 64-byte-aligned slice of length n with unspecified
// contents, plus an opaque ref to hand back to Release. Release must be
// called exactly once per successful Acquire, with the ref unmodified.
type Allocator interface {
	Acquire(n int) (ref any, data []float64, err error)
	Release(ref any)
}

// Default is the process-wide pooled allocator used when an Engine is
// built without an explicit one.
var Default Allocator = NewPool()

// Aligned reports whether the first element of data sits on an
// Alignment-byte boundary. Empty slices count as aligned.
func Aligned(data []float64) bool {
	if len(data) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&data[0]))%Alignment == 0
}

// newAligned allocates a fresh slice with len == cap == n whose first
// element sits on an Alignment-byte boundary, by over-allocating and
// re-slicing.
func newAligned(n int) []float64 {
	raw := make([]float64, n+floatsPerAlignment)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	off := int((Alignment - addr%Alignment) % Alignment / 8)
	return raw[off : off+n : off+n]
}
