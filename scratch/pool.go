// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package scratch

import (
	"math/bits"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Size classes are powers of two, in float64 counts: the smallest class
// holds 64 floats (one 512-byte buffer), the largest 1<<26 (512 MiB).
// Requests beyond the table are allocated directly and not recycled.
const (
	minClassBits   = 6
	maxClassBits   = 26
	numSizeClasses = maxClassBits - minClassBits + 1
)

// Pool is a size-classed Allocator backed by sync.Pool.
//
// Each class circulates canonical aligned slices (len == cap == class
// size); Acquire returns a length-n prefix of one, so recycled buffers
// keep their alignment for free. Safe for concurrent use.
type Pool struct {
	classes [numSizeClasses]sync.Pool
}

var _ Allocator = (*Pool)(nil)

// NewPool returns an empty pool. Buffers are allocated lazily on first
// use of each size class.
func NewPool() *Pool {
	return &Pool{}
}

// Acquire implements Allocator. It never fails for positive n.
func (p *Pool) Acquire(n int) (ref any, data []float64, err error) {
	if n <= 0 {
		return nil, nil, errors.Errorf("scratch: Pool.Acquire(%d) requires a positive size", n)
	}
	class, classLen := sizeClass(n)
	if class < 0 {
		// Beyond the class table: one-off allocation, dropped on Release.
		buf := newAligned(n)
		return &buf, buf, nil
	}
	var buf []float64
	if recycled := p.classes[class].Get(); recycled != nil {
		buf = *recycled.(*[]float64)
	} else {
		buf = newAligned(classLen)
	}
	return &buf, buf[:n], nil
}

// Release implements Allocator. ref must be a ref returned by Acquire on
// this pool; passing anything else panics.
func (p *Pool) Release(ref any) {
	if ref == nil {
		return
	}
	bufPtr, ok := ref.(*[]float64)
	if !ok {
		exceptions.Panicf("scratch: Pool.Release got ref of type %T, want the ref returned by Pool.Acquire", ref)
	}
	class, classLen := sizeClass(cap(*bufPtr))
	if class < 0 || classLen != cap(*bufPtr) {
		// Direct allocation, or a buffer this pool never produced.
		return
	}
	p.classes[class].Put(bufPtr)
}

// sizeClass returns the class index and class length (the smallest
// power-of-two >= n within the table), or (-1, 0) when n exceeds the
// largest class.
func sizeClass(n int) (idx, length int) {
	b := bits.Len(uint(n - 1))
	if b < minClassBits {
		b = minClassBits
	}
	if b > maxClassBits {
		return -1, 0
	}
	return b - minClassBits, 1 << b
}
