// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package scratch

import (
	"unsafe"

	"github.com/edsrzf/mmap-go"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Mmap is an Allocator that backs each buffer with its own anonymous
// memory mapping, outside the Go heap. Mappings are page-aligned, which
// satisfies the Alignment contract with room to spare. It suits very
// large panels whose transient spikes should not grow the heap; for
// everything else Pool is faster.
type Mmap struct{}

var _ Allocator = (*Mmap)(nil)

// NewMmap returns an anonymous-mapping allocator. It keeps no state:
// each Acquire maps, each Release unmaps.
func NewMmap() *Mmap {
	return &Mmap{}
}

type mmapRegion struct {
	mapping mmap.MMap
}

// Acquire implements Allocator. It fails when the kernel refuses the
// mapping, before any caller-visible state changes.
func (a *Mmap) Acquire(n int) (ref any, data []float64, err error) {
	if n <= 0 {
		return nil, nil, errors.Errorf("scratch: Mmap.Acquire(%d) requires a positive size", n)
	}
	byteLen := n * int(unsafe.Sizeof(float64(0)))
	mapping, err := mmap.MapRegion(nil, byteLen, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "scratch: anonymous mapping of %d bytes failed", byteLen)
	}
	data = unsafe.Slice((*float64)(unsafe.Pointer(&mapping[0])), n)
	return &mmapRegion{mapping: mapping}, data, nil
}

// Release implements Allocator, unmapping the region. The data slice
// returned by the matching Acquire must not be used afterwards.
func (a *Mmap) Release(ref any) {
	if ref == nil {
		return
	}
	region, ok := ref.(*mmapRegion)
	if !ok {
		exceptions.Panicf("scratch: Mmap.Release got ref of type %T, want the ref returned by Mmap.Acquire", ref)
	}
	if err := region.mapping.Unmap(); err != nil {
		// Unmap only fails on double release or a corrupted ref; the
		// region stays mapped, nothing else to do.
		klog.Errorf("scratch: releasing mapping failed: %+v", err)
	}
}
