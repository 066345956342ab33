// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gemm implements a cache- and register-blocked dense matrix
// multiply, C ← A·B + C, for float64 matrices of arbitrary dimensions.
//
// The engine decomposes the problem with the five-loops-around-a-microkernel
// scheme: the N, K and M dimensions are split by the NC, KC and MC cache
// tiles, the K/M stages pack their operand blocks into contiguous
// register-tile panels, and two inner loops feed MRxNR tiles to a
// microkernel that performs all the floating-point work. Accumulation into
// the existing contents of C is part of the contract; zero C first for a
// plain product.
//
// The package-level MulAdd uses a shared engine with blocking parameters
// derived from the detected cache geometry. Build an Engine with New to
// override the parameters, the scratch allocator, or the microkernel:
//
//	e, err := gemm.New(gemm.WithParams(gemm.Params{MR: 4, NR: 4, MC: 96, KC: 256, NC: 4096}))
//	...
//	err = e.MulAdd(c, a, b)
//
// Engines are read-only after construction and may be shared by concurrent
// calls operating on disjoint C matrices. Caller matrices carry no alignment
// requirement; the 64-byte contract of package scratch binds only the
// internal packing buffers.
package gemm

import (
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/gemm/scratch"
)

// Engine is a configured GEMM instance: five blocking constants, a scratch
// allocator and a resolved microkernel. Immutable after New.
type Engine struct {
	params     Params
	alloc      scratch.Allocator
	kernelName string
	kernel     MicroKernel

	// forceKernel is only meaningful during New: when set by WithKernel,
	// kernel resolution must pick this registration or fail.
	forceKernel string
}

// Option configures an Engine being built by New.
type Option func(*Engine) error

// WithParams replaces the default blocking constants. The values are
// validated by New.
func WithParams(p Params) Option {
	return func(e *Engine) error {
		e.params = p
		return nil
	}
}

// WithAllocator replaces the default pooled scratch allocator. Packing
// buffers for every call of this engine come from a.
func WithAllocator(a scratch.Allocator) Option {
	return func(e *Engine) error {
		if a == nil {
			return errors.Errorf("gemm.WithAllocator: allocator is nil")
		}
		e.alloc = a
		return nil
	}
}

// WithKernel forces the named microkernel instead of the highest-priority
// one matching the blocking constants. See KernelNames for the registered
// names.
func WithKernel(name string) Option {
	return func(e *Engine) error {
		if name == "" {
			return errors.Errorf("gemm.WithKernel: empty kernel name")
		}
		e.forceKernel = name
		return nil
	}
}

// New builds an Engine. Without options it uses DefaultParams, the shared
// pooled allocator and the best registered microkernel for the params.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		params: DefaultParams(),
		alloc:  scratch.Default,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if err := e.params.Validate(); err != nil {
		return nil, errors.WithMessage(err, "gemm.New: invalid blocking parameters")
	}
	name, kernel, err := selectKernel(e.params, e.forceKernel)
	if err != nil {
		return nil, errors.WithMessage(err, "gemm.New")
	}
	e.kernelName = name
	e.kernel = kernel
	e.forceKernel = ""
	klog.V(1).Infof("gemm: new engine, params=%+v, kernel=%q", e.params, e.kernelName)
	return e, nil
}

// Params returns the engine's blocking constants.
func (e *Engine) Params() Params { return e.params }

// KernelName returns the name of the microkernel the engine resolved at
// construction.
func (e *Engine) KernelName() string { return e.kernelName }

// MulAdd computes c ← a·b + c, with m = c.Rows = a.Rows, n = c.Cols =
// b.Cols and k = a.Cols = b.Rows. It validates the three views and their
// cross-dimensions before any allocation or write to c: on error, c is
// untouched. a and b are only read.
func (e *Engine) MulAdd(c, a, b Matrix) error {
	if err := checkMulAddViews(c, a, b); err != nil {
		return err
	}
	return e.blockedMulAdd(c, a, b)
}

// checkMulAddViews validates each operand view, then the cross-matrix
// extents.
func checkMulAddViews(c, a, b Matrix) error {
	if err := a.check("A"); err != nil {
		return err
	}
	if err := b.check("B"); err != nil {
		return err
	}
	if err := c.check("C"); err != nil {
		return err
	}
	if a.Rows != c.Rows {
		return errors.Errorf("A has %d rows but C has %d, they must match", a.Rows, c.Rows)
	}
	if b.Cols != c.Cols {
		return errors.Errorf("B has %d columns but C has %d, they must match", b.Cols, c.Cols)
	}
	if a.Cols != b.Rows {
		return errors.Errorf("contracting dimensions disagree: A is %dx%d, B is %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)
	}
	return nil
}

// defaultEngine is built lazily on first use of the package-level MulAdd.
var defaultEngine = sync.OnceValues(func() (*Engine, error) {
	return New()
})

// MulAdd computes c ← a·b + c with the shared default engine
// (DefaultParams, pooled scratch, best registered kernel).
func MulAdd(c, a, b Matrix) error {
	e, err := defaultEngine()
	if err != nil {
		return err
	}
	return e.MulAdd(c, a, b)
}
