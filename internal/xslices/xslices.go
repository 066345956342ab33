// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices has small generic slice helpers shared by the tests and
// the benchmark tool.
package xslices

import (
	"golang.org/x/exp/constraints"
)

// Number covers the element types the helpers operate on.
type Number interface {
	constraints.Integer | constraints.Float
}

// Iota returns a slice of the given length with sequential values
// starting at start.
func Iota[T Number](start T, len int) (slice []T) {
	slice = make([]T, len)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}

// SliceWithValue returns a slice of the given size with every element set
// to value.
func SliceWithValue[T any](size int, value T) []T {
	s := make([]T, size)
	for ii := range s {
		s[ii] = value
	}
	return s
}

// Map executes fn sequentially for every element of in and returns the
// mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// SlicesInDelta reports whether s0 and s1 have the same length and every
// pair of elements differs by at most delta.
func SlicesInDelta[T constraints.Float](s0, s1 []T, delta T) bool {
	if len(s0) != len(s1) {
		return false
	}
	for ii := range s0 {
		diff := s0[ii] - s1[ii]
		if diff < 0 {
			diff = -diff
		}
		if diff > delta {
			return false
		}
	}
	return true
}
