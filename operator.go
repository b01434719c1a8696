// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package krylov provides the operator and safeguard abstractions shared by
// the iterative solvers in its subpackages (tpcg, gmres, eigen): truncated
// projected conjugate gradient for trust-region subproblems, restarted
// GMRES for general nonsymmetric systems, and implicitly restarted
// Arnoldi/Lanczos for extremal eigenvalue estimation.
//
// Vectors are represented directly by gonum.org/v1/gonum/mat.VecDense; the
// capability described informally as a "vector space" (init, copy, scal,
// axpy, innr) is simply the set of methods mat.VecDense already exposes
// together with the package-level mat.Dot and mat.Norm functions. There is
// no separate abstract vector-space type to thread through call sites.
package krylov // import "github.com/optnum/krylov"

import "gonum.org/v1/gonum/mat"

// Operator represents a linear map A : X -> Y. Eval must write A(x) into
// the pre-allocated destination y and must not retain x or y after it
// returns. An Operator must be safe to call repeatedly with different
// arguments; it must not accumulate state across calls.
type Operator interface {
	Eval(x mat.Vector, y *mat.VecDense)
}

// OperatorFunc adapts a plain function to an Operator.
type OperatorFunc func(x mat.Vector, y *mat.VecDense)

// Eval calls f(x, y).
func (f OperatorFunc) Eval(x mat.Vector, y *mat.VecDense) { f(x, y) }

// Identity is the Operator that copies x into y unchanged. It is a useful
// default for an unset projection B or preconditioner M.
var Identity Operator = identity{}

type identity struct{}

func (identity) Eval(x mat.Vector, y *mat.VecDense) { y.CopyVec(x) }

// Safeguard returns the largest alpha in [0,1] such that xBase + alpha*xDir
// remains in some feasibility region. Callers clamp the returned value to
// [0,1]; a Safeguard need not clamp its own return value.
type Safeguard func(xBase, xDir mat.Vector) float64

// NoSafeguard always permits the full step.
func NoSafeguard(xBase, xDir mat.Vector) float64 { return 1 }

// ClampUnit restricts v to [0,1]. The core always clamps a Safeguard's
// return value through this function before using it as a step length.
func ClampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// GMRESManipulator is invoked after every GMRES sub-iteration with the
// opportunity to shrink or grow the stopping tolerance eps. The zero value
// of NoGMRESManipulator leaves eps untouched, matching the teacher's own
// EmptyGMRESManipulator pattern for an optional hook.
type GMRESManipulator interface {
	Eval(iter int, x, b mat.Vector, eps *float64)
}

// NoGMRESManipulator is a GMRESManipulator that never adjusts eps.
type NoGMRESManipulator struct{}

// Eval implements GMRESManipulator and does nothing.
func (NoGMRESManipulator) Eval(iter int, x, b mat.Vector, eps *float64) {}
