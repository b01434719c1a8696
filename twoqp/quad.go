// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package twoqp provides small dense building blocks: a numerically
// stable quadratic-equation root finder, which the tpcg subpackage uses
// for its trust-region boundary step, and a brute-force solver for a 2x2,
// box-constrained quadratic program.
package twoqp

import "math"

// Equation returns the real roots of a*x^2 + b*x + c = 0, where a, b, and c
// are not all zero.
//
// When a is nonzero, the two roots are computed with the form that avoids
// subtracting two nearly-equal numbers (Press et al., Numerical Recipes,
// §5.6): whichever of -b+sqrt(Δ) or -b-sqrt(Δ) has the larger magnitude is
// computed directly, and the other root is recovered from the product of
// the roots, c/a. When a is zero but b is not, Equation returns the single
// linear root -c/b. When both are zero, Equation returns no roots: the
// degenerate case of a nonzero constant has no root, and the case of an
// identically zero polynomial (infinitely many roots) cannot be
// distinguished from it here, so both report zero roots; callers that care
// about the difference must check c separately.
func Equation(a, b, c float64) []float64 {
	switch {
	case a != 0:
		delta := b*b - 4*a*c
		sqrtDelta := math.Sqrt(delta)
		var r1, r2 float64
		if b < 0 {
			r1 = (-b + sqrtDelta) / (2 * a)
			r2 = (2 * c) / (-b + sqrtDelta)
		} else {
			r1 = (2 * c) / (-b - sqrtDelta)
			r2 = (-b - sqrtDelta) / (2 * a)
		}
		return []float64{r1, r2}
	case b != 0:
		return []float64{-c / b}
	default:
		return nil
	}
}
