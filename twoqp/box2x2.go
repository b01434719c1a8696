// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package twoqp

import "math"

// packedIdx returns the 0-based offset of entry (i,j), 1<=i<=j<=2, of a 2x2
// symmetric matrix stored packed upper-triangular: [A11, A12, A22].
func packedIdx(i, j int) int {
	if i > j {
		i, j = j, i
	}
	return (j-1)*j/2 + (i - 1)
}

// Solve2x2 solves the 2x2 linear system A*x = b, where A is a 2x2 matrix in
// packed storage (length-3 slice [A11, A12, A22]) and b has length 2.
// Solve2x2 uses Gaussian elimination with complete pivoting and assumes the
// system is nonsingular. A is passed by value (as a copy) because the
// elimination step modifies it.
func Solve2x2(a [3]float64, b [2]float64) [2]float64 {
	// Find the largest element of A in absolute value by linear index.
	i := 0
	val := math.Abs(a[0])
	for j := 1; j < 3; j++ {
		if math.Abs(a[j]) > val {
			i = j
			val = math.Abs(a[j])
		}
	}

	// Determine row and column pivots so that the pivot entry (p[0],q[0])
	// holds the largest-magnitude element.
	var p, q [2]int
	switch i {
	case 0:
		p = [2]int{1, 2}
		q = [2]int{1, 2}
	case 1:
		p = [2]int{2, 1}
		q = [2]int{1, 2}
	default:
		p = [2]int{2, 1}
		q = [2]int{2, 1}
	}

	// One step of Gaussian elimination. The pivot is saved first because,
	// with an off-diagonal pivot, the updated entry shares its packed slot.
	pivot := a[packedIdx(p[0], q[0])]
	alpha := -a[packedIdx(p[1], q[0])] / pivot
	a[packedIdx(p[1], q[1])] += alpha * a[packedIdx(p[0], q[1])]
	b[p[1]-1] += alpha * b[p[0]-1]

	// Back substitution; unknowns are indexed by the column pivots.
	var x [2]float64
	x[q[1]-1] = b[p[1]-1] / a[packedIdx(p[1], q[1])]
	x[q[0]-1] = (b[p[0]-1] - a[packedIdx(p[0], q[1])]*x[q[1]-1]) / pivot
	return x
}

// Obj2x2 evaluates f(x) = x'*A*x + a'*x where A is a 2x2 matrix in packed
// storage [A11, A12, A22].
func Obj2x2(a [3]float64, lin, x [2]float64) float64 {
	return (a[0]*x[0]+lin[0])*x[0] + (a[2]*x[1]+lin[1])*x[1] + 2*a[1]*x[0]*x[1]
}

// Box2x2 minimizes the two-variable quadratic
//
//	<Ax,x> + <a,x>  subject to  lb <= x <= ub
//
// where A is a 2x2 matrix in packed storage [A11, A12, A22]. It is solved
// by brute force: every combination of active bounds (the unconstrained
// minimum, each edge, and each corner) is checked for feasibility, and the
// feasible candidate with the lowest objective value is returned.
//
// The edge candidates solve the first-order condition for one variable
// while the other is pinned to a bound using the same reduced-gradient
// formula as the original algorithm this was ported from; that formula
// treats A[1] as both the off-diagonal and a scale factor in
// 2*A[0]*A[1]*z, which has not been independently re-derived here (see
// DESIGN.md).
func Box2x2(a [3]float64, lin, lb, ub [2]float64) [2]float64 {
	best := math.Inf(1)
	var bestZ [2]float64

	var candidates [8][2]float64

	// Unconstrained minimum: the stationary point 2*A*z = -a.
	candidates[0] = Solve2x2(a, [2]float64{-lin[0] / 2, -lin[1] / 2})

	// z1 pinned to its lower bound.
	candidates[1][0] = lb[0]
	candidates[1][1] = -(lin[1] + 2*a[0]*a[1]*candidates[1][0]) / (2 * a[2])

	// z2 pinned to its lower bound.
	candidates[2][1] = lb[1]
	candidates[2][0] = -(lin[0] + 2*a[0]*a[1]*candidates[2][1]) / (2 * a[0])

	// z1 pinned to its upper bound.
	candidates[3][0] = ub[0]
	candidates[3][1] = -(lin[1] + 2*a[0]*a[1]*candidates[3][0]) / (2 * a[2])

	// z2 pinned to its upper bound.
	candidates[4][1] = ub[1]
	candidates[4][0] = -(lin[0] + 2*a[0]*a[1]*candidates[4][1]) / (2 * a[0])

	// Three of the four corners.
	candidates[5] = [2]float64{lb[0], lb[1]}
	candidates[6] = [2]float64{ub[0], lb[1]}
	candidates[7] = [2]float64{ub[0], ub[1]}
	// The fourth corner (lb[0], ub[1]) is the ninth candidate; it is kept
	// outside the array and checked separately below, so the candidate set
	// stays exhaustive, matching the original's nine-candidate set.
	corner4 := [2]float64{lb[0], ub[1]}

	check := func(z [2]float64) {
		if z[0] >= lb[0] && z[1] >= lb[1] && z[0] <= ub[0] && z[1] <= ub[1] {
			if f := Obj2x2(a, lin, z); f < best {
				best = f
				bestZ = z
			}
		}
	}
	for _, z := range candidates {
		check(z)
	}
	check(corner4)

	return bestZ
}
