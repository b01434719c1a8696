// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eigen provides the dense eigenvalue building blocks used to
// probe indefiniteness of the trust-region model: a Sylvester-equation
// solver built from a supplied Schur decomposition, a classical Lanczos
// bound on the smallest eigenvalue, and the implicitly restarted
// Arnoldi method (plain and generalized) for a tight leftmost-eigenvalue
// estimate of a large symmetric matrix.
package eigen

import "gonum.org/v1/gonum/mat"

// Sylvester solves A*X + X*A = B for X, given the eigendecomposition
// A = V*D*V' with V orthogonal and D the diagonal of eigenvalues. It
// panics if any D[i]+D[j] is zero; callers are expected to supply a
// positive-definite A, for which this cannot occur.
func Sylvester(v *mat.Dense, d []float64, b mat.Symmetric) *mat.SymDense {
	m, _ := v.Dims()
	if b.SymmetricDim() != m || len(d) != m {
		panic("eigen: dimension mismatch")
	}

	// M = V' * B * V, computed as V' * (B * V) to let the first product
	// use the symmetric structure of B.
	var bv mat.Dense
	bv.Mul(b, v)
	var m_ mat.Dense
	m_.Mul(v.T(), &bv)

	xTilde := mat.NewSymDense(m, nil)
	for j := 0; j < m; j++ {
		for i := 0; i <= j; i++ {
			denom := d[i] + d[j]
			if denom == 0 {
				panic("eigen: singular Sylvester equation, D[i]+D[j]=0")
			}
			xTilde.SetSym(i, j, m_.At(i, j)/denom)
		}
	}

	// X = V * Xtilde * V'.
	var vx mat.Dense
	vx.Mul(v, xTilde)
	var x mat.Dense
	x.Mul(&vx, v.T())

	out := mat.NewSymDense(m, nil)
	for j := 0; j < m; j++ {
		for i := 0; i <= j; i++ {
			out.SetSym(i, j, x.At(i, j))
		}
	}
	return out
}
