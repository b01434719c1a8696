// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eigen

import "gonum.org/v1/gonum/mat"

// Gsyiram estimates the leftmost eigenvalue of the generalized symmetric
// eigenvalue problem A*x = lambda*B*x, where b is positive definite, by
// reducing it to the standard problem A'*x' = lambda*x' via the Cholesky
// factorization B = U'*U and A' = U^-T * A * U^-1, then delegating to
// Syiram.
//
// Unlike the original this was ported from, gonum.org/v1/gonum/mat.Cholesky
// does not mutate its input, so there is no need for callers to hand over
// a disposable copy of b the way the original's destructive pftrf demands.
func Gsyiram(a, b mat.Symmetric, innerMax, outerMax int, tol float64) (theta, err float64) {
	var chol mat.Cholesky
	if ok := chol.Factorize(b); !ok {
		panic("eigen: Cholesky factorization of B failed, B is not positive definite")
	}
	var u mat.TriDense
	chol.UTo(&u)

	var uInv mat.Dense
	if err := uInv.Inverse(&u); err != nil {
		panic("eigen: could not invert Cholesky factor of B: " + err.Error())
	}

	var tmp mat.Dense
	tmp.Mul(a, &uInv)
	var aPrime mat.Dense
	aPrime.Mul(uInv.T(), &tmp)

	n := b.SymmetricDim()
	aPrimeSym := mat.NewSymDense(n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			aPrimeSym.SetSym(i, j, 0.5*(aPrime.At(i, j)+aPrime.At(j, i)))
		}
	}

	return Syiram(aPrimeSym, innerMax, outerMax, tol)
}
