// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eigen

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Lanczos returns a bound theta on the smallest eigenvalue of the dense
// symmetric matrix a, satisfying lambda_min(a) < theta, using the
// classical (Paige) Lanczos three-term recurrence with reorthogonalization
// against only the immediately preceding Lanczos vector. At each step the
// full eigendecomposition of the current tridiagonal projection T_k is
// computed to extract its smallest Ritz value and the last component of
// the corresponding Ritz vector; Lanczos stops as soon as the resulting
// error estimate drops below tol, or after maxIter steps, whichever comes
// first.
func Lanczos(a mat.Symmetric, maxIter int, tol float64) float64 {
	m := a.SymmetricDim()

	v := mat.NewVecDense(m, nil)
	v0 := 1 / math.Sqrt(float64(m))
	for i := 0; i < m; i++ {
		v.SetVec(i, v0)
	}

	w := mat.NewVecDense(m, nil)
	w.MulVec(a, v)
	alpha := []float64{mat.Dot(w, v)}
	w.AddScaledVec(w, -alpha[0], v)
	beta := []float64{math.Sqrt(mat.Dot(w, w))}

	vOld := mat.NewVecDense(m, nil)
	var theta float64
	for i := 0; i < maxIter; i++ {
		vOld.CopyVec(v)
		v.CopyVec(w)
		v.ScaleVec(1/beta[i], v)

		w.MulVec(a, v)
		// Reorthogonalize against the previous Lanczos vector only
		// (<A*v, vOld> = beta[i] by symmetry).
		w.AddScaledVec(w, -beta[i], vOld)

		newAlpha := mat.Dot(w, v)
		alpha = append(alpha, newAlpha)
		w.AddScaledVec(w, -newAlpha, v)

		newBeta := math.Sqrt(mat.Dot(w, w))
		beta = append(beta, newBeta)

		k := len(alpha)
		t := mat.NewSymDense(k, nil)
		for r := 0; r < k; r++ {
			t.SetSym(r, r, alpha[r])
			if r+1 < k {
				t.SetSym(r, r+1, beta[r])
			}
		}

		var ed mat.EigenSym
		if ok := ed.Factorize(t, true); !ok {
			panic("eigen: tridiagonal eigendecomposition failed to converge")
		}
		values := ed.Values(nil)
		theta = values[0]

		var z mat.Dense
		ed.VectorsTo(&z)
		zMin := z.At(k-1, 0)
		errEst := math.Abs(zMin) * beta[i+1]
		if errEst < tol {
			break
		}
	}
	return theta
}
