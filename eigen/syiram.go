// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eigen

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// randSeed is the fixed seed for Syiram's initial Krylov vector, required
// for cross-platform reproducibility of the overall solver: two calls with
// identical inputs must produce identical Ritz estimates, so the starting
// vector cannot be left to an unseeded or time-seeded generator.
const randSeed = 1

// Syiram estimates the leftmost eigenvalue of the dense symmetric matrix a
// using the implicitly restarted Arnoldi method. It returns the Ritz value
// estimate theta and an error estimate err; convergence is indicated by
// err < tol (err is exactly 0 when the short-circuit path below is
// taken).
//
// If the order of a is no larger than innerMax, Syiram short-circuits to a
// direct dense eigendecomposition of a and returns the smallest eigenvalue
// with a zero error estimate. Otherwise it runs at most outerMax outer
// (implicit-restart) iterations, each consisting of an Arnoldi expansion
// to innerMax steps with Daniel-Gragg-Kaufman-Stewart (DGKS) double
// reorthogonalization, followed by innerMax-1 Wilkinson-shifted QR steps
// that compress the factorization back down to two starting vectors for
// the next outer iteration.
func Syiram(a mat.Symmetric, innerMax, outerMax int, tol float64) (theta, err float64) {
	m := a.SymmetricDim()
	if m <= innerMax {
		var ed mat.EigenSym
		if ok := ed.Factorize(a, false); !ok {
			panic("eigen: eigendecomposition failed to converge")
		}
		return ed.Values(nil)[0], 0
	}

	v := mat.NewDense(m, innerMax+1, nil)
	rnd := rand.New(rand.NewSource(randSeed))
	v0 := v.ColView(0).(*mat.VecDense)
	for i := 0; i < m; i++ {
		v0.SetVec(i, rnd.Float64())
	}
	v0.ScaleVec(1/mat.Norm(v0, 2), v0)

	hp := mat.NewSymDense(innerMax, nil)
	var normV float64

	for outer := 1; outer <= outerMax; outer++ {
		gsStart := 1
		if outer > 1 {
			gsStart = 2
		}

		for k := gsStart; k <= innerMax; k++ {
			vk := v.ColView(k - 1).(*mat.VecDense)
			vk1 := v.ColView(k).(*mat.VecDense)
			vk1.MulVec(a, vk)

			for dgks := 0; dgks < 2; dgks++ {
				for i := 1; i <= k; i++ {
					vi := v.ColView(i - 1).(*mat.VecDense)
					alpha := mat.Dot(vk1, vi)
					hp.SetSym(i-1, k-1, hp.At(i-1, k-1)+alpha)
					vk1.AddScaledVec(vk1, -alpha, vi)
				}
			}
			normV = mat.Norm(vk1, 2)
			vk1.ScaleVec(1/normV, vk1)
		}

		var ed mat.EigenSym
		if ok := ed.Factorize(hp, false); !ok {
			panic("eigen: Ritz eigendecomposition failed to converge")
		}
		w := ed.Values(nil)

		qAll := identity(innerMax)
		for i := innerMax; i >= 2; i-- {
			h := toDense(hp)
			shift := w[i-1]
			for d := 0; d < innerMax; d++ {
				h.Set(d, d, h.At(d, d)-shift)
			}

			var qr mat.QR
			qr.Factorize(h)
			var q mat.Dense
			qr.QTo(&q)

			hOrig := toDense(hp)
			var hq mat.Dense
			hq.Mul(hOrig, &q)
			var qhq mat.Dense
			qhq.Mul(q.T(), &hq)
			hp = fromDense(&qhq, innerMax)

			var next mat.Dense
			next.Mul(qAll, &q)
			qAll = &next
		}

		v1 := mat.NewVecDense(m, nil)
		v1.MulVec(v.Slice(0, m, 0, innerMax), qAll.ColView(0))
		v2 := mat.NewVecDense(m, nil)
		v2.MulVec(v.Slice(0, m, 0, innerMax), qAll.ColView(1))
		v2.ScaleVec(hp.At(1, 0), v2)
		vLast := v.ColView(innerMax).(*mat.VecDense)
		v2.AddScaledVec(v2, normV*qAll.At(innerMax-1, 0), vLast)

		h11 := hp.At(0, 0)
		normV = mat.Norm(v2, 2)
		hp = mat.NewSymDense(innerMax, nil)
		hp.SetSym(0, 0, h11)
		v2.ScaleVec(1/normV, v2)

		v.ColView(0).(*mat.VecDense).CopyVec(v1)
		v.ColView(1).(*mat.VecDense).CopyVec(v2)

		if normV < tol {
			break
		}
	}

	return hp.At(0, 0), normV
}

func identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

func toDense(s *mat.SymDense) *mat.Dense {
	n := s.SymmetricDim()
	d := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			d.Set(i, j, s.At(i, j))
		}
	}
	return d
}

func fromDense(d *mat.Dense, n int) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			s.SetSym(i, j, d.At(i, j))
		}
	}
	return s
}
