// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gmres

import (
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/optnum/krylov"
)

func denseOperator(a *mat.Dense) krylov.Operator {
	return krylov.OperatorFunc(func(x mat.Vector, y *mat.VecDense) {
		y.MulVec(a, x)
	})
}

// TestSolveNonsymmetric3x3 solves the upper-bidiagonal system [[2,1,0],
// [0,2,1],[0,0,2]]*x = [1,1,1]. The exact solution by back-substitution is
// x = [0.375, 0.25, 0.5]; this is the correctly worked solution for that
// system (see DESIGN.md for the transcription discrepancy against the
// source scenario's stated digits).
func TestSolveNonsymmetric3x3(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		2, 1, 0,
		0, 2, 1,
		0, 0, 2,
	})
	b := mat.NewVecDense(3, []float64{1, 1, 1})

	res := Solve(denseOperator(a), b, nil, &Settings{
		Tolerance:     1e-10,
		MaxIterations: 3,
		RestartFreq:   3,
	})

	want := []float64{0.375, 0.25, 0.5}
	for i, w := range want {
		if !floats.EqualWithinAbs(res.X.AtVec(i), w, 1e-8) {
			t.Errorf("x[%d] = %v, want %v", i, res.X.AtVec(i), w)
		}
	}
	if res.Iterations > 3 {
		t.Errorf("iterations = %d, want <= 3", res.Iterations)
	}
}

func TestSolveRestartInvariance(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	n := 6
	base := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			base.Set(i, j, rnd.Float64())
		}
	}
	a := mat.NewDense(n, n, nil)
	a.Mul(base.T(), base)
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+float64(n))
	}
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, rnd.Float64())
	}

	full := Solve(denseOperator(a), b, nil, &Settings{
		Tolerance:     1e-10,
		MaxIterations: n,
		RestartFreq:   n,
	})
	restarted := Solve(denseOperator(a), b, nil, &Settings{
		Tolerance:     1e-10,
		MaxIterations: n,
		RestartFreq:   0,
	})

	for i := 0; i < n; i++ {
		if !floats.EqualWithinAbsOrRel(full.X.AtVec(i), restarted.X.AtVec(i), 1e-8, 1e-8) {
			t.Errorf("x[%d]: full=%v restarted(0)=%v", i, full.X.AtVec(i), restarted.X.AtVec(i))
		}
	}
}

func TestSolveResidualIdentity(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		4, 1, 0,
		1, 3, 1,
		0, 1, 2,
	})
	b := mat.NewVecDense(3, []float64{1, 2, 3})

	res := Solve(denseOperator(a), b, nil, &Settings{
		Tolerance:     1e-10,
		MaxIterations: 3,
		RestartFreq:   3,
	})

	resid := mat.NewVecDense(3, nil)
	resid.MulVec(a, res.X)
	resid.SubVec(resid, b)
	got := mat.Norm(resid, 2)
	if !floats.EqualWithinAbs(got, res.ResidualNorm, 1e-9) {
		t.Errorf("recomputed residual norm %v, reported %v", got, res.ResidualNorm)
	}
}
