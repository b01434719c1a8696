// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tpcg

import (
	"math"
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

// nanOnCall wraps an Operator and replaces its output with NaN on the
// failOn'th call (0-indexed), leaving every other call untouched.
type nanOnCall struct {
	base   krylov.Operator
	failOn int
	calls  int
}

func (n *nanOnCall) Eval(x mat.Vector, y *mat.VecDense) {
	n.base.Eval(x, y)
	if n.calls == n.failOn {
		for i := 0; i < y.Len(); i++ {
			y.SetVec(i, math.NaN())
		}
	}
	n.calls++
}

func TestSolveCGOnSPD(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{4, 1, 1, 3})
	b := mat.NewVecDense(2, []float64{1, 2})

	res := Solve(denseOperator(a), krylov.Identity, b, &Settings{
		Tolerance:     1e-12,
		MaxIterations: 10,
		OrthogMax:     3,
	})

	if res.Stop != RelativeErrorSmall {
		t.Fatalf("got stop %v, want RelativeErrorSmall", res.Stop)
	}
	if res.Iterations != 2 {
		t.Fatalf("got %d iterations, want 2", res.Iterations)
	}
	want := []float64{0.0909091, 0.6363636}
	for i, w := range want {
		if !floats.EqualWithinAbs(res.X.AtVec(i), w, 1e-6) {
			t.Errorf("x[%d] = %v, want %v", i, res.X.AtVec(i), w)
		}
	}
}

func TestSolveTrustRegionViolated(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{4, 1, 1, 3})
	b := mat.NewVecDense(2, []float64{1, 2})

	res := Solve(denseOperator(a), krylov.Identity, b, &Settings{
		Tolerance:     1e-12,
		MaxIterations: 10,
		Delta:         0.1,
	})

	if res.Stop != TrustRegionViolated {
		t.Fatalf("got stop %v, want TrustRegionViolated", res.Stop)
	}
	if got := mat.Norm(res.X, 2); !floats.EqualWithinAbs(got, 0.1, 1e-12) {
		t.Errorf("||x|| = %v, want 0.1", got)
	}
}

func TestSolveNegativeCurvature(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 0, -1})
	b := mat.NewVecDense(2, []float64{1, 1})

	res := Solve(denseOperator(a), krylov.Identity, b, &Settings{
		Tolerance:     1e-12,
		MaxIterations: 10,
		Delta:         5,
		OrthogMax:     1,
	})

	if res.Stop != NegativeCurvature {
		t.Fatalf("got stop %v, want NegativeCurvature", res.Stop)
	}
	if got := mat.Norm(res.X, 2); !floats.EqualWithinAbs(got, 5, 1e-9) {
		t.Errorf("||x|| = %v, want 5", got)
	}
}

func TestSolveInvalidOffset(t *testing.T) {
	a := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		a.Set(i, i, 1)
	}
	b := mat.NewVecDense(3, nil)

	res := Solve(denseOperator(a), krylov.Identity, b, &Settings{
		Tolerance:     1e-12,
		MaxIterations: 10,
		Delta:         1,
		XOffset:       mat.NewVecDense(3, []float64{2, 0, 0}),
	})

	if res.Stop != InvalidTrustRegionOffset {
		t.Fatalf("got stop %v, want InvalidTrustRegionOffset", res.Stop)
	}
	if res.Iterations != 0 {
		t.Errorf("iter = %d, want 0", res.Iterations)
	}
	for i := 0; i < 3; i++ {
		if res.X.AtVec(i) != 0 {
			t.Errorf("x[%d] = %v, want 0", i, res.X.AtVec(i))
		}
	}
}

// TestSolveNanPreconditionerImmediate throws a NaN on the preconditioner's
// very first call, before any iteration completes. The solution must come
// back untouched at zero with no iterations credited.
func TestSolveNanPreconditionerImmediate(t *testing.T) {
	a := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		a.Set(i, i, 1)
	}
	b := mat.NewVecDense(3, []float64{1, 1, 1})
	proj := &nanOnCall{base: krylov.Identity, failOn: 0}

	res := Solve(denseOperator(a), proj, b, &Settings{
		Tolerance:     1e-12,
		MaxIterations: 10,
	})

	if res.Stop != NanDetected {
		t.Fatalf("got stop %v, want NanDetected", res.Stop)
	}
	if res.Iterations != 0 {
		t.Errorf("iter = %d, want 0", res.Iterations)
	}
	for i := 0; i < 3; i++ {
		if res.X.AtVec(i) != 0 {
			t.Errorf("x[%d] = %v, want 0", i, res.X.AtVec(i))
		}
	}
}

// TestSolveNanPreconditionerAfterOneIteration throws a NaN on the
// preconditioner's second call, i.e. after the first iteration has already
// been accepted. The solver must disregard the failed second iteration and
// report exactly the one-iteration solution.
func TestSolveNanPreconditionerAfterOneIteration(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{4, 1, 1, 3})
	b := mat.NewVecDense(2, []float64{1, 2})

	warmup := Solve(denseOperator(a), krylov.Identity, b, &Settings{
		Tolerance:     1e-12,
		MaxIterations: 1,
	})
	if warmup.Iterations != 1 {
		t.Fatalf("warmup: got %d iterations, want 1", warmup.Iterations)
	}

	proj := &nanOnCall{base: krylov.Identity, failOn: 1}
	res := Solve(denseOperator(a), proj, b, &Settings{
		Tolerance:     1e-12,
		MaxIterations: 500,
	})

	if res.Stop != NanDetected {
		t.Fatalf("got stop %v, want NanDetected", res.Stop)
	}
	if res.Iterations != 1 {
		t.Errorf("iter = %d, want 1", res.Iterations)
	}
	for i := 0; i < 2; i++ {
		if !floats.EqualWithinAbs(res.X.AtVec(i), warmup.X.AtVec(i), 1e-12) {
			t.Errorf("x[%d] = %v, want %v (the one-iteration solution)", i, res.X.AtVec(i), warmup.X.AtVec(i))
		}
	}
}

func TestStopStringRoundTrip(t *testing.T) {
	stops := []Stop{
		NotConverged, NegativeCurvature, RelativeErrorSmall, MaxItersExceeded,
		TrustRegionViolated, NanDetected, LossOfOrthogonality,
		InvalidTrustRegionOffset, TooManyFailedSafeguard, ObjectiveIncrease,
	}
	for _, s := range stops {
		if got := ParseStop(s.String()); got != s {
			t.Errorf("ParseStop(%q) = %v, want %v", s.String(), got, s)
		}
	}
}

func TestCauchyPointLaw(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	n := 4
	aData := make([]float64, n*n)
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aData[i*n+j] = rnd.Float64()
		}
	}
	base := mat.NewDense(n, n, aData)
	m.Mul(base.T(), base)
	for i := 0; i < n; i++ {
		m.Set(i, i, m.At(i, i)+float64(n))
	}

	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, rnd.Float64())
	}

	res := Solve(denseOperator(m), krylov.Identity, b, &Settings{
		Tolerance:     1e-12,
		MaxIterations: 1,
	})

	ab := mat.NewVecDense(n, nil)
	ab.MulVec(m, b)
	scale := mat.Dot(b, b) / mat.Dot(b, ab)
	want := mat.NewVecDense(n, nil)
	want.ScaleVec(scale, b)

	for i := 0; i < n; i++ {
		if !floats.EqualWithinAbsOrRel(res.XCauchy.AtVec(i), want.AtVec(i), 1e-8, 1e-8) {
			t.Errorf("x_cp[%d] = %v, want %v", i, res.XCauchy.AtVec(i), want.AtVec(i))
		}
	}
}

func TestPositiveDefiniteConvergence(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	n := 5
	base := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			base.Set(i, j, rnd.Float64())
		}
	}
	m := mat.NewDense(n, n, nil)
	m.Mul(base.T(), base)
	for i := 0; i < n; i++ {
		m.Set(i, i, m.At(i, i)+float64(n))
	}
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, rnd.Float64())
	}

	res := Solve(denseOperator(m), krylov.Identity, b, &Settings{
		Tolerance:     1e-14,
		MaxIterations: n + 1,
		OrthogMax:     n + 1,
	})

	resid := mat.NewVecDense(n, nil)
	resid.MulVec(m, res.X)
	resid.SubVec(resid, b)
	if got := mat.Norm(resid, 2) / mat.Norm(b, 2); got > 1e-6 {
		t.Errorf("||Ax-b||/||b|| = %v, want <= 1e-6", got)
	}
	if math.IsNaN(res.NormBr) {
		t.Fatalf("final residual norm is NaN")
	}
}
