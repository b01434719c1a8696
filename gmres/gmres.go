// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gmres implements restarted GMRES for general, possibly
// nonsymmetric systems A*x = rhs, with left and right preconditioning and
// a pluggable tolerance manipulator.
package gmres

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/optnum/krylov"
)

const defaultTolerance = 1e-8

// Settings holds the tunable parameters of a Solve call. The zero value is
// filled in with defaults by defaultSettings.
type Settings struct {
	// Tolerance bounds the true (non-preconditioned) residual norm.
	// Defaults to 1e-8 if zero.
	Tolerance float64

	// MaxIterations caps the total number of GMRES sub-iterations across
	// all restart cycles. Defaults to 2*dim if zero.
	MaxIterations int

	// RestartFreq is the restart period. It defaults to the problem
	// dimension dim if zero, and a value larger than dim is reduced to dim.
	// A zero value therefore means no restart only when MaxIterations does
	// not exceed dim; otherwise GMRES restarts every dim sub-iterations.
	RestartFreq int

	// Left and Right are the left and right preconditioners. Both default
	// to krylov.Identity if nil.
	Left, Right krylov.Operator

	// Manipulator is invoked after every sub-iteration with the chance to
	// shrink or grow Tolerance. Defaults to krylov.NoGMRESManipulator{} if
	// nil.
	Manipulator krylov.GMRESManipulator
}

func defaultSettings(s *Settings, dim int) {
	if s.Tolerance == 0 {
		s.Tolerance = defaultTolerance
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 2 * dim
	}
	if s.RestartFreq == 0 {
		s.RestartFreq = dim
	}
	if s.RestartFreq > dim {
		s.RestartFreq = dim
	}
	if s.Left == nil {
		s.Left = krylov.Identity
	}
	if s.Right == nil {
		s.Right = krylov.Identity
	}
	if s.Manipulator == nil {
		s.Manipulator = krylov.NoGMRESManipulator{}
	}
}

func checkSettings(s *Settings, dim int) {
	if s.Tolerance <= 0 {
		panic("gmres: invalid tolerance")
	}
	if s.MaxIterations <= 0 {
		panic("gmres: invalid max iterations")
	}
	if s.RestartFreq <= 0 || s.RestartFreq > dim {
		panic("gmres: invalid restart frequency")
	}
}

// Result holds the outcome of a Solve call.
type Result struct {
	// X is the approximate solution.
	X *mat.VecDense
	// ResidualNorm is the norm of the true (non-preconditioned) final
	// residual A*X - rhs.
	ResidualNorm float64
	// Iterations is the total number of sub-iterations performed.
	Iterations int
}

// givensRotation is a 2x2 orthogonal rotation used to reduce the packed
// Hessenberg column to upper triangular form.
type givensRotation struct{ c, s float64 }

func (g givensRotation) apply(x, y float64) (float64, float64) {
	return g.c*x + g.s*y, g.c*y - g.s*x
}

// Solve computes an approximate solution to A*x = rhs using restarted
// GMRES. x0, if non-nil, is used as the initial guess; otherwise the zero
// vector is used.
func Solve(a krylov.Operator, rhs mat.Vector, x0 *mat.VecDense, settings *Settings) *Result {
	n := rhs.Len()

	var s Settings
	if settings != nil {
		s = *settings
	}
	defaultSettings(&s, n)
	checkSettings(&s, n)

	m := s.RestartFreq

	x := mat.NewVecDense(n, nil)
	if x0 != nil {
		x.CopyVec(x0)
	}

	v := mat.NewDense(n, m+1, nil)
	packed := make([]float64, m*(m+1)/2)
	givs := make([]givensRotation, m)
	rhsVec := mat.NewVecDense(m+1, nil)

	tmp := mat.NewVecDense(n, nil)
	precond := mat.NewVecDense(n, nil)

	computeResidual := func(dst *mat.VecDense) {
		a.Eval(x, tmp)
		dst.SubVec(rhs, tmp)
	}

	vcol := func(j int) *mat.VecDense { return v.ColView(j).(*mat.VecDense) }

	var normR float64
	doReset := func() {
		computeResidual(tmp)
		s.Left.Eval(tmp, precond)
		normR = mat.Norm(precond, 2)
		v0 := vcol(0)
		v0.ScaleVec(1/normR, precond)
		rhsVec.Zero()
		rhsVec.SetVec(0, normR)
		for i := range givs {
			givs[i] = givensRotation{}
		}
	}
	doReset()

	var (
		trueResidualNorm float64
		iters            int
		dx               = mat.NewVecDense(n, nil)
	)

	eps := s.Tolerance
	converged := false
	for iters < s.MaxIterations {
		i := iters % m
		if i == 0 && iters > 0 {
			doReset()
		}

		vi := vcol(i)
		s.Right.Eval(vi, precond)
		a.Eval(precond, tmp)
		wi1 := vcol(i + 1)
		s.Left.Eval(tmp, wi1)

		// Classical Gram-Schmidt against v_0..v_i, storing coefficients as
		// column i of the packed upper-triangular Hessenberg factor.
		for j := 0; j <= i; j++ {
			packed[krylov.PackedUpper(j+1, i+1)] = mat.Dot(vcol(j), wi1)
		}
		for j := 0; j <= i; j++ {
			wi1.AddScaledVec(wi1, -packed[krylov.PackedUpper(j+1, i+1)], vcol(j))
		}
		normW := mat.Norm(wi1, 2)
		wi1.ScaleVec(1/normW, wi1)

		// Apply the existing Givens rotations to the new column.
		for t := 0; t < i; t++ {
			a0 := packed[krylov.PackedUpper(t+1, i+1)]
			a1 := packed[krylov.PackedUpper(t+2, i+1)]
			r0, r1 := givs[t].apply(a0, a1)
			packed[krylov.PackedUpper(t+1, i+1)] = r0
			packed[krylov.PackedUpper(t+2, i+1)] = r1
		}

		// Form the new rotation that zeros the Hessenberg subdiagonal entry
		// normW, and apply it to the diagonal and the running RHS.
		diag := packed[krylov.PackedUpper(i+1, i+1)]
		c, sn, _, _ := blas64.Rotg(diag, normW)
		givs[i] = givensRotation{c: c, s: sn}
		newDiag, _ := givs[i].apply(diag, normW)
		packed[krylov.PackedUpper(i+1, i+1)] = newDiag

		s0, s1 := givs[i].apply(rhsVec.AtVec(i), rhsVec.AtVec(i+1))
		rhsVec.SetVec(i, s0)
		rhsVec.SetVec(i+1, s1)
		normR = math.Abs(rhsVec.AtVec(i + 1))

		// Solve the packed upper-triangular system for y, then form
		// dx = Mr^-1 * (V*y). blas64 reads packed data row-major, so the
		// column-major packed upper R is passed as the lower factor R' and
		// solved transposed.
		y := mat.NewVecDense(i+1, nil)
		y.CopyVec(rhsVec.SliceVec(0, i+1))
		blas64.Tpsv(blas.Trans, blas64.TriangularPacked{
			Uplo: blas.Lower,
			Diag: blas.NonUnit,
			N:    i + 1,
			Data: packed[:(i+1)*(i+2)/2],
		}, blas64.Vector{N: i + 1, Data: y.RawVector().Data, Inc: 1})

		vy := mat.NewVecDense(n, nil)
		for j := 0; j <= i; j++ {
			vy.AddScaledVec(vy, y.AtVec(j), vcol(j))
		}
		s.Right.Eval(vy, dx)

		tmp.AddVec(x, dx)
		a.Eval(tmp, precond)
		precond.SubVec(precond, rhs)
		trueResidualNorm = mat.Norm(precond, 2)
		iters++

		s.Manipulator.Eval(iters, tmp, rhs, &eps)

		if trueResidualNorm <= eps {
			x.CopyVec(tmp)
			converged = true
			break
		}

		if i == m-1 {
			x.AddVec(x, dx)
		}
	}

	// If the loop exhausted MaxIterations mid-cycle rather than converging,
	// the last computed correction was never folded into x; commit it now.
	if !converged && iters%m != 0 {
		x.AddVec(x, dx)
	}

	return &Result{X: x, ResidualNorm: trueResidualNorm, Iterations: iters}
}
