// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tpcg implements the truncated projected conjugate gradient
// method for the trust-region subproblem A*B*x = rhs subject to
// ||x+x_offset|| <= delta, with optional multi-direction
// A-orthogonalization, an orthogonality self-check, and safeguarded step
// truncation.
package tpcg

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optnum/krylov"
	"github.com/optnum/krylov/twoqp"
)

const defaultTolerance = 1e-8

// Settings holds the tunable parameters of a Solve call. The zero value is
// filled in with defaults by defaultSettings.
type Settings struct {
	// Tolerance bounds ||Br|| / ||Br0||. Defaults to 1e-8 if zero.
	Tolerance float64

	// MaxIterations caps the number of CG iterations. Defaults to 2*dim if
	// zero.
	MaxIterations int

	// OrthogMax bounds the number of past search directions kept for
	// A-orthogonalization. 1 gives plain CG; defaults to 1 if zero.
	OrthogMax int

	// Delta is the trust-region radius. Defaults to +Inf (no trust region)
	// if zero.
	Delta float64

	// XOffset shifts the trust-region check to ||x+XOffset|| <= Delta.
	// Defaults to the zero vector if nil.
	XOffset *mat.VecDense

	// CheckOrthogonality enables the O-matrix self-check described in
	// Stop's LossOfOrthogonality case. Only meaningful when B is a
	// projection rather than a general preconditioner.
	CheckOrthogonality bool

	// MaxFailedSafeguard caps the number of consecutive safeguard failures
	// before giving up and rolling back to the last safe iterate. Defaults
	// to dim if zero.
	MaxFailedSafeguard int

	// Safeguard bounds step length to a feasible region. Defaults to
	// krylov.NoSafeguard if nil.
	Safeguard krylov.Safeguard
}

func defaultSettings(s *Settings, dim int) {
	if s.Tolerance == 0 {
		s.Tolerance = defaultTolerance
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 2 * dim
	}
	if s.OrthogMax == 0 {
		s.OrthogMax = 1
	}
	if s.Delta == 0 {
		s.Delta = math.Inf(1)
	}
	if s.XOffset == nil {
		s.XOffset = mat.NewVecDense(dim, nil)
	}
	if s.MaxFailedSafeguard == 0 {
		s.MaxFailedSafeguard = dim
	}
	if s.Safeguard == nil {
		s.Safeguard = krylov.NoSafeguard
	}
}

func checkSettings(s *Settings, dim int) {
	if s.Tolerance <= 0 || s.Tolerance >= 1 {
		panic("tpcg: invalid tolerance")
	}
	if s.MaxIterations <= 0 {
		panic("tpcg: invalid max iterations")
	}
	if s.OrthogMax < 1 {
		panic("tpcg: OrthogMax must be >= 1")
	}
	if s.Delta <= 0 {
		panic("tpcg: invalid trust-region radius")
	}
	if s.XOffset.Len() != dim {
		panic("tpcg: mismatched x_offset length")
	}
	if s.MaxFailedSafeguard <= 0 {
		panic("tpcg: invalid failed-safeguard limit")
	}
}

// Result holds the outcome of a Solve call.
type Result struct {
	// X is the final iterate.
	X *mat.VecDense
	// XCauchy is the Cauchy point, the iterate after the first iteration
	// (safeguard-truncated if the safeguard fired on that step).
	XCauchy *mat.VecDense
	// NormBr0 is the norm of the initial projected residual.
	NormBr0 float64
	// NormBr is the norm of the final projected residual.
	NormBr float64
	// Iterations is the number of iterations performed.
	Iterations int
	// Stop is the reason the iteration terminated.
	Stop Stop
	// FailedSafeguard is the number of consecutive failed safeguard steps
	// upon exit.
	FailedSafeguard int
	// AlphaSafeguard is the truncation factor applied to the last step.
	AlphaSafeguard float64
}

// Solve computes the truncated projected conjugate gradient step for
// A*B*x = rhs, where a applies A and proj applies the projection or
// preconditioner B. rhs is not modified.
func Solve(a, proj krylov.Operator, rhs mat.Vector, settings *Settings) *Result {
	n := rhs.Len()

	var s Settings
	if settings != nil {
		s = *settings
	}
	defaultSettings(&s, n)
	checkSettings(&s, n)

	x := mat.NewVecDense(n, nil)
	xCauchy := mat.NewVecDense(n, nil)
	res := &Result{X: x, XCauchy: xCauchy, AlphaSafeguard: 1}

	shiftedIterate := mat.NewVecDense(n, nil)
	shiftedIterate.CopyVec(s.XOffset)
	normShiftedIterate := mat.Norm(shiftedIterate, 2)
	if normShiftedIterate > s.Delta {
		res.Stop = InvalidTrustRegionOffset
		return res
	}

	r := mat.NewVecDense(n, nil)
	r.ScaleVec(-1, rhs)
	br := mat.NewVecDense(n, nil)
	proj.Eval(r, br)
	normBr0 := mat.Norm(br, 2)
	res.NormBr0 = normBr0
	normBr := normBr0

	bdx := mat.NewVecDense(n, nil)
	bdx.ScaleVec(-1, br)
	abdx := mat.NewVecDense(n, nil)

	var bdxs, abdxs []*mat.VecDense

	var rs, brs []*mat.VecDense
	var normBrs []float64
	var orthog [][]float64
	const epsOrthog = 0.5

	failedSafeguard := 0
	xSafe := mat.NewVecDense(n, nil)
	xSafe.CopyVec(x)
	bdxSafe := mat.NewVecDense(n, nil)
	abdxSafe := mat.NewVecDense(n, nil)
	rSafe := mat.NewVecDense(n, nil)
	rSafe.CopyVec(r)
	shiftedIterateSafe := mat.NewVecDense(n, nil)
	shiftedIterateSafe.CopyVec(shiftedIterate)

	// objRed computes the CG objective reduction alpha*(<ABdx,x+alpha/2
	// Bdx> - <rhs,Bdx>) of the trial step alpha*Bdx, using the current
	// x/bdx/abdx closed over by reference.
	tmp := mat.NewVecDense(n, nil)
	objRed := func(alpha float64) float64 {
		tmp.AddScaledVec(x, 0.5*alpha, bdx)
		return alpha * (mat.Dot(abdx, tmp) - mat.Dot(rhs, bdx))
	}

	stop := NotConverged
	alphaSafeguard := 1.0
	iter := 1
	shiftedTrial := mat.NewVecDense(n, nil)

	for stop == NotConverged {
		a.Eval(bdx, abdx)

		// A-orthogonalize bdx (and correspondingly abdx) against the
		// stored history.
		for i, v := range bdxs {
			beta := mat.Dot(abdxs[i], bdx)
			bdx.AddScaledVec(bdx, -beta, v)
			abdx.AddScaledVec(abdx, -beta, abdxs[i])
		}

		// Enforce a descent direction; bad operators can otherwise hand us
		// an ascent step.
		if mat.Dot(bdx, r) > 0 {
			bdx.ScaleVec(-1, bdx)
			abdx.ScaleVec(-1, abdx)
		}

		kappa := mat.Dot(bdx, abdx)
		if math.IsNaN(kappa) {
			stop = NanDetected
		}
		if kappa <= 0 && stop == NotConverged {
			stop = NegativeCurvature
		}

		alpha := math.NaN()

		if stop == NotConverged {
			if len(bdxs) == s.OrthogMax {
				bdxs = bdxs[1:]
				abdxs = abdxs[1:]
			}

			normBdxA := math.Sqrt(kappa)
			bdxHist := mat.NewVecDense(n, nil)
			bdxHist.ScaleVec(1/normBdxA, bdx)
			bdxs = append(bdxs, bdxHist)
			abdxHist := mat.NewVecDense(n, nil)
			abdxHist.ScaleVec(1/normBdxA, abdx)
			abdxs = append(abdxs, abdxHist)

			alpha = -mat.Dot(r, bdx) / kappa

			shiftedTrial.AddScaledVec(shiftedIterate, alpha, bdx)
			normShiftedTrial := mat.Norm(shiftedTrial, 2)
			if normShiftedTrial >= s.Delta {
				stop = TrustRegionViolated
			}

			if s.CheckOrthogonality {
				if len(rs) == s.OrthogMax {
					rs = rs[1:]
					brs = brs[1:]
					normBrs = normBrs[1:]
					orthog = orthog[1:]
					for j := range orthog {
						orthog[j] = orthog[j][1:]
					}
				}

				rCopy := mat.NewVecDense(n, nil)
				rCopy.CopyVec(r)
				brCopy := mat.NewVecDense(n, nil)
				brCopy.CopyVec(br)

				col := make([]float64, 0, len(rs)+1)
				for i := range brs {
					col = append(col, mat.Dot(brs[i], rCopy)/(normBrs[i]*normBr))
				}

				rs = append(rs, rCopy)
				brs = append(brs, brCopy)
				normBrs = append(normBrs, normBr)
				orthog = append(orthog, col)

				for j := range rs {
					entry := mat.Dot(brCopy, rs[j]) / (normBr * normBrs[j])
					orthog[j] = append(orthog[j], entry)
				}
				last := len(orthog) - 1
				orthog[last][len(orthog[last])-1] -= 1

				normO := 0.0
				for _, c := range orthog {
					for _, v := range c {
						normO += v * v
					}
				}
				normO = math.Sqrt(normO)
				if normO > epsOrthog {
					stop = LossOfOrthogonality
				}
			}
		}

		if objRed(alpha) > 0 && stop == NotConverged {
			stop = ObjectiveIncrease
		}

		if failedSafeguard == 0 {
			if stop != NanDetected && stop != LossOfOrthogonality && stop != ObjectiveIncrease {
				bdxSafe.ScaleVec(alpha, bdx)
				abdxSafe.ScaleVec(alpha, abdx)
			} else {
				bdxSafe.Zero()
				abdxSafe.Zero()
			}
		}

		if stop != NotConverged {
			switch stop {
			case TrustRegionViolated, NegativeCurvature:
				sigma := 0.0
				if !math.IsInf(s.Delta, 1) {
					aa := mat.Dot(bdx, bdx)
					bb := 2 * mat.Dot(bdx, shiftedIterate)
					cc := normShiftedIterate*normShiftedIterate - s.Delta*s.Delta
					for _, root := range twoqp.Equation(aa, bb, cc) {
						if root > sigma {
							sigma = root
						}
					}
				} else if iter == 1 {
					sigma = 1
				}

				trial := mat.NewVecDense(n, nil)
				trial.AddScaledVec(x, sigma, bdx)
				alphaSafeguard = krylov.ClampUnit(s.Safeguard(s.XOffset, trial))
				if alphaSafeguard < 1 {
					failedSafeguard = 0
				} else if failedSafeguard == 0 {
					sigmaBdx := mat.NewVecDense(n, nil)
					sigmaBdx.ScaleVec(sigma, bdx)
					alphaSafeguard = krylov.ClampUnit(s.Safeguard(shiftedIterate, sigmaBdx))
				} else {
					alphaSafeguard = 1
				}

				if objRed(alphaSafeguard*sigma) <= 0 {
					x.AddScaledVec(x, alphaSafeguard*sigma, bdx)
					shiftedIterate.AddScaledVec(shiftedIterate, alphaSafeguard*sigma, bdx)
					r.AddScaledVec(r, alphaSafeguard*sigma, abdx)
					proj.Eval(r, br)
					normBr = mat.Norm(br, 2)
				}

			case NanDetected, LossOfOrthogonality, ObjectiveIncrease:
				// Trust nothing from this iteration; leave x unmodified.
			}

			if iter == 1 {
				xCauchy.CopyVec(x)
			}
			break
		}

		x.AddScaledVec(x, alpha, bdx)
		shiftedIterate.CopyVec(shiftedTrial)
		normShiftedIterate = mat.Norm(shiftedIterate, 2)

		r.AddScaledVec(r, alpha, abdx)
		proj.Eval(r, br)
		normBr = mat.Norm(br, 2)

		alphaSafeguard = krylov.ClampUnit(s.Safeguard(s.XOffset, x))
		if alphaSafeguard < 1 {
			failedSafeguard++
		} else {
			failedSafeguard = 0
			xSafe.CopyVec(x)
			rSafe.CopyVec(r)
			shiftedIterateSafe.CopyVec(shiftedIterate)
		}

		if iter == 1 {
			xCauchy.CopyVec(x)
			if failedSafeguard > 0 {
				xCauchy.ScaleVec(alphaSafeguard, xCauchy)
			}
		}

		bdx.ScaleVec(-1, br)

		switch {
		case failedSafeguard >= s.MaxFailedSafeguard:
			stop = TooManyFailedSafeguard
		case normBr <= s.Tolerance*normBr0:
			stop = RelativeErrorSmall
		case iter >= s.MaxIterations:
			stop = MaxItersExceeded
		default:
			iter++
		}
	}

	if failedSafeguard > 0 {
		x.CopyVec(xSafe)
		r.CopyVec(rSafe)
		shiftedIterate.CopyVec(shiftedIterateSafe)
		bdx.CopyVec(bdxSafe)
		abdx.CopyVec(abdxSafe)

		alphaSafeguard = krylov.ClampUnit(s.Safeguard(shiftedIterate, bdx))
		if objRed(alphaSafeguard) <= 0 {
			x.AddScaledVec(x, alphaSafeguard, bdx)
			shiftedIterate.AddScaledVec(shiftedIterate, alphaSafeguard, bdx)
			r.AddScaledVec(r, alphaSafeguard, abdx)
			proj.Eval(r, br)
			normBr = mat.Norm(br, 2)
		}
	}

	res.NormBr = normBr
	switch stop {
	case NanDetected, LossOfOrthogonality, ObjectiveIncrease:
		// These stops leave x untouched for the current iteration attempt,
		// so that attempt was never actually completed; report the last
		// iteration that was.
		res.Iterations = iter - 1
	default:
		res.Iterations = iter
	}
	res.Stop = stop
	res.FailedSafeguard = failedSafeguard
	res.AlphaSafeguard = alphaSafeguard
	return res
}
