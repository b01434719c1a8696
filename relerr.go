// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// RelErrCached returns the relative error between x and a cached vector
// cached, for deciding whether a memoized operator application is still
// valid. If cached is nil the cache is considered empty and RelErrCached
// returns +Inf. Otherwise it returns
//
//	||x - cached|| / (eps + ||x||)
//
// where eps is the machine epsilon for float64.
func RelErrCached(x mat.Vector, cached *mat.VecDense) float64 {
	if cached == nil {
		return math.Inf(1)
	}
	diff := mat.NewVecDense(x.Len(), nil)
	diff.SubVec(cached, x)
	return mat.Norm(diff, 2) / (eps + mat.Norm(x, 2))
}

// eps is the machine epsilon for float64, matching the teacher's own
// linsolve package constant of the same name and purpose.
const eps = 1.0 / (1 << 53)
