// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

// This file holds the pure index-mapping function the gmres subpackage
// uses to address packed upper-triangular storage, and documents the
// rectangular packed format (RPF), for which no mapping is implemented.
// PackedUpper takes 1-based coordinates to match the numerical derivations
// in the original algorithm verbatim; callers convert from Go's 0-based
// indices at the boundary.

// PackedUpper returns the 0-based flat offset of entry (i,j), i<=j, of a
// matrix stored column-by-column in packed upper-triangular form.
func PackedUpper(i, j int) int {
	return (j-1)*j/2 + (i - 1)
}

// RPF (rectangular packed format) is LAPACK's storage convention for a
// triangular or symmetric matrix that packs both triangular halves into a
// single rectangular block so the matrix factorizations that use it
// (dtfttp, dpftrf, ...) can be expressed with level-3 BLAS instead of
// level-2. This package does not reproduce LAPACK's exact RPF panel
// layout: the eigen subpackage's dense-kernel boundary (gsyiram's
// Cholesky of B) is realized through gonum.org/v1/gonum/mat.Cholesky,
// which operates on mat.SymDense rather than a raw RPF buffer, so the
// RPF<->packed-upper conversion the original algorithm performs
// (tfttp/pftrf) has no analogue to implement here: a *mat.SymDense built
// from PackedUpper coordinates already carries the same information.
// RPF is documented here, rather than implemented, because spec.md treats
// it purely as a boundary convention of the external dense-kernel
// provider (LAPACK), not as logic this package owns.
