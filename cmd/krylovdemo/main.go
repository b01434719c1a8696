// Copyright ©2024 The Krylov Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command krylovdemo builds a random symmetric positive-definite
// trust-region subproblem, solves it with the truncated projected
// conjugate gradient method, and reports the stop reason and solution.
package main

import (
	"flag"
	"fmt"
	"log"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/optnum/krylov"
	"github.com/optnum/krylov/tpcg"
)

func main() {
	n := flag.Int("n", 5, "dimension of the random trust-region subproblem")
	delta := flag.Float64("delta", 10, "trust-region radius")
	tol := flag.Float64("tol", 1e-10, "relative residual tolerance")
	maxIter := flag.Int("maxiter", 50, "maximum number of TPCG iterations")
	seed := flag.Uint64("seed", 1, "random seed for the test problem")
	flag.Parse()

	if *n <= 0 {
		log.Fatalf("krylovdemo: n must be positive, got %d", *n)
	}

	rnd := rand.New(rand.NewSource(*seed))
	base := mat.NewDense(*n, *n, nil)
	for i := 0; i < *n; i++ {
		for j := 0; j < *n; j++ {
			base.Set(i, j, rnd.Float64())
		}
	}
	a := mat.NewDense(*n, *n, nil)
	a.Mul(base.T(), base)
	for i := 0; i < *n; i++ {
		a.Set(i, i, a.At(i, i)+float64(*n))
	}

	b := mat.NewVecDense(*n, nil)
	for i := 0; i < *n; i++ {
		b.SetVec(i, rnd.Float64())
	}

	op := krylov.OperatorFunc(func(x mat.Vector, y *mat.VecDense) {
		y.MulVec(a, x)
	})

	res := tpcg.Solve(op, krylov.Identity, b, &tpcg.Settings{
		Tolerance:     *tol,
		MaxIterations: *maxIter,
		Delta:         *delta,
	})

	fmt.Printf("stop reason:   %s\n", res.Stop)
	fmt.Printf("iterations:    %d\n", res.Iterations)
	fmt.Printf("||x||:         %.6g\n", mat.Norm(res.X, 2))
	fmt.Printf("||Br||:        %.6g -> %.6g\n", res.NormBr0, res.NormBr)
	fmt.Print("x:             [")
	for i := 0; i < res.X.Len(); i++ {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Printf("%.6g", res.X.AtVec(i))
	}
	fmt.Println("]")
}
