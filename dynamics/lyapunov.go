// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dynamics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// reorthoInterval is how many tangent-propagation steps run between
// QR re-orthonormalizations of the tangent basis.
const reorthoInterval = 10

// LyapunovSpectrum estimates the n largest Lyapunov exponents of the
// closed-loop system by propagating an orthonormal tangent basis
// through divideNum windows of blockLen steps each, re-orthonormalizing
// by QR and accumulating the log column norms.  Exponents are returned
// sorted in descending order, in nats per step.  ok is false when the
// spectrum could not be determined (degenerate tangent basis or a
// diverged trajectory).
func LyapunovSpectrum(sy *System, n, blockLen, divideNum int) ([]float64, bool) {
	if n <= 0 || blockLen <= 0 || divideNum <= 0 {
		return nil, false
	}
	dim := sy.Dim()
	if n > dim {
		n = dim
	}
	q := mat.NewDense(dim, n, nil)
	for i := 0; i < n; i++ {
		q.Set(i, i, 1)
	}
	jac := mat.NewDense(dim, dim, nil)
	prod := mat.NewDense(dim, n, nil)
	sums := make([]float64, n)
	steps := 0
	for w := 0; w < divideNum; w++ {
		for s := 0; s < blockLen; s++ {
			if !sy.Finite() {
				return nil, false
			}
			sy.Jacobian(jac)
			prod.Mul(jac, q)
			q, prod = prod, q
			sy.Step()
			steps++
			if steps%reorthoInterval == 0 || (w == divideNum-1 && s == blockLen-1) {
				if !reortho(q, sums) {
					return nil, false
				}
			}
		}
	}
	exps := make([]float64, n)
	total := float64(blockLen * divideNum)
	for i := range exps {
		exps[i] = sums[i] / total
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(exps)))
	return exps, true
}

// reortho replaces the columns of q with their orthonormalization and
// adds the log diagonal of R to sums.  Returns false on a degenerate
// basis.
func reortho(q *mat.Dense, sums []float64) bool {
	dim, n := q.Dims()
	var qr mat.QR
	qr.Factorize(q)
	var qm, rm mat.Dense
	qr.QTo(&qm)
	qr.RTo(&rm)
	for i := 0; i < n; i++ {
		d := math.Abs(rm.At(i, i))
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return false
		}
		sums[i] += math.Log(d)
	}
	q.Copy(qm.Slice(0, dim, 0, n))
	return true
}
