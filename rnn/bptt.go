// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

// Grads accumulates error gradients for every trainable parameter in
// the network.  Accumulation across trials is plain summation, so the
// result is independent of trial order.
type Grads struct {
	WCI [][]float64
	WCC [][]float64
	WOC [][]float64
	WVC [][]float64
	ThC []float64
	ThO []float64
	ThV []float64
	Tau []float64
}

// NewGrads allocates a gradient buffer matching the network.
func NewGrads(nt *Network) *Grads {
	return &Grads{
		WCI: newMat(nt.CSize, nt.InSize),
		WCC: newMat(nt.CSize, nt.CSize),
		WOC: newMat(nt.OutSize, nt.CSize),
		WVC: newMat(nt.OutSize, nt.CSize),
		ThC: make([]float64, nt.CSize),
		ThO: make([]float64, nt.OutSize),
		ThV: make([]float64, nt.OutSize),
		Tau: make([]float64, nt.CSize),
	}
}

// Reset zeros all accumulated gradients.
func (g *Grads) Reset() {
	zmat := func(m [][]float64) {
		for r := range m {
			for c := range m[r] {
				m[r][c] = 0
			}
		}
	}
	zvec := func(v []float64) {
		for i := range v {
			v[i] = 0
		}
	}
	zmat(g.WCI)
	zmat(g.WCC)
	zmat(g.WOC)
	zmat(g.WVC)
	zvec(g.ThC)
	zvec(g.ThO)
	zvec(g.ThV)
	zvec(g.Tau)
}

// forwardBlock recomputes the open-loop forward pass for global steps
// [start,end) into the local rows [0,end-start) of st, starting from
// context state cstart (the state after global step start-1).
func (nt *Network) forwardBlock(st *State, cstart []float64, teach [][]float64, start, end int) {
	st.grow(nt, end-start)
	st.Len = end - start
	st.SetInit(cstart)
	for t := start; t < end; t++ {
		lt := t - start
		nt.openInput(st.In[lt], teach, t)
		nt.step(st, lt)
	}
}

// BPTT computes the gradients of the trial loss with respect to every
// network parameter and to the initial context state, accumulating
// into g.  The backward sweep replays the trajectory in blockLen
// chunks: the forward pass stores only block-boundary context states
// and the interior of each block is recomputed before its backward
// sweep, so memory is bounded by the block length regardless of trial
// length.  Gradients are identical for every block length.
//
// truncLen > 0 bounds the backward window: the trial is partitioned
// into segments of truncLen steps and error gradients do not propagate
// across segment boundaries.  truncLen = 0 (or a trial shorter than
// truncLen) gives full BPTT.
//
// st is a scratch trajectory buffer; its contents are overwritten.
// Returns the gradient with respect to the initial context state and
// the total trial loss.
func (nt *Network) BPTT(initC []float64, teach [][]float64, g *Grads, truncLen, blockLen int, st *State) (initGrad []float64, totErr float64) {
	nc, no := nt.CSize, nt.OutSize
	initGrad = make([]float64, nc)
	ln := len(teach)
	if ln == 0 {
		return initGrad, 0
	}
	if blockLen <= 0 || blockLen > ln {
		blockLen = ln
	}
	nb := (ln + blockLen - 1) / blockLen

	// checkpoint pass: forward once, keeping only block-boundary states
	cps := make([][]float64, nb)
	cps[0] = append([]float64(nil), initC...)
	for b := 0; b < nb; b++ {
		start := b * blockLen
		end := start + blockLen
		if end > ln {
			end = ln
		}
		nt.forwardBlock(st, cps[b], teach, start, end)
		for t := start; t < end; t++ {
			totErr += nt.StepError(st, t-start, teach[t])
		}
		if b+1 < nb {
			cps[b+1] = append([]float64(nil), st.C[end-start-1]...)
		}
	}

	carry := make([]float64, nc) // delta c(t+1), zero past the trial end
	dC := make([]float64, nc)
	dO := make([]float64, no)
	dU := make([]float64, no)

	for b := nb - 1; b >= 0; b-- {
		start := b * blockLen
		end := start + blockLen
		if end > ln {
			end = ln
		}
		nt.forwardBlock(st, cps[b], teach, start, end)
		for t := end - 1; t >= start; t-- {
			lt := t - start
			y := st.Out[lt]
			a := st.A[lt]
			tv := teach[t]
			switch nt.OutputType {
			case Tanh:
				for i := 0; i < no; i++ {
					e := y[i] - tv[i]
					v := st.Var[lt][i]
					dO[i] = (e / v) * (1 - y[i]*y[i])
					dU[i] = (v - e*e) / (2 * v * v) * (v - MinVariance)
				}
			case Softmax:
				tg := make([]float64, nt.NGroups)
				for i, ti := range tv {
					tg[nt.GroupID[i]] += ti
				}
				for i := 0; i < no; i++ {
					dO[i] = y[i]*tg[nt.GroupID[i]] - tv[i]
					dU[i] = 0
				}
			}
			for k := 0; k < nc; k++ {
				sum := 0.0
				for i := 0; i < no; i++ {
					if nt.OC.On[i][k] {
						sum += nt.WOC[i][k] * dO[i]
					}
				}
				if nt.OutputType == Tanh {
					for i := 0; i < no; i++ {
						if nt.VC.On[i][k] {
							sum += nt.WVC[i][k] * dU[i]
						}
					}
				}
				for j := 0; j < nc; j++ {
					if nt.CC.On[j][k] {
						sum += nt.WCC[j][k] * carry[j] / nt.Tau[j]
					}
				}
				dC[k] = (1-1/nt.Tau[k])*carry[k] + (1-a[k]*a[k])*sum
			}
			cprev, aprev := st.C0, st.A0
			if lt > 0 {
				cprev, aprev = st.C[lt-1], st.A[lt-1]
			}
			for i := 0; i < no; i++ {
				g.ThO[i] += dO[i]
				woc := nt.OC.On[i]
				for j := 0; j < nc; j++ {
					if woc[j] {
						g.WOC[i][j] += dO[i] * a[j]
					}
				}
			}
			if nt.OutputType == Tanh {
				for i := 0; i < no; i++ {
					g.ThV[i] += dU[i]
					wvc := nt.VC.On[i]
					for j := 0; j < nc; j++ {
						if wvc[j] {
							g.WVC[i][j] += dU[i] * a[j]
						}
					}
				}
			}
			x := st.In[lt]
			for k := 0; k < nc; k++ {
				eps := 1 / nt.Tau[k]
				dk := dC[k] * eps
				g.ThC[k] += dk
				for j := 0; j < nc; j++ {
					if nt.CC.On[k][j] {
						g.WCC[k][j] += dk * aprev[j]
					}
				}
				for i := 0; i < nt.InSize; i++ {
					if nt.CI.On[k][i] {
						g.WCI[k][i] += dk * x[i]
					}
				}
				// chain rule through the integration coefficient 1/tau
				g.Tau[k] += dC[k] * (cprev[k] - st.Inter[lt][k]) * eps * eps
			}
			if truncLen > 0 && t > 0 && t%truncLen == 0 {
				for k := range carry {
					carry[k] = 0
				}
			} else {
				copy(carry, dC)
			}
		}
	}

	// remaining delta flows into the learnable initial state c(-1)
	a0 := st.A0 // block 0 was replayed last, so st holds its init
	for k := 0; k < nc; k++ {
		sum := 0.0
		for j := 0; j < nc; j++ {
			if nt.CC.On[j][k] {
				sum += nt.WCC[j][k] * carry[j] / nt.Tau[j]
			}
		}
		initGrad[k] = (1-1/nt.Tau[k])*carry[k] + (1-a0[k]*a0[k])*sum
	}
	return initGrad, totErr
}
