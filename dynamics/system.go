// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dynamics characterizes the intrinsic dynamics of a trained
// network running in closed loop (its own delayed output fed back as
// input): Lyapunov spectrum, symbolic entropy, and periodic-orbit
// detection.  Everything here is read-only with respect to the
// network.
package dynamics

import (
	"math"

	"github.com/emer/rnnlearn/rnn"
	"gonum.org/v1/gonum/mat"
)

// System is the closed-loop network as an autonomous dynamical system.
// Its state is the context membrane state plus the pipeline of the
// next Delay inputs (outputs already emitted but not yet fed back).
type System struct {

	// the network, read-only
	Net *rnn.Network `desc:"the network, read-only"`

	// context membrane state
	C []float64 `desc:"context membrane state"`

	// context activation tanh(C)
	A []float64 `desc:"context activation tanh(C)"`

	// pending inputs: Queue[0] is consumed at the next step
	Queue [][]float64 `desc:"pending inputs: Queue[0] is consumed at the next step"`

	inter []float64
	out   []float64
}

// NewSystem starts the closed-loop system from an initial context
// state.  seed provides the first Delay inputs (typically the opening
// target rows of a trial); missing rows are zero.
func NewSystem(nt *rnn.Network, initC []float64, seed [][]float64) *System {
	sy := &System{Net: nt}
	sy.C = append([]float64(nil), initC...)
	sy.A = make([]float64, nt.CSize)
	for k, c := range sy.C {
		sy.A[k] = math.Tanh(c)
	}
	sy.Queue = make([][]float64, nt.Delay)
	for i := range sy.Queue {
		sy.Queue[i] = make([]float64, nt.InSize)
		if seed != nil && i < len(seed) {
			copy(sy.Queue[i], seed[i])
		}
	}
	sy.inter = make([]float64, nt.CSize)
	sy.out = make([]float64, nt.OutSize)
	return sy
}

// Dim returns the dimension of the extended state.
func (sy *System) Dim() int {
	return sy.Net.CSize + sy.Net.Delay*sy.Net.InSize
}

// Step advances the system one step and returns the new output (which
// joins the back of the input pipeline).  The returned slice is reused
// on the next call.
func (sy *System) Step() []float64 {
	nt := sy.Net
	x := sy.Queue[0]
	for k := 0; k < nt.CSize; k++ {
		sum := nt.ThC[k]
		for i, xv := range x {
			sum += nt.WCI[k][i] * xv
		}
		for j, av := range sy.A {
			sum += nt.WCC[k][j] * av
		}
		sy.inter[k] = sum
	}
	for k := 0; k < nt.CSize; k++ {
		eps := 1 / nt.Tau[k]
		sy.C[k] = (1-eps)*sy.C[k] + eps*sy.inter[k]
		sy.A[k] = math.Tanh(sy.C[k])
	}
	for i := 0; i < nt.OutSize; i++ {
		sum := nt.ThO[i]
		for j, av := range sy.A {
			sum += nt.WOC[i][j] * av
		}
		sy.out[i] = sum
	}
	if nt.OutputType == rnn.Tanh {
		for i := range sy.out {
			sy.out[i] = math.Tanh(sy.out[i])
		}
	} else {
		softmaxInPlace(nt, sy.out)
	}
	// rotate the pipeline: consumed input slot becomes the new output
	recycled := sy.Queue[0]
	copy(sy.Queue, sy.Queue[1:])
	copy(recycled, sy.out)
	sy.Queue[nt.Delay-1] = recycled
	return sy.out
}

func softmaxInPlace(nt *rnn.Network, o []float64) {
	for g := 0; g < nt.NGroups; g++ {
		max := math.Inf(-1)
		for i, gi := range nt.GroupID {
			if gi == g && o[i] > max {
				max = o[i]
			}
		}
		if math.IsInf(max, -1) {
			continue
		}
		sum := 0.0
		for i, gi := range nt.GroupID {
			if gi == g {
				o[i] = math.Exp(o[i] - max)
				sum += o[i]
			}
		}
		for i, gi := range nt.GroupID {
			if gi == g {
				o[i] /= sum
			}
		}
	}
}

// Finite reports whether the current state is finite.
func (sy *System) Finite() bool {
	for _, c := range sy.C {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Jacobian fills dst with the derivative of the extended-state map at
// the current state (before the next Step).  The extended state is
// z = (c, q_0, ..., q_{Delay-1}); the map consumes q_0 and appends the
// new output.  dst must be Dim x Dim; it is overwritten.
func (sy *System) Jacobian(dst *mat.Dense) {
	nt := sy.Net
	nc, no, d := nt.CSize, nt.OutSize, nt.Delay
	dim := sy.Dim()
	dst.Zero()

	// dc'/dc and dc'/dq0
	for k := 0; k < nc; k++ {
		eps := 1 / nt.Tau[k]
		for j := 0; j < nc; j++ {
			v := eps * nt.WCC[k][j] * (1 - sy.A[j]*sy.A[j])
			if k == j {
				v += 1 - eps
			}
			dst.Set(k, j, v)
		}
		for i := 0; i < no; i++ {
			dst.Set(k, nc+i, eps*nt.WCI[k][i])
		}
	}

	// shifted pipeline: q'_i = q_{i+1}
	for s := 0; s < d-1; s++ {
		for i := 0; i < no; i++ {
			dst.Set(nc+s*no+i, nc+(s+1)*no+i, 1)
		}
	}

	// the new output y' = g(WOC tanh(c') + ThO) closes the loop:
	// dy'/dz = G' WOC diag(1-a'^2) dc'/dz
	cnew := make([]float64, nc)
	anew := make([]float64, nc)
	x := sy.Queue[0]
	for k := 0; k < nc; k++ {
		sum := nt.ThC[k]
		for i, xv := range x {
			sum += nt.WCI[k][i] * xv
		}
		for j, av := range sy.A {
			sum += nt.WCC[k][j] * av
		}
		eps := 1 / nt.Tau[k]
		cnew[k] = (1-eps)*sy.C[k] + eps*sum
		anew[k] = math.Tanh(cnew[k])
	}
	ynew := make([]float64, no)
	for i := 0; i < no; i++ {
		sum := nt.ThO[i]
		for j, av := range anew {
			sum += nt.WOC[i][j] * av
		}
		ynew[i] = sum
	}
	if nt.OutputType == rnn.Tanh {
		for i := range ynew {
			ynew[i] = math.Tanh(ynew[i])
		}
	} else {
		softmaxInPlace(nt, ynew)
	}
	// do/dz for the pre-activation outputs
	dodz := mat.NewDense(no, dim, nil)
	for i := 0; i < no; i++ {
		for z := 0; z < dim; z++ {
			sum := 0.0
			for j := 0; j < nc; j++ {
				sum += nt.WOC[i][j] * (1 - anew[j]*anew[j]) * dst.At(j, z)
			}
			dodz.Set(i, z, sum)
		}
	}
	yrow := nc + (d-1)*no
	for i := 0; i < no; i++ {
		for z := 0; z < dim; z++ {
			v := 0.0
			if nt.OutputType == rnn.Tanh {
				v = (1 - ynew[i]*ynew[i]) * dodz.At(i, z)
			} else {
				for j := 0; j < no; j++ {
					if nt.GroupID[j] != nt.GroupID[i] {
						continue
					}
					del := 0.0
					if i == j {
						del = 1
					}
					v += ynew[i] * (del - ynew[j]) * dodz.At(j, z)
				}
			}
			dst.Set(yrow+i, z, v)
		}
	}
}
