// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

import "math"

// State holds one forward trajectory of the network.  Buffers are
// allocated once and overwritten on every pass; nothing here persists
// across epochs.
type State struct {

	// number of valid steps
	Len int `desc:"number of valid steps"`

	// input presented at each step [Len][InSize]
	In [][]float64 `desc:"input presented at each step [Len][InSize]"`

	// context internal input (weighted sums) [Len][CSize]
	Inter [][]float64 `desc:"context internal input (weighted sums) [Len][CSize]"`

	// context membrane state [Len][CSize]
	C [][]float64 `desc:"context membrane state [Len][CSize]"`

	// context activation tanh(C) [Len][CSize]
	A [][]float64 `desc:"context activation tanh(C) [Len][CSize]"`

	// output activations [Len][OutSize]
	Out [][]float64 `desc:"output activations [Len][OutSize]"`

	// variance unit pre-activations [Len][OutSize]
	VarU [][]float64 `desc:"variance unit pre-activations [Len][OutSize]"`

	// output variances [Len][OutSize]
	Var [][]float64 `desc:"output variances [Len][OutSize]"`

	// initial context membrane state c(-1)
	C0 []float64 `desc:"initial context membrane state c(-1)"`

	// initial context activation tanh(c(-1))
	A0 []float64 `desc:"initial context activation tanh(c(-1))"`
}

// NewState allocates a trajectory buffer for up to length steps.
func NewState(nt *Network, length int) *State {
	st := &State{}
	st.C0 = make([]float64, nt.CSize)
	st.A0 = make([]float64, nt.CSize)
	st.grow(nt, length)
	return st
}

func (st *State) grow(nt *Network, length int) {
	for len(st.C) < length {
		st.In = append(st.In, make([]float64, nt.InSize))
		st.Inter = append(st.Inter, make([]float64, nt.CSize))
		st.C = append(st.C, make([]float64, nt.CSize))
		st.A = append(st.A, make([]float64, nt.CSize))
		st.Out = append(st.Out, make([]float64, nt.OutSize))
		st.VarU = append(st.VarU, make([]float64, nt.OutSize))
		st.Var = append(st.Var, make([]float64, nt.OutSize))
	}
}

// SetInit installs the initial context state c(-1).
func (st *State) SetInit(initC []float64) {
	copy(st.C0, initC)
	for k, c := range st.C0 {
		st.A0[k] = math.Tanh(c)
	}
}

// step computes step t of the trajectory from step t-1 (or the initial
// state when t == 0).  st.In[t] must already hold the input.
func (nt *Network) step(st *State, t int) {
	cprev, aprev := st.C0, st.A0
	if t > 0 {
		cprev, aprev = st.C[t-1], st.A[t-1]
	}
	x := st.In[t]
	for k := 0; k < nt.CSize; k++ {
		sum := nt.ThC[k]
		wci := nt.WCI[k]
		for i, xv := range x {
			sum += wci[i] * xv
		}
		wcc := nt.WCC[k]
		for j, av := range aprev {
			sum += wcc[j] * av
		}
		st.Inter[t][k] = sum
		eps := 1.0 / nt.Tau[k]
		st.C[t][k] = (1-eps)*cprev[k] + eps*sum
		st.A[t][k] = math.Tanh(st.C[t][k])
	}
	a := st.A[t]
	for i := 0; i < nt.OutSize; i++ {
		sum := nt.ThO[i]
		woc := nt.WOC[i]
		for j, av := range a {
			sum += woc[j] * av
		}
		st.Out[t][i] = sum
	}
	switch nt.OutputType {
	case Tanh:
		for i := range st.Out[t] {
			st.Out[t][i] = math.Tanh(st.Out[t][i])
		}
		for i := 0; i < nt.OutSize; i++ {
			sum := nt.ThV[i]
			wvc := nt.WVC[i]
			for j, av := range a {
				sum += wvc[j] * av
			}
			if sum > 30 {
				sum = 30
			} else if sum < -30 {
				sum = -30
			}
			st.VarU[t][i] = sum
			st.Var[t][i] = math.Exp(sum) + MinVariance
		}
	case Softmax:
		nt.softmax(st.Out[t])
		for i := range st.Var[t] {
			st.VarU[t][i] = 0
			st.Var[t][i] = 1
		}
	}
}

// softmax normalizes o in place, independently within each group.
func (nt *Network) softmax(o []float64) {
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

// Forward runs the open-loop (teacher-forced) pass over the whole
// target series: the input at step t is the target at step t-Delay,
// zero before the series start.
func (nt *Network) Forward(st *State, initC []float64, teach [][]float64) {
	n := len(teach)
	st.grow(nt, n)
	st.Len = n
	st.SetInit(initC)
	for t := 0; t < n; t++ {
		nt.openInput(st.In[t], teach, t)
		nt.step(st, t)
	}
}

// openInput fills x with the teacher-forced input for step t.
func (nt *Network) openInput(x []float64, teach [][]float64, t int) {
	if t < nt.Delay {
		for i := range x {
			x[i] = 0
		}
		return
	}
	copy(x, teach[t-nt.Delay])
}

// ForwardClosed runs the closed-loop pass for n steps: the input at
// step t is the network's own output at step t-Delay.  For the first
// Delay steps the input comes from seed (typically the opening target
// rows of a trial), or zero if seed is nil or too short.
func (nt *Network) ForwardClosed(st *State, initC []float64, seed [][]float64, n int) {
	st.grow(nt, n)
	st.Len = n
	st.SetInit(initC)
	for t := 0; t < n; t++ {
		x := st.In[t]
		if t < nt.Delay {
			if seed != nil && t < len(seed) {
				copy(x, seed[t])
			} else {
				for i := range x {
					x[i] = 0
				}
			}
		} else {
			copy(x, st.Out[t-nt.Delay])
		}
		nt.step(st, t)
	}
}

// Error returns the total loss of the trajectory against the target
// series: the Gaussian negative log-likelihood
// sum((y-t)^2/(2v) + ln(v)/2) in tanh mode, or the cross-entropy
// sum(t*ln(t/y)) over softmax groups.  Only the first st.Len steps
// that also exist in teach are scored.
func (nt *Network) Error(st *State, teach [][]float64) float64 {
	n := st.Len
	if len(teach) < n {
		n = len(teach)
	}
	err := 0.0
	for t := 0; t < n; t++ {
		err += nt.StepError(st, t, teach[t])
	}
	return err
}

// StepError returns the loss of step t against target row tv.
func (nt *Network) StepError(st *State, t int, tv []float64) float64 {
	err := 0.0
	switch nt.OutputType {
	case Tanh:
		for i, y := range st.Out[t] {
			e := y - tv[i]
			v := st.Var[t][i]
			err += e*e/(2*v) + 0.5*math.Log(v)
		}
	case Softmax:
		for i, y := range st.Out[t] {
			ti := tv[i]
			if ti <= 0 {
				continue
			}
			if y < 1e-12 {
				y = 1e-12
			}
			err += ti * math.Log(ti/y)
		}
	}
	return err
}
