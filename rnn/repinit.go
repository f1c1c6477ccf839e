// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

import "math/rand"

// InitEnsemble holds the representative initial-state candidates: for
// every trial, NCands learnable initial context vectors.  Each epoch
// the candidate with the lowest open-loop error represents the trial
// and receives the data gradient; all candidates of a trial are
// regularized toward the trial mean with strength 1/Variance, so one
// parameter set can represent several realizations of a variable
// trial.
type InitEnsemble struct {

	// number of trials
	NTrials int `desc:"number of trials"`

	// candidate initial states per trial
	NCands int `desc:"candidate initial states per trial"`

	// context state size
	CSize int `desc:"context state size"`

	// variance of the spread regularizer (rep_init_variance)
	Variance float64 `desc:"variance of the spread regularizer (rep_init_variance)"`

	// neurons whose initial state is a fixed constant
	ConstMask []bool `desc:"neurons whose initial state is a fixed constant"`

	// the constant values for masked neurons
	ConstVal []float64 `desc:"the constant values for masked neurons"`

	// candidate initial states [trial][cand][neuron]
	States [][][]float64 `desc:"candidate initial states [trial][cand][neuron]"`

	// momentum buffers, same shape as States
	Vel [][][]float64 `desc:"momentum buffers, same shape as States"`

	// accumulated gradients, zeroed every epoch
	Grads [][][]float64 `desc:"accumulated gradients, zeroed every epoch"`

	// index of the current best candidate per trial
	Best []int `desc:"index of the current best candidate per trial"`
}

// NewInitEnsemble allocates the ensemble for ntrials trials with
// ncands candidates each.  States are zero until InitStates is called.
func NewInitEnsemble(ntrials, ncands, csize int, variance float64) *InitEnsemble {
	ie := &InitEnsemble{NTrials: ntrials, NCands: ncands, CSize: csize, Variance: variance}
	ie.ConstMask = make([]bool, csize)
	ie.ConstVal = make([]float64, csize)
	alloc := func() [][][]float64 {
		s := make([][][]float64, ntrials)
		for n := range s {
			s[n] = make([][]float64, ncands)
			for m := range s[n] {
				s[n][m] = make([]float64, csize)
			}
		}
		return s
	}
	ie.States = alloc()
	ie.Vel = alloc()
	ie.Grads = alloc()
	ie.Best = make([]int, ntrials)
	return ie
}

// SetConstInitC installs the constant-initial-state mask; masked
// neurons hold val in every candidate and never learn.
func (ie *InitEnsemble) SetConstInitC(mask []bool, val []float64) {
	copy(ie.ConstMask, mask)
	copy(ie.ConstVal, val)
}

// InitStates draws all non-constant initial states uniformly from
// [-1, 1].
func (ie *InitEnsemble) InitStates(rnd *rand.Rand) {
	for n := range ie.States {
		for m := range ie.States[n] {
			for k := range ie.States[n][m] {
				if ie.ConstMask[k] {
					ie.States[n][m][k] = ie.ConstVal[k]
				} else {
					ie.States[n][m][k] = 2*rnd.Float64() - 1
				}
			}
		}
	}
}

// BestState returns the current best candidate for the trial.
func (ie *InitEnsemble) BestState(trial int) []float64 {
	return ie.States[trial][ie.Best[trial]]
}

// SelectBest forward-evaluates every candidate of the trial and
// records the one with the lowest open-loop error, returning its
// index.  st is a scratch trajectory buffer.  With a single candidate
// the forward pass is skipped.
func (ie *InitEnsemble) SelectBest(nt *Network, st *State, trial int, teach [][]float64) int {
	if ie.NCands == 1 {
		ie.Best[trial] = 0
		return 0
	}
	best := 0
	bestErr := 0.0
	for m, init := range ie.States[trial] {
		nt.Forward(st, init, teach)
		e := nt.Error(st, teach)
		if m == 0 || e < bestErr {
			best, bestErr = m, e
		}
	}
	ie.Best[trial] = best
	return best
}

// AccumGrad adds the data gradient (from BPTT) into the trial's best
// candidate.
func (ie *InitEnsemble) AccumGrad(trial int, grad []float64) {
	g := ie.Grads[trial][ie.Best[trial]]
	for k, gv := range grad {
		g[k] += gv
	}
}

// RegGrads adds the spread regularizer: every candidate is pulled
// toward its trial mean with strength 1/Variance.  Call once per
// epoch, after all data gradients are in.
func (ie *InitEnsemble) RegGrads() {
	if ie.NCands == 1 {
		return
	}
	mean := make([]float64, ie.CSize)
	for n := range ie.States {
		for k := range mean {
			mean[k] = 0
		}
		for _, cand := range ie.States[n] {
			for k, v := range cand {
				mean[k] += v
			}
		}
		for k := range mean {
			mean[k] /= float64(ie.NCands)
		}
		for m, cand := range ie.States[n] {
			for k, v := range cand {
				ie.Grads[n][m][k] += (v - mean[k]) / ie.Variance
			}
		}
	}
}

// ResetGrads zeros the accumulated gradients for the next epoch.
func (ie *InitEnsemble) ResetGrads() {
	for n := range ie.Grads {
		for m := range ie.Grads[n] {
			for k := range ie.Grads[n][m] {
				ie.Grads[n][m][k] = 0
			}
		}
	}
}

// Update applies the momentum update to all candidates, honoring the
// constant mask and the fixed-initial-state switch.
func (ie *InitEnsemble) Update(ls *LearnState) {
	if ls.FixedInitC {
		return
	}
	lr := ls.AdaptLR * ls.Rho
	for n := range ie.States {
		for m := range ie.States[n] {
			for k := range ie.States[n][m] {
				if ie.ConstMask[k] {
					continue
				}
				ie.Vel[n][m][k] = ls.Momentum*ie.Vel[n][m][k] - lr*ie.Grads[n][m][k]
				ie.States[n][m][k] += ie.Vel[n][m][k]
			}
		}
	}
}
